package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bilistream/bilistream/internal/downloader"
	"github.com/bilistream/bilistream/internal/service"
)

var downloadFlags struct {
	output      string
	segmentTime time.Duration
	segmentSize int64
	headers     []string
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download a stream to disk, segmented by time or size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("download")
		defer closeLog()

		if (downloadFlags.segmentTime > 0) == (downloadFlags.segmentSize > 0) {
			return fmt.Errorf("exactly one of --segment-time and --segment-size must be set")
		}

		var seg *downloader.Segment
		if downloadFlags.segmentTime > 0 {
			seg = downloader.ByTime(downloadFlags.segmentTime)
		} else {
			seg = downloader.BySize(downloadFlags.segmentSize)
		}

		headers := make(map[string]string, len(downloadFlags.headers))
		for _, h := range downloadFlags.headers {
			key, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("invalid header %q, want key:value", h)
			}
			headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}

		history := openHistory(logger)
		if history != nil {
			defer history.Close()
		}

		svc := service.NewDownloadService(cfg.Download, history, logger)
		stats, err := svc.Download(cmd.Context(), service.DownloadRequest{
			URL:     args[0],
			Headers: headers,
			Output:  downloadFlags.output,
			Segment: seg,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%d bytes in %d segment(s)\n", stats.Bytes, stats.Segments)
		return nil
	},
}

func init() {
	f := downloadCmd.Flags()
	f.StringVarP(&downloadFlags.output, "output", "o", "stream.flv", "output file name template")
	f.DurationVar(&downloadFlags.segmentTime, "segment-time", 0, "start a new segment after this duration")
	f.Int64Var(&downloadFlags.segmentSize, "segment-size", 0, "start a new segment after this many bytes")
	f.StringArrayVarP(&downloadFlags.headers, "header", "H", nil, "extra request header (key:value, repeatable)")
}
