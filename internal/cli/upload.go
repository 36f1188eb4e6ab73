package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bilistream/bilistream/internal/domain"
	"github.com/bilistream/bilistream/internal/line"
	"github.com/bilistream/bilistream/internal/service"
)

var uploadFlags struct {
	title         string
	tid           int
	tag           string
	copyright     int
	source        string
	desc          string
	dynamic       string
	cover         string
	dtime         int64
	dolby         bool
	losslessMusic bool
	noReprint     bool
	openElec      bool
	closeReply    bool
	selection     bool
	closeDanmu    bool
	credits       string
	limit         int
	lineName      string
	byApp         bool
	proxy         string
	userAgent     string
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload video files and publish them as one archive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("upload")
		defer closeLog()

		history := openHistory(logger)
		if history != nil {
			defer history.Close()
		}

		req := service.UploadRequest{
			CredentialFile: credentialFile,
			Files:          args,
			Limit:          uploadFlags.limit,
			Submit:         domain.SubmitWeb{},
		}

		if uploadFlags.byApp {
			req.Submit = domain.SubmitApp{Proxy: uploadFlags.proxy, UserAgent: uploadFlags.userAgent}
		}

		if uploadFlags.lineName != "" {
			l, err := line.Parse(uploadFlags.lineName)
			if err != nil {
				return err
			}
			req.Line = &l
		} else if cfg.Upload.Line != "" {
			l, err := line.Parse(cfg.Upload.Line)
			if err != nil {
				return err
			}
			req.Line = &l
		}

		studio := domain.NewStudio(uploadFlags.title)
		studio.Tid = uploadFlags.tid
		studio.Tag = uploadFlags.tag
		studio.Copyright = uploadFlags.copyright
		studio.Source = uploadFlags.source
		studio.Desc = uploadFlags.desc
		studio.Dynamic = uploadFlags.dynamic
		studio.Cover = uploadFlags.cover
		studio.DTime = uploadFlags.dtime
		studio.Dolby = boolFlag(uploadFlags.dolby)
		studio.LosslessMusic = boolFlag(uploadFlags.losslessMusic)
		studio.NoReprint = boolFlag(uploadFlags.noReprint)
		studio.OpenElec = boolFlag(uploadFlags.openElec)
		studio.UpCloseReply = uploadFlags.closeReply
		studio.UpSelectionReply = uploadFlags.selection
		studio.UpCloseDanmu = uploadFlags.closeDanmu

		if uploadFlags.credits != "" {
			if err := json.Unmarshal([]byte(uploadFlags.credits), &studio.DescV2); err != nil {
				return fmt.Errorf("parse credits: %w", err)
			}
		}
		req.Studio = studio

		svc := service.NewUploadService(cfg, clientConfig(), history, logger)
		bvid, err := svc.Upload(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Println(bvid)
		return nil
	},
}

func init() {
	f := uploadCmd.Flags()
	f.StringVar(&uploadFlags.title, "title", "", "archive title (required)")
	f.IntVar(&uploadFlags.tid, "tid", 171, "category id")
	f.StringVar(&uploadFlags.tag, "tag", "", "comma-separated tags")
	f.IntVar(&uploadFlags.copyright, "copyright", 2, "1 original, 2 repost")
	f.StringVar(&uploadFlags.source, "source", "", "repost source")
	f.StringVar(&uploadFlags.desc, "desc", "", "description text")
	f.StringVar(&uploadFlags.dynamic, "dynamic", "", "dynamic text")
	f.StringVar(&uploadFlags.cover, "cover", "", "cover image path or url")
	f.Int64Var(&uploadFlags.dtime, "dtime", 0, "scheduled publish time (unix seconds)")
	f.BoolVar(&uploadFlags.dolby, "dolby", false, "dolby audio")
	f.BoolVar(&uploadFlags.losslessMusic, "lossless-music", false, "lossless music")
	f.BoolVar(&uploadFlags.noReprint, "no-reprint", false, "forbid reprint")
	f.BoolVar(&uploadFlags.openElec, "open-elec", false, "open charging panel")
	f.BoolVar(&uploadFlags.closeReply, "close-reply", false, "close replies")
	f.BoolVar(&uploadFlags.selection, "selection-reply", false, "selection replies")
	f.BoolVar(&uploadFlags.closeDanmu, "close-danmu", false, "close danmu")
	f.StringVar(&uploadFlags.credits, "credits", "", "structured credits as JSON array")
	f.IntVar(&uploadFlags.limit, "limit", 0, "max concurrent chunk uploads (default from config)")
	f.StringVar(&uploadFlags.lineName, "line", "", "force upload line (bda2, ws, qn, bldsa, tx, txa, bda)")
	f.BoolVar(&uploadFlags.byApp, "app", false, "submit through the app endpoint")
	f.StringVar(&uploadFlags.proxy, "proxy", "", "outbound proxy for app submission")
	f.StringVar(&uploadFlags.userAgent, "user-agent", "", "user agent override for app submission")
	uploadCmd.MarkFlagRequired("title")
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
