// Package cli wires the bilistream commands: login flows, upload, download
// and the archive operations.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bilistream/bilistream/internal/config"
	"github.com/bilistream/bilistream/internal/logging"
	"github.com/bilistream/bilistream/internal/repository"
	"github.com/bilistream/bilistream/pkg/bili"
)

var (
	cfgPath        string
	credentialFile string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "bilistream",
	Short:         "Upload and download client for bilibili",
	Long:          "Chunked concurrent uploads, CDN line probing, segmented downloads and archive management.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if credentialFile == "" {
			credentialFile = cfg.Credential.File
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&credentialFile, "credential", "c", "", "path to credential file")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(historyCmd)
}

// ExecuteContext runs the root command and returns the error (for main to
// log).
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setupLogger initializes the per-operation rolling log sink.
func setupLogger(op string) (*slog.Logger, func() error) {
	return logging.Setup(cfg.Log, op)
}

// clientConfig builds the platform client configuration from cfg.
func clientConfig() bili.ClientConfig {
	return bili.ClientConfig{
		UserAgent: cfg.Upload.UserAgent,
		Timeout:   cfg.Upload.Timeout,
	}
}

// openHistory opens the history store when enabled; a nil store disables
// recording.
func openHistory(logger *slog.Logger) *repository.HistoryStore {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := repository.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history store unavailable", "error", err)
		return nil
	}
	return store
}

// openHistoryStrict opens the history store or fails, for commands that
// exist to read it.
func openHistoryStrict() (*repository.HistoryStore, error) {
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled in configuration")
	}
	return repository.Open(cfg.History.Path)
}
