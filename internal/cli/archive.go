package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bilistream/bilistream/internal/service"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <bvid>",
	Short: "Fetch a published record's current metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("archive")
		defer closeLog()

		svc := service.NewArchiveService(cfg, clientConfig(), logger)
		raw, err := svc.Fetch(cmd.Context(), credentialFile, args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	},
}

var editFlags struct {
	title string
	cover string
	tag   string
}

var editCmd = &cobra.Command{
	Use:   "edit <bvid>",
	Short: "Edit a published record; unset flags leave fields unchanged",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("archive")
		defer closeLog()

		svc := service.NewArchiveService(cfg, clientConfig(), logger)
		raw, err := svc.Edit(cmd.Context(), credentialFile, args[0], service.EditRequest{
			Title: editFlags.title,
			Cover: editFlags.cover,
			Tag:   editFlags.tag,
		})
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	},
}

var listFlags struct {
	status string
	page   int
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published records filtered by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("archive")
		defer closeLog()

		svc := service.NewArchiveService(cfg, clientConfig(), logger)
		raw, err := svc.List(cmd.Context(), credentialFile, listFlags.status, listFlags.page)
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <bvid>",
	Short: "Delete a published record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closeLog := setupLogger("archive")
		defer closeLog()

		svc := service.NewArchiveService(cfg, clientConfig(), logger)
		return svc.Delete(cmd.Context(), credentialFile, args[0])
	},
}

var historyFlags struct {
	kind  string
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent local upload/download history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStrict()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.Recent(cmd.Context(), historyFlags.kind, historyFlags.limit)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Printf("%s  %-8s  %-14s  %8d bytes  %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Kind, rec.Identifier, rec.Bytes, rec.Title)
		}
		return nil
	},
}

func init() {
	editCmd.Flags().StringVar(&editFlags.title, "title", "", "new title")
	editCmd.Flags().StringVar(&editFlags.cover, "cover", "", "new cover path or url")
	editCmd.Flags().StringVar(&editFlags.tag, "tag", "", "new tag string")

	listCmd.Flags().StringVar(&listFlags.status, "status", "pubed", "archive status filter")
	listCmd.Flags().IntVar(&listFlags.page, "page", 1, "page number")

	historyCmd.Flags().StringVar(&historyFlags.kind, "kind", "", "filter by kind (upload or download)")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "max records")
}
