package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/draftcut-backend/internal/app"
)

// withApp builds the application inside RunE so --help never touches the DB.
func withApp(fn func(a *app.App) error) error {
	a, err := app.New()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	return fn(a)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "export_chapter",
		Short:         "Package JianYing drafts and manage exported archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExportCommand(), newSweepCommand())
	return root
}

func newExportCommand() *cobra.Command {
	var ownerFlag, outFlag string
	cmd := &cobra.Command{
		Use:   "export <chapter-id>",
		Short: "Export one chapter as a draft archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapterID, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid chapter id %q", args[0])
			}
			ownerID, err := uuid.Parse(strings.TrimSpace(ownerFlag))
			if err != nil {
				return errors.New("a valid --owner id is required")
			}
			return withApp(func(a *app.App) error {
				res, err := a.Services.Export.ExportChapter(cmd.Context(), ownerID, chapterID)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "archive=%s bytes=%d draft_id=%s duration_us=%d missing_assets=%d warnings=%d\n",
					res.ArchivePath, res.Size, res.DraftID, res.Duration, res.MissingAssets, res.Warnings)

				if outFlag == "" {
					return nil
				}
				dst := filepath.Join(outFlag, res.FileName)
				if err := copyFile(res.ArchivePath, dst); err != nil {
					return fmt.Errorf("copy archive: %w", err)
				}
				fmt.Fprintf(w, "copied to %s\n", dst)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "owner user id of the chapter")
	cmd.Flags().StringVar(&outFlag, "out", "", "also copy the archive into this directory")
	return cmd
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove archives older than EXPORT_RETENTION",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				n, err := a.Services.Export.SweepExpired(cmd.Context(), a.Cfg.ExportRetention)
				if err != nil {
					return fmt.Errorf("sweep: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired archives\n", n)
				return nil
			})
		},
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, in); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
