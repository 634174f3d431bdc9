package main

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"tandem/internal/config"
	"tandem/internal/ebook"
	"tandem/internal/queue"
	"tandem/internal/services/audiobookshelf"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var listAudiobooks bool
	var listEbooks bool
	var requeueID string
	var filter string
	var title string
	var download bool

	cmd := &cobra.Command{
		Use:   "match [audio-item-id] [ebook-path]",
		Short: "Pair an audiobook with an e-book and queue it for syncing",
		Long: "Pair an Audiobookshelf item with an e-book file. The pair is queued as\n" +
			"pending; the daemon prepares the transcript and activates it. Pairing the\n" +
			"same audiobook again replaces the previous mapping and resets its state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			switch {
			case listAudiobooks:
				return runListAudiobooks(cmd, cfg, filter)
			case listEbooks:
				return runListEbooks(cmd, cfg, filter)
			case requeueID != "":
				return runRequeue(cmd, ctx, requeueID)
			}

			if download {
				if len(args) != 1 {
					return fmt.Errorf("--download expects a single <audio-item-id> argument")
				}
				ebookPath, err := audiobookshelf.New(cfg).DownloadEbook(cmd.Context(), args[0], cfg.Paths.BooksDir)
				if err != nil {
					return fmt.Errorf("download ebook: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s\n", ebookPath)
				return runPair(cmd, ctx, cfg, args[0], ebookPath, title)
			}

			if len(args) != 2 {
				return fmt.Errorf("expected <audio-item-id> <ebook-path> arguments (or one of --list-audiobooks, --list-ebooks, --requeue, --download)")
			}
			return runPair(cmd, ctx, cfg, args[0], args[1], title)
		},
	}

	cmd.Flags().BoolVar(&listAudiobooks, "list-audiobooks", false, "List audiobooks available on the audio provider")
	cmd.Flags().BoolVar(&listEbooks, "list-ebooks", false, "List e-book files under the configured books directory")
	cmd.Flags().StringVar(&requeueID, "requeue", "", "Re-queue a failed or crashed mapping by audio item ID")
	cmd.Flags().StringVar(&filter, "filter", "", "Case-insensitive title filter for the listing flags")
	cmd.Flags().StringVar(&title, "title", "", "Override the mapping title instead of asking the provider")
	cmd.Flags().BoolVar(&download, "download", false, "Fetch the item's e-book file from the audio provider into books_dir and pair with it")

	return cmd
}

func runListAudiobooks(cmd *cobra.Command, cfg *config.Config, filter string) error {
	client := audiobookshelf.New(cfg)
	books, err := client.ListAudiobooks(cmd.Context())
	if err != nil {
		return err
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	rows := make([][]string, 0, len(books))
	for _, book := range books {
		if needle != "" && !strings.Contains(strings.ToLower(book.Title), needle) {
			continue
		}
		rows = append(rows, []string{book.ID, truncate(book.Title, 60), truncate(book.Author, 30)})
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audiobooks found")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title", "Author"}, rows))
	return nil
}

func runListEbooks(cmd *cobra.Command, cfg *config.Config, filter string) error {
	needle := strings.ToLower(strings.TrimSpace(filter))
	var rows [][]string
	err := filepath.WalkDir(cfg.Paths.BooksDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".epub") {
			return nil
		}
		if needle != "" && !strings.Contains(strings.ToLower(entry.Name()), needle) {
			return nil
		}
		rows = append(rows, []string{entry.Name(), path})
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan books directory: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No e-books found under "+cfg.Paths.BooksDir)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Path"}, rows))
	return nil
}

func runRequeue(cmd *cobra.Command, ctx *commandContext, audioItemID string) error {
	return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
		item, err := store.GetByAudioID(cmd.Context(), audioItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("no mapping found for audio item %q", audioItemID)
		}
		if !item.Status.IsFailure() {
			return fmt.Errorf("mapping %q is %s; only failed or crashed mappings can be re-queued", audioItemID, item.Status)
		}
		if _, err := store.RetryFailed(cmd.Context(), item.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Re-queued %q for preparation\n", item.Title)
		return nil
	})
}

func runPair(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, audioItemID, ebookPath, title string) error {
	expanded, err := config.ExpandPath(ebookPath)
	if err != nil {
		return fmt.Errorf("resolve ebook path: %w", err)
	}
	ebookPath, err = filepath.Abs(expanded)
	if err != nil {
		return fmt.Errorf("resolve ebook path: %w", err)
	}

	documentID, err := ebook.DocumentID(ebookPath, cfg.KoSync.HashMethod)
	if err != nil {
		return fmt.Errorf("compute document id: %w", err)
	}

	if strings.TrimSpace(title) == "" {
		title, err = lookupTitle(cmd.Context(), cfg, audioItemID)
		if err != nil {
			return fmt.Errorf("resolve title for %s (use --title to set one manually): %w", audioItemID, err)
		}
	}

	return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
		item, err := store.NewMapping(cmd.Context(), audioItemID, title, ebookPath, documentID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Queued %q <-> %s\n", item.Title, filepath.Base(item.EbookPath))
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Audio Item", "Document ID", "Status"},
			[][]string{{fmt.Sprint(item.ID), item.AudioItemID, item.DocumentID, string(item.Status)}},
			text.AlignRight,
		))
		return nil
	})
}

func lookupTitle(ctx context.Context, cfg *config.Config, audioItemID string) (string, error) {
	client := audiobookshelf.New(cfg)
	books, err := client.ListAudiobooks(ctx)
	if err != nil {
		return "", err
	}
	for _, book := range books {
		if book.ID == audioItemID {
			return book.Title, nil
		}
	}
	return "", fmt.Errorf("audio item %q not found on the provider", audioItemID)
}
