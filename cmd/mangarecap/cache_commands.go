package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mangarecap/internal/config"
	"mangarecap/internal/mangacache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear cached manga context and chapter summaries",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached manga",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store mangacache.Store) error {
				entries, err := store.ListManga(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "Cache is empty (%s)\n", cfg.Cache.Dir)
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{e.MangaID, e.Title, strconv.Itoa(e.ChapterCount), formatTime(e.LastUpdated)})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Manga", "Title", "Chapters", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <manga-id>",
		Short: "Show the cached context and chapter summaries for a manga",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mangaID := strings.TrimSpace(args[0])
			return ctx.withStore(func(_ *config.Config, store mangacache.Store) error {
				mc, ok, err := store.GetMangaContext(cmd.Context(), mangaID)
				if err != nil {
					return err
				}
				chapters, err := store.ListChapters(cmd.Context(), mangaID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok && len(chapters) == 0 {
					fmt.Fprintf(out, "Nothing cached for %s\n", mangaID)
					return nil
				}
				if ok {
					fmt.Fprintf(out, "Title:    %s\n", mc.Title)
					if len(mc.Genres) > 0 {
						genres := make([]string, len(mc.Genres))
						for i, g := range mc.Genres {
							genres[i] = displayTitle(g)
						}
						fmt.Fprintf(out, "Genres:   %s\n", strings.Join(genres, ", "))
					}
					fmt.Fprintf(out, "Updated:  %s\n", formatTime(mc.LastUpdated))
					if mc.Synopsis != "" {
						fmt.Fprintf(out, "Synopsis: %s\n", mc.Synopsis)
					}
					fmt.Fprintln(out)
				}
				if len(chapters) == 0 {
					fmt.Fprintln(out, "No chapter summaries")
					return nil
				}
				rows := make([][]string, 0, len(chapters))
				for _, s := range chapters {
					rows = append(rows, []string{s.OrderKey(), s.ChapterID, strconv.Itoa(s.PageCount), truncate(s.SummaryText)})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Chapter", "ID", "Pages", "Summary"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <manga-id>",
		Short: "Remove the cached context and summaries for a manga",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mangaID := strings.TrimSpace(args[0])
			return ctx.withStore(func(_ *config.Config, store mangacache.Store) error {
				if err := store.ClearManga(cmd.Context(), mangaID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache for %s\n", mangaID)
				return nil
			})
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
