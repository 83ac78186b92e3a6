package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mangarecap/internal/config"
	"mangarecap/internal/encoder"
	"mangarecap/internal/mangacache"
	"mangarecap/internal/manifest"
	"mangarecap/internal/media/ffprobe"
	"mangarecap/internal/pipeline"
	"mangarecap/internal/preflight"
	"mangarecap/internal/services/freesound"
	"mangarecap/internal/services/llm"
	"mangarecap/internal/services/mangadex"
	"mangarecap/internal/services/tts"
)

// chapterFlags selects a chapter either from MangaDex or from a manifest.
type chapterFlags struct {
	manifest string
	mangaID  string
	chapter  string
	number   string
	next     bool
	out      string
}

func (f *chapterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "Render from a local chapter manifest (YAML)")
	cmd.Flags().StringVar(&f.mangaID, "manga", "", "MangaDex manga ID")
	cmd.Flags().StringVar(&f.chapter, "chapter", "", "MangaDex chapter ID")
	cmd.Flags().StringVar(&f.number, "number", "", "Chapter number used for ordering summaries (looked up when omitted)")
	cmd.Flags().BoolVar(&f.next, "next", false, "Pick the first chapter after the latest cached summary")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output video path")
}

func (f *chapterFlags) online() bool {
	return strings.TrimSpace(f.manifest) == ""
}

func (f *chapterFlags) validate() error {
	hasManifest := strings.TrimSpace(f.manifest) != ""
	hasIDs := strings.TrimSpace(f.mangaID) != "" || strings.TrimSpace(f.chapter) != ""
	switch {
	case hasManifest && (hasIDs || f.next):
		return errors.New("use either --manifest or --manga/--chapter, not both")
	case hasManifest:
		return nil
	case f.next:
		if strings.TrimSpace(f.mangaID) == "" {
			return errors.New("--next requires --manga")
		}
		if strings.TrimSpace(f.chapter) != "" || strings.TrimSpace(f.number) != "" {
			return errors.New("--next picks the chapter; drop --chapter and --number")
		}
		return nil
	case strings.TrimSpace(f.mangaID) == "" || strings.TrimSpace(f.chapter) == "":
		return errors.New("--manga and --chapter are required without --manifest")
	}
	return nil
}

// assemble resolves the chapter and wires the assembler's collaborators.
func (f *chapterFlags) assemble(ctx context.Context, cfg *config.Config, logger *slog.Logger, store mangacache.Store) (pipeline.Chapter, pipeline.Dependencies, error) {
	prober := ffprobe.NewProber(cfg.FFprobeBinary())
	deps := pipeline.Dependencies{Prober: prober, Store: store}
	var ch pipeline.Chapter

	if f.online() {
		if err := cfg.RequireLLM(); err != nil {
			return ch, deps, err
		}
		dex := mangadex.NewClient(cfg.MangaDex, logger)
		deps.Pages = dex
		deps.Context = dex
		deps.Classifier = llm.NewClassifier(llm.NewClient(llmConfig(cfg.GetLLM())))
		deps.Narrator = llm.NewNarrator(llm.NewClient(llmConfig(cfg.NarrationLLM())))
		var err error
		if ch, err = f.resolveOnline(ctx, dex, store, logger); err != nil {
			return ch, deps, err
		}
	} else {
		path, err := config.ExpandPath(strings.TrimSpace(f.manifest))
		if err != nil {
			return ch, deps, fmt.Errorf("resolve manifest path: %w", err)
		}
		m, err := manifest.Load(path)
		if err != nil {
			return ch, deps, err
		}
		deps.Pages = m
		deps.Classifier = m.Classifier()
		deps.Narrator = m.Narrator()
		ch = m.Chapter()
		if n := strings.TrimSpace(f.number); n != "" {
			ch.ChapterNumber = n
		}
	}

	if out := strings.TrimSpace(f.out); out != "" {
		expanded, err := config.ExpandPath(out)
		if err != nil {
			return ch, deps, fmt.Errorf("resolve output path: %w", err)
		}
		ch.OutputPath = expanded
	}
	if cfg.TTS.Enabled {
		deps.Speech = tts.NewSynthesizer(cfg, prober)
	}
	if cfg.Music.Enabled {
		deps.Music = freesound.NewSource(cfg, logger)
	}
	return ch, deps, nil
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		Model:          c.Model,
		Referer:        c.Referer,
		Title:          c.Title,
		TimeoutSeconds: c.TimeoutSeconds,
	}
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags chapterFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a chapter recap video",
		Long: `Render a chapter recap video.

Online mode downloads pages from MangaDex and uses the configured LLM to
classify pages and write narration:

  mangarecap render --manga <manga-id> --chapter <chapter-id> --number 12

Without --number the chapter number is looked up on MangaDex. --next picks
the first chapter in the feed after the latest cached summary:

  mangarecap render --manga <manga-id> --next

Offline mode reads pages, labels and narration from a chapter manifest:

  mangarecap render --manifest chapter.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store mangacache.Store) error {
				if err := runPreflight(cmd.Context(), cfg, flags.online()); err != nil {
					return err
				}
				ch, deps, err := flags.assemble(cmd.Context(), cfg, logger, store)
				if err != nil {
					return err
				}
				deps.Encoder = encoder.New(cfg.FFmpegBinary(), logger)
				assembler, err := pipeline.New(cfg, deps, logger)
				if err != nil {
					return err
				}
				res, err := assembler.Run(cmd.Context(), ch)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, renderSummary(res))
				}
				printRenderResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the render result as JSON")
	return cmd
}

func runPreflight(ctx context.Context, cfg *config.Config, online bool) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg, online))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
}

type renderJSON struct {
	RunID        string  `json:"run_id"`
	Stage        string  `json:"stage"`
	Output       string  `json:"output"`
	Subtitles    string  `json:"subtitles,omitempty"`
	DurationSecs float64 `json:"duration_seconds"`
	Pages        int     `json:"pages"`
	ContentPages int     `json:"content_pages"`
	Segments     int     `json:"segments"`
	TimingSource string  `json:"timing_source"`
	Mood         string  `json:"mood,omitempty"`
	Music        bool    `json:"music"`
	Cached       bool    `json:"cached"`
}

func renderSummary(res pipeline.Result) renderJSON {
	return renderJSON{
		RunID:        res.RunID,
		Stage:        string(res.Stage),
		Output:       res.Output.Path,
		Subtitles:    res.SRTPath,
		DurationSecs: res.Timeline.Total.Seconds(),
		Pages:        len(res.Pages),
		ContentPages: res.ContentPages(),
		Segments:     len(res.Segments),
		TimingSource: string(res.TimingSource),
		Mood:         res.Mood,
		Music:        res.Mix.HasMusic(),
		Cached:       res.Cached,
	}
}

func printRenderResult(out io.Writer, res pipeline.Result) {
	s := renderSummary(res)
	fmt.Fprintf(out, "Rendered %s\n", s.Output)
	fmt.Fprintf(out, "  Duration:  %s\n", formatSeconds(res.Timeline.Total))
	fmt.Fprintf(out, "  Pages:     %d (%d content)\n", s.Pages, s.ContentPages)
	fmt.Fprintf(out, "  Segments:  %d (%s timing)\n", s.Segments, s.TimingSource)
	if s.Mood != "" {
		fmt.Fprintf(out, "  Mood:      %s\n", displayTitle(s.Mood))
	}
	fmt.Fprintf(out, "  Music:     %s\n", yesNo(s.Music))
	if s.Subtitles != "" {
		fmt.Fprintf(out, "  Subtitles: %s\n", s.Subtitles)
	}
	fmt.Fprintf(out, "  Cached:    %s\n", yesNo(s.Cached))
}
