package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mangarecap/internal/config"
	"mangarecap/internal/mangacache"
	"mangarecap/internal/pipeline"
	"mangarecap/internal/recap"
)

const planTextWidth = 48

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags chapterFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the timeline, motion plans and cues without encoding",
		Long: `Run a chapter through classification, timing, motion and subtitles and
print the result. Nothing is encoded and the cache is not written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store mangacache.Store) error {
				ch, deps, err := flags.assemble(cmd.Context(), cfg, logger, store)
				if err != nil {
					return err
				}
				assembler, err := pipeline.New(cfg, deps, logger)
				if err != nil {
					return err
				}
				res, err := assembler.Plan(cmd.Context(), ch)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, planJSON{
						RunID:        res.RunID,
						TimingSource: string(res.TimingSource),
						Pages:        res.Pages,
						Segments:     res.Segments,
						Timeline:     res.Timeline,
						Cues:         res.Cues,
					})
				}
				printPlan(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON")
	return cmd
}

type planJSON struct {
	RunID        string                   `json:"run_id"`
	TimingSource string                   `json:"timing_source"`
	Pages        []recap.Page             `json:"pages"`
	Segments     []recap.NarrationSegment `json:"segments"`
	Timeline     recap.Timeline           `json:"timeline"`
	Cues         []recap.SubtitleCue      `json:"cues"`
}

func printPlan(out io.Writer, res pipeline.Result) {
	tl := res.Timeline
	fmt.Fprintf(out, "Pages: %d (%d content)  Timing: %s\n", len(res.Pages), res.ContentPages(), res.TimingSource)
	fmt.Fprintf(out, "Total: %s  Narrated: %s  Extension: %s\n\n",
		formatSeconds(tl.Total), formatSeconds(tl.Narrated), formatSeconds(tl.Extension))

	var start time.Duration
	pageRows := make([][]string, 0, len(tl.Plans))
	for _, plan := range tl.Plans {
		pageRows = append(pageRows, []string{
			strconv.Itoa(plan.PageIndex),
			formatSeconds(start),
			formatSeconds(plan.Duration),
			fmt.Sprintf("%.3f", plan.Zoom),
			formatRect(plan.StartRect),
			formatRect(plan.EndRect),
		})
		start += plan.Duration
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Page", "Start", "Duration", "Zoom", "From", "To"},
		pageRows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))

	segRows := make([][]string, 0, len(res.Segments))
	for i, seg := range res.Segments {
		var window recap.SegmentWindow
		if i < len(tl.Windows) {
			window = tl.Windows[i]
		}
		segRows = append(segRows, []string{
			strconv.Itoa(seg.Index),
			formatSeconds(window.Start),
			formatSeconds(window.End),
			formatPages(seg.SourcePages),
			truncate(seg.Text),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Segment", "Start", "End", "Pages", "Narration"},
		segRows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))

	cueRows := make([][]string, 0, len(res.Cues))
	for i, cue := range res.Cues {
		cueRows = append(cueRows, []string{
			strconv.Itoa(i + 1),
			formatSeconds(cue.Start),
			formatSeconds(cue.End),
			strconv.Itoa(cue.PageIndexHint),
			truncate(strings.Join(cue.Lines, " / ")),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Cue", "Start", "End", "Page", "Text"},
		cueRows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func formatRect(r recap.Rect) string {
	return fmt.Sprintf("%.0f,%.0f %.0fx%.0f", r.X, r.Y, r.W, r.H)
}

func formatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// truncate shortens text to the plan table width in display cells.
func truncate(text string) string {
	return runewidth.Truncate(text, planTextWidth, "…")
}

// displayTitle title-cases a mood or genre for terminal output.
func displayTitle(value string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(value))
}
