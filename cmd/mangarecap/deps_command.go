package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mangarecap/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries and ffmpeg filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			if ffmpeg := statuses[0]; ffmpeg.Available && ffmpeg.Command == cfg.FFmpegBinary() {
				statuses = append(statuses, deps.CheckFFmpegFilters(cmd.Context(), ffmpeg.Command))
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Detail
				if detail == "" {
					detail = s.Description
				}
				rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), yesNo(s.Optional), detail})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Dependency", "Command", "Available", "Optional", "Detail"},
				rows,
				nil,
			))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			fmt.Fprintln(out, "All required dependencies available")
			return nil
		},
	}
}
