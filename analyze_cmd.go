package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/savageogre/opengate/internal/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:     "analyze FILE...",
	Aliases: []string{"analyse"},
	Short:   "Measure the beat in rendered WAV files",
	Long:    paragraph(fmt.Sprintf("\nRun an %s over each channel of a stereo WAV file and report the dominant frequencies and the binaural beat between them.", keyword("FFT"))),
	Example: paragraph("opengate analyze session.wav"),
	Args:    cobra.MinimumNArgs(1),
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"wav", "wave"}, cobra.ShellCompDirectiveFilterFileExt
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			log.Debug("Processing file", "path", path)
			r, err := analysis.AnalyzeFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatReport(r))
		}
		return nil
	},
}

func formatReport(r analysis.Report) string {
	var b strings.Builder
	b.WriteString(heading(r.Path) + "\n")
	row := func(k, v string) {
		b.WriteString("  " + label(k) + v + "\n")
	}
	row("length", fmt.Sprintf("%.2fs (%d Hz)", float64(r.Frames)/float64(max(r.SampleRate, 1)), r.SampleRate))
	row("left", fmt.Sprintf("%.2f Hz", r.Left))
	row("right", fmt.Sprintf("%.2f Hz", r.Right))
	row("beat", good(fmt.Sprintf("%.2f Hz", r.Beat())))
	row("resolution", faint(fmt.Sprintf("±%.3f Hz", r.Resolution())))
	return b.String()
}
