package main

import (
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/savageogre/opengate/internal/models"
	"github.com/savageogre/opengate/internal/paths"
)

var (
	modelsAll       bool
	modelsShortLang string
	modelsLang      string
	modelsName      string
	modelsSize      string
	modelsBaseURL   string

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Manage piper voice models",
		Long:  paragraph(fmt.Sprintf("\nList and download %s voices into the opengate models directory, where plans find them by file name.", keyword("piper"))),
		Args:  cobra.NoArgs,
	}

	modelsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List known and installed voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := modelsDir()
			if err != nil {
				return err
			}
			installed, err := models.Installed(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, heading(dir))
			for _, v := range models.Catalogue() {
				mark := faint("  ")
				if slices.Contains(installed, v.ID()) {
					mark = good("✓ ")
				}
				fmt.Fprintln(out, "  "+mark+v.ID())
			}
			for _, id := range installed {
				if _, err := models.Find(id); err != nil {
					fmt.Fprintln(out, "  "+good("✓ ")+id+faint(" (local)"))
				}
			}
			return nil
		},
	}

	modelsDownloadCmd = &cobra.Command{
		Use:     "download",
		Short:   "Download piper voices",
		Example: paragraph("opengate models download --all\nopengate models download --name amy --size medium"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			dir, err := modelsDir()
			if err != nil {
				return err
			}
			log.Info("Models directory", "dir", dir)

			d := &models.Downloader{BaseURL: modelsBaseURL, Logger: log.Default(), Parallel: 2}
			if modelsAll {
				return d.DownloadAll(ctx, models.Catalogue(), dir)
			}
			return d.Download(ctx, models.Voice{
				ShortLang: modelsShortLang,
				Lang:      modelsLang,
				Name:      modelsName,
				Size:      modelsSize,
			}, dir)
		},
	}
)

func modelsDir() (string, error) {
	layout, err := paths.NewLayout(loadSettings().CacheDir)
	if err != nil {
		return "", err
	}
	return layout.Models()
}

func init() {
	f := modelsDownloadCmd.Flags()
	f.BoolVarP(&modelsAll, "all", "a", false, "download every voice in the catalogue")
	f.StringVar(&modelsShortLang, "short-lang", "en", "short language alias")
	f.StringVar(&modelsLang, "lang", "en_US", "full language alias")
	f.StringVar(&modelsName, "name", "libritts", "voice name")
	f.StringVar(&modelsSize, "size", "high", "voice size (low/medium/high)")
	f.StringVar(&modelsBaseURL, "base-url", models.DefaultBaseURL, "voice repository")
	_ = f.MarkHidden("base-url")

	modelsCmd.AddCommand(modelsListCmd, modelsDownloadCmd)
}
