// Package main provides the entry point for the opengate CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/savageogre/opengate/internal/paths"
	"github.com/savageogre/opengate/internal/plan"
	"github.com/savageogre/opengate/internal/tts"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	verbose    bool
	piperBin   string

	outPath    string
	force      bool
	watchPlans bool

	rootCmd = &cobra.Command{
		Use:   "opengate [PLAN]",
		Short: "Generate binaural beats for meditative purposes",
		Long: paragraph(
			fmt.Sprintf("\nRender %s from a YAML plan into a WAV or FLAC file.", keyword("binaural beats")),
		),
		Example:          paragraph("opengate session.yml\nopengate session.yml -o session.flac\nopengate render session.yml --watch"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"yml", "yaml"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}

	renderCmd = &cobra.Command{
		Use:     "render PLAN",
		Short:   "Render a plan (the default command)",
		Long:    paragraph(fmt.Sprintf("\n%s a plan. Speech mixins are synthesized with piper and cached; use --force to regenerate them.", keyword("Render"))),
		Example: paragraph("opengate render session.yml -o session.flac"),
		Args:    cobra.ExactArgs(1),
		RunE:    execute,
	}
)

// settings are the application settings after flags, environment and the
// settings file are merged.
type settings struct {
	PiperBinary  string
	PiperTimeout time.Duration

	CacheDir         string
	SamplesEnabled   bool
	SamplesMemoryMB  int64
	SamplesDiskMB    int64
	SamplesZstdLevel int

	Render plan.RenderConfig
}

func loadSettings() settings {
	return settings{
		PiperBinary:      viper.GetString("piper.binary"),
		PiperTimeout:     viper.GetDuration("piper.timeout"),
		CacheDir:         viper.GetString("cache.dir"),
		SamplesEnabled:   viper.GetBool("cache.samples.enabled"),
		SamplesMemoryMB:  viper.GetInt64("cache.samples.memory_mb"),
		SamplesDiskMB:    viper.GetInt64("cache.samples.disk_mb"),
		SamplesZstdLevel: viper.GetInt("cache.samples.compression_level"),
		Render: plan.RenderConfig{
			SampleRate: viper.GetInt("render.sample_rate"),
			Gain:       viper.GetFloat64("render.gain"),
			FadeMs:     viper.GetFloat64("render.fade_ms"),
		},
	}
}

func validateOptions(cmd *cobra.Command) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
	}

	s := loadSettings()
	if s.PiperTimeout < 0 {
		return fmt.Errorf("piper.timeout must not be negative, got %s", s.PiperTimeout)
	}
	if s.SamplesMemoryMB < 0 || s.SamplesDiskMB < 0 {
		return errors.New("cache.samples sizes must not be negative")
	}
	if l := s.SamplesZstdLevel; l < 0 || l > 22 {
		return fmt.Errorf("cache.samples.compression_level must be between 0 and 22, got %d", l)
	}
	if s.Render.SampleRate != 0 {
		if err := plan.ValidateSampleRate(s.Render.SampleRate); err != nil {
			return fmt.Errorf("render.sample_rate: %w", err)
		}
	}
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(loadSettings(), force, log.Default())
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if watchPlans {
		return a.watch(ctx, args[0], outPath)
	}
	return a.render(ctx, args[0], outPath)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, .wav or .flac (default: the plan's out, else opengate.wav)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "regenerate speech even if it is cached, e.g. after updating a piper model")
	cmd.Flags().BoolVar(&watchPlans, "watch", false, "render again whenever the plan file changes")
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose level logging")
	rootCmd.PersistentFlags().StringVarP(&piperBin, "piper-bin", "p", "", "path to the piper binary if it is not in your $PATH")
	addRenderFlags(rootCmd)
	addRenderFlags(renderCmd)

	_ = viper.BindPFlag("piper.binary", rootCmd.PersistentFlags().Lookup("piper-bin"))

	viper.SetDefault("piper.binary", "piper")
	viper.SetDefault("piper.timeout", tts.DefaultPiperTimeout)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.samples.enabled", true)
	viper.SetDefault("cache.samples.memory_mb", 64)
	viper.SetDefault("cache.samples.disk_mb", 1024)
	viper.SetDefault("cache.samples.compression_level", 3)
	viper.SetDefault("render.sample_rate", plan.DefaultSampleRate)
	viper.SetDefault("render.gain", plan.DefaultGain)
	viper.SetDefault("render.fade_ms", plan.DefaultFadeMs)

	rootCmd.AddCommand(renderCmd, ttsCmd, analyzeCmd, modelsCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := paths.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(paths.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(paths.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], paths.AppName+".yml")
}
