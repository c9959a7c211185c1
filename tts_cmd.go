package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/savageogre/opengate/internal/paths"
	"github.com/savageogre/opengate/internal/tts"
)

var (
	ttsModel  string
	ttsConfig string
	ttsInput  string
	ttsOut    string

	ttsCmd = &cobra.Command{
		Use:     "tts",
		Short:   "Turn a text file into speech with piper",
		Long:    paragraph(fmt.Sprintf("\nRun %s on a text file. The model config defaults to the model path plus .json.", keyword("piper"))),
		Example: paragraph("opengate tts -m en_US-amy-medium.onnx -i intro.txt -o intro.wav\necho hello | opengate tts -m amy.onnx -i -"),
		Args:    cobra.NoArgs,
		RunE:    runTTS,
	}
)

func runTTS(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	text, err := readInput(ttsInput)
	if err != nil {
		return err
	}

	model, err := paths.Expand(ttsModel)
	if err != nil {
		return err
	}
	config := ttsConfig
	if config != "" {
		if config, err = paths.Expand(config); err != nil {
			return err
		}
	}

	s := loadSettings()
	piper := tts.NewPiper(tts.PiperConfig{Binary: s.PiperBinary, Timeout: s.PiperTimeout}, log.Default())
	req := tts.Request{Text: string(text), Model: model, Config: config}
	if err := piper.Synthesize(ctx, req, ttsOut); err != nil {
		return err
	}

	log.Info("TTS wrote", "out", ttsOut)
	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unable to read input: %w", err)
	}
	return b, nil
}

func init() {
	ttsCmd.Flags().StringVarP(&ttsModel, "model", "m", "", "path to the .onnx model")
	ttsCmd.Flags().StringVarP(&ttsConfig, "model-config", "c", "", "path to the model config (default: <model>.json)")
	ttsCmd.Flags().StringVarP(&ttsInput, "input", "i", "", "text file to turn into speech, - for stdin")
	ttsCmd.Flags().StringVarP(&ttsOut, "out", "o", "opengate-tts.wav", "output file")
	_ = ttsCmd.MarkFlagRequired("model")
	_ = ttsCmd.MarkFlagRequired("input")
}
