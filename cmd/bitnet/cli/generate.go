// generate.go - "generate" und "chat" Subcommands
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ollama/bitnet/bitnet"
	"github.com/ollama/bitnet/generate"
	"github.com/ollama/bitnet/model"
	"github.com/ollama/bitnet/tokenizer"
)

func newGenerateCmd() *cobra.Command {
	var maxTokens int
	var temperature float32
	var promptFile string

	cmd := &cobra.Command{
		Use:   "generate <model-path-or-url> [prompt]",
		Short: "Generate text from a prompt",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := resolvePrompt(args, promptFile)
			if err != nil {
				return err
			}
			return runGenerate(cmd, args[0], prompt, maxTokens, temperature)
		},
	}
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 256, "maximum tokens to generate")
	cmd.Flags().Float32Var(&temperature, "temperature", 1.0, "sampling temperature")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "read the prompt from a text file instead of the argument")
	return cmd
}

// resolvePrompt prefers promptFile when set, decoding it with a BOM
// override so a UTF-8 byte-order-mark some editors prepend doesn't leak
// into the first generated token (same decoder chain as the teacher's
// parser package uses for Modelfile text).
func resolvePrompt(args []string, promptFile string) (string, error) {
	if promptFile == "" {
		if len(args) < 2 {
			return "", fmt.Errorf("bitnet generate: either a prompt argument or --prompt-file is required")
		}
		return args[1], nil
	}

	f, err := os.Open(promptFile)
	if err != nil {
		return "", fmt.Errorf("bitnet generate: %w", err)
	}
	defer f.Close()

	tr := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	br := bufio.NewReader(transform.NewReader(f, tr))
	text, err := io.ReadAll(br)
	if err != nil {
		return "", fmt.Errorf("bitnet generate: %w", err)
	}
	return string(text), nil
}

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <model-path-or-url> <message>",
		Short: "Generate a chat completion for a single user message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args[0], args[1])
		},
	}
	return cmd
}

func runGenerate(cmd *cobra.Command, src, prompt string, maxTokens int, temperature float32) error {
	session, err := loadSession(cmd, src)
	if err != nil {
		return err
	}
	defer session.Dispose()

	opts := generate.DefaultOptions()
	opts.MaxTokens = maxTokens
	opts.Temperature = temperature

	stream, err := session.Generate(prompt, opts)
	if err != nil {
		return err
	}
	return drain(stream)
}

func runChat(cmd *cobra.Command, src, message string) error {
	session, err := loadSession(cmd, src)
	if err != nil {
		return err
	}
	defer session.Dispose()

	stream, err := session.GenerateChat([]tokenizer.Message{{Role: "user", Content: message}}, generate.DefaultOptions())
	if err != nil {
		return err
	}
	return drain(stream)
}

func loadSession(cmd *cobra.Command, src string) (*bitnet.Session, error) {
	backend, _ := cmd.Flags().GetString("gpu-backend")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	return bitnet.Load(cmd.Context(), src, byteTokenizer{}, model.PresetSmall(), bitnet.LoadOptions{Backend: backend, CacheDir: cacheDir})
}

func drain(stream *generate.Stream) error {
	for {
		select {
		case s, ok := <-stream.Tokens:
			if !ok {
				return nil
			}
			fmt.Print(s)
		case err, ok := <-stream.Errs:
			if ok && err != nil {
				return err
			}
		}
	}
}
