// root.go - Haupt-CLI-Setup und Root-Command
package cli

import (
	"log"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"

	"github.com/ollama/bitnet/config"
)

// NewCLI builds the bitnet root command with its subcommands.
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" {
		console.ConsoleFromFile(os.Stdout) //nolint:errcheck
	}

	root := &cobra.Command{
		Use:           "bitnet",
		Short:         "Run BitNet b1.58 ternary models on a GPU compute backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("gpu-backend", config.GPUBackend(), "override automatic GPU backend selection")
	root.PersistentFlags().String("cache-dir", config.CacheDir(), "directory for cached model downloads")

	root.AddCommand(newShowCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newChatCmd())

	return root
}
