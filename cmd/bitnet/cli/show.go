// show.go - Tensor-Verzeichnis-Anzeige
package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ollama/bitnet/fs/gguf"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Print a GGUF container's metadata and tensor directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args[0])
		},
	}
	return cmd
}

func runShow(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("bitnet show: %w", err)
	}

	f, err := gguf.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bitnet show: %w", err)
	}

	fmt.Printf("version: %d\n", f.Version)
	fmt.Printf("architecture: %s\n", f.KV().Architecture())
	fmt.Printf("alignment: %d\n\n", f.KV().Alignment())

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"name", "type", "shape", "bytes"})
	for _, t := range f.Tensors().Items {
		table.Append([]string{t.Name, t.Kind.String(), fmt.Sprint(t.Shape), fmt.Sprint(t.Size())})
	}
	table.Render()
	return nil
}
