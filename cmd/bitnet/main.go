// main.go - Einstiegspunkt des bitnet-CLI
package main

import (
	"fmt"
	"os"

	"github.com/ollama/bitnet/cmd/bitnet/cli"
)

func main() {
	root := cli.NewCLI()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
