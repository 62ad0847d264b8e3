package main

import (
	"os"

	"github.com/linguaops/payrecon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
