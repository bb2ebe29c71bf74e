package main

import (
	"os"

	"github.com/moesif/moesif-extproc-go/cmd/extprocctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
