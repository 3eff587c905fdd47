package main

import (
	"os"

	"github.com/rami3l/staticassert/analyzer"
	"github.com/rami3l/staticassert/cmd"
	"golang.org/x/tools/go/analysis/unitchecker"
)

func main() {
	if cmd.InvokedByVet(os.Args[1:]) {
		unitchecker.Main(analyzer.Analyzer)
	}
	cmd.Main(cmd.App())
}
