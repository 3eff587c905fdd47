package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

// errFailed reports a run whose diagnostics were already printed.
var errFailed = errors.New("static assertions failed")

func App() (app *cobra.Command) {
	app = &cobra.Command{
		Use:           "staticassert",
		Short:         "staticassert: compile-time assertions over Go generics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.PersistentFlags().SortFlags = true

	defaultVerbosityStr := "INFO"
	verbosity := app.PersistentFlags().StringP("verbosity", "v", defaultVerbosityStr, "logging verbosity")

	app.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		verbosityLvl, err := logrus.ParseLevel(*verbosity)
		if err != nil {
			verbosityLvl, _ = logrus.ParseLevel(defaultVerbosityStr)
		}
		logrus.SetLevel(verbosityLvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "%lvl% %msg%\n"})
	}

	app.AddCommand(checkCmd(), expandCmd(), evalCmd(), replCmd())
	return
}

// Main runs app and exits with a non-zero status on failure.
func Main(app *cobra.Command) {
	if err := app.Execute(); err != nil {
		if errors.Is(err, errFailed) {
			os.Exit(1)
		}
		logrus.Fatal(err)
	}
}

// InvokedByVet reports whether args come from `go vet -vettool`, which
// either queries the tool with -flags or -V=full, or passes a unit config.
func InvokedByVet(args []string) bool {
	if len(args) == 0 {
		return false
	}
	if args[0] == "-flags" || strings.HasPrefix(args[0], "-V") {
		return true
	}
	return filepath.Ext(args[len(args)-1]) == ".cfg"
}
