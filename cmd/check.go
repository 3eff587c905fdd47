package cmd

import (
	"fmt"
	"go/token"
	"io"

	"github.com/rami3l/staticassert/check"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var cfg check.Config
	cmd := &cobra.Command{
		Use:   "check [PACKAGES]",
		Short: "Verify the static assertions of packages against every instantiation.",
		Example: `  staticassert check ./...
  staticassert check --strict --tags=linux ./internal/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runCheck(cmd.OutOrStdout(), cfg, args)
		},
	}
	cfg.AddFlags(cmd.Flags())
	return cmd
}

func runCheck(out io.Writer, cfg check.Config, patterns []string) error {
	fset := token.NewFileSet()
	pkgs, err := check.Load(fset, cfg, "", patterns...)
	if err != nil {
		return err
	}
	c, diags := check.CheckAll(fset, cfg, pkgs)
	for _, d := range diags {
		fmt.Fprintln(out, c.Format(d))
	}
	if len(diags) > 0 {
		logrus.Errorf("%d static assertion errors", len(diags))
		return errFailed
	}
	logrus.Debugf("checked %d packages", len(pkgs))
	return nil
}
