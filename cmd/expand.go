package cmd

import (
	"fmt"
	"go/token"
	"io"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/rami3l/staticassert/check"
	"github.com/rami3l/staticassert/expand"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func expandCmd() *cobra.Command {
	var cfg expand.Config
	cmd := &cobra.Command{
		Use:   "expand [PACKAGES]",
		Short: "Generate a file per package that makes the Go compiler check every instantiation.",
		Long: `Generate a file per package that makes the Go compiler check every instantiation.

Each instance whose predicate folds to a Go constant expression becomes a
map literal with a duplicate key when the predicate is false. Packages
without such instances get their stale generated file removed.

A failing instance makes "go build" report only "duplicate key false in map
literal" at the generated line, next to the constant holding the message.
Run "staticassert check" or "go vet -vettool=$(which staticassert)" to see
the message and the chain of instantiations behind it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runExpand(cmd.OutOrStdout(), cfg, args)
		},
	}
	cfg.AddFlags(cmd.Flags())
	return cmd
}

func runExpand(out io.Writer, cfg expand.Config, patterns []string) error {
	fset := token.NewFileSet()
	checkCfg := check.Config{Tags: cfg.Tags}
	pkgs, err := check.Load(fset, checkCfg, cfg.Output, patterns...)
	if err != nil {
		return err
	}
	c, diags := check.CheckAll(fset, checkCfg, pkgs)
	for _, d := range diags {
		logrus.Warn(c.Format(d))
	}

	var errs *multierror.Error
	for _, pkg := range pkgs {
		if len(pkg.GoFiles) == 0 {
			continue
		}
		path := filepath.Join(filepath.Dir(pkg.GoFiles[0]), cfg.Output)
		gen, err := expand.Generate(fset, pkg.Types, c.Instances(pkg.Types), path)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", pkg.PkgPath, err))
			continue
		}
		if gen == nil {
			if !cfg.DryRun {
				if err := expand.RemoveStale(path); err != nil {
					errs = multierror.Append(errs, err)
				}
			}
			continue
		}
		if err := gen.Write(out, cfg.DryRun); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		logrus.Infof("%s: %d checks", path, gen.Checks)
	}
	return errs.ErrorOrNil()
}
