package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rami3l/staticassert/vm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func evalCmd() *cobra.Command {
	var bindings []string
	cmd := &cobra.Command{
		Use:     "eval INVOCATION",
		Short:   "Evaluate a single invocation with the given arguments.",
		Example: `  staticassert eval '(N: int, T) N * sizeof(T) <= 64 => "too big"' --arg N=4 --arg T=int64`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.OutOrStdout(), args[0], bindings)
		},
	}
	cmd.Flags().StringArrayVarP(&bindings, "arg", "a", nil, "bind a generic parameter, as NAME=VALUE")
	return cmd
}

func runEval(out io.Writer, src string, bindings []string) error {
	universe := vm.NewUniverse()
	env := vm.NewBindings(universe)
	for _, binding := range bindings {
		name, val, err := vm.ParseBinding(binding, universe)
		if err != nil {
			return err
		}
		env.Bind(name, val)
	}
	if err := vm.NewVM().Interpret(src, env); err != nil {
		fmt.Fprintln(out, err)
		return errFailed
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl [FILE]",
		Short: "Evaluate invocations and expressions line by line.",
		Long: `Evaluate invocations and expressions line by line.

A line starting with '(' is an invocation, a line starting with ':' is one
of the commands :bind NAME=VALUE, :unbind NAME, :clear and :env, and any
other line is an expression whose value is printed. Lines are read from
FILE if given, otherwise from the standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				return vm.NewVM().REPL(f, cmd.OutOrStdout(), false)
			}
			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			return vm.NewVM().REPL(cmd.InOrStdin(), cmd.OutOrStdout(), interactive)
		},
	}
}
