package cmd

import (
	"fmt"

	"github.com/netrixframework/smtkit/cmd/bench"
	"github.com/netrixframework/smtkit/cmd/demo"
	"github.com/netrixframework/smtkit/cmd/driver"
	"github.com/netrixframework/smtkit/cmd/serve"
	"github.com/netrixframework/smtkit/config"
	"github.com/netrixframework/smtkit/smt/ops"
	"github.com/spf13/cobra"
)

// RootCmd returns the root cobra command of the tool
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smtkit",
		Short: "Backend independent SMT solving sessions",
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&config.ConfigPath, "config", "c", "config.json", "Config file path")
	cmd.PersistentFlags().StringVarP(&driver.Backend, "backend", "b", "", "Backend, overrides the config file")
	cmd.AddCommand(serve.ServeCmd())
	cmd.AddCommand(bench.BenchCmd())
	cmd.AddCommand(demo.DemoCmd())
	cmd.AddCommand(opsCmd())
	return cmd
}

func opsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the built-in operators and backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "taxonomy version %d\n", ops.Version)
			for _, o := range ops.All() {
				info := o.Info()
				arity := fmt.Sprintf("%d..%d", info.MinArgs, info.MaxArgs)
				if info.MaxArgs == ops.Variadic {
					arity = fmt.Sprintf("%d..", info.MinArgs)
				}
				fmt.Fprintf(out, "%-14s %-20s %s\n", info.Name, info.Theory, arity)
			}
			fmt.Fprintf(out, "backends: %v\n", driver.Names())
			return nil
		},
	}
}
