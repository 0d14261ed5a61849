package demo

import (
	"github.com/netrixframework/smtkit/cmd/driver"
	"github.com/netrixframework/smtkit/log"
	"github.com/spf13/cobra"
)

// DemoCmd returns the command walking through a session on the selected backend
func DemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a short solving session and print each result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, d, err := driver.Setup()
			if err != nil {
				return err
			}
			defer log.Destroy()
			return d.Demo(ctx, cmd.OutOrStdout())
		},
	}
}
