package serve

import (
	"github.com/netrixframework/smtkit/cmd/driver"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/util"
	"github.com/spf13/cobra"
)

// ServeCmd returns the command hosting solver sessions over HTTP
func ServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host solver sessions behind the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			termCh := util.Term()

			ctx, d, err := driver.Setup()
			if err != nil {
				return err
			}
			defer log.Destroy()
			if addr != "" {
				ctx.Config.APIServerAddr = addr
			}

			server := d.Server(ctx)
			if err := server.Start(); err != nil {
				log.Error("Could not start the API server")
				return err
			}
			log.With(log.LogParams{"addr": ctx.Config.APIServerAddr, "backend": d.Name}).Info("Serving solver sessions")
			<-termCh
			log.Info("Stopping")
			if err := server.Stop(); err != nil {
				log.With(log.LogParams{"error": err.Error()}).Warn("Server did not stop cleanly")
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides the config file")
	return cmd
}
