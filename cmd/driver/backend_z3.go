//go:build z3

package driver

import (
	"github.com/netrixframework/smtkit/backend/z3"
	"github.com/netrixframework/smtkit/config"
	"github.com/netrixframework/smtkit/context"
)

func init() {
	Register(New(config.BackendZ3, func(ctx *context.RootContext) (*z3.Session, error) {
		return z3.NewSession(z3.Options{
			Timeout: ctx.Config.Timeout(),
			Logger:  ctx.Logger,
		}, ctx.SessionOptions()...), nil
	}))
}
