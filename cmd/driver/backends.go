package driver

import (
	"github.com/netrixframework/smtkit/backend/bitblast"
	"github.com/netrixframework/smtkit/backend/smtlib"
	"github.com/netrixframework/smtkit/config"
	"github.com/netrixframework/smtkit/context"
)

func init() {
	Register(New(config.BackendBitblast, func(ctx *context.RootContext) (*bitblast.Session, error) {
		return bitblast.NewSession(bitblast.Options{
			Timeout:            ctx.Config.Timeout(),
			UninterpretedWidth: ctx.Config.UninterpretedWidth,
			Logger:             ctx.Logger,
		}, ctx.SessionOptions()...), nil
	}))
	Register(New(config.BackendSMTLib, func(ctx *context.RootContext) (*smtlib.Session, error) {
		return smtlib.NewSession(smtlib.Options{
			Command: ctx.Config.Solver.Command,
			Timeout: ctx.Config.Timeout(),
			Logger:  ctx.Logger,
		}, ctx.SessionOptions()...)
	}))
}
