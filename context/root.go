package context

import (
	"github.com/netrixframework/smtkit/config"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/util"
)

// RootContext carries what every command and service of the tool shares
type RootContext struct {
	// Config an instance of the configuration object
	Config *config.Config
	// Counter numbers the requests handled by the API server
	Counter *util.Counter
	// Logger for logging purposes
	Logger *log.Logger
}

// NewRootContext creates an instance of the RootContext from the configuration
func NewRootContext(config *config.Config, logger *log.Logger) *RootContext {
	return &RootContext{
		Config:  config,
		Counter: util.NewCounter(),
		Logger:  logger,
	}
}

// SessionOptions returns the session options implied by the configuration
func (c *RootContext) SessionOptions() []smt.Option {
	return []smt.Option{
		smt.WithLogger(c.Logger),
		smt.WithModels(c.Config.ProduceModels),
	}
}
