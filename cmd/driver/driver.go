// Package driver registers the backends the command line can run and hides
// their handle types behind closures.
package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/netrixframework/smtkit/apiserver"
	"github.com/netrixframework/smtkit/config"
	"github.com/netrixframework/smtkit/context"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/types"
	"github.com/netrixframework/smtkit/workload"
)

// Driver runs the tool's workloads over one backend
type Driver struct {
	Name string
	// Server hosts sessions of this backend behind the HTTP API
	Server func(*context.RootContext) types.Service
	// Minimal encodes the scenario in a fresh session and returns the pending
	// events that can happen first
	Minimal func(*context.RootContext, *workload.Scenario) ([]string, error)
	// Demo runs the walkthrough printed by the demo command
	Demo func(*context.RootContext, io.Writer) error
}

var registry = types.NewMap[string, *Driver]()

// Register makes a driver available under its name
func Register(d *Driver) {
	registry.Add(d.Name, d)
}

// Get returns the driver registered under name
func Get(name string) (*Driver, error) {
	d, ok := registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("backend %q is not available, have %s", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names lists the registered drivers in order
func Names() []string {
	return registry.Keys()
}

// New builds a driver from a function that opens sessions of one backend
func New[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](name string, open func(*context.RootContext) (*smt.Session[S, T, F], error)) *Driver {
	return &Driver{
		Name: name,
		Server: func(ctx *context.RootContext) types.Service {
			return apiserver.NewAPIServer(ctx, apiserver.Factory[S, T, F](func() (*smt.Session[S, T, F], error) {
				return open(ctx)
			}))
		},
		Minimal: func(ctx *context.RootContext, sc *workload.Scenario) ([]string, error) {
			s, err := open(ctx)
			if err != nil {
				return nil, err
			}
			defer s.Close()
			ch, err := workload.Encode(s, sc, ctx.Logger)
			if err != nil {
				return nil, err
			}
			return ch.Minimal()
		},
		Demo: func(ctx *context.RootContext, w io.Writer) error {
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return demo(s, w)
		},
	}
}

// Backend overrides the configured backend when set
var Backend string

// Setup loads the configuration at config.ConfigPath, initializes logging
// and returns the root context with the selected driver
func Setup() (*context.RootContext, *Driver, error) {
	conf, err := config.Load(config.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %s", err)
	}
	if Backend != "" {
		conf.Backend = Backend
	}
	log.Init(conf.LogConfig)
	ctx := context.NewRootContext(conf, log.DefaultLogger)
	d, err := Get(conf.Backend)
	if err != nil {
		log.With(log.LogParams{"backend": conf.Backend, "available": Names()}).Error("Unknown backend")
		log.Destroy()
		return nil, nil, err
	}
	log.With(log.LogParams{
		"config":     config.ConfigPath,
		"backend":    d.Name,
		"timeout_ms": conf.TimeoutMS,
	}).Info("Loaded configuration")
	return ctx, d, nil
}
