package types

import (
	"sync"
	"time"

	"github.com/netrixframework/smtkit/log"
)

// Service is anything that runs in the background until stopped
type Service interface {
	// Name of the service
	Name() string
	// Start starts the service
	Start() error
	// Running is true between Start and Stop
	Running() bool
	// Stop stops the service
	Stop() error
	// QuitCh is closed once the service stops running
	QuitCh() <-chan struct{}
}

// BaseService tracks the running state of a Service
type BaseService struct {
	lock    *sync.Mutex
	once    *sync.Once
	name    string
	started time.Time
	running bool
	quit    chan struct{}
	Logger  *log.Logger
}

// NewBaseService instantiates BaseService
func NewBaseService(name string, parentLogger *log.Logger) *BaseService {
	return &BaseService{
		lock:   new(sync.Mutex),
		once:   new(sync.Once),
		name:   name,
		quit:   make(chan struct{}),
		Logger: parentLogger.With(log.LogParams{"service": name}),
	}
}

// StartRunning marks the service as running
func (b *BaseService) StartRunning() {
	b.Logger.Debug("Starting service")
	b.lock.Lock()
	defer b.lock.Unlock()
	b.running = true
	b.started = time.Now()
}

// StopRunning marks the service as stopped and closes the quit channel
func (b *BaseService) StopRunning() {
	b.Logger.Debug("Stopping service")
	b.lock.Lock()
	defer b.lock.Unlock()
	b.running = false
	b.once.Do(func() {
		close(b.quit)
	})
}

// Name returns the name of the service
func (b *BaseService) Name() string {
	return b.name
}

// Running returns the flag
func (b *BaseService) Running() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.running
}

// Uptime is the time since StartRunning, 0 when stopped
func (b *BaseService) Uptime() time.Duration {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.running {
		return 0
	}
	return time.Since(b.started)
}

// QuitCh returns the channel closed by StopRunning
func (b *BaseService) QuitCh() <-chan struct{} {
	return b.quit
}
