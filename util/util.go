package util

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Counter is a thread safe monotonic natural number counter
type Counter struct {
	counter int
	mtx     *sync.Mutex
}

// NewCounter instantiates Counter
func NewCounter() *Counter {
	return &Counter{
		counter: 0,
		mtx:     new(sync.Mutex),
	}
}

// Next returns the next value
func (id *Counter) Next() int {
	id.mtx.Lock()
	defer id.mtx.Unlock()

	cur := id.counter
	id.counter++
	return cur
}

// Term returns a channel which receives a message on interrupt or SIGTERM
func Term() chan os.Signal {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGTERM)
	return termCh
}
