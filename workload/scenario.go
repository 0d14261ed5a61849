// Package workload generates event-ordering problems of the kind a
// scheduler asks while exploring a distributed execution: given the send and
// timeout events seen so far, which pending deliveries or timeouts can
// happen first. The problems are difference constraints over event
// timestamps and are checked through any smt.Session.
package workload

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Event is one timestamped event. Its time lies in [After+Min, After+Max],
// where After is the time of another event or zero when empty.
type Event struct {
	Label   string
	Replica int
	After   string
	Min     int
	Max     int
	Timeout bool
}

// Scenario is a set of events and the labels of those still pending
type Scenario struct {
	Events  []Event
	Pending []string
}

// Config shapes a generated Scenario
type Config struct {
	Replicas int
	// Steps is the number of already observed events per replica
	Steps int
	// Delay samples the gap before each event and the width of its window
	Delay Distribution
	// Timeout is the duration of the one pending timeout per replica. Zero
	// means no timeouts.
	Timeout int
	Seed    uint64
}

// DefaultConfig returns a small scenario configuration
func DefaultConfig() Config {
	d, _ := NewDistribution("exp")
	return Config{
		Replicas: 3,
		Steps:    4,
		Delay:    d,
		Timeout:  100,
		Seed:     1,
	}
}

// Generate builds a scenario. Each replica gets a chain of Steps observed
// events followed by a pending delivery from the next replica and, when
// Timeout is set, a pending timeout started by its last event.
func Generate(c Config) *Scenario {
	src := rand.NewSource(c.Seed)
	c.Delay.SetSrc(src)

	sc := &Scenario{}
	last := make([]string, c.Replicas)
	for r := 0; r < c.Replicas; r++ {
		prev := ""
		for i := 0; i < c.Steps; i++ {
			lo := c.Delay.Rand()
			e := Event{
				Label:   fmt.Sprintf("e_%d_%d", r, i),
				Replica: r,
				After:   prev,
				Min:     lo,
				Max:     lo + c.Delay.Rand(),
			}
			sc.Events = append(sc.Events, e)
			prev = e.Label
		}
		last[r] = prev
	}
	for r := 0; r < c.Replicas; r++ {
		from := last[(r+1)%c.Replicas]
		lo := c.Delay.Rand()
		m := Event{
			Label:   fmt.Sprintf("m_%d", r),
			Replica: r,
			After:   from,
			Min:     lo,
			Max:     lo + c.Delay.Rand(),
		}
		sc.Events = append(sc.Events, m)
		sc.Pending = append(sc.Pending, m.Label)
		if c.Timeout > 0 {
			to := Event{
				Label:   fmt.Sprintf("t_%d", r),
				Replica: r,
				After:   last[r],
				Min:     c.Timeout,
				Max:     c.Timeout,
				Timeout: true,
			}
			sc.Events = append(sc.Events, to)
			sc.Pending = append(sc.Pending, to.Label)
		}
	}
	return sc
}

// Event returns the event with the given label
func (s *Scenario) Event(label string) (Event, bool) {
	for _, e := range s.Events {
		if e.Label == label {
			return e, true
		}
	}
	return Event{}, false
}
