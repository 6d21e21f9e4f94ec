// Package counter accumulates the traffic statistics the network daemon
// pushes to a registered counter and renders them for display.
package counter

import (
	"io"
	"log/slog"
)

// Metric names sent by the daemon.
const (
	KeyTXBytes   = "TX.Bytes"
	KeyTXPackets = "TX.Packets"
	KeyTXErrors  = "TX.Errors"
	KeyTXDropped = "TX.Dropped"
	KeyRXBytes   = "RX.Bytes"
	KeyRXPackets = "RX.Packets"
	KeyRXErrors  = "RX.Errors"
	KeyRXDropped = "RX.Dropped"
	KeyTime      = "Time"
)

// Scope selects the home or roaming snapshot.
type Scope int

const (
	Home Scope = iota
	Roaming
)

func (s Scope) String() string {
	if s == Roaming {
		return "roaming"
	}
	return "home"
}

// Snapshot maps metric names to their last known value.
type Snapshot map[string]int64

// Merge overwrites s with every key in update. Keys absent from update
// keep their previous value.
func (s Snapshot) Merge(update map[string]int64) {
	for k, v := range update {
		s[k] = v
	}
}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Aggregator holds the long-lived home and roaming snapshots. The daemon
// sends a full snapshot first and only changed keys afterwards, so
// snapshots are merged into, never replaced.
type Aggregator struct {
	home    Snapshot
	roaming Snapshot
}

// NewAggregator returns an aggregator with empty snapshots.
func NewAggregator() *Aggregator {
	return &Aggregator{home: Snapshot{}, roaming: Snapshot{}}
}

// Apply merges update into the scope's snapshot and returns the label for
// the whole snapshot.
func (a *Aggregator) Apply(scope Scope, update map[string]int64) string {
	s := a.snapshot(scope)
	s.Merge(update)
	return FormatLabel(s)
}

// Snapshot returns a copy of the scope's current snapshot.
func (a *Aggregator) Snapshot(scope Scope) Snapshot {
	return a.snapshot(scope).clone()
}

func (a *Aggregator) snapshot(scope Scope) Snapshot {
	if scope == Roaming {
		return a.roaming
	}
	return a.home
}

// Update is emitted after every Usage call.
type Update struct {
	Service      string
	HomeLabel    string
	RoamingLabel string
	Home         Snapshot
	Roaming      Snapshot
}

// Counter serves the daemon's counter interface.
type Counter struct {
	agg    *Aggregator
	notify func(Update)
	logger *slog.Logger
}

// NewCounter creates a counter that calls notify after each usage update.
// notify and logger may be nil.
func NewCounter(notify func(Update), logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Counter{
		agg:    NewAggregator(),
		notify: notify,
		logger: logger.With("role", "Counter"),
	}
}

// Release is called when the daemon unregisters the counter.
func (c *Counter) Release() {
	c.logger.Debug("counter released")
}

// Usage merges both updates and emits the resulting labels.
func (c *Counter) Usage(service string, home, roaming map[string]int64) Update {
	u := Update{
		Service:      service,
		HomeLabel:    c.agg.Apply(Home, home),
		RoamingLabel: c.agg.Apply(Roaming, roaming),
		Home:         c.agg.Snapshot(Home),
		Roaming:      c.agg.Snapshot(Roaming),
	}
	c.logger.Debug("usage updated", "service", service, "home_keys", len(home), "roaming_keys", len(roaming))
	if c.notify != nil {
		c.notify(u)
	}
	return u
}
