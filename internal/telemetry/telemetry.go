// Package telemetry keeps allocation counters for the boundary: handles
// minted and released per kind, and C strings handed out and freed.
//
// Counters live on a private Prometheus registry per instance, so several
// bridges in one process never share totals. Hosts read them through a
// Snapshot, typically to assert that a session ended with nothing leaked,
// or serve the registry over HTTP.
package telemetry

import (
	"encoding/json"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kimhsiao/toodle/internal/handles"
)

const namespace = "toodle"

// Metric names as gathered from the registry.
const (
	metricAcquired = namespace + "_handles_acquired_total"
	metricReleased = namespace + "_handles_released_total"
	metricBorrowed = namespace + "_handles_borrowed_total"
	metricStrings  = namespace + "_strings_total"
	metricEvents   = namespace + "_events_total"
)

// Counters accumulates boundary allocation counts. The zero value is not
// usable; call New.
type Counters struct {
	registry *prometheus.Registry

	acquired *prometheus.CounterVec
	released *prometheus.CounterVec
	borrowed *prometheus.CounterVec
	strings  *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// New creates an empty set of counters on a fresh registry.
func New() *Counters {
	c := &Counters{
		registry: prometheus.NewRegistry(),
		acquired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handles",
				Name:      "acquired_total",
				Help:      "Handles minted, by kind.",
			},
			[]string{"kind"},
		),
		released: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handles",
				Name:      "released_total",
				Help:      "Handles destroyed or released, by kind.",
			},
			[]string{"kind"},
		),
		borrowed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handles",
				Name:      "borrowed_total",
				Help:      "Read-only handles lent to scoped callbacks, by kind.",
			},
			[]string{"kind"},
		),
		strings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strings_total",
				Help:      "C strings handed to the caller and returned through FreeString.",
			},
			[]string{"event"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Named operation counts such as sync.uploaded.",
			},
			[]string{"name"},
		),
	}
	c.registry.MustRegister(c.acquired, c.released, c.borrowed, c.strings, c.events)
	return c
}

// Registry exposes the backing registry, e.g. for promhttp.HandlerFor.
func (c *Counters) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records an arena event. Register it with (*handles.Arena).Observe.
func (c *Counters) Observe(ev handles.Event) {
	kind := ev.Kind.String()
	switch ev.Type {
	case handles.EventAcquired:
		c.acquired.WithLabelValues(kind).Inc()
		if ev.Borrowed {
			c.borrowed.WithLabelValues(kind).Inc()
		}
	case handles.EventReleased:
		c.released.WithLabelValues(kind).Inc()
	}
}

// StringAllocated counts one C string handed to the caller.
func (c *Counters) StringAllocated() {
	c.strings.WithLabelValues("allocated").Inc()
}

// StringFreed counts one C string returned through FreeString.
func (c *Counters) StringFreed() {
	c.strings.WithLabelValues("freed").Inc()
}

// RecordCount adds delta to a named counter. Negative deltas are ignored;
// counters only go up.
func (c *Counters) RecordCount(name string, delta int64) {
	if delta < 0 {
		return
	}
	c.events.WithLabelValues(name).Add(float64(delta))
}

// KindStats is the handle traffic for one kind.
type KindStats struct {
	Acquired int64 `json:"acquired"`
	Released int64 `json:"released"`
	Live     int64 `json:"live"`
}

// StringStats is the C string traffic.
type StringStats struct {
	Allocated int64 `json:"allocated"`
	Freed     int64 `json:"freed"`
	Live      int64 `json:"live"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Handles  map[string]KindStats `json:"handles"`
	Borrowed int64                `json:"borrowed"`
	Strings  StringStats          `json:"strings"`
	Counts   map[string]int64     `json:"counts,omitempty"`
}

// Snapshot gathers the registry into a Snapshot.
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Handles: make(map[string]KindStats),
		Counts:  make(map[string]int64),
	}

	families, err := c.registry.Gather()
	if err != nil {
		// Gather only fails on inconsistent collectors, which New never builds.
		return s
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := int64(m.GetCounter().GetValue())
			switch mf.GetName() {
			case metricAcquired:
				k := label(m, "kind")
				ks := s.Handles[k]
				ks.Acquired = v
				s.Handles[k] = ks
			case metricReleased:
				k := label(m, "kind")
				ks := s.Handles[k]
				ks.Released = v
				s.Handles[k] = ks
			case metricBorrowed:
				s.Borrowed += v
			case metricStrings:
				switch label(m, "event") {
				case "allocated":
					s.Strings.Allocated = v
				case "freed":
					s.Strings.Freed = v
				}
			case metricEvents:
				s.Counts[label(m, "name")] = v
			}
		}
	}

	for k, ks := range s.Handles {
		ks.Live = ks.Acquired - ks.Released
		s.Handles[k] = ks
	}
	s.Strings.Live = s.Strings.Allocated - s.Strings.Freed
	return s
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// LiveHandles sums live handles across kinds.
func (s Snapshot) LiveHandles() int64 {
	var n int64
	for _, k := range s.Handles {
		n += k.Live
	}
	return n
}

// Leaked lists the kinds that still have live handles, sorted.
func (s Snapshot) Leaked() []string {
	var out []string
	for name, k := range s.Handles {
		if k.Live != 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// JSON encodes the snapshot.
func (s Snapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	c.acquired.Reset()
	c.released.Reset()
	c.borrowed.Reset()
	c.strings.Reset()
	c.events.Reset()
}
