package wait

import (
	"time"

	pr "github.com/unkn0wn-root/casstream/provider"
)

// Profile is the (base, cap, jitter) triple an Exponential is built from.
type Profile struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter bool
}

// Override replaces individual fields of a topology's default Profile.
// nil fields keep the default.
type Override struct {
	Base   *time.Duration `yaml:"base"`
	Cap    *time.Duration `yaml:"cap"`
	Jitter *bool          `yaml:"jitter"`
}

// Retries against a network store should pace at roughly its round trip;
// in-process stores resolve contention in microseconds.
var defaults = map[pr.Topology]Profile{
	pr.TopologyUnknown:             {Base: time.Millisecond, Cap: 500 * time.Millisecond, Jitter: true},
	pr.TopologyLocalHeap:           {Base: time.Millisecond, Cap: 20 * time.Millisecond, Jitter: true},
	pr.TopologyLocalHeapOverflow:   {Base: time.Millisecond, Cap: 100 * time.Millisecond, Jitter: true},
	pr.TopologyClusteredLocalCache: {Base: time.Millisecond, Cap: 500 * time.Millisecond, Jitter: true},
	pr.TopologyClustered:           {Base: 10 * time.Millisecond, Cap: time.Second, Jitter: true},
}

// DefaultProfile returns the built-in profile for t; unknown values fall back to
// the TopologyUnknown profile.
func DefaultProfile(t pr.Topology) Profile {
	if p, ok := defaults[t]; ok {
		return p
	}
	return defaults[pr.TopologyUnknown]
}

// Selector picks a backoff for a store topology.
type Selector struct {
	overrides map[pr.Topology]Override
}

func NewSelector(overrides map[pr.Topology]Override) *Selector {
	cp := make(map[pr.Topology]Override, len(overrides))
	for k, v := range overrides {
		cp[k] = v
	}
	return &Selector{overrides: cp}
}

// Profile resolves the effective profile for t.
func (s *Selector) Profile(t pr.Topology) Profile {
	p := DefaultProfile(t)
	if s == nil {
		return p
	}
	o, ok := s.overrides[t]
	if !ok {
		return p
	}
	if o.Base != nil {
		p.Base = *o.Base
	}
	if o.Cap != nil {
		p.Cap = *o.Cap
	}
	if o.Jitter != nil {
		p.Jitter = *o.Jitter
	}
	return p
}

// For returns the Exponential configured for t.
func (s *Selector) For(t pr.Topology) *Exponential {
	p := s.Profile(t)
	return NewExponential(p.Base, p.Cap, p.Jitter)
}

// ForTopology is For on a selector without overrides.
func ForTopology(t pr.Topology) *Exponential {
	return (*Selector)(nil).For(t)
}
