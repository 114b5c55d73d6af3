// Package comm synchronizes a fixed group of SPMD ranks with blocking
// collectives. Every rank holds a full replica of the particle set; the
// collectives keep the replicas identical at each cycle boundary.
//
// A rank that cannot continue calls Abort, which fails every pending and
// future collective for the whole group. There is no partial-result
// continuation: the replicas' consistency is jointly held by all ranks.
package comm

import (
	"fmt"
	"sync"

	"github.com/dmarquez/hermigo/internal/body"
)

type slot struct {
	min    float64
	byRank [][]body.Particle
}

// Group is the shared state of one rank group. Collectives double-buffer
// their exchange slots: by the time a slot is reused, every rank has left
// the collective that previously owned it.
type Group struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64
	failed  error
	slots   [2]slot
}

// Comm is one rank's handle on its group.
type Comm struct {
	g    *Group
	rank int
}

// NewGroup creates a group of size ranks sharing one set of collectives.
func NewGroup(size int) []*Comm {
	g := &Group{size: size}
	g.cond = sync.NewCond(&g.mu)
	for i := range g.slots {
		g.slots[i].byRank = make([][]body.Particle, size)
	}
	cs := make([]*Comm, size)
	for r := range cs {
		cs[r] = &Comm{g: g, rank: r}
	}
	return cs
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.g.size }

// Abort marks the whole group failed and wakes every waiting rank.
func (c *Comm) Abort(err error) {
	g := c.g
	g.mu.Lock()
	if g.failed == nil {
		g.failed = fmt.Errorf("%w: rank %d: %v", body.ErrCollective, c.rank, err)
	}
	g.cond.Broadcast()
	g.mu.Unlock()
}

// exchange runs one collective: deposit under the lock, block until all
// ranks arrived, read the combined slot before leaving. Returns the group
// failure if any rank aborted.
func (c *Comm) exchange(put func(s *slot, first bool), get func(s *slot)) error {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failed != nil {
		return g.failed
	}

	s := &g.slots[g.gen%2]
	if put != nil {
		put(s, g.arrived == 0)
	}
	g.arrived++
	gen := g.gen

	if g.arrived == g.size {
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for g.gen == gen && g.failed == nil {
			g.cond.Wait()
		}
		if g.failed != nil {
			return g.failed
		}
	}

	if get != nil {
		get(s)
	}
	return nil
}

// Barrier blocks until every rank arrives.
func (c *Comm) Barrier() error {
	return c.exchange(nil, nil)
}

// AllReduceMin returns the minimum of every rank's value.
func (c *Comm) AllReduceMin(v float64) (float64, error) {
	var out float64
	err := c.exchange(
		func(s *slot, first bool) {
			if first || v < s.min {
				s.min = v
			}
		},
		func(s *slot) { out = s.min },
	)
	return out, err
}

// AllGatherParticles exchanges each rank's corrected share of the active
// block. The result concatenates contributions in rank order, so every
// rank sees an identical, deterministic sequence.
func (c *Comm) AllGatherParticles(local []body.Particle) ([]body.Particle, error) {
	var out []body.Particle
	err := c.exchange(
		func(s *slot, first bool) {
			if first {
				for r := range s.byRank {
					s.byRank[r] = nil
				}
			}
			s.byRank[c.rank] = local
		},
		func(s *slot) {
			n := 0
			for _, part := range s.byRank {
				n += len(part)
			}
			out = make([]body.Particle, 0, n)
			for _, part := range s.byRank {
				out = append(out, part...)
			}
		},
	)
	return out, err
}
