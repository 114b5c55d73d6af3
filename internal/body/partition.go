package body

import "fmt"

// Partition maps the global particle index range onto ranks as contiguous
// slices, fixed for the run. Rank r owns [Lo(r), Hi(r)). There is no
// dynamic rebalancing.
type Partition struct {
	N     int
	Ranks int
}

func NewPartition(n, ranks int) (Partition, error) {
	if ranks < 1 {
		return Partition{}, fmt.Errorf("%w: rank count %d", ErrPartition, ranks)
	}
	if n < ranks {
		return Partition{}, fmt.Errorf("%w: %d particles across %d ranks", ErrPartition, n, ranks)
	}
	return Partition{N: n, Ranks: ranks}, nil
}

// Range returns the half-open index interval owned by rank. The first
// N%Ranks ranks take one extra particle.
func (pt Partition) Range(rank int) (lo, hi int) {
	base := pt.N / pt.Ranks
	extra := pt.N % pt.Ranks
	if rank < extra {
		lo = rank * (base + 1)
		return lo, lo + base + 1
	}
	lo = extra*(base+1) + (rank-extra)*base
	return lo, lo + base
}

func (pt Partition) RankOf(i int) int {
	base := pt.N / pt.Ranks
	extra := pt.N % pt.Ranks
	cut := extra * (base + 1)
	if i < cut {
		return i / (base + 1)
	}
	return extra + (i-cut)/base
}

func (pt Partition) Owns(rank, i int) bool {
	lo, hi := pt.Range(rank)
	return i >= lo && i < hi
}
