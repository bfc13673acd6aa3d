package compose

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spacedatanetwork/ocean-fleet/internal/config"
)

// Errors
var (
	ErrPortOverlap = errors.New("port ranges overlap")
	ErrPortRange   = errors.New("port out of range")
)

// PortSet is the group of host ports owned by one node instance.
type PortSet struct {
	HTTPAPI int
	P2PTCP  int
	P2PWS   int
	Extra   []int // published only, no environment variable refers to them
}

// All returns every port of the set in publish order.
func (s PortSet) All() []int {
	all := []int{s.HTTPAPI, s.P2PTCP, s.P2PWS}
	return append(all, s.Extra...)
}

// PortPlan derives per-instance ports by offsetting each base by the instance index.
type PortPlan struct {
	bases config.PortConfig
}

// NewPortPlan returns a plan over the given base ports.
func NewPortPlan(bases config.PortConfig) PortPlan {
	return PortPlan{bases: bases}
}

// Ports returns the port set of the zero-based instance index with the default bases.
func Ports(index int) PortSet {
	return NewPortPlan(config.Default().Ports).Ports(index)
}

// Ports returns the port set of the zero-based instance index.
func (p PortPlan) Ports(index int) PortSet {
	extra := make([]int, len(p.bases.Extra))
	for i, base := range p.bases.Extra {
		extra[i] = base + index
	}
	return PortSet{
		HTTPAPI: p.bases.HTTPAPI + index,
		P2PTCP:  p.bases.P2PTCP + index,
		P2PWS:   p.bases.P2PWS + index,
		Extra:   extra,
	}
}

// Validate checks that count instances fit: every base gets the range
// [base, base+count) and no two ranges may share a port.
func (p PortPlan) Validate(count int) error {
	if count <= 0 {
		return nil
	}

	bases := p.bases.Bases()
	sort.Ints(bases)
	for i, base := range bases {
		if base <= 0 || base+count-1 > config.MaxPort {
			return fmt.Errorf("%w: %d..%d", ErrPortRange, base, base+count-1)
		}
		if i > 0 && bases[i-1]+count > base {
			return fmt.Errorf("%w: %d instances from bases %d and %d", ErrPortOverlap, count, bases[i-1], base)
		}
	}
	return nil
}
