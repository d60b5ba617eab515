package registry

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
)

var ErrInvalidOrder = errors.New("invalid order")

// Ordering arranges registered groups for execution. Implementations must
// return the same order for the same input.
type Ordering interface {
	Order(groups []*unit.Group) []*unit.Group
	String() string
}

// Defined keeps declaration order.
type Defined struct{}

func (Defined) Order(groups []*unit.Group) []*unit.Group { return groups }

func (Defined) String() string { return "defined" }

// Random shuffles groups with a fixed seed.
type Random struct {
	Seed uint64
}

func (r Random) Order(groups []*unit.Group) []*unit.Group {
	rng := rand.New(rand.NewPCG(r.Seed, r.Seed)) //nolint:gosec // ordering, not security
	rng.Shuffle(len(groups), func(i, j int) {
		groups[i], groups[j] = groups[j], groups[i]
	})
	return groups
}

func (r Random) String() string { return "random:" + strconv.FormatUint(r.Seed, 10) }

// ParseOrdering reads "defined", "random" or "random:<seed>". A bare
// "random" picks a seed once so the resulting ordering stays stable.
func ParseOrdering(s string) (Ordering, error) {
	name, seed, hasSeed := strings.Cut(s, ":")
	switch name {
	case "", "defined":
		if hasSeed {
			return nil, fmt.Errorf("%w: %q takes no seed", ErrInvalidOrder, s)
		}
		return Defined{}, nil
	case "random", "rand":
		if !hasSeed {
			return Random{Seed: uint64(time.Now().UnixNano())}, nil //nolint:gosec // non-negative clock
		}
		n, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad seed %q: %w", ErrInvalidOrder, seed, err)
		}
		return Random{Seed: n}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}
