// internal/fulfill/fulfill.go
package fulfill

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"kitsbackend/internal/kit"
	"kitsbackend/internal/logger"
)

// ItemSpec is the resolved description of an item kind.
type ItemSpec struct {
	ShortName string
	MaxStack  int
}

// Resolver maps item short names to their specs. Unresolvable names are
// skipped during fulfillment, never fatal.
type Resolver interface {
	Resolve(shortName string) (ItemSpec, bool)
}

// Inventory is the participant-side placement surface. Place is binary: a
// stack either fits in the requested region or it does not.
type Inventory interface {
	Place(participantID, region, shortName string, amount int, skin int64) bool
}

// Drop is one stack deposited into the world because inventory was full.
type Drop struct {
	ID        string
	ShortName string
	Amount    int
	Skin      int64
}

// DropSink receives overflow stacks (world drop at the participant's position
// with outward velocity, in the host's hands).
type DropSink interface {
	Drop(participantID string, d Drop)
}

// Result summarizes one fulfillment.
type Result struct {
	Overflowed bool
	Placed     int // total units placed in inventory
	Dropped    int // total units dropped into the world
	Entries    int // item entries granted (after randomization)
}

// Engine turns a kit's item list into inventory mutations. Every unit
// requested ends up either placed or dropped; nothing is discarded.
type Engine struct {
	resolver Resolver
	inv      Inventory
	drops    DropSink
	rng      *rand.Rand
}

func NewEngine(resolver Resolver, inv Inventory, drops DropSink) *Engine {
	return NewEngineWithRand(resolver, inv, drops, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithRand injects the roll source, for deterministic tests.
func NewEngineWithRand(resolver Resolver, inv Inventory, drops DropSink, rng *rand.Rand) *Engine {
	return &Engine{resolver: resolver, inv: inv, drops: drops, rng: rng}
}

// Fulfill grants a kit's items to the participant.
func (e *Engine) Fulfill(participantID string, def kit.Definition) Result {
	entries := e.selectEntries(def)

	var res Result
	res.Entries = len(entries)

	for _, entry := range entries {
		spec, ok := e.resolver.Resolve(entry.ShortName)
		if !ok {
			logger.LogWarn("Skipping unresolvable item %q in kit %q", entry.ShortName, def.Name)
			continue
		}

		maxStack := spec.MaxStack
		if maxStack < 1 {
			maxStack = 1
		}
		region := kit.NormalizeRegion(entry.Region)

		left := entry.Amount
		for left > 0 {
			stack := left
			if stack > maxStack {
				stack = maxStack
			}

			if e.inv.Place(participantID, region, entry.ShortName, stack, entry.Skin) {
				res.Placed += stack
			} else {
				res.Overflowed = true
				res.Dropped += stack
				e.drops.Drop(participantID, Drop{
					ID:        uuid.NewString(),
					ShortName: entry.ShortName,
					Amount:    stack,
					Skin:      entry.Skin,
				})
			}
			left -= stack
		}
	}

	return res
}

// selectEntries expands the kit's item list. Randomized kits draw Rolls
// independent picks with replacement from the full original list; the pool is
// never shrunk between picks.
func (e *Engine) selectEntries(def kit.Definition) []kit.ItemEntry {
	if !def.Randomize || def.Rolls <= 0 {
		return def.Items
	}
	if len(def.Items) == 0 {
		return nil
	}

	out := make([]kit.ItemEntry, 0, def.Rolls)
	for i := 0; i < def.Rolls; i++ {
		out = append(out, def.Items[e.rng.Intn(len(def.Items))])
	}
	return out
}
