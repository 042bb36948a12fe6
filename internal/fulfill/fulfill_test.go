package fulfill

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"kitsbackend/internal/kit"
)

type fakeResolver map[string]int // short name -> max stack

func (r fakeResolver) Resolve(shortName string) (ItemSpec, bool) {
	max, ok := r[shortName]
	if !ok {
		return ItemSpec{}, false
	}
	return ItemSpec{ShortName: shortName, MaxStack: max}, true
}

type placed struct {
	region    string
	shortName string
	amount    int
}

type fakeInventory struct {
	capacity int // stacks accepted before reporting full; -1 = unlimited
	placed   []placed
}

func (inv *fakeInventory) Place(participantID, region, shortName string, amount int, skin int64) bool {
	if inv.capacity == 0 {
		return false
	}
	if inv.capacity > 0 {
		inv.capacity--
	}
	inv.placed = append(inv.placed, placed{region: region, shortName: shortName, amount: amount})
	return true
}

type fakeDrops struct {
	drops []Drop
}

func (d *fakeDrops) Drop(participantID string, drop Drop) {
	d.drops = append(d.drops, drop)
}

func newTestEngine(res fakeResolver, inv *fakeInventory, drops *fakeDrops) *Engine {
	return NewEngineWithRand(res, inv, drops, rand.New(rand.NewSource(1)))
}

func TestFulfillSplitsIntoStacks(t *testing.T) {
	inv := &fakeInventory{capacity: -1}
	drops := &fakeDrops{}
	eng := newTestEngine(fakeResolver{"wood": 1000}, inv, drops)

	res := eng.Fulfill("p1", kit.Definition{
		Name:  "lumber",
		Items: []kit.ItemEntry{{ShortName: "wood", Amount: 2500}},
	})

	require.False(t, res.Overflowed)
	require.Equal(t, 2500, res.Placed)
	require.Len(t, inv.placed, 3) // 1000 + 1000 + 500
	require.Equal(t, 500, inv.placed[2].amount)
}

func TestFulfillConservation(t *testing.T) {
	// Everything requested ends up placed or dropped, for any stack limit.
	for _, maxStack := range []int{1, 3, 64, 1000} {
		inv := &fakeInventory{capacity: 2}
		drops := &fakeDrops{}
		eng := newTestEngine(fakeResolver{"ore": maxStack}, inv, drops)

		res := eng.Fulfill("p1", kit.Definition{
			Name: "mining",
			Items: []kit.ItemEntry{
				{ShortName: "ore", Amount: 7},
				{ShortName: "ore", Amount: 130},
			},
		})

		total := res.Placed + res.Dropped
		require.Equal(t, 137, total, "maxStack=%d", maxStack)

		droppedUnits := 0
		for _, d := range drops.drops {
			droppedUnits += d.Amount
			require.NotEmpty(t, d.ID)
		}
		require.Equal(t, res.Dropped, droppedUnits, "maxStack=%d", maxStack)
		if res.Dropped > 0 {
			require.True(t, res.Overflowed)
		}
	}
}

func TestFulfillOverflowMarksResult(t *testing.T) {
	inv := &fakeInventory{capacity: 0}
	drops := &fakeDrops{}
	eng := newTestEngine(fakeResolver{"bandage": 5}, inv, drops)

	res := eng.Fulfill("p1", kit.Definition{
		Name:  "medic",
		Items: []kit.ItemEntry{{ShortName: "bandage", Amount: 12}},
	})

	require.True(t, res.Overflowed)
	require.Equal(t, 0, res.Placed)
	require.Equal(t, 12, res.Dropped)
	require.Len(t, drops.drops, 3) // 5 + 5 + 2
}

func TestFulfillSkipsUnresolvableItems(t *testing.T) {
	inv := &fakeInventory{capacity: -1}
	drops := &fakeDrops{}
	eng := newTestEngine(fakeResolver{"known": 10}, inv, drops)

	res := eng.Fulfill("p1", kit.Definition{
		Name: "mixed",
		Items: []kit.ItemEntry{
			{ShortName: "ghost.item", Amount: 5},
			{ShortName: "known", Amount: 5},
		},
	})

	require.False(t, res.Overflowed)
	require.Equal(t, 5, res.Placed)
	require.Empty(t, drops.drops)
}

func TestFulfillRandomizedRollCount(t *testing.T) {
	inv := &fakeInventory{capacity: -1}
	drops := &fakeDrops{}
	pool := fakeResolver{"a": 10, "b": 10, "c": 10}
	eng := newTestEngine(pool, inv, drops)

	def := kit.Definition{
		Name:      "loot",
		Randomize: true,
		Rolls:     25,
		Items: []kit.ItemEntry{
			{ShortName: "a", Amount: 1},
			{ShortName: "b", Amount: 1},
			{ShortName: "c", Amount: 1},
		},
	}

	res := eng.Fulfill("p1", def)
	require.Equal(t, 25, res.Entries)
	require.Equal(t, 25, res.Placed)

	// Picks are with replacement: the original 3-entry pool is never shrunk,
	// so 25 rolls over 3 entries must repeat.
	seen := make(map[string]int)
	for _, p := range inv.placed {
		seen[p.shortName]++
	}
	require.LessOrEqual(t, len(seen), 3)
}

func TestFulfillRandomizedEmptyPool(t *testing.T) {
	inv := &fakeInventory{capacity: -1}
	drops := &fakeDrops{}
	eng := newTestEngine(fakeResolver{}, inv, drops)

	res := eng.Fulfill("p1", kit.Definition{Name: "empty", Randomize: true, Rolls: 5})
	require.Equal(t, 0, res.Entries)
	require.False(t, res.Overflowed)
}

func TestFulfillRegionRouting(t *testing.T) {
	inv := &fakeInventory{capacity: -1}
	drops := &fakeDrops{}
	eng := newTestEngine(fakeResolver{"pickaxe": 1, "shirt": 1}, inv, drops)

	eng.Fulfill("p1", kit.Definition{
		Name: "gear",
		Items: []kit.ItemEntry{
			{ShortName: "pickaxe", Amount: 1, Region: "belt"},
			{ShortName: "shirt", Amount: 1, Region: "wear"},
		},
	})

	require.Equal(t, "belt", inv.placed[0].region)
	require.Equal(t, "wear", inv.placed[1].region)
}
