package claim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kitsbackend/internal/catalog"
	"kitsbackend/internal/config"
	"kitsbackend/internal/fulfill"
	"kitsbackend/internal/kit"
	"kitsbackend/internal/ledger"
	"kitsbackend/internal/providers"
	"kitsbackend/internal/team"
)

// Wednesday, 2025-06-11 12:00 UTC
var testNow = time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

type fakePerms struct {
	grants map[string]bool // "participant|perm"
	admins map[string]bool
}

func (p *fakePerms) Has(id, perm string) bool { return p.grants[id+"|"+perm] }
func (p *fakePerms) IsAdmin(id string) bool   { return p.admins[id] }
func (p *fakePerms) grant(id string, perms ...string) {
	for _, perm := range perms {
		p.grants[id+"|"+perm] = true
	}
}

type fakeGroups struct {
	groupID string
	size    int
	members []string
}

func (g *fakeGroups) GroupOf(id string) (string, int, bool) {
	if g.groupID == "" {
		return "", 0, false
	}
	return g.groupID, g.size, true
}

func (g *fakeGroups) OnlineMembers(groupID string) []string { return g.members }

type fakeBalance struct {
	balances map[string]float64
	queryErr error
	events   *[]string
}

func (b *fakeBalance) GetBalance(id string) (float64, error) {
	if b.queryErr != nil {
		return 0, b.queryErr
	}
	return b.balances[id], nil
}

func (b *fakeBalance) Withdraw(id string, amount float64) error {
	b.balances[id] -= amount
	if b.events != nil {
		*b.events = append(*b.events, "withdraw")
	}
	return nil
}

type fakePoints struct {
	points map[string]int
}

func (p *fakePoints) GetPoints(id string) (int, error) { return p.points[id], nil }
func (p *fakePoints) TakePoints(id string, amount int) error {
	p.points[id] -= amount
	return nil
}

type fakeLevel struct {
	level int
	err   error
}

func (l *fakeLevel) GetLevel(id string) (int, error) { return l.level, l.err }

// grantLog records every successful placement, per participant.
type grantLog struct {
	placed map[string][]string // participant -> item short names
	events *[]string
}

func (g *grantLog) Place(id, region, shortName string, amount int, skin int64) bool {
	g.placed[id] = append(g.placed[id], shortName)
	if g.events != nil {
		*g.events = append(*g.events, "place")
	}
	return true
}

func (g *grantLog) count(id, shortName string) int {
	n := 0
	for _, s := range g.placed[id] {
		if s == shortName {
			n++
		}
	}
	return n
}

type discardDrops struct{}

func (discardDrops) Drop(string, fulfill.Drop) {}

// allItems resolves every short name with a generous stack limit.
type allItems struct{}

func (allItems) Resolve(shortName string) (fulfill.ItemSpec, bool) {
	return fulfill.ItemSpec{ShortName: shortName, MaxStack: 1000}, true
}

// harness wires an Engine with in-memory stores and recording fakes. Mutate
// the fields, then call engine().
type harness struct {
	settings config.EngineSettings
	perms    *fakePerms
	groups   *fakeGroups
	balance  *fakeBalance // nil = provider not installed
	points   *fakePoints
	level    *fakeLevel
	inv      *grantLog
	cat      *catalog.Store
	led      *ledger.Store
	events   []string
}

func newHarness(defs ...kit.Definition) *harness {
	h := &harness{
		settings: config.EngineSettings{
			UseEconomics:        true,
			UseServerRewards:    true,
			AllowAuthLevelAdmin: true,
			Streaks: config.StreakRules{
				Enable:       true,
				DailyKitName: "daily",
				Rewards:      map[string]int{"streak-3": 3},
			},
			TeamUnlock: config.TeamUnlockRules{
				Enable:      true,
				KitAt3:      "team3",
				KitAt4:      "team4",
				RemoveAbove: 5,
				Notify:      true,
			},
			AutoKits: config.AutoKitRules{Priority: map[string]int{}},
		},
		perms:  &fakePerms{grants: map[string]bool{}, admins: map[string]bool{}},
		groups: &fakeGroups{},
		points: &fakePoints{points: map[string]int{}},
		cat:    catalog.NewStore(nil),
		led:    ledger.NewStore(nil),
	}
	h.balance = &fakeBalance{balances: map[string]float64{}, events: &h.events}
	h.inv = &grantLog{placed: map[string][]string{}, events: &h.events}
	h.cat.Load(defs)
	return h
}

func (h *harness) engine() *Engine {
	ful := fulfill.NewEngineWithRand(allItems{}, h.inv, discardDrops{}, rand.New(rand.NewSource(1)))

	prov := providers.Set{}
	if h.balance != nil {
		prov.Balance = h.balance
	}
	if h.points != nil {
		prov.Points = h.points
	}
	if h.level != nil {
		prov.Level = h.level
	}

	monitor := team.NewMonitor(h.settings.TeamUnlock, h.led, nil)
	return NewEngine(h.settings, h.cat, h.led, prov, ful, h.perms, h.groups, monitor)
}

func basicKit(name string) kit.Definition {
	return kit.Definition{
		Name:  name,
		Items: []kit.ItemEntry{{ShortName: "bandage", Amount: 2}},
	}
}

func TestAttemptClaimUnknownKit(t *testing.T) {
	h := newHarness()
	out := h.engine().AttemptClaim("p1", "ghost", testNow)

	require.False(t, out.Success)
	require.Equal(t, ReasonNotFound, out.DeniedReason)
}

func TestInsufficientFunds(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Money = 50
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.balance.balances["p1"] = 20

	out := h.engine().AttemptClaim("p1", "premium", testNow)
	require.False(t, out.Success)
	require.Equal(t, ReasonInsufficientFunds, out.DeniedReason)
	require.Equal(t, float64(20), h.balance.balances["p1"])
}

func TestInsufficientPoints(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Points = 30
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.points.points["p1"] = 10

	out := h.engine().AttemptClaim("p1", "premium", testNow)
	require.False(t, out.Success)
	require.Equal(t, ReasonInsufficientPoints, out.DeniedReason)
}

func TestExactBalanceIsEnough(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Money = 50
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.balance.balances["p1"] = 50

	out := h.engine().AttemptClaim("p1", "premium", testNow)
	require.True(t, out.Success)
	require.Equal(t, float64(0), h.balance.balances["p1"])
}

func TestCostSkippedWhenProviderAbsent(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Money = 50
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.balance = nil

	// A priced kit with no provider installed is granted free of charge.
	out := h.engine().AttemptClaim("p1", "premium", testNow)
	require.True(t, out.Success)
}

func TestCostSkippedWhenIntegrationDisabled(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Money = 50
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.settings.UseEconomics = false

	out := h.engine().AttemptClaim("p1", "premium", testNow)
	require.True(t, out.Success)
	require.NotContains(t, h.events, "withdraw")
}

func TestCostProviderFaultFailsOpen(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Money = 50
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.balance.queryErr = errTest

	out := h.engine().AttemptClaim("p1", "premium", testNow)
	require.True(t, out.Success)
}

func TestDebitRunsBeforeGrant(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Money = 50
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.balance.balances["p1"] = 100

	out := h.engine().AttemptClaim("p1", "premium", testNow)
	require.True(t, out.Success)
	require.Equal(t, []string{"withdraw", "place"}, h.events)
	require.Equal(t, float64(50), h.balance.balances["p1"])
}

func TestCanClaimHasNoSideEffects(t *testing.T) {
	def := basicKit("premium")
	def.Cost.Money = 50
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.balance.balances["p1"] = 100

	_, ok := h.engine().CanClaim("p1", "premium", testNow)
	require.True(t, ok)
	require.Equal(t, float64(100), h.balance.balances["p1"])
	require.Equal(t, 0, h.led.Usage("p1", "premium").Uses)
	require.Empty(t, h.inv.placed)
}

func TestTeamSharedClaim(t *testing.T) {
	def := basicKit("carepack")
	def.TeamShared = true
	h := newHarness(def)
	h.perms.grant("p1", PermUse)
	h.groups.groupID = "g1"
	h.groups.size = 3
	h.groups.members = []string{"p1", "p2", "p3"}

	out := h.engine().AttemptClaim("p1", "carepack", testNow)
	require.True(t, out.Success)
	require.True(t, out.TeamNotified)

	// Every other online member receives the items; only the claimant's
	// usage record advances.
	require.Equal(t, 1, h.inv.count("p2", "bandage"))
	require.Equal(t, 1, h.inv.count("p3", "bandage"))
	require.Equal(t, 1, h.led.Usage("p1", "carepack").Uses)
	require.Equal(t, 0, h.led.Usage("p2", "carepack").Uses)
}

func TestTeamSharedUngroupedClaimant(t *testing.T) {
	def := basicKit("carepack")
	def.TeamShared = true
	h := newHarness(def)
	h.perms.grant("p1", PermUse)

	out := h.engine().AttemptClaim("p1", "carepack", testNow)
	require.True(t, out.Success)
	require.False(t, out.TeamNotified)
}

func TestGrantDirectBypassesGates(t *testing.T) {
	def := basicKit("locked")
	def.AuthLevel = 2
	def.Cost.Money = 500
	h := newHarness(def)

	// No capabilities, no balance: the administrative grant still lands.
	require.NoError(t, h.engine().GrantDirect("p1", "locked"))
	require.Equal(t, 1, h.inv.count("p1", "bandage"))
	require.Equal(t, 0, h.led.Usage("p1", "locked").Uses)
	require.Equal(t, float64(0), h.balance.balances["p1"])

	require.Error(t, h.engine().GrantDirect("p1", "ghost"))
}

func TestVisibleKitsHidesSizeGated(t *testing.T) {
	h := newHarness(basicKit("starter"), basicKit("team3"))
	h.groups.groupID = "g1"
	h.groups.size = 2
	e := h.engine()

	names := func() []string {
		var out []string
		for _, d := range e.VisibleKits("p1") {
			out = append(out, d.Name)
		}
		return out
	}

	require.Equal(t, []string{"starter"}, names())

	h.groups.size = 3
	require.Equal(t, []string{"starter", "team3"}, names())
}

func TestStats(t *testing.T) {
	h := newHarness(basicKit("starter"))
	h.perms.grant("p1", PermUse)
	e := h.engine()

	e.AttemptClaim("p1", "starter", testNow)
	e.AttemptClaim("p1", "starter", testNow.Add(time.Minute))

	stats, streak := e.Stats("p1")
	require.Len(t, stats, 1)
	require.Equal(t, "starter", stats[0].KitName)
	require.Equal(t, 2, stats[0].Uses)
	require.Equal(t, 0, streak)
}
