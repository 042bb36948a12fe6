// internal/claim/engine.go
package claim

import (
	"fmt"
	"time"

	"kitsbackend/internal/catalog"
	"kitsbackend/internal/config"
	"kitsbackend/internal/fulfill"
	"kitsbackend/internal/kit"
	"kitsbackend/internal/ledger"
	"kitsbackend/internal/logger"
	"kitsbackend/internal/providers"
	"kitsbackend/internal/team"
)

// Permissions is the host's capability query surface.
type Permissions interface {
	Has(participantID, perm string) bool
	// IsAdmin reports host-level administrative authority (auth level), which
	// counts as admin only when the engine is configured to allow it.
	IsAdmin(participantID string) bool
}

// Groups is the host's live group-membership query surface. Size is always
// re-derived live for gating; the ledger's stored sizes exist only for
// edge-triggered notifications.
type Groups interface {
	// GroupOf returns the participant's group and its current size; ok is
	// false for ungrouped participants (treated as size 1).
	GroupOf(participantID string) (groupID string, size int, ok bool)
	// OnlineMembers lists the currently connected members of a group.
	OnlineMembers(groupID string) []string
}

// Outcome is the structured result of a claim attempt. Every path through
// AttemptClaim returns one; faults never escape as panics or raw errors.
type Outcome struct {
	Success      bool
	DeniedReason Reason
	Wait         time.Duration // remaining cooldown, for cooldown denials
	Overflowed   bool
	TeamNotified bool
}

// Engine evaluates and fulfills kit claims. One claim is processed to
// completion before the next; the stores serialize their own mutations.
type Engine struct {
	settings  config.EngineSettings
	catalog   *catalog.Store
	ledger    *ledger.Store
	providers providers.Set
	fulfiller *fulfill.Engine
	perms     Permissions
	groups    Groups
	monitor   *team.Monitor
}

func NewEngine(
	settings config.EngineSettings,
	cat *catalog.Store,
	led *ledger.Store,
	prov providers.Set,
	ful *fulfill.Engine,
	perms Permissions,
	groups Groups,
	monitor *team.Monitor,
) *Engine {
	return &Engine{
		settings:  settings,
		catalog:   cat,
		ledger:    led,
		providers: prov,
		fulfiller: ful,
		perms:     perms,
		groups:    groups,
		monitor:   monitor,
	}
}

// AttemptClaim is the claim entry point: gate evaluation, cost settlement,
// fulfillment, ledger recording, streak post-processing, and team sharing.
func (e *Engine) AttemptClaim(participantID, kitName string, now time.Time) Outcome {
	def, ok := e.catalog.Get(kitName)
	if !ok {
		logger.LogClaim(participantID, kitName, false, string(ReasonNotFound))
		return Outcome{DeniedReason: ReasonNotFound}
	}

	groupID, groupSize := e.groupOf(participantID)

	if denial, ok := e.evaluate(participantID, def, groupSize, now); !ok {
		logger.LogClaim(participantID, def.Name, false, denial.String())
		return Outcome{DeniedReason: denial.Reason, Wait: denial.Wait}
	}

	// Cost runs as a distinct phase after every free gate has passed.
	if denial, ok := e.checkAffordability(participantID, def); !ok {
		logger.LogClaim(participantID, def.Name, false, denial.String())
		return Outcome{DeniedReason: denial.Reason}
	}
	e.settle(participantID, def)

	result := e.fulfiller.Fulfill(participantID, def)

	if err := e.ledger.RecordClaim(participantID, def.Name, now, def.ResetOnWipe); err != nil {
		logger.LogError("Failed to record claim of %q for %s: %v", def.Name, participantID, err)
	}

	e.processStreak(participantID, def, now)

	teamNotified := false
	if def.TeamShared && groupID != "" {
		teamNotified = e.shareWithGroup(participantID, groupID, def)
	}

	logger.LogClaim(participantID, def.Name, true,
		fmt.Sprintf("placed=%d dropped=%d", result.Placed, result.Dropped))

	return Outcome{
		Success:      true,
		Overflowed:   result.Overflowed,
		TeamNotified: teamNotified,
	}
}

// CanClaim evaluates all gates, cost affordability included, without any side
// effect. Used by auto-selection and the presentation layer.
func (e *Engine) CanClaim(participantID, kitName string, now time.Time) (Denial, bool) {
	def, ok := e.catalog.Get(kitName)
	if !ok {
		return Denial{Reason: ReasonNotFound}, false
	}
	_, groupSize := e.groupOf(participantID)
	if denial, ok := e.evaluate(participantID, def, groupSize, now); !ok {
		return denial, false
	}
	return e.checkAffordability(participantID, def)
}

// GrantDirect fulfills a kit administrative-style, bypassing every gate and
// charging nothing. Usage is not recorded.
func (e *Engine) GrantDirect(participantID, kitName string) error {
	def, ok := e.catalog.Get(kitName)
	if !ok {
		return fmt.Errorf("grant %q to %s: %w", kitName, participantID, catalog.ErrNotFound)
	}
	e.fulfiller.Fulfill(participantID, def)
	return nil
}

// VisibleKits lists the kits the presentation layer should show the
// participant, hiding size-gated kits outside their live size range.
func (e *Engine) VisibleKits(participantID string) []kit.Definition {
	_, groupSize := e.groupOf(participantID)

	var out []kit.Definition
	for _, def := range e.catalog.All() {
		if e.monitor != nil && !e.monitor.KitVisible(def.Name, groupSize) {
			continue
		}
		out = append(out, def)
	}
	return out
}

// UsageStats is one line of a participant's usage summary.
type UsageStats struct {
	KitName   string
	Uses      int
	LastClaim *time.Time
}

// Stats returns the participant's per-kit usage summary plus streak length.
func (e *Engine) Stats(participantID string) ([]UsageStats, int) {
	pl := e.ledger.GetOrCreate(participantID)

	out := make([]UsageStats, 0, len(pl.Usage))
	for name, usage := range pl.Usage {
		out = append(out, UsageStats{KitName: name, Uses: usage.Uses, LastClaim: usage.LastClaim})
	}
	return out, pl.StreakDays
}

// shareWithGroup grants a team-shared kit to every other online group member.
func (e *Engine) shareWithGroup(claimantID, groupID string, def kit.Definition) bool {
	shared := false
	for _, memberID := range e.groups.OnlineMembers(groupID) {
		if memberID == claimantID {
			continue
		}
		e.fulfiller.Fulfill(memberID, def)
		shared = true
	}
	return shared
}

func (e *Engine) groupOf(participantID string) (string, int) {
	if e.groups == nil {
		return "", 1
	}
	groupID, size, ok := e.groups.GroupOf(participantID)
	if !ok || size < 1 {
		return "", 1
	}
	return groupID, size
}
