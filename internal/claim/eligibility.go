// internal/claim/eligibility.go
package claim

import (
	"fmt"
	"strings"
	"time"

	"kitsbackend/internal/kit"
)

// Reason tags the single cause surfaced for a denied claim.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNotFound           Reason = "not-found"
	ReasonNoBasePermission   Reason = "no-base-permission"
	ReasonNoKitPermission    Reason = "no-kit-permission"
	ReasonAdminOnly          Reason = "admin-only"
	ReasonGroupSizeLow       Reason = "group-size-low"
	ReasonGroupSizeHigh      Reason = "group-size-high"
	ReasonWindowInactive     Reason = "window-inactive"
	ReasonAlreadyClaimed     Reason = "already-claimed"
	ReasonCooldownDaily      Reason = "cooldown-daily"
	ReasonCooldownWeekly     Reason = "cooldown-weekly"
	ReasonCooldownGeneric    Reason = "cooldown-generic"
	ReasonMaxUses            Reason = "max-uses"
	ReasonLevelTooLow        Reason = "level-too-low"
	ReasonInsufficientFunds  Reason = "insufficient-funds"
	ReasonInsufficientPoints Reason = "insufficient-points"
)

// Base capabilities. Per-kit capabilities derive from the kit name.
const (
	PermUse   = "kits.use"
	PermAdmin = "kits.admin"
)

// PermForKit is the implicit per-kit capability name.
func PermForKit(kitName string) string {
	return "kits.kit." + strings.ToLower(kitName)
}

// Denial is a denied evaluation: the reason, plus the remaining wait for
// cooldown reasons so callers can render it.
type Denial struct {
	Reason Reason
	Wait   time.Duration
}

func (d Denial) String() string {
	if d.Wait > 0 {
		return fmt.Sprintf("%s (%s)", d.Reason, kit.FormatRemaining(d.Wait))
	}
	return string(d.Reason)
}

const (
	dailyInterval  = 24 * time.Hour
	weeklyInterval = 7 * 24 * time.Hour
)

// evaluate runs the free gates in their fixed precedence order and
// short-circuits on the first failure; the ordering decides which single
// reason the caller sees. Cost affordability is a separate later phase
// because it touches external providers.
func (e *Engine) evaluate(participantID string, def kit.Definition, groupSize int, now time.Time) (Denial, bool) {
	admin := e.isAdmin(participantID)

	// 2. base capability
	if !e.perms.Has(participantID, PermUse) && !admin {
		return Denial{Reason: ReasonNoBasePermission}, false
	}

	// 3. custom/per-kit capability
	if def.Permission != "" &&
		!e.perms.Has(participantID, def.Permission) &&
		!e.perms.Has(participantID, PermForKit(def.Name)) &&
		!admin {
		return Denial{Reason: ReasonNoKitPermission}, false
	}

	// 4. authorization tier
	if def.AuthLevel > 0 && !admin {
		return Denial{Reason: ReasonAdminOnly}, false
	}

	// 5. group-size gating; the upper bound denies even for admins
	if e.settings.TeamUnlock.Enable {
		tu := e.settings.TeamUnlock
		name := strings.ToLower(def.Name)
		if name == tu.KitAt3 || name == tu.KitAt4 {
			min := 3
			if name == tu.KitAt4 {
				min = 4
			}
			if groupSize < min {
				return Denial{Reason: ReasonGroupSizeLow}, false
			}
			if groupSize > tu.RemoveAbove {
				return Denial{Reason: ReasonGroupSizeHigh}, false
			}
		}
	}

	// 6. activation window
	if !def.Window.ActiveAt(now) {
		return Denial{Reason: ReasonWindowInactive}, false
	}

	usage := e.ledger.Usage(participantID, def.Name)

	// 7. one-time-ever (latched wipe tag, cleared on epoch change)
	if def.OneTime && usage.LastWipeID != "" {
		return Denial{Reason: ReasonAlreadyClaimed}, false
	}

	// 8-10. the three cooldown sources are independent all-must-pass gates
	if def.Daily && usage.LastClaim != nil {
		if elapsed := now.Sub(*usage.LastClaim); elapsed < dailyInterval {
			return Denial{Reason: ReasonCooldownDaily, Wait: dailyInterval - elapsed}, false
		}
	}
	if def.Weekly && usage.LastClaim != nil {
		if elapsed := now.Sub(*usage.LastClaim); elapsed < weeklyInterval {
			return Denial{Reason: ReasonCooldownWeekly, Wait: weeklyInterval - elapsed}, false
		}
	}
	if cd := def.CooldownDuration(); cd > 0 && usage.LastClaim != nil {
		if elapsed := now.Sub(*usage.LastClaim); elapsed < cd {
			return Denial{Reason: ReasonCooldownGeneric, Wait: cd - elapsed}, false
		}
	}

	// 11. lifetime use cap
	if def.MaxUses > 0 && usage.Uses >= def.MaxUses {
		return Denial{Reason: ReasonMaxUses}, false
	}

	// 12. minimum level; no provider (or a provider fault) skips the gate
	if def.MinLevel > 0 && e.providers.Level != nil {
		if lvl, err := e.providers.Level.GetLevel(participantID); err == nil && lvl < def.MinLevel {
			return Denial{Reason: ReasonLevelTooLow}, false
		}
	}

	return Denial{}, true
}

func (e *Engine) isAdmin(participantID string) bool {
	if e.perms.Has(participantID, PermAdmin) {
		return true
	}
	return e.settings.AllowAuthLevelAdmin && e.perms.IsAdmin(participantID)
}
