// host.go
package main

import (
	"os"
	"strconv"
	"strings"

	"kitsbackend/internal/fulfill"
	"kitsbackend/internal/logger"
	"kitsbackend/internal/team"
)

// standaloneHost is the built-in host adapter used when the engine runs
// without a game server attached: every participant holds the base
// capability, nobody is grouped, inventory always has room, and overflow
// drops are just logged. A real host replaces all of these surfaces.
type standaloneHost struct {
	admins       map[string]bool
	defaultStack int
}

func newStandaloneHost() *standaloneHost {
	h := &standaloneHost{
		admins:       make(map[string]bool),
		defaultStack: 1000,
	}
	for _, id := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			h.admins[id] = true
		}
	}
	if raw := os.Getenv("DEFAULT_MAX_STACK"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			h.defaultStack = n
		}
	}
	return h
}

// claim.Permissions

func (h *standaloneHost) Has(participantID, perm string) bool {
	return perm == "kits.use"
}

func (h *standaloneHost) IsAdmin(participantID string) bool {
	return h.admins[participantID]
}

// claim.Groups

func (h *standaloneHost) GroupOf(participantID string) (string, int, bool) {
	return "", 0, false
}

func (h *standaloneHost) OnlineMembers(groupID string) []string {
	return nil
}

// fulfill.Resolver / fulfill.Inventory / fulfill.DropSink

func (h *standaloneHost) Resolve(shortName string) (fulfill.ItemSpec, bool) {
	if shortName == "" {
		return fulfill.ItemSpec{}, false
	}
	return fulfill.ItemSpec{ShortName: shortName, MaxStack: h.defaultStack}, true
}

func (h *standaloneHost) Place(participantID, region, shortName string, amount int, skin int64) bool {
	return true
}

func (h *standaloneHost) Drop(participantID string, d fulfill.Drop) {
	logger.LogInfo("Drop %s: %dx %s for %s", d.ID, d.Amount, d.ShortName, participantID)
}

// team.Notifier

func (h *standaloneHost) NotifyGroup(groupID string, event team.Event) {
	logger.LogInfo("Group %s notification: %s", groupID, event)
}
