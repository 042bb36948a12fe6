// internal/claim/autokit.go
package claim

import (
	"sort"
	"strings"
	"time"
)

// SelectBest picks the auto-kit for a connect/respawn trigger: candidates are
// filtered to the catalog, ordered by descending configured priority weight
// (unlisted kits weigh 0), and the first one that silently passes every gate
// — cost included — is claimed. Exactly one kit per trigger.
func (e *Engine) SelectBest(participantID string, candidates []string, now time.Time) (string, bool) {
	present := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if e.catalog.Has(name) {
			present = append(present, name)
		}
	}

	weights := e.settings.AutoKits.Priority
	weightOf := func(name string) int { return weights[strings.ToLower(name)] }
	sort.SliceStable(present, func(i, j int) bool {
		return weightOf(present[i]) > weightOf(present[j])
	})

	for _, name := range present {
		if _, ok := e.CanClaim(participantID, name, now); ok {
			e.AttemptClaim(participantID, name, now)
			return name, true
		}
	}
	return "", false
}
