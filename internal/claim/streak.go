// internal/claim/streak.go
package claim

import (
	"sort"
	"strings"
	"time"

	"kitsbackend/internal/kit"
	"kitsbackend/internal/logger"
)

// processStreak runs after a successful claim of the designated daily kit:
// advance (or restart) the chain, then grant any reward kit whose configured
// streak length the new count exactly equals.
func (e *Engine) processStreak(participantID string, def kit.Definition, now time.Time) {
	rules := e.settings.Streaks
	if !rules.Enable || !def.Daily || !strings.EqualFold(def.Name, rules.DailyKitName) {
		return
	}

	streak, err := e.ledger.AdvanceStreak(participantID, now)
	if err != nil {
		logger.LogError("Failed to advance streak for %s: %v", participantID, err)
		return
	}

	for _, reward := range sortedRewards(rules.Rewards) {
		if streak != reward.length {
			continue
		}
		rewardDef, ok := e.catalog.Get(reward.kitName)
		if !ok {
			logger.LogWarn("Streak reward kit %q not in catalog; skipping", reward.kitName)
			continue
		}
		// administrative-style grant: no gates, no charge
		e.fulfiller.Fulfill(participantID, rewardDef)
		logger.LogInfo("Streak reward %q granted to %s at %d days", rewardDef.Name, participantID, streak)
	}
}

type streakReward struct {
	kitName string
	length  int
}

// sortedRewards orders reward pairs by ascending streak length, then name for
// a stable order when several rewards share a length (all of them fire).
func sortedRewards(rewards map[string]int) []streakReward {
	out := make([]streakReward, 0, len(rewards))
	for name, length := range rewards {
		out = append(out, streakReward{kitName: name, length: length})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].length != out[j].length {
			return out[i].length < out[j].length
		}
		return out[i].kitName < out[j].kitName
	})
	return out
}
