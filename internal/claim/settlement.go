// internal/claim/settlement.go
package claim

import (
	"kitsbackend/internal/kit"
	"kitsbackend/internal/logger"
)

// effectiveCost forces each cost to zero when the corresponding integration
// is globally disabled.
func (e *Engine) effectiveCost(def kit.Definition) kit.Cost {
	cost := def.Cost
	if !e.settings.UseEconomics {
		cost.Money = 0
	}
	if !e.settings.UseServerRewards {
		cost.Points = 0
	}
	return cost
}

// checkAffordability queries the providers without debiting. A cost with no
// configured provider, or a provider fault, performs no check and the claim
// proceeds without charge (fails open).
func (e *Engine) checkAffordability(participantID string, def kit.Definition) (Denial, bool) {
	cost := e.effectiveCost(def)

	if cost.Money > 0 {
		if e.providers.Balance == nil {
			logger.LogWarn("Kit %q costs %.2f but no balance provider is configured; skipping charge", def.Name, cost.Money)
		} else if bal, err := e.providers.Balance.GetBalance(participantID); err != nil {
			logger.LogWarn("Balance provider unavailable for %s: %v", participantID, err)
		} else if bal < cost.Money {
			return Denial{Reason: ReasonInsufficientFunds}, false
		}
	}

	if cost.Points > 0 {
		if e.providers.Points == nil {
			logger.LogWarn("Kit %q costs %d points but no points provider is configured; skipping charge", def.Name, cost.Points)
		} else if pts, err := e.providers.Points.GetPoints(participantID); err != nil {
			logger.LogWarn("Points provider unavailable for %s: %v", participantID, err)
		} else if pts < cost.Points {
			return Denial{Reason: ReasonInsufficientPoints}, false
		}
	}

	return Denial{}, true
}

// settle debits the providers. Runs only once every other gate has passed,
// and before items are granted. Debit failures are logged, not rolled back.
func (e *Engine) settle(participantID string, def kit.Definition) {
	cost := e.effectiveCost(def)

	if cost.Money > 0 && e.providers.Balance != nil {
		if err := e.providers.Balance.Withdraw(participantID, cost.Money); err != nil {
			logger.LogWarn("Withdraw of %.2f failed for %s: %v", cost.Money, participantID, err)
		}
	}
	if cost.Points > 0 && e.providers.Points != nil {
		if err := e.providers.Points.TakePoints(participantID, cost.Points); err != nil {
			logger.LogWarn("TakePoints of %d failed for %s: %v", cost.Points, participantID, err)
		}
	}
}
