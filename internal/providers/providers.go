// internal/providers/providers.go
//
// Optional external value providers. Each is independently optional and
// treated as a potentially slow, fallible remote call: any error means
// "provider unavailable" and the gate that needed it fails open.
package providers

// Balance is a monetary ledger (economics integration).
type Balance interface {
	GetBalance(participantID string) (float64, error)
	// Withdraw is best-effort; the claim flow does not roll back on failure.
	Withdraw(participantID string, amount float64) error
}

// Points is a reward-point ledger.
type Points interface {
	GetPoints(participantID string) (int, error)
	TakePoints(participantID string, amount int) error
}

// Level reports a participant's progression level.
type Level interface {
	GetLevel(participantID string) (int, error)
}

// Set bundles the configured providers; nil fields mean "not installed".
type Set struct {
	Balance Balance
	Points  Points
	Level   Level
}
