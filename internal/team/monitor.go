// internal/team/monitor.go
package team

import (
	"kitsbackend/internal/config"
	"kitsbackend/internal/logger"
)

// Event is an edge-triggered group-size notification.
type Event string

const (
	EventNone     Event = ""
	EventReached3 Event = "reached-3"
	EventReached4 Event = "reached-4"
	EventRemoved  Event = "removed"
)

// SizeStore remembers the last-observed member count per group. The ledger
// store satisfies this.
type SizeStore interface {
	LastGroupSize(groupID string) int
	SetGroupSize(groupID string, size int) error
}

// Notifier delivers a threshold event to a group's online members.
type Notifier interface {
	NotifyGroup(groupID string, event Event)
}

// Monitor detects group-size transitions on membership-change events. The
// checks are exact-equality edges (reaching 3, reaching 4) plus the
// remove-above threshold; a jump from 2 to 5 skips both "reached" events.
type Monitor struct {
	rules    config.TeamUnlockRules
	sizes    SizeStore
	notifier Notifier
}

func NewMonitor(rules config.TeamUnlockRules, sizes SizeStore, notifier Notifier) *Monitor {
	return &Monitor{rules: rules, sizes: sizes, notifier: notifier}
}

// Evaluate is invoked on any membership-change event (join, leave, kick,
// connect, disconnect). It emits at most one notification per size change and
// always records the newly observed count.
func (m *Monitor) Evaluate(groupID string, currentSize int) Event {
	if !m.rules.Enable || groupID == "" {
		return EventNone
	}

	last := m.sizes.LastGroupSize(groupID)
	if currentSize == last {
		return EventNone
	}

	event := EventNone
	switch {
	case currentSize == 3:
		event = EventReached3
	case currentSize == 4:
		event = EventReached4
	case currentSize > m.rules.RemoveAbove:
		event = EventRemoved
	}

	if event != EventNone && m.rules.Notify && m.notifier != nil {
		m.notifier.NotifyGroup(groupID, event)
	}

	if err := m.sizes.SetGroupSize(groupID, currentSize); err != nil {
		logger.LogError("Failed to record group size for %q: %v", groupID, err)
	}
	return event
}

// KitVisible reports whether a size-gated kit should be listed for a group of
// the given size. Non-gated kits are always visible.
func (m *Monitor) KitVisible(kitName string, groupSize int) bool {
	if !m.rules.Enable {
		return true
	}
	switch kitName {
	case m.rules.KitAt3:
		return groupSize >= 3 && groupSize <= m.rules.RemoveAbove
	case m.rules.KitAt4:
		return groupSize >= 4 && groupSize <= m.rules.RemoveAbove
	}
	return true
}
