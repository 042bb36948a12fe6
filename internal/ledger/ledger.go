// internal/ledger/ledger.go
package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"kitsbackend/internal/data"
	"kitsbackend/internal/logger"
)

// Persister is the save-on-mutation seam; nil means in-memory only (tests).
type Persister interface {
	Upsert(l data.ParticipantLedger) error
	UpsertGroupSize(groupID string, size int) error
	SetMeta(key, value string) error
}

const metaWipeKey = "wipe_id"

// WorldInfo is the host environment's description of the current world,
// queried once at startup to derive the wipe epoch.
type WorldInfo struct {
	Map         string
	Size        int
	Seed        int64
	SaveCreated time.Time
}

// EpochID derives the wipe-epoch tag from the world description.
func EpochID(w WorldInfo) string {
	return fmt.Sprintf("%s-%d-%d-%s", w.Map, w.Size, w.Seed, w.SaveCreated.UTC().Format("20060102"))
}

// Store owns all participant usage/streak records and the per-group
// last-observed sizes. It is the sole mutator of that state.
type Store struct {
	mu         sync.RWMutex
	players    map[string]*data.ParticipantLedger
	groupSizes map[string]int
	wipeID     string
	repo       Persister
}

func NewStore(repo Persister) *Store {
	return &Store{
		players:    make(map[string]*data.ParticipantLedger),
		groupSizes: make(map[string]int),
		repo:       repo,
	}
}

// Load replaces in-memory state from the persisted ledger document.
func (s *Store) Load(ledgers []data.ParticipantLedger, groupSizes map[string]int, wipeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players = make(map[string]*data.ParticipantLedger, len(ledgers))
	for i := range ledgers {
		l := ledgers[i]
		if l.Usage == nil {
			l.Usage = make(map[string]data.KitUsage)
		}
		s.players[l.ParticipantID] = &l
	}
	s.groupSizes = make(map[string]int, len(groupSizes))
	for k, v := range groupSizes {
		s.groupSizes[k] = v
	}
	s.wipeID = wipeID
	logger.LogInfo("Ledger loaded: %d participants, %d groups, wipe=%s", len(s.players), len(s.groupSizes), wipeID)
}

// WipeID returns the current wipe-epoch tag.
func (s *Store) WipeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wipeID
}

// ApplyWipe compares the computed epoch tag against the stored one. On a
// mismatch every usage record's wipe tag is cleared and, when streaks are
// enabled, every streak chain is reset — one sweep across all participants.
// Idempotent when the epoch is unchanged.
func (s *Store) ApplyWipe(newID string, resetStreaks bool) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wipeID == "" {
		s.wipeID = newID
		return false, s.persistMetaLocked()
	}
	if s.wipeID == newID {
		return false, nil
	}

	logger.LogInfo("Wipe epoch change detected: %s -> %s", s.wipeID, newID)
	for _, pl := range s.players {
		for name, usage := range pl.Usage {
			usage.LastWipeID = ""
			pl.Usage[name] = usage
		}
		if resetStreaks {
			pl.StreakDays = 0
			pl.LastDaily = nil
		}
	}
	s.wipeID = newID

	for _, pl := range s.players {
		if err := s.persistPlayerLocked(pl); err != nil {
			return true, err
		}
	}
	return true, s.persistMetaLocked()
}

// GetOrCreate returns a copy of a participant's ledger, creating an empty one
// on first interaction.
func (s *Store) GetOrCreate(participantID string) data.ParticipantLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLedger(s.getOrCreateLocked(participantID))
}

// Usage returns a copy of one participant's record for one kit (zero value if
// the participant never claimed it).
func (s *Store) Usage(participantID, kitName string) data.KitUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pl, ok := s.players[participantID]
	if !ok {
		return data.KitUsage{}
	}
	return pl.Usage[strings.ToLower(kitName)]
}

// RecordClaim advances the usage record after a successful claim: use count
// up, last-claim stamped, and the wipe tag latched for reset-on-wipe kits.
// Use counts never decrease and last-claim only moves forward.
func (s *Store) RecordClaim(participantID, kitName string, now time.Time, latchWipeTag bool) error {
	key := strings.ToLower(kitName)

	s.mu.Lock()
	pl := s.getOrCreateLocked(participantID)
	usage := pl.Usage[key]
	usage.Uses++
	ts := now.UTC()
	if usage.LastClaim == nil || ts.After(*usage.LastClaim) {
		usage.LastClaim = &ts
	}
	if latchWipeTag {
		usage.LastWipeID = s.wipeID
	}
	pl.Usage[key] = usage
	err := s.persistPlayerLocked(pl)
	s.mu.Unlock()

	return err
}

// AdvanceStreak updates the daily-claim chain: within one calendar day of the
// previous daily claim the counter increments, otherwise it restarts at 1.
// Returns the new streak length.
func (s *Store) AdvanceStreak(participantID string, now time.Time) (int, error) {
	s.mu.Lock()
	pl := s.getOrCreateLocked(participantID)

	if pl.LastDaily != nil {
		prev := truncateDay(*pl.LastDaily)
		cur := truncateDay(now)
		if int(cur.Sub(prev).Hours()/24) <= 1 {
			pl.StreakDays++
		} else {
			pl.StreakDays = 1
		}
	} else {
		pl.StreakDays = 1
	}

	ts := now.UTC()
	pl.LastDaily = &ts
	streak := pl.StreakDays
	err := s.persistPlayerLocked(pl)
	s.mu.Unlock()

	return streak, err
}

// StreakDays returns the participant's current streak length.
func (s *Store) StreakDays(participantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pl, ok := s.players[participantID]; ok {
		return pl.StreakDays
	}
	return 0
}

// LastGroupSize returns the last-observed member count for a group.
func (s *Store) LastGroupSize(groupID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupSizes[groupID]
}

// SetGroupSize records the observed member count for a group.
func (s *Store) SetGroupSize(groupID string, size int) error {
	s.mu.Lock()
	s.groupSizes[groupID] = size
	s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	if err := s.repo.UpsertGroupSize(groupID, size); err != nil {
		return fmt.Errorf("failed to persist group size: %w", err)
	}
	return nil
}

// FlushAll persists every participant row plus the wipe tag; called on
// shutdown so state is durable before the process exits.
func (s *Store) FlushAll() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.repo == nil {
		return nil
	}
	for _, pl := range s.players {
		if err := s.repo.Upsert(*pl); err != nil {
			return fmt.Errorf("failed to flush ledger for %q: %w", pl.ParticipantID, err)
		}
	}
	for id, size := range s.groupSizes {
		if err := s.repo.UpsertGroupSize(id, size); err != nil {
			return fmt.Errorf("failed to flush group size for %q: %w", id, err)
		}
	}
	return s.repo.SetMeta(metaWipeKey, s.wipeID)
}

// MetaWipeKey exposes the metadata key the wipe tag is stored under.
func MetaWipeKey() string { return metaWipeKey }

func (s *Store) getOrCreateLocked(participantID string) *data.ParticipantLedger {
	pl, ok := s.players[participantID]
	if !ok {
		pl = &data.ParticipantLedger{
			ParticipantID: participantID,
			Usage:         make(map[string]data.KitUsage),
		}
		s.players[participantID] = pl
	}
	return pl
}

func (s *Store) persistPlayerLocked(pl *data.ParticipantLedger) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Upsert(*pl); err != nil {
		return fmt.Errorf("failed to persist ledger for %q: %w", pl.ParticipantID, err)
	}
	return nil
}

func (s *Store) persistMetaLocked() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.SetMeta(metaWipeKey, s.wipeID)
}

func copyLedger(pl *data.ParticipantLedger) data.ParticipantLedger {
	out := *pl
	out.Usage = make(map[string]data.KitUsage, len(pl.Usage))
	for k, v := range pl.Usage {
		out.Usage[k] = v
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
