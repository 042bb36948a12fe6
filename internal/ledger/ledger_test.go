package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kitsbackend/internal/data"
)

var baseTime = time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

func TestEpochID(t *testing.T) {
	w := WorldInfo{
		Map:         "procedural",
		Size:        4000,
		Seed:        12345,
		SaveCreated: baseTime,
	}
	require.Equal(t, "procedural-4000-12345-20250611", EpochID(w))
}

func TestRecordClaimAdvancesUsage(t *testing.T) {
	s := NewStore(nil)

	require.NoError(t, s.RecordClaim("p1", "Starter", baseTime, true))
	require.NoError(t, s.RecordClaim("p1", "starter", baseTime.Add(time.Hour), true))

	// Kit keys are case-insensitive, counts monotonic, last-claim advances.
	usage := s.Usage("p1", "STARTER")
	require.Equal(t, 2, usage.Uses)
	require.Equal(t, baseTime.Add(time.Hour), *usage.LastClaim)
}

func TestRecordClaimLastClaimNeverRegresses(t *testing.T) {
	s := NewStore(nil)

	require.NoError(t, s.RecordClaim("p1", "starter", baseTime, false))
	require.NoError(t, s.RecordClaim("p1", "starter", baseTime.Add(-time.Hour), false))

	usage := s.Usage("p1", "starter")
	require.Equal(t, 2, usage.Uses)
	require.Equal(t, baseTime, *usage.LastClaim)
}

func TestRecordClaimWipeTagLatch(t *testing.T) {
	s := NewStore(nil)
	_, err := s.ApplyWipe("epoch-1", true)
	require.NoError(t, err)

	require.NoError(t, s.RecordClaim("p1", "onetime", baseTime, true))
	require.Equal(t, "epoch-1", s.Usage("p1", "onetime").LastWipeID)

	require.NoError(t, s.RecordClaim("p1", "plain", baseTime, false))
	require.Empty(t, s.Usage("p1", "plain").LastWipeID)
}

func TestApplyWipeSweep(t *testing.T) {
	s := NewStore(nil)
	_, err := s.ApplyWipe("epoch-1", true)
	require.NoError(t, err)

	require.NoError(t, s.RecordClaim("p1", "onetime", baseTime, true))
	require.NoError(t, s.RecordClaim("p2", "onetime", baseTime, true))
	_, err = s.AdvanceStreak("p1", baseTime)
	require.NoError(t, err)

	changed, err := s.ApplyWipe("epoch-2", true)
	require.NoError(t, err)
	require.True(t, changed)

	// Every participant's wipe tags cleared and streak state reset, one sweep.
	require.Empty(t, s.Usage("p1", "onetime").LastWipeID)
	require.Empty(t, s.Usage("p2", "onetime").LastWipeID)
	require.Equal(t, 0, s.StreakDays("p1"))
	require.Nil(t, s.GetOrCreate("p1").LastDaily)

	// Use counts are untouched by a wipe.
	require.Equal(t, 1, s.Usage("p1", "onetime").Uses)
}

func TestApplyWipeIdempotent(t *testing.T) {
	s := NewStore(nil)
	_, err := s.ApplyWipe("epoch-1", true)
	require.NoError(t, err)

	require.NoError(t, s.RecordClaim("p1", "onetime", baseTime, true))

	changed, err := s.ApplyWipe("epoch-1", true)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, "epoch-1", s.Usage("p1", "onetime").LastWipeID)
}

func TestApplyWipeKeepsStreaksWhenDisabled(t *testing.T) {
	s := NewStore(nil)
	_, err := s.ApplyWipe("epoch-1", false)
	require.NoError(t, err)
	_, err = s.AdvanceStreak("p1", baseTime)
	require.NoError(t, err)

	_, err = s.ApplyWipe("epoch-2", false)
	require.NoError(t, err)
	require.Equal(t, 1, s.StreakDays("p1"))
}

func TestAdvanceStreakChain(t *testing.T) {
	s := NewStore(nil)

	n, err := s.AdvanceStreak("p1", baseTime)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Next calendar day continues the chain.
	n, err = s.AdvanceStreak("p1", baseTime.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Same calendar day also counts as <= 1 day apart.
	n, err = s.AdvanceStreak("p1", baseTime.Add(25*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// Skipping a day restarts at 1.
	n, err = s.AdvanceStreak("p1", baseTime.Add(4*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestGroupSizes(t *testing.T) {
	s := NewStore(nil)

	require.Equal(t, 0, s.LastGroupSize("g1"))
	require.NoError(t, s.SetGroupSize("g1", 3))
	require.Equal(t, 3, s.LastGroupSize("g1"))
}

func TestLoadRoundTrip(t *testing.T) {
	s := NewStore(nil)
	last := baseTime
	s.Load([]data.ParticipantLedger{
		{
			ParticipantID: "p1",
			Usage:         map[string]data.KitUsage{"starter": {Uses: 4, LastClaim: &last}},
			StreakDays:    2,
			LastDaily:     &last,
		},
	}, map[string]int{"g1": 4}, "epoch-1")

	require.Equal(t, 4, s.Usage("p1", "starter").Uses)
	require.Equal(t, 2, s.StreakDays("p1"))
	require.Equal(t, 4, s.LastGroupSize("g1"))
	require.Equal(t, "epoch-1", s.WipeID())
}

func TestGetOrCreateReturnsCopy(t *testing.T) {
	s := NewStore(nil)
	pl := s.GetOrCreate("p1")
	pl.Usage["starter"] = data.KitUsage{Uses: 99}

	require.Equal(t, 0, s.Usage("p1", "starter").Uses)
}
