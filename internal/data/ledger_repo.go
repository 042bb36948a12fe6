package data

import (
	"database/sql"
	"fmt"
	"time"
)

// =============================================================================
// PARTICIPANT LEDGER REPOSITORY
// =============================================================================

// KitUsage is one participant's record for one kit.
type KitUsage struct {
	Uses       int        `json:"uses"`
	LastClaim  *time.Time `json:"last_claim,omitempty"`
	LastWipeID string     `json:"last_wipe_id,omitempty"`
}

// ParticipantLedger is the persisted per-participant state: kit usage keyed by
// lowercased kit name, plus the daily-claim streak chain.
type ParticipantLedger struct {
	ParticipantID string              `json:"participant_id"`
	Usage         map[string]KitUsage `json:"usage"`
	StreakDays    int                 `json:"streak_days"`
	LastDaily     *time.Time          `json:"last_daily,omitempty"`
}

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Upsert writes one participant's ledger row.
func (r *LedgerRepository) Upsert(l ParticipantLedger) error {
	usageJSON, err := marshalJSON(l.Usage)
	if err != nil {
		return fmt.Errorf("failed to marshal usage map: %w", err)
	}

	const stmt = `
		INSERT INTO participant_ledgers (participant_id, usage_json, streak_days, last_daily)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(participant_id) DO UPDATE SET
			usage_json=excluded.usage_json,
			streak_days=excluded.streak_days,
			last_daily=excluded.last_daily`

	_, err = ExecDB(stmt, l.ParticipantID, usageJSON, l.StreakDays, formatNullableTime(l.LastDaily))
	if err != nil {
		return fmt.Errorf("failed to upsert ledger for %q: %w", l.ParticipantID, err)
	}
	return nil
}

// GetAll loads every participant ledger.
func (r *LedgerRepository) GetAll() ([]ParticipantLedger, error) {
	rows, err := QueryDB(`SELECT participant_id, usage_json, streak_days, last_daily FROM participant_ledgers`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}
	defer rows.Close()

	var result []ParticipantLedger
	for rows.Next() {
		var l ParticipantLedger
		var usageJSON, lastDaily sql.NullString

		if err := rows.Scan(&l.ParticipantID, &usageJSON, &l.StreakDays, &lastDaily); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}

		l.Usage = make(map[string]KitUsage)
		if usageJSON.Valid && usageJSON.String != "" {
			if err := unmarshalJSON(usageJSON.String, &l.Usage); err != nil {
				return nil, fmt.Errorf("ledger %q usage: %w", l.ParticipantID, err)
			}
		}

		if l.LastDaily, err = parseNullableTime(lastDaily); err != nil {
			return nil, fmt.Errorf("ledger %q last_daily: %w", l.ParticipantID, err)
		}

		result = append(result, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return result, nil
}

// =============================================================================
// GROUP SIZES AND ENGINE METADATA
// =============================================================================

// UpsertGroupSize records the last-observed member count for a group.
func (r *LedgerRepository) UpsertGroupSize(groupID string, size int) error {
	const stmt = `
		INSERT INTO group_sizes (group_id, last_size) VALUES (?, ?)
		ON CONFLICT(group_id) DO UPDATE SET last_size=excluded.last_size`
	if _, err := ExecDB(stmt, groupID, size); err != nil {
		return fmt.Errorf("failed to upsert group size for %q: %w", groupID, err)
	}
	return nil
}

// GetGroupSizes loads the full group-id -> last-size map.
func (r *LedgerRepository) GetGroupSizes() (map[string]int, error) {
	rows, err := QueryDB(`SELECT group_id, last_size FROM group_sizes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query group sizes: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var id string
		var size int
		if err := rows.Scan(&id, &size); err != nil {
			return nil, fmt.Errorf("failed to scan group size row: %w", err)
		}
		result[id] = size
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group size rows: %w", err)
	}
	return result, nil
}

// GetMeta reads one engine metadata value; empty string if absent.
func (r *LedgerRepository) GetMeta(key string) (string, error) {
	var value string
	err := QueryRowDB(`SELECT value FROM engine_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read meta %q: %w", key, err)
	}
	return value, nil
}

// SetMeta writes one engine metadata value.
func (r *LedgerRepository) SetMeta(key, value string) error {
	const stmt = `
		INSERT INTO engine_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`
	if _, err := ExecDB(stmt, key, value); err != nil {
		return fmt.Errorf("failed to write meta %q: %w", key, err)
	}
	return nil
}
