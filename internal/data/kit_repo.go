package data

import (
	"database/sql"
	"fmt"

	"kitsbackend/internal/kit"
)

// =============================================================================
// KIT CATALOG REPOSITORY
// =============================================================================

type KitRepository struct {
	db *sql.DB
}

func NewKitRepository() *KitRepository {
	return &KitRepository{db: db}
}

const kitColumns = `name, display_name, description, icon_url, permission, auth_level, category,
		items_json, cooldown, max_uses, one_time, reset_on_wipe, daily, weekly, randomize, rolls,
		team_shared, min_level, window_json, cost_money, cost_points`

// Upsert writes one kit definition, replacing any existing row with the same
// (case-insensitive) name.
func (r *KitRepository) Upsert(def kit.Definition) error {
	itemsJSON, err := marshalJSON(def.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal kit items: %w", err)
	}
	windowJSON, err := marshalJSON(def.Window)
	if err != nil {
		return fmt.Errorf("failed to marshal kit window: %w", err)
	}

	const stmt = `
		INSERT INTO kits (` + kitColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name=excluded.display_name, description=excluded.description,
			icon_url=excluded.icon_url, permission=excluded.permission,
			auth_level=excluded.auth_level, category=excluded.category,
			items_json=excluded.items_json, cooldown=excluded.cooldown,
			max_uses=excluded.max_uses, one_time=excluded.one_time,
			reset_on_wipe=excluded.reset_on_wipe, daily=excluded.daily,
			weekly=excluded.weekly, randomize=excluded.randomize, rolls=excluded.rolls,
			team_shared=excluded.team_shared, min_level=excluded.min_level,
			window_json=excluded.window_json, cost_money=excluded.cost_money,
			cost_points=excluded.cost_points`

	_, err = ExecDB(stmt,
		def.Name, def.DisplayName, def.Description, def.IconURL, def.Permission,
		def.AuthLevel, def.Category, itemsJSON, def.Cooldown, def.MaxUses,
		def.OneTime, def.ResetOnWipe, def.Daily, def.Weekly, def.Randomize,
		def.Rolls, def.TeamShared, def.MinLevel, windowJSON,
		def.Cost.Money, def.Cost.Points,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert kit %q: %w", def.Name, err)
	}
	return nil
}

// Delete removes a kit; reports whether a row existed.
func (r *KitRepository) Delete(name string) (bool, error) {
	res, err := ExecDB(`DELETE FROM kits WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete kit %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result for kit %q: %w", name, err)
	}
	return n > 0, nil
}

// GetAll loads the whole catalog. Rows with malformed JSON are skipped with a
// warning rather than failing the load.
func (r *KitRepository) GetAll() ([]kit.Definition, error) {
	rows, err := QueryDB(`SELECT ` + kitColumns + ` FROM kits ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query kits: %w", err)
	}
	defer rows.Close()

	var result []kit.Definition
	for rows.Next() {
		def, err := scanKit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kit row: %w", err)
		}
		result = append(result, *def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating kit rows: %w", err)
	}

	return result, nil
}

func scanKit(rows *sql.Rows) (*kit.Definition, error) {
	var def kit.Definition
	var itemsJSON, windowJSON sql.NullString

	err := rows.Scan(
		&def.Name, &def.DisplayName, &def.Description, &def.IconURL, &def.Permission,
		&def.AuthLevel, &def.Category, &itemsJSON, &def.Cooldown, &def.MaxUses,
		&def.OneTime, &def.ResetOnWipe, &def.Daily, &def.Weekly, &def.Randomize,
		&def.Rolls, &def.TeamShared, &def.MinLevel, &windowJSON,
		&def.Cost.Money, &def.Cost.Points,
	)
	if err != nil {
		return nil, err
	}

	def.Items = []kit.ItemEntry{}
	if itemsJSON.Valid && itemsJSON.String != "" {
		if err := unmarshalJSON(itemsJSON.String, &def.Items); err != nil {
			return nil, fmt.Errorf("kit %q items: %w", def.Name, err)
		}
	}
	if windowJSON.Valid && windowJSON.String != "" {
		if err := unmarshalJSON(windowJSON.String, &def.Window); err != nil {
			return nil, fmt.Errorf("kit %q window: %w", def.Name, err)
		}
	}

	return &def, nil
}
