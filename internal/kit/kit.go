// internal/kit/kit.go
package kit

import (
	"strings"
	"time"
)

// Inventory regions an item entry can target.
const (
	RegionPrimary = "main"
	RegionQuick   = "belt"
	RegionWorn    = "wear"
)

// ItemEntry is one line of a kit: what to give, how much, and where it goes.
type ItemEntry struct {
	ShortName string `json:"short_name" yaml:"short_name"`
	Amount    int    `json:"amount" yaml:"amount"`
	Skin      int64  `json:"skin,omitempty" yaml:"skin,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"` // main/belt/wear, defaults to main
}

// NormalizeRegion maps unknown/empty region names to the primary region.
func NormalizeRegion(region string) string {
	switch strings.ToLower(region) {
	case RegionQuick:
		return RegionQuick
	case RegionWorn:
		return RegionWorn
	default:
		return RegionPrimary
	}
}

// Cost carries the optional monetary and point price of a kit.
type Cost struct {
	Money  float64 `json:"money,omitempty" yaml:"money,omitempty"`
	Points int     `json:"points,omitempty" yaml:"points,omitempty"`
}

// TimeWindow restricts when a kit is claimable. Empty bounds and an empty
// weekday set mean always active. Bounds that fail to parse are treated as
// "no constraint" rather than rejecting the claim.
type TimeWindow struct {
	FromISO string   `json:"from,omitempty" yaml:"from,omitempty"`
	ToISO   string   `json:"to,omitempty" yaml:"to,omitempty"`
	Days    []string `json:"days,omitempty" yaml:"days,omitempty"` // weekday names
}

// ActiveAt reports whether the window allows claiming at the given instant.
// All three checks (lower bound, upper bound, weekday set) must pass.
func (w TimeWindow) ActiveAt(now time.Time) bool {
	now = now.UTC()
	if w.FromISO != "" {
		if from, ok := parseBound(w.FromISO); ok && now.Before(from) {
			return false
		}
	}
	if w.ToISO != "" {
		if to, ok := parseBound(w.ToISO); ok && now.After(to) {
			return false
		}
	}
	if len(w.Days) > 0 {
		match := false
		for _, d := range w.Days {
			if wd, ok := ParseWeekday(d); ok && wd == now.Weekday() {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

// parseBound accepts RFC3339 or a bare date; both are read as UTC.
func parseBound(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseWeekday matches full weekday names case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	}
	return time.Sunday, false
}

// ParseDays splits a comma-separated weekday list, dropping unknown tokens.
func ParseDays(csv string) []string {
	var days []string
	for _, tok := range strings.Split(csv, ",") {
		if wd, ok := ParseWeekday(tok); ok {
			days = append(days, wd.String())
		}
	}
	return days
}

// Definition is a named bundle of items with its claim rules. Names are
// compared case-insensitively everywhere.
type Definition struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	IconURL     string `json:"icon_url,omitempty" yaml:"icon_url,omitempty"`
	Permission  string `json:"permission,omitempty" yaml:"permission,omitempty"` // optional custom gate
	AuthLevel   int    `json:"auth_level,omitempty" yaml:"auth_level,omitempty"` // 1/2 = admin only
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`

	Items []ItemEntry `json:"items" yaml:"items"`

	Cooldown    string `json:"cooldown,omitempty" yaml:"cooldown,omitempty"` // "30m", "2h", "1d"
	MaxUses     int    `json:"max_uses,omitempty" yaml:"max_uses,omitempty"` // 0 = unlimited
	OneTime     bool   `json:"one_time,omitempty" yaml:"one_time,omitempty"`
	ResetOnWipe bool   `json:"reset_on_wipe" yaml:"reset_on_wipe"`

	Daily      bool `json:"daily,omitempty" yaml:"daily,omitempty"`
	Weekly     bool `json:"weekly,omitempty" yaml:"weekly,omitempty"`
	Randomize  bool `json:"randomize,omitempty" yaml:"randomize,omitempty"`
	Rolls      int  `json:"rolls,omitempty" yaml:"rolls,omitempty"`
	TeamShared bool `json:"team_shared,omitempty" yaml:"team_shared,omitempty"`

	MinLevel int        `json:"min_level,omitempty" yaml:"min_level,omitempty"`
	Window   TimeWindow `json:"window,omitempty" yaml:"window,omitempty"`
	Cost     Cost       `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// Label returns the display name, falling back to the kit name.
func (d *Definition) Label() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.Name
}

// CooldownDuration parses the kit's cooldown spec (zero on bad input).
func (d *Definition) CooldownDuration() time.Duration {
	return ParseDuration(d.Cooldown)
}
