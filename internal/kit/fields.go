// internal/kit/fields.go
package kit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// A fieldDescriptor parses and applies one editable kit field. The set is
// closed: editors are registered here once, not added at runtime.
type fieldDescriptor struct {
	apply func(*Definition, string) error
}

var errBadValue = fmt.Errorf("invalid value")

var fieldTable = map[string]fieldDescriptor{
	"display":     {apply: func(d *Definition, v string) error { d.DisplayName = v; return nil }},
	"displayname": {apply: func(d *Definition, v string) error { d.DisplayName = v; return nil }},
	"description": {apply: func(d *Definition, v string) error { d.Description = v; return nil }},
	"category":    {apply: func(d *Definition, v string) error { d.Category = v; return nil }},
	"permission": {apply: func(d *Definition, v string) error {
		d.Permission = strings.TrimSpace(v)
		return nil
	}},
	"authlevel": {apply: func(d *Definition, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errBadValue
		}
		d.AuthLevel = clampInt(n, 0, 2)
		return nil
	}},
	"cooldown": {apply: func(d *Definition, v string) error { d.Cooldown = v; return nil }},
	"maxuses": {apply: func(d *Definition, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errBadValue
		}
		d.MaxUses = maxInt(0, n)
		return nil
	}},
	"onetime":     {apply: boolSetter(func(d *Definition, b bool) { d.OneTime = b })},
	"resetonwipe": {apply: boolSetter(func(d *Definition, b bool) { d.ResetOnWipe = b })},
	"daily":       {apply: boolSetter(func(d *Definition, b bool) { d.Daily = b })},
	"weekly":      {apply: boolSetter(func(d *Definition, b bool) { d.Weekly = b })},
	"randomize":   {apply: boolSetter(func(d *Definition, b bool) { d.Randomize = b })},
	"teamshared":  {apply: boolSetter(func(d *Definition, b bool) { d.TeamShared = b })},
	"rolls": {apply: func(d *Definition, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errBadValue
		}
		d.Rolls = maxInt(0, n)
		return nil
	}},
	"minlevel": {apply: func(d *Definition, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errBadValue
		}
		d.MinLevel = maxInt(0, n)
		return nil
	}},
	"cost.money": {apply: func(d *Definition, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errBadValue
		}
		if f < 0 {
			f = 0
		}
		d.Cost.Money = f
		return nil
	}},
	"cost.rp": {apply: func(d *Definition, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errBadValue
		}
		d.Cost.Points = maxInt(0, n)
		return nil
	}},
	"window.from": {apply: func(d *Definition, v string) error { d.Window.FromISO = v; return nil }},
	"window.to":   {apply: func(d *Definition, v string) error { d.Window.ToISO = v; return nil }},
	"window.days": {apply: func(d *Definition, v string) error { d.Window.Days = ParseDays(v); return nil }},
}

func boolSetter(set func(*Definition, bool)) func(*Definition, string) error {
	return func(d *Definition, v string) error {
		set(d, ParseBool(v))
		return nil
	}
}

// ParseBool accepts true/1/yes case-insensitively; everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// SetField applies a raw admin edit to one kit field. Returns an error for an
// unknown field key or a value that fails that field's parse rule.
func SetField(d *Definition, field, value string) error {
	desc, ok := fieldTable[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	if err := desc.apply(d, value); err != nil {
		return fmt.Errorf("field %q: %w", field, err)
	}
	return nil
}

// FieldNames lists the editable field keys, sorted, for admin help output.
func FieldNames() []string {
	names := make([]string, 0, len(fieldTable))
	for k := range fieldTable {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
