package state

import (
	"errors"
	"strconv"
	"strings"
)

// ControlInput carries raw values from the control surface. Nil fields are
// left alone; numeric fields that do not start with a number are ignored.
type ControlInput struct {
	Text                *string
	FontSize            *string
	TopFontScalePercent *string
	BaselineOffset      *string
}

// Apply parses in and commits every accepted field as a single change.
func (store *Store) Apply(in ControlInput) RenderConfig {
	return store.Update(func(cfg *RenderConfig) {
		if in.Text != nil {
			cfg.Text = *in.Text
		}
		if in.FontSize != nil {
			if v, ok := ParseIntInput(*in.FontSize); ok {
				cfg.FontSize = clampInt(v, MinFontSize, MaxFontSize)
			}
		}
		if in.TopFontScalePercent != nil {
			if v, ok := ParsePercentInput(*in.TopFontScalePercent); ok {
				cfg.TopFontScale = v
			}
		}
		if in.BaselineOffset != nil {
			if v, ok := ParseIntInput(*in.BaselineOffset); ok {
				cfg.BaselineOffset = clampInt(v, MinBaselineOffset, MaxBaselineOffset)
			}
		}
	})
}

// ParseIntInput reads the leading base-10 integer of raw, so "72px" is 72
// and "12.9" is 12.
func ParseIntInput(raw string) (int, bool) {
	prefix := numericPrefix(raw, false)
	if prefix == "" {
		return 0, false
	}
	// ParseInt saturates on overflow, which the caller clamps anyway.
	v, err := strconv.ParseInt(prefix, 10, 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return int(v), true
}

// ParsePercentInput reads a percentage and returns it as a fraction clamped
// to the top font scale range.
func ParsePercentInput(raw string) (float64, bool) {
	prefix := numericPrefix(raw, true)
	if prefix == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	scale := v / 100
	if scale < MinTopFontScale {
		scale = MinTopFontScale
	}
	if scale > MaxTopFontScale {
		scale = MaxTopFontScale
	}
	return scale, true
}

func numericPrefix(raw string, allowFraction bool) string {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if allowFraction && end < len(s) && s[end] == '.' {
		frac := end + 1
		for frac < len(s) && s[frac] >= '0' && s[frac] <= '9' {
			frac++
		}
		if frac > end+1 {
			digits += frac - end - 1
			end = frac
		}
	}
	if digits == 0 {
		return ""
	}
	return s[:end]
}
