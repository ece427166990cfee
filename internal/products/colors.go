package products

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kliq/backoffice/internal/shared"
)

// ColorKey describes one of the colour slots a theme may fill.
type ColorKey struct {
	Key     string
	Label   string
	Default string
}

// ColorKeys lists the known colour slots in display order.
var ColorKeys = []ColorKey{
	{Key: "primary", Label: "Primary Color", Default: "#FF6B35"},
	{Key: "secondary", Label: "Secondary Color", Default: "#004E89"},
	{Key: "accent", Label: "Accent Color", Default: "#FFE66D"},
	{Key: "background", Label: "Background Color", Default: "#FFFFFF"},
	{Key: "text", Label: "Text Color", Default: "#333333"},
	{Key: "border", Label: "Border Color", Default: "#E0E0E0"},
	{Key: "success", Label: "Success Color", Default: "#10B981"},
	{Key: "warning", Label: "Warning Color", Default: "#F59E0B"},
	{Key: "error", Label: "Error Color", Default: "#EF4444"},
	{Key: "info", Label: "Info Color", Default: "#3B82F6"},
	{Key: "highlight", Label: "Highlight Color", Default: "#8B5CF6"},
	{Key: "muted", Label: "Muted Color", Default: "#6B7280"},
	{Key: "surface", Label: "Surface Color", Default: "#F9FAFB"},
	{Key: "overlay", Label: "Overlay Color", Default: "#000000"},
	{Key: "shadow", Label: "Shadow Color", Default: "#00000026"},
}

var colorValue = regexp.MustCompile(`^#[0-9A-Fa-f]{6}([0-9A-Fa-f]{2})?$`)

func lookupColorKey(key string) (ColorKey, bool) {
	for _, k := range ColorKeys {
		if k.Key == key {
			return k, true
		}
	}
	return ColorKey{}, false
}

// DefaultColor returns the default value of key, or black for unknown keys.
func DefaultColor(key string) string {
	if k, ok := lookupColorKey(key); ok {
		return k.Default
	}
	return "#000000"
}

// ValidColorValue reports whether v is #RRGGBB or #RRGGBBAA.
func ValidColorValue(v string) bool {
	return colorValue.MatchString(v)
}

// NormalizeColors validates entries and returns them with canonical keys,
// upper-case values, and labels filled in.
func NormalizeColors(entries []ColorEntry) ([]ColorEntry, error) {
	seen := make(map[string]struct{}, len(entries))
	out := make([]ColorEntry, 0, len(entries))
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Key))
		known, ok := lookupColorKey(key)
		if !ok {
			return nil, fmt.Errorf("%w: unknown colour key %q", shared.ErrValidation, e.Key)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: colour %q set twice", shared.ErrValidation, key)
		}
		seen[key] = struct{}{}
		value := strings.TrimSpace(e.Value)
		if !ValidColorValue(value) {
			return nil, fmt.Errorf("%w: colour %q must be #RRGGBB or #RRGGBBAA", shared.ErrValidation, key)
		}
		label := strings.TrimSpace(e.Label)
		if label == "" {
			label = known.Label
		}
		out = append(out, ColorEntry{Key: key, Value: strings.ToUpper(value), Label: label})
	}
	return out, nil
}
