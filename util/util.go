package util

import (
	"regexp"
	"strings"
)

var (
	macLike  = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)
	uuidLike = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)
)

// NormalizeDeviceID takes a platform-specific BLE address (UUID on macOS,
// MAC on Windows/Linux) and normalizes it into a consistent format.
func NormalizeDeviceID(raw string) string {
	raw = strings.TrimSpace(raw)

	// MAC address (Windows/Linux): uppercase with colons.
	if macLike.MatchString(raw) {
		return strings.ToUpper(strings.ReplaceAll(raw, "-", ":"))
	}

	// UUID (macOS): first 12 hex chars formatted like a MAC.
	if uuidLike.MatchString(raw) {
		clean := strings.ReplaceAll(raw, "-", "")
		if len(clean) >= 12 {
			clean = clean[:12]
			parts := []string{}
			for i := 0; i < 12; i += 2 {
				parts = append(parts, clean[i:i+2])
			}
			return strings.ToUpper(strings.Join(parts, ":"))
		}
	}

	return strings.ToUpper(raw)
}

// SameDevice reports whether two raw addresses refer to the same device
// once normalized.
func SameDevice(a, b string) bool {
	return NormalizeDeviceID(a) == NormalizeDeviceID(b)
}
