package domain

// SettingsKeyTimezone is the reserved settings key read by the timezone
// resolver. Every other key is free-form and interpreted by callers.
const SettingsKeyTimezone = "timezone"

// Settings is a per-user opaque key-value document. The schema is not
// statically enforced: keys are interpreted lazily through the typed
// accessors, and the whole document round-trips as a single JSON blob.
type Settings map[string]any

// String returns the value for key as a string, or def when the key is
// missing or holds a different kind.
func (s Settings) String(key, def string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the value for key as a bool, or def when missing/mismatched.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Float returns the value for key as a float64, or def when missing or not
// numeric. JSON numbers always decode to float64 in an untyped document.
func (s Settings) Float(key string, def float64) float64 {
	if v, ok := s[key].(float64); ok {
		return v
	}
	return def
}
