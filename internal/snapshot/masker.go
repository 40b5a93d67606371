package snapshot

import "strings"

// Masker rewrites captured values before they leave the capturer. Masking
// rules belong to the host; the capturer only applies them.
type Masker interface {
	Mask(values map[string]any) map[string]any
}

// MaskerFunc adapts a function to Masker.
type MaskerFunc func(map[string]any) map[string]any

// Mask calls f.
func (f MaskerFunc) Mask(values map[string]any) map[string]any { return f(values) }

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// KeyMasker redacts values whose key contains any of its keys, at any
// nesting level. Matching is case-insensitive.
type KeyMasker struct {
	keys []string
}

// NewKeyMasker creates a masker for keys such as "password" or "token".
func NewKeyMasker(keys ...string) *KeyMasker {
	lower := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			lower = append(lower, strings.ToLower(k))
		}
	}
	return &KeyMasker{keys: lower}
}

// Mask returns a masked copy of values.
func (m *KeyMasker) Mask(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if m.sensitive(k) {
			out[k] = Redacted
			continue
		}
		out[k] = m.maskValue(v)
	}
	return out
}

func (m *KeyMasker) maskValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return m.Mask(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = m.maskValue(e)
		}
		return out
	}
	return v
}

func (m *KeyMasker) sensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range m.keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
