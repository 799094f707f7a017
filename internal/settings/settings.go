// Package settings defines the user preference schema and its defaults.
//
// Settings are stored as an opaque JSON object. On every load the stored
// object is merged over Defaults and cleaned with Normalize, so callers
// always see every known key with a value of the right type.
package settings

import (
	"fmt"
	"sort"

	"github.com/devpulse/devpulse/internal/apperror"
)

// Defaults returns a fresh copy of the default settings.
func Defaults() map[string]any {
	return map[string]any{
		"preferences": map[string]any{
			"darkMode":       true,
			"autoplayVideos": true,
			"showTrending":   true,
		},
		"notifications": map[string]any{
			"likes":    true,
			"comments": true,
			"follows":  true,
		},
		"privacy": map[string]any{
			"privateProfile": false,
			"hideEmail":      true,
		},
	}
}

// Merge returns a new map with overlay applied on top of base. Nested
// objects are merged key by key; any other overlay value replaces the base
// value. Neither input is modified.
func Merge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = clone(v)
	}
	for k, v := range overlay {
		if om, ok := v.(map[string]any); ok {
			if bm, ok := out[k].(map[string]any); ok {
				out[k] = Merge(bm, om)
				continue
			}
		}
		out[k] = clone(v)
	}
	return out
}

// Normalize merges raw over Defaults and keeps only keys that exist in the
// defaults with a value of the same type.
func Normalize(raw map[string]any) map[string]any {
	return conform(Defaults(), raw)
}

// Validate rejects patches with unknown keys or mistyped values. The error
// names the offending path, e.g. "privacy.hideEmail".
func Validate(patch map[string]any) error {
	return validate(Defaults(), patch, "")
}

func conform(schema, raw map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, def := range schema {
		v, present := raw[k]
		if sub, ok := def.(map[string]any); ok {
			rawSub, _ := v.(map[string]any)
			out[k] = conform(sub, rawSub)
			continue
		}
		if present && sameKind(def, v) {
			out[k] = v
		} else {
			out[k] = def
		}
	}
	return out
}

func validate(schema, patch map[string]any, prefix string) error {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		def, known := schema[k]
		if !known {
			return apperror.ValidationFailed(path, fmt.Sprintf("Unknown setting %q.", path))
		}
		if sub, ok := def.(map[string]any); ok {
			patchSub, ok := patch[k].(map[string]any)
			if !ok {
				return apperror.ValidationFailed(path, fmt.Sprintf("Setting %q must be an object.", path))
			}
			if err := validate(sub, patchSub, path); err != nil {
				return err
			}
			continue
		}
		if !sameKind(def, patch[k]) {
			return apperror.ValidationFailed(path, fmt.Sprintf("Setting %q has the wrong type.", path))
		}
	}
	return nil
}

func sameKind(a, b any) bool {
	switch a.(type) {
	case bool:
		_, ok := b.(bool)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case float64:
		_, ok := b.(float64)
		return ok
	}
	return false
}

func clone(v any) any {
	if m, ok := v.(map[string]any); ok {
		return Merge(m, nil)
	}
	return v
}
