package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/apperror"
)

func TestDefaults_FreshCopy(t *testing.T) {
	a := Defaults()
	a["privacy"].(map[string]any)["hideEmail"] = false

	b := Defaults()
	assert.Equal(t, true, b["privacy"].(map[string]any)["hideEmail"])
}

func TestMerge_Recursive(t *testing.T) {
	base := map[string]any{
		"preferences": map[string]any{"darkMode": true, "showTrending": true},
		"theme":       "dark",
	}
	overlay := map[string]any{
		"preferences": map[string]any{"darkMode": false},
		"theme":       "light",
	}

	got := Merge(base, overlay)

	assert.Equal(t, map[string]any{
		"preferences": map[string]any{"darkMode": false, "showTrending": true},
		"theme":       "light",
	}, got)
	// Inputs untouched.
	assert.Equal(t, true, base["preferences"].(map[string]any)["darkMode"])
}

func TestMerge_NonMapReplacesMap(t *testing.T) {
	got := Merge(map[string]any{"a": map[string]any{"b": 1.0}}, map[string]any{"a": "flat"})
	assert.Equal(t, "flat", got["a"])
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want func(m map[string]any)
	}{
		{
			name: "empty gets defaults",
			raw:  map[string]any{},
			want: func(m map[string]any) { assert.Equal(t, Defaults(), m) },
		},
		{
			name: "nil gets defaults",
			raw:  nil,
			want: func(m map[string]any) { assert.Equal(t, Defaults(), m) },
		},
		{
			name: "stored value wins",
			raw:  map[string]any{"privacy": map[string]any{"privateProfile": true}},
			want: func(m map[string]any) {
				p := m["privacy"].(map[string]any)
				assert.Equal(t, true, p["privateProfile"])
				assert.Equal(t, true, p["hideEmail"])
			},
		},
		{
			name: "unknown keys dropped",
			raw:  map[string]any{"legacy": 1.0, "preferences": map[string]any{"fontSize": 12.0}},
			want: func(m map[string]any) {
				assert.NotContains(t, m, "legacy")
				assert.NotContains(t, m["preferences"], "fontSize")
			},
		},
		{
			name: "mistyped values fall back",
			raw:  map[string]any{"notifications": map[string]any{"likes": "yes"}, "privacy": "open"},
			want: func(m map[string]any) {
				assert.Equal(t, true, m["notifications"].(map[string]any)["likes"])
				assert.Equal(t, Defaults()["privacy"], m["privacy"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(Normalize(tt.raw))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		patch     map[string]any
		wantField string
	}{
		{"valid", map[string]any{"privacy": map[string]any{"hideEmail": false}}, ""},
		{"unknown section", map[string]any{"billing": map[string]any{}}, "billing"},
		{"unknown key", map[string]any{"privacy": map[string]any{"ghostMode": true}}, "privacy.ghostMode"},
		{"section not object", map[string]any{"preferences": true}, "preferences"},
		{"wrong type", map[string]any{"notifications": map[string]any{"likes": "no"}}, "notifications.likes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.patch)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, tt.wantField, apperror.FieldOf(err))
		})
	}
}
