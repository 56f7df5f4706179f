package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullConfig(t *testing.T) {
	data := []byte(`{
		"minReviewers": 1,
		"maxReviewers": 4,
		"codeOwners": {
			"src/api/": ["alice"],
			"*.go": ["bob", "carol"]
		},
		"defaultReviewers": ["dave", "erin"],
		"excludeAuthors": true,
		"timezone": {
			"enabled": true,
			"workingHours": {"start": 9, "end": 18},
			"userTimezones": {"alice": "Europe/Berlin"}
		}
	}`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MinReviewers)
	assert.Equal(t, 4, cfg.MaxReviewers)
	assert.Equal(t, []string{"dave", "erin"}, cfg.DefaultReviewers)
	assert.True(t, cfg.ExcludeAuthors)
	assert.True(t, cfg.Timezone.Enabled)
	assert.Equal(t, 9, cfg.Timezone.WorkingHours.Start)
	assert.Equal(t, 18, cfg.Timezone.WorkingHours.End)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone.UserTimezones["alice"])
}

func TestParse_CodeOwnersPreservesOrder(t *testing.T) {
	data := []byte(`{
		"codeOwners": {
			"z/": ["zoe"],
			"a/": ["amy"],
			"m/": ["max"]
		}
	}`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	var patterns []string
	for pair := cfg.CodeOwners.Oldest(); pair != nil; pair = pair.Next() {
		patterns = append(patterns, pair.Key)
	}
	assert.Equal(t, []string{"z/", "a/", "m/"}, patterns)
}

func TestParse_DefaultsWhenCountsAbsent(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultMinReviewers, cfg.MinReviewers)
	assert.Equal(t, DefaultMaxReviewers, cfg.MaxReviewers)
	assert.NotNil(t, cfg.CodeOwners)
	assert.Zero(t, cfg.CodeOwners.Len())
}

func TestParse_ExplicitZeroMinIsKept(t *testing.T) {
	cfg, err := Parse([]byte(`{"minReviewers": 0}`))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.MinReviewers)
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"minReviewers": `))
	assert.Error(t, err)
}

func TestParse_MaxLessThanMin(t *testing.T) {
	_, err := Parse([]byte(`{"minReviewers": 3, "maxReviewers": 1}`))
	assert.Error(t, err)
}

func TestParse_WorkingHoursOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"start too large", `{"timezone": {"enabled": true, "workingHours": {"start": 24, "end": 18}}}`},
		{"end negative", `{"timezone": {"enabled": true, "workingHours": {"start": 9, "end": -1}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParse_WorkingHoursIgnoredWhenDisabled(t *testing.T) {
	// Out-of-range hours only matter when the filter is on.
	cfg, err := Parse([]byte(`{"timezone": {"enabled": false, "workingHours": {"start": 99, "end": 99}}}`))
	require.NoError(t, err)
	assert.False(t, cfg.Timezone.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviewers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"minReviewers": 1, "maxReviewers": 2}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MinReviewers)
	assert.Equal(t, 2, cfg.MaxReviewers)
}
