package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistryFile_MissingFileIsNotAnError(t *testing.T) {
	rf, err := LoadRegistryFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Empty(t, rf.Jobs)
}

func TestLoadRegistryFile_ParsesJobOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	body := `
jobs:
  - name: daily_audit
    trigger: "45 6 * * *"
    misfire_grace_seconds: 900
  - name: smoke_test
    trigger: "0 6 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	rf, err := LoadRegistryFile(path)
	require.NoError(t, err)
	require.Len(t, rf.Jobs, 2)

	overrides := rf.Overrides()
	assert.Equal(t, "45 6 * * *", overrides["daily_audit"].Trigger)
	assert.Equal(t, 900, overrides["daily_audit"].MisfireGraceSeconds)
	assert.Equal(t, "0 6 * * *", overrides["smoke_test"].Trigger)
}

func TestRegistryFile_ApplyOverridesOnlyMatchingJobsAndFields(t *testing.T) {
	rf := &RegistryFile{Jobs: []RegistryEntry{
		{Name: "daily_audit", Trigger: "45 6 * * *"},
	}}

	base := JobSpec{Name: "daily_audit", Trigger: "30 6 * * *", MisfireGraceSeconds: 600}
	updated := rf.Apply(base)
	assert.Equal(t, "45 6 * * *", updated.Trigger, "trigger overridden")
	assert.Equal(t, 600, updated.MisfireGraceSeconds, "grace untouched: override left it zero")

	untouched := JobSpec{Name: "props_fetch_morning", Trigger: "0 10 * * *"}
	assert.Equal(t, untouched, rf.Apply(untouched), "job absent from registry file passes through unchanged")
}
