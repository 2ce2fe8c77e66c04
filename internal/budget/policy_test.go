package budget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONPolicy(t *testing.T) {
	path := writeFile(t, "budget.json", `{
		"minScore": 0.9,
		"forbidLimited": true,
		"allowUnknown": false,
		"perRoute": {"/api": {"minScore": 0.95}}
	}`)

	p, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, p.MinScore)
	assert.Equal(t, 0.9, *p.MinScore)
	assert.True(t, p.ForbidLimited)
	assert.False(t, p.AllowsUnknown())
	require.Contains(t, p.PerRoute, "/api")
	assert.Equal(t, 0.95, *p.PerRoute["/api"].MinScore)
}

func TestLoadYAMLPolicy(t *testing.T) {
	path := writeFile(t, "budget.yaml", `
minScore: 0.8
forbidLimited: true
perRoute:
  /checkout:
    forbidLimited: false
`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.8, *p.MinScore)
	assert.True(t, p.ForbidLimited)
	assert.True(t, p.AllowsUnknown(), "allowUnknown defaults to true")
	require.Contains(t, p.PerRoute, "/checkout")
	assert.False(t, *p.PerRoute["/checkout"].ForbidLimited)
}

func TestLoadClampsScores(t *testing.T) {
	path := writeFile(t, "budget.json", `{
		"minScore": 1.7,
		"perRoute": {"/api": {"minScore": -0.2}}
	}`)

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.0, *p.MinScore)
	assert.Equal(t, 0.0, *p.PerRoute["/api"].MinScore)
}

func TestLoadMalformedPolicyFallsBack(t *testing.T) {
	path := writeFile(t, "budget.json", `{broken`)

	p, err := Load(path)
	assert.Error(t, err, "the error is advisory")
	assert.Equal(t, Default(), p, "malformed policy degrades to the permissive default")
}

func TestLoadMissingPolicyFallsBack(t *testing.T) {
	p, err := Load("/nonexistent/budget.json")
	assert.Error(t, err)
	assert.Equal(t, Default(), p)

	p, err = Load("")
	assert.NoError(t, err)
	assert.Equal(t, Default(), p)
}
