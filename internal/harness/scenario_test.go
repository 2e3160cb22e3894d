package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "transfer_proposal_approved.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "transfer_proposal_approved", s.Name)
	assert.Len(t, s.Flow, 4)
	assert.Equal(t, "initialize", s.Flow[0].Op)
	require.NotNil(t, s.Flow[3].Expect)
	assert.Equal(t, true, s.Flow[3].Expect.Fields["decided"])
	assert.NotEmpty(t, s.Assertions)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "does_not_exist.yaml"))
	assert.Error(t, err)
}

func TestParseScenarioValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nflow:\n  - op: initialize\n    args: {owner: a, handle: h}\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nflow:\n  - op: initialize\n    args: {owner: a, handle: h}\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			yaml:    "name: n\ndescription: d\n",
			wantErr: "flow list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nflow:\n  - op: destroy\n    args: {fund: h}\n",
			wantErr: `unknown op "destroy"`,
		},
		{
			name:    "missing args",
			yaml:    "name: n\ndescription: d\nflow:\n  - op: initialize\n",
			wantErr: "args is required",
		},
		{
			name:    "empty expect",
			yaml:    "name: n\ndescription: d\nflow:\n  - op: initialize\n    args: {owner: a, handle: h}\n    expect: {}\n",
			wantErr: "error or fields is required",
		},
		{
			name:    "typo field rejected",
			yaml:    "name: n\ndescription: d\nflows:\n  - op: initialize\n    args: {owner: a, handle: h}\n",
			wantErr: "parse YAML",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nflow:\n  - op: initialize\n    args: {owner: a, handle: h}\nassertions:\n  - type: trace_contains\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "fund_state without expect",
			yaml:    "name: n\ndescription: d\nflow:\n  - op: initialize\n    args: {owner: a, handle: h}\nassertions:\n  - type: fund_state\n    fund: h\n",
			wantErr: "expect is required for fund_state",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAllScenarioFilesParse(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		s, err := ParseScenario(data)
		require.NoError(t, err, "scenario %s", path)
		assert.Equal(t, s.Name+".yaml", filepath.Base(path))
	}
}
