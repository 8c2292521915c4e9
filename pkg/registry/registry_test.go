package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stages = []string{"intake", "risk", "coverage", "rate", "communication"}

func TestDefault(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate(stages))

	rate, ok := reg.Find("rate")
	require.True(t, ok)
	assert.Equal(t, "uw-rate", rate.TaskType)
	assert.Equal(t, "Pricing", rate.DisplayName)
	assert.Equal(t, "KB-RATE-301", rate.KnowledgeBase[0].Source)
	assert.Len(t, rate.DecisionProcess, 4)
	assert.Equal(t, 3, rate.Retries)

	_, ok = reg.Find("underwriting")
	assert.False(t, ok)
}

func TestDefault_ReturnsFreshCopies(t *testing.T) {
	a := Default()
	a.Agents[0].ErrorCodes[0] = "CHANGED"
	assert.NotEqual(t, "CHANGED", Default().Agents[0].ErrorCodes[0])
}

func TestSaveAndLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	require.NoError(t, Default().Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)

	viaDefault, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Len(t, viaDefault.Agents, 5)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *AgentRegistry)
		wantErr string
	}{
		{"missing agent", func(r *AgentRegistry) { r.Agents = r.Agents[:4] }, `"communication" missing`},
		{"duplicate agent", func(r *AgentRegistry) { r.Agents = append(r.Agents, r.Agents[0]) }, "listed 2 times"},
		{"unknown agent", func(r *AgentRegistry) { r.Agents = append(r.Agents, Agent{ID: "legal", TaskType: "uw-legal"}) }, `unknown agent "legal"`},
		{"blank task type", func(r *AgentRegistry) { r.Agents[1].TaskType = "" }, "no taskType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := Default()
			tt.mutate(reg)
			err := reg.Validate(stages)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
