// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadRegistry reads a catalog from a JSON file.
func LoadRegistry(path string) (*AgentRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg AgentRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// LoadOrDefault returns the catalog at path, or Default when path is empty.
func LoadOrDefault(path string) (*AgentRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadRegistry(path)
}

// Save writes the catalog as indented JSON.
func (r *AgentRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Find returns the agent with the given id.
func (r *AgentRegistry) Find(id string) (Agent, bool) {
	for _, a := range r.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// Validate checks that every id in want appears exactly once and carries a
// task type.
func (r *AgentRegistry) Validate(want []string) error {
	seen := make(map[string]int, len(r.Agents))
	for _, a := range r.Agents {
		seen[a.ID]++
		if a.TaskType == "" {
			return fmt.Errorf("agent %q has no taskType", a.ID)
		}
	}
	for _, id := range want {
		switch seen[id] {
		case 0:
			return fmt.Errorf("agent %q missing", id)
		case 1:
		default:
			return fmt.Errorf("agent %q listed %d times", id, seen[id])
		}
		delete(seen, id)
	}
	for id := range seen {
		return fmt.Errorf("unknown agent %q", id)
	}
	return nil
}
