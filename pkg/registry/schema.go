// pkg/registry/schema.go
package registry

// AgentRegistry is the catalog of stage agents shown to underwriters.
type AgentRegistry struct {
	Version     string  `json:"version"`
	LastUpdated string  `json:"lastUpdated"`
	Agents      []Agent `json:"agents"`
}

type Agent struct {
	ID              string         `json:"id"` // stage name
	DisplayName     string         `json:"displayName"`
	Summary         string         `json:"summary"`
	Description     string         `json:"description"`
	TaskType        string         `json:"taskType"`
	Version         string         `json:"version"`
	KnowledgeBase   []KnowledgeRef `json:"knowledgeBase"`
	DecisionProcess []DecisionStep `json:"decisionProcess"`
	ErrorCodes      []string       `json:"errorCodes"`
	Timeout         string         `json:"timeout"`
	Retries         int            `json:"retries"`
}

type KnowledgeRef struct {
	Rule        string `json:"rule"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

type DecisionStep struct {
	Step        int    `json:"step"`
	Action      string `json:"action"`
	Description string `json:"description"`
}
