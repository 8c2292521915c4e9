// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"auto-uw-agent/internal/models"
	"auto-uw-agent/pkg/registry"
)

var registryPath string

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	kbCmd := flag.NewFlagSet("add-kb", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{initCmd, updateCmd, kbCmd, validateCmd} {
		fs.StringVar(&registryPath, "path", "configs/agent-registry.json", "Path to registry file")
	}
	force := initCmd.Bool("force", false, "Overwrite an existing file")

	idUpdate := updateCmd.String("id", "", "Agent ID (stage name, e.g. rate)")
	field := updateCmd.String("field", "", "Field to update (displayName, summary, description, taskType, version, timeout, retries)")
	value := updateCmd.String("value", "", "New value for the field")

	idKB := kbCmd.String("id", "", "Agent ID (stage name)")
	rule := kbCmd.String("rule", "", "Rule name")
	source := kbCmd.String("source", "", "Knowledge base reference, e.g. KB-RATE-302")
	kbDescription := kbCmd.String("description", "", "Rule description")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		if err = initRegistry(*force); err == nil {
			fmt.Printf("Wrote default registry to %s\n", registryPath)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err = updateAgent(*idUpdate, *field, *value); err == nil {
			fmt.Printf("Updated agent %s, field %s to %s\n", *idUpdate, *field, *value)
		}

	case "add-kb":
		kbCmd.Parse(os.Args[2:])
		if *idKB == "" || *rule == "" || *source == "" {
			fmt.Println("Error: id, rule, and source are required for add-kb.")
			kbCmd.Usage()
			os.Exit(1)
		}
		ref := registry.KnowledgeRef{Rule: *rule, Source: *source, Description: *kbDescription}
		if err = addKnowledgeRef(*idKB, ref); err == nil {
			fmt.Printf("Added %s to agent %s\n", *source, *idKB)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err = validateRegistry(); err == nil {
			fmt.Println("Registry validation passed.")
		}

	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func initRegistry(force bool) error {
	if _, err := os.Stat(registryPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", registryPath)
	}
	reg := registry.Default()
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg)
}

func updateAgent(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	idx := indexOf(reg, id)
	if idx < 0 {
		return fmt.Errorf("agent %s not found", id)
	}
	a := &reg.Agents[idx]

	switch field {
	case "displayName":
		a.DisplayName = value
	case "summary":
		a.Summary = value
	case "description":
		a.Description = value
	case "taskType":
		a.TaskType = value
	case "version":
		a.Version = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg)
}

func addKnowledgeRef(id string, ref registry.KnowledgeRef) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	idx := indexOf(reg, id)
	if idx < 0 {
		return fmt.Errorf("agent %s not found", id)
	}
	for _, existing := range reg.Agents[idx].KnowledgeBase {
		if existing.Source == ref.Source {
			return fmt.Errorf("%s already referenced by agent %s", ref.Source, id)
		}
	}
	reg.Agents[idx].KnowledgeBase = append(reg.Agents[idx].KnowledgeBase, ref)

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	want := make([]string, len(models.StageNames))
	for i, s := range models.StageNames {
		want[i] = string(s)
	}
	if err := reg.Validate(want); err != nil {
		return err
	}
	for _, a := range reg.Agents {
		if a.DisplayName == "" {
			return fmt.Errorf("agent %s missing required field: displayName", a.ID)
		}
	}

	fmt.Printf("Found %d agents.\n", len(reg.Agents))
	return nil
}

func indexOf(reg *registry.AgentRegistry, id string) int {
	for i := range reg.Agents {
		if reg.Agents[i].ID == id {
			return i
		}
	}
	return -1
}

func saveRegistry(reg *registry.AgentRegistry) error {
	if err := os.MkdirAll(filepath.Dir(registryPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := reg.Save(registryPath); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  init      Write the built-in agent catalog to a file
  update    Update one field of an agent
  add-kb    Add a knowledge base reference to an agent
  validate  Check that the catalog covers the five stages
  help      Show this help message

Examples:
  registry-updater init -path configs/agent-registry.json
  registry-updater update -id rate -field timeout -value 45s
  registry-updater add-kb -id rate -rule "Territory factors" -source KB-RATE-302
  registry-updater validate -path configs/agent-registry.json`)
}
