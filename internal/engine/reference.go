package engine

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReferenceFlow is a named ideal activity sequence loaded from a flow pack.
type ReferenceFlow struct {
	Name       string   `yaml:"name"`
	Activities []string `yaml:"activities"`
}

// ReferenceFile is the YAML root structure.
type ReferenceFile struct {
	Flows []ReferenceFlow `yaml:"flows"`
}

// LoadReferenceFlows loads flows from the provided path. If path is empty or
// the file is absent, returns no flows.
func LoadReferenceFlows(path string) ([]ReferenceFlow, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file ReferenceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Flows, nil
}

// FlowByName selects a flow from the pack. An empty name picks the first
// flow.
func FlowByName(flows []ReferenceFlow, name string) (ReferenceFlow, error) {
	if len(flows) == 0 {
		return ReferenceFlow{}, fmt.Errorf("no reference flows loaded")
	}
	if name == "" {
		return flows[0], nil
	}
	for _, flow := range flows {
		if flow.Name == name {
			return flow, nil
		}
	}
	return ReferenceFlow{}, fmt.Errorf("reference flow %q not found", name)
}
