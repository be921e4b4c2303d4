package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ApproverRule seeds one approver-group entry: which user group may
// approve requests at a given status for builds matching the pattern.
type ApproverRule struct {
	Group   string `yaml:"group"`
	Status  string `yaml:"status"`
	Pattern string `yaml:"pattern"`
}

// ApproverRulesFile is the YAML document format for approver seeding
type ApproverRulesFile struct {
	Rules []ApproverRule `yaml:"rules"`
}

// LoadApproverRules reads approver-group rules from a YAML file.
// An empty path yields no rules and no error.
func LoadApproverRules(path string) ([]ApproverRule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read approver rules: %w", err)
	}

	var file ApproverRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse approver rules: %w", err)
	}

	for i, rule := range file.Rules {
		if rule.Group == "" {
			return nil, fmt.Errorf("approver rule %d: group is required", i)
		}
	}

	return file.Rules, nil
}
