package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is the initial state applied as a batch before day 1: the
// agent roster, money grants, and bilateral claims.
type Scenario struct {
	Agents []ScenarioAgent `yaml:"agents"`
	Grants []ScenarioGrant `yaml:"grants"`
	Claims []ScenarioClaim `yaml:"claims"`
}

// ScenarioAgent declares one agent.
type ScenarioAgent struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
}

// ScenarioGrant mints money to an agent at setup.
type ScenarioGrant struct {
	To     string `yaml:"to"`
	Amount Dec    `yaml:"amount"`
	Kind   string `yaml:"kind"`
}

// ScenarioClaim creates one initial bilateral claim. Kind is "ticket"
// or "payable".
type ScenarioClaim struct {
	Issuer   string `yaml:"issuer"`
	Holder   string `yaml:"holder"`
	Amount   Dec    `yaml:"amount"`
	Maturity int    `yaml:"maturity"`
	Kind     string `yaml:"kind"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (Scenario, error) {
	var sc Scenario
	raw, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return sc, fmt.Errorf("parse scenario yaml: %w", err)
	}
	if err := ValidateScenario(sc); err != nil {
		return sc, err
	}
	return sc, nil
}

// ValidateScenario checks roster references and amounts.
func ValidateScenario(sc Scenario) error {
	if len(sc.Agents) == 0 {
		return fmt.Errorf("scenario agents are required")
	}
	ids := make(map[string]bool)
	for _, a := range sc.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent id is required")
		}
		if ids[a.ID] {
			return fmt.Errorf("agent %s declared twice", a.ID)
		}
		ids[a.ID] = true
	}
	for _, g := range sc.Grants {
		if !ids[g.To] {
			return fmt.Errorf("grant to unknown agent %s", g.To)
		}
		if !g.Amount.IsPositive() {
			return fmt.Errorf("grant to %s must be > 0", g.To)
		}
	}
	for _, c := range sc.Claims {
		if !ids[c.Issuer] {
			return fmt.Errorf("claim by unknown issuer %s", c.Issuer)
		}
		if !ids[c.Holder] {
			return fmt.Errorf("claim to unknown holder %s", c.Holder)
		}
		if !c.Amount.IsPositive() {
			return fmt.Errorf("claim %s->%s must be > 0", c.Issuer, c.Holder)
		}
		if c.Maturity < 0 {
			return fmt.Errorf("claim %s->%s maturity must be >= 0", c.Issuer, c.Holder)
		}
		if c.Kind != "ticket" && c.Kind != "payable" {
			return fmt.Errorf("claim %s->%s kind must be ticket or payable", c.Issuer, c.Holder)
		}
	}
	return nil
}
