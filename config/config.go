// Package config loads and validates the immutable run configuration.
// Everything here is fixed before day 1; there is no hot reload.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"ticket-dealer-go/logging"
)

// Dec decodes a YAML scalar into an exact decimal. Amounts in config
// files are written as strings or numbers; either way they parse without
// float drift.
type Dec struct {
	decimal.Decimal
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Dec) UnmarshalYAML(value *yaml.Node) error {
	dec, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("parse decimal %q: %w", value.Value, err)
	}
	d.Decimal = dec
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Dec) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env  string `yaml:"env"`
	Days int    `yaml:"days"`
	Seed int64  `yaml:"seed"`

	// MinUnit is the smallest money unit; settlement payouts floor to it.
	MinUnit Dec `yaml:"minUnit"`
	// TicketFace is the standard ticket face value S.
	TicketFace Dec `yaml:"ticketFace"`
	// GuardMid is the minimum viable outside mid for dealer quoting.
	GuardMid Dec `yaml:"guardMid"`

	Outside   OutsideConfig   `yaml:"outside"`
	Buckets   []BucketConfig  `yaml:"buckets"`
	Policy    PolicyConfig    `yaml:"policy"`
	OrderFlow OrderFlowConfig `yaml:"orderFlow"`
	Bank      BankConfig      `yaml:"bank"`

	Logging logging.Config `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Journal JournalConfig  `yaml:"journal"`
}

// OutsideConfig sets the anchor update sensitivities shared by all
// buckets.
type OutsideConfig struct {
	PhiMid         Dec  `yaml:"phiMid"`
	PhiSpread      Dec  `yaml:"phiSpread"`
	GuardFloor     Dec  `yaml:"guardFloor"`
	NonNegativeBid bool `yaml:"nonNegativeBid"`
}

// BucketConfig defines one maturity bucket: its boundary range, initial
// anchors, and the initial capital of its dealer/outside pair.
type BucketConfig struct {
	Name string `yaml:"name"`
	// TauLo/TauHi bound remaining time-to-maturity, inclusive; TauHi < 0
	// means unbounded above.
	TauLo int `yaml:"tauLo"`
	TauHi int `yaml:"tauHi"`

	Mid    Dec `yaml:"mid"`
	Spread Dec `yaml:"spread"`

	DealerCash  Dec `yaml:"dealerCash"`
	OutsideCash Dec `yaml:"outsideCash"`
}

// PolicyConfig sets buyer/seller eligibility.
type PolicyConfig struct {
	BuyHorizon int `yaml:"buyHorizon"`
	CashBuffer Dec `yaml:"cashBuffer"`
}

// OrderFlowConfig shapes the seeded random order flow.
type OrderFlowConfig struct {
	// MaxOrdersPerDay caps how many eligible agents present an order.
	MaxOrdersPerDay int `yaml:"maxOrdersPerDay"`
}

// BankConfig parameterizes the corridor rate kernel.
type BankConfig struct {
	DealSize        Dec `yaml:"dealSize"`
	PolicyRate      Dec `yaml:"policyRate"`
	DepositFacility Dec `yaml:"depositFacility"`
	LendingFacility Dec `yaml:"lendingFacility"`
	MinPolicyRate   Dec `yaml:"minPolicyRate"`
	Horizon         int `yaml:"horizon"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// JournalConfig selects the journal sinks.
type JournalConfig struct {
	File      string `yaml:"file"`
	SQLite    string `yaml:"sqlite"`
	ServeAddr string `yaml:"serveAddr"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate ensures required fields are present and coherent.
func Validate(cfg AppConfig) error {
	if cfg.Days <= 0 {
		return fmt.Errorf("days must be > 0")
	}
	if !cfg.TicketFace.IsPositive() {
		return fmt.Errorf("ticketFace must be > 0")
	}
	if cfg.MinUnit.IsNegative() {
		return fmt.Errorf("minUnit must be >= 0")
	}
	if cfg.GuardMid.IsNegative() {
		return fmt.Errorf("guardMid must be >= 0")
	}
	if cfg.Outside.PhiMid.IsNegative() || cfg.Outside.PhiSpread.IsNegative() {
		return fmt.Errorf("outside.phiMid/phiSpread must be >= 0")
	}
	if len(cfg.Buckets) == 0 {
		return fmt.Errorf("buckets config is required")
	}
	seen := make(map[string]bool)
	for _, b := range cfg.Buckets {
		if b.Name == "" {
			return fmt.Errorf("bucket name is required")
		}
		if seen[b.Name] {
			return fmt.Errorf("bucket %s defined twice", b.Name)
		}
		seen[b.Name] = true
		if b.TauLo < 0 {
			return fmt.Errorf("bucket %s tauLo must be >= 0", b.Name)
		}
		if b.TauHi >= 0 && b.TauHi < b.TauLo {
			return fmt.Errorf("bucket %s tauHi must be >= tauLo", b.Name)
		}
		if !b.Mid.IsPositive() {
			return fmt.Errorf("bucket %s mid must be > 0", b.Name)
		}
		if b.Spread.IsNegative() {
			return fmt.Errorf("bucket %s spread must be >= 0", b.Name)
		}
		if b.DealerCash.IsNegative() || b.OutsideCash.IsNegative() {
			return fmt.Errorf("bucket %s capital must be >= 0", b.Name)
		}
	}
	if cfg.Policy.BuyHorizon < 0 {
		return fmt.Errorf("policy.buyHorizon must be >= 0")
	}
	if cfg.OrderFlow.MaxOrdersPerDay < 0 {
		return fmt.Errorf("orderFlow.maxOrdersPerDay must be >= 0")
	}
	if cfg.Bank.Horizon < 0 {
		return fmt.Errorf("bank.horizon must be >= 0")
	}
	if cfg.Bank.LendingFacility.LessThan(cfg.Bank.DepositFacility.Decimal) {
		return fmt.Errorf("bank.lendingFacility must be >= bank.depositFacility")
	}
	return nil
}
