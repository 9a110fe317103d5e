// Package config loads and saves mojito.yaml.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mojito-dev/mojito/internal/model"
)

// Config represents the top-level mojito.yaml configuration.
type Config struct {
	Logins []Login      `yaml:"logins,omitempty"`
	Tags   TagsConfig   `yaml:"tags"`
	Import ImportConfig `yaml:"import"`
	Budget ViewConfig   `yaml:"budget"`
	InOut  ViewConfig   `yaml:"inout"`
	Goals  GoalsConfig  `yaml:"goals"`
	Git    GitConfig    `yaml:"git"`
	Log    LogConfig    `yaml:"log"`
	Rules  []RuleConfig `yaml:"rules,omitempty"`
}

// Login is one aggregator login and the accounts it owns, mapped to
// the aggregator's account ids.
type Login struct {
	Name     string           `yaml:"name"`
	Accounts map[string]int64 `yaml:"accounts,omitempty"`
}

// TagsConfig names the reserved tags that encode the cleared and
// reconciled flags remotely. Both must be set for the flag feature.
type TagsConfig struct {
	Cleared    string `yaml:"cleared"`
	Reconciled string `yaml:"reconciled"`
}

// ImportConfig tunes the import window.
type ImportConfig struct {
	// FudgeDays widens the window behind the earliest pending
	// transaction so in-flight rows are re-downloaded.
	FudgeDays int `yaml:"fudge_days"`
}

// ViewConfig scopes the budget and in-out views.
type ViewConfig struct {
	ExcludedAccounts   []string `yaml:"excluded_accounts,omitempty"`
	ExcludedCategories []string `yaml:"excluded_categories,omitempty"`
}

// GoalsConfig scopes the goal view.
type GoalsConfig struct {
	IncludedAccounts []string `yaml:"included_accounts,omitempty"`
}

// GitConfig controls git integration for the data directory.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// LogConfig controls CLI logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// RuleConfig is one budget or goal rule as configured.
type RuleConfig struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"` // "budget" or "goal"
	Color        string   `yaml:"color,omitempty"`
	Target       string   `yaml:"target"`
	Frequency    string   `yaml:"frequency,omitempty"`
	Terms        []string `yaml:"terms"`
	Combine      string   `yaml:"combine,omitempty"` // "and" or "or"
	CarryForward string   `yaml:"carry_forward,omitempty"`
	EndDate      string   `yaml:"end_date,omitempty"` // "2006-01-02"
}

// Rule converts a configured rule to its engine form.
func (r RuleConfig) Rule() (model.Rule, error) {
	target := decimal.Zero
	if r.Target != "" {
		var err error
		if target, err = decimal.NewFromString(r.Target); err != nil {
			return model.Rule{}, fmt.Errorf("rule %q: parsing target %q: %w", r.Name, r.Target, err)
		}
	}

	carry := decimal.Zero
	if r.CarryForward != "" {
		var err error
		if carry, err = decimal.NewFromString(r.CarryForward); err != nil {
			return model.Rule{}, fmt.Errorf("rule %q: parsing carry_forward %q: %w", r.Name, r.CarryForward, err)
		}
	}

	var endDate time.Time
	if r.EndDate != "" {
		var err error
		if endDate, err = time.Parse("2006-01-02", r.EndDate); err != nil {
			return model.Rule{}, fmt.Errorf("rule %q: parsing end_date %q: %w", r.Name, r.EndDate, err)
		}
	}

	return model.Rule{
		Name:           r.Name,
		HighlightColor: r.Color,
		Target:         target,
		Frequency:      r.Frequency,
		Terms:          r.Terms,
		Combine:        model.ParseCombineMode(r.Combine),
		CarryForward:   carry,
		EndDate:        endDate,
	}, nil
}

// RuleKind parses the configured kind.
func (r RuleConfig) RuleKind() (model.RuleKind, error) {
	switch strings.ToLower(r.Kind) {
	case "", "budget":
		return model.KindBudget, nil
	case "goal":
		return model.KindGoal, nil
	default:
		return 0, fmt.Errorf("rule %q: unknown kind %q", r.Name, r.Kind)
	}
}

// RulesFor converts every configured rule of the given kind.
func (c *Config) RulesFor(kind model.RuleKind) ([]model.Rule, error) {
	var rules []model.Rule
	for _, rc := range c.Rules {
		k, err := rc.RuleKind()
		if err != nil {
			return nil, err
		}
		if k != kind {
			continue
		}
		r, err := rc.Rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoginByName finds a configured login, case-insensitively.
func (c *Config) LoginByName(name string) (Login, bool) {
	for _, l := range c.Logins {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Login{}, false
}

// Load reads a mojito.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new mirror.
func Default(login string) *Config {
	return &Config{
		Logins: []Login{{Name: login, Accounts: map[string]int64{}}},
		Tags: TagsConfig{
			Cleared:    "cleared",
			Reconciled: "reconciled",
		},
		Import: ImportConfig{
			FudgeDays: 14,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Mojito",
			AuthorEmail: "mojito@localhost",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
