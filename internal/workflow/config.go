package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/clearspend/expense-approval/internal"
)

// Workflow modes. A company workflow is exactly one of these; the raw JSON
// rules blob is parsed into the matching typed form once, at load time.
const (
	ModeSequential  = "sequential"
	ModeConditional = "conditional"
	ModeDisabled    = "disabled"
)

// Approver selection strategies for sequential levels.
const (
	StrategyManager = "manager"
	StrategyRole    = "role"
	StrategyUser    = "user"
)

// Level is one step of a sequential chain. Role is set for StrategyRole,
// UserID for StrategyUser.
type Level struct {
	Level    int    `json:"level"`
	Strategy string `json:"strategy"`
	Role     string `json:"role,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
}

// Rule is one amount band of a conditional workflow. Amounts are minor units
// of the company currency. MaxAmount nil means unbounded above. Both bounds
// are inclusive.
type Rule struct {
	MinAmount  int64  `json:"min_amount"`
	MaxAmount  *int64 `json:"max_amount,omitempty"`
	ApproverID int64  `json:"approver_id"`
}

// Config is the typed form of a company's approval policy.
type Config struct {
	Mode     string  `json:"mode"`
	Priority int     `json:"priority"`
	Levels   []Level `json:"levels,omitempty"`
	Rules    []Rule  `json:"rules,omitempty"`
}

type rulesDocument struct {
	ApprovalLevels []Level `json:"approval_levels,omitempty"`
	ApprovalRules  []Rule  `json:"approval_rules,omitempty"`
}

// Disabled returns a config under which every submitted expense auto-approves.
func Disabled() *Config {
	return &Config{Mode: ModeDisabled}
}

// ParseConfig turns the stored workflow row (type discriminator plus JSON
// rules blob) into a validated Config. Malformed configuration is rejected
// here so resolution never has to re-interpret raw JSON.
func ParseConfig(workflowType string, priority int, rawRules string) (*Config, error) {
	switch workflowType {
	case ModeDisabled, "":
		return Disabled(), nil
	case ModeSequential, ModeConditional:
	default:
		return nil, internal.NewConfigurationError(fmt.Sprintf("unknown workflow type %q", workflowType))
	}

	var doc rulesDocument
	if rawRules != "" {
		if err := json.Unmarshal([]byte(rawRules), &doc); err != nil {
			return nil, internal.NewConfigurationError("workflow rules are not valid JSON").WithCause(err)
		}
	}

	cfg := &Config{
		Mode:     workflowType,
		Priority: priority,
		Levels:   doc.ApprovalLevels,
		Rules:    doc.ApprovalRules,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the structural invariants: sequential levels are unique
// and densely ascending from 1 with a valid strategy each; conditional rules
// have coherent bounds.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDisabled:
		return nil

	case ModeSequential:
		if len(c.Levels) == 0 {
			return internal.NewConfigurationError("sequential workflow has no levels")
		}
		for i, lvl := range c.Levels {
			if lvl.Level != i+1 {
				return internal.NewConfigurationError(
					fmt.Sprintf("levels must be densely ascending from 1; got level %d at position %d", lvl.Level, i+1))
			}
			switch lvl.Strategy {
			case StrategyManager:
			case StrategyRole:
				if lvl.Role == "" {
					return internal.NewConfigurationError(fmt.Sprintf("level %d uses role strategy without a role", lvl.Level))
				}
			case StrategyUser:
				if lvl.UserID == 0 {
					return internal.NewConfigurationError(fmt.Sprintf("level %d uses user strategy without a user id", lvl.Level))
				}
			default:
				return internal.NewConfigurationError(fmt.Sprintf("level %d has unknown strategy %q", lvl.Level, lvl.Strategy))
			}
		}
		return nil

	case ModeConditional:
		if len(c.Rules) == 0 {
			return internal.NewConfigurationError("conditional workflow has no rules")
		}
		for i, rule := range c.Rules {
			if rule.MinAmount < 0 {
				return internal.NewConfigurationError(fmt.Sprintf("rule %d has negative min_amount", i+1))
			}
			if rule.MaxAmount != nil && *rule.MaxAmount < rule.MinAmount {
				return internal.NewConfigurationError(fmt.Sprintf("rule %d has max_amount below min_amount", i+1))
			}
		}
		return nil

	default:
		return internal.NewConfigurationError(fmt.Sprintf("unknown workflow mode %q", c.Mode))
	}
}

// LevelAt returns the sequential level record numbered n, if defined.
func (c *Config) LevelAt(n int) (Level, bool) {
	if c.Mode != ModeSequential || n < 1 || n > len(c.Levels) {
		return Level{}, false
	}
	return c.Levels[n-1], true
}

// MatchRule returns the first conditional rule whose inclusive amount band
// contains the given company-currency amount.
func (c *Config) MatchRule(amount int64) (Rule, bool) {
	if c.Mode != ModeConditional {
		return Rule{}, false
	}
	for _, rule := range c.Rules {
		if amount < rule.MinAmount {
			continue
		}
		if rule.MaxAmount != nil && amount > *rule.MaxAmount {
			continue
		}
		return rule, true
	}
	return Rule{}, false
}
