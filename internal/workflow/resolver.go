package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/expense"
	"github.com/clearspend/expense-approval/internal/user"
)

// Resolver decides who must approve an expense at a given level. It is pure
// with respect to state: the same expense, config and level always resolve to
// the same approver (role ties break on lowest user id).
type Resolver struct {
	directory Directory
	logger    *slog.Logger
}

func NewResolver(directory Directory, logger *slog.Logger) *Resolver {
	return &Resolver{directory: directory, logger: logger}
}

// NextApprover returns the approver required after currentLevel (0 means the
// expense has not entered the chain yet). A nil user with nil error means no
// further approval is required.
func (r *Resolver) NextApprover(ctx context.Context, exp *expense.Expense, cfg *Config, currentLevel int) (*user.User, error) {
	if cfg == nil || cfg.Mode == ModeDisabled {
		return nil, nil
	}

	switch cfg.Mode {
	case ModeSequential:
		return r.resolveSequential(ctx, exp, cfg, currentLevel)
	case ModeConditional:
		// Conditional workflows are single-step: one rule, one approver.
		if currentLevel >= 1 {
			return nil, nil
		}
		return r.resolveConditional(ctx, exp, cfg)
	default:
		return nil, internal.NewConfigurationError(fmt.Sprintf("unknown workflow mode %q", cfg.Mode))
	}
}

func (r *Resolver) resolveSequential(ctx context.Context, exp *expense.Expense, cfg *Config, currentLevel int) (*user.User, error) {
	lvl, ok := cfg.LevelAt(currentLevel + 1)
	if !ok {
		// Past the last defined level: chain exhausted.
		return nil, nil
	}

	switch lvl.Strategy {
	case StrategyManager:
		mgr, err := r.directory.ManagerOf(ctx, exp.SubmitterID)
		if err != nil {
			if errors.Is(err, internal.ErrUserNotFound) {
				// Submitter has no manager: the level resolves to nobody.
				// The chain ends here rather than blocking the expense.
				r.logger.Warn("manager level resolved to no approver",
					"expense_id", exp.ID,
					"submitter_id", exp.SubmitterID,
					"level", lvl.Level)
				return nil, nil
			}
			return nil, err
		}
		return mgr, nil

	case StrategyRole:
		candidates, err := r.directory.ActiveByRole(ctx, exp.CompanyID, lvl.Role)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			r.logger.Warn("role level has no active candidates",
				"expense_id", exp.ID,
				"role", lvl.Role,
				"level", lvl.Level)
			return nil, nil
		}
		// Directory returns candidates ordered by ascending id; the first is
		// the documented deterministic pick.
		return candidates[0], nil

	case StrategyUser:
		u, err := r.directory.GetByID(ctx, lvl.UserID)
		if err != nil {
			if errors.Is(err, internal.ErrUserNotFound) {
				return nil, internal.NewConfigurationError(
					fmt.Sprintf("level %d references unknown user %d", lvl.Level, lvl.UserID))
			}
			return nil, err
		}
		return u, nil

	default:
		return nil, internal.NewConfigurationError(fmt.Sprintf("level %d has unknown strategy %q", lvl.Level, lvl.Strategy))
	}
}

func (r *Resolver) resolveConditional(ctx context.Context, exp *expense.Expense, cfg *Config) (*user.User, error) {
	rule, ok := cfg.MatchRule(exp.AmountCompanyCcy)
	if !ok {
		r.logger.Warn("no conditional rule matches amount",
			"expense_id", exp.ID,
			"amount_company_ccy", exp.AmountCompanyCcy)
		return nil, nil
	}
	if rule.ApproverID == 0 {
		return nil, nil
	}

	u, err := r.directory.GetByID(ctx, rule.ApproverID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.NewConfigurationError(
				fmt.Sprintf("conditional rule references unknown user %d", rule.ApproverID))
		}
		return nil, err
	}
	return u, nil
}
