package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	internal "github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/core/events"
	"github.com/clearspend/expense-approval/internal/expense"
)

// ExpenseStore is the slice of the expense repository the payout processor
// needs: load an expense and persist its status change.
type ExpenseStore interface {
	GetByID(ctx context.Context, id int64) (*expense.Expense, error)
	Update(ctx context.Context, exp *expense.Expense) error
}

// Processor settles fully approved expenses. In production this would call
// out to a payment provider; here settlement is immediate and the expense is
// marked paid as soon as the approval chain completes.
type Processor struct {
	expenses ExpenseStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewProcessor(expenses ExpenseStore, logger *slog.Logger) *Processor {
	return &Processor{
		expenses: expenses,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterHandlers subscribes the processor to the approval lifecycle.
func (p *Processor) RegisterHandlers(bus *events.EventBus) {
	bus.Subscribe(events.ExpenseApprovedEvent, p.HandleExpenseApproved)
}

// HandleExpenseApproved moves an approved expense to paid. The handler is
// idempotent: a replayed event against an already paid expense is a no-op.
func (p *Processor) HandleExpenseApproved(ctx context.Context, event events.Event) error {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected payload for event %s", event.EventID())
	}

	expenseID, ok := data["expense_id"].(int64)
	if !ok {
		return fmt.Errorf("event %s missing expense_id", event.EventID())
	}

	exp, err := p.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("load expense %d: %w", expenseID, err)
	}

	if exp.ExpenseStatus == expense.StatusPaid {
		p.logger.Debug("expense already paid, skipping", "expense_id", expenseID)
		return nil
	}
	if exp.ExpenseStatus != expense.StatusApproved {
		return internal.NewStateTransitionError(
			fmt.Sprintf("expense %d is %s, only approved expenses can be paid", expenseID, exp.ExpenseStatus))
	}

	exp.MarkPaid(p.now())
	if err := p.expenses.Update(ctx, exp); err != nil {
		return fmt.Errorf("mark expense %d paid: %w", expenseID, err)
	}

	p.logger.Info("expense paid",
		"expense_id", expenseID,
		"amount_company_ccy", exp.AmountCompanyCcy)
	return nil
}
