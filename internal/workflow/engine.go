package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/clearspend/expense-approval/internal"
	auditDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/audit"
	"github.com/clearspend/expense-approval/internal/core/events"
	"github.com/clearspend/expense-approval/internal/expense"
)

// Engine drives expenses through the approval lifecycle:
//
//	draft -> submitted -> (approved | rejected), approved -> paid
//
// Every state-changing operation runs inside a single store transaction:
// guards are re-read under the transaction, so a concurrent second decision
// on the same approval fails its pending check instead of succeeding twice.
type Engine struct {
	store    Store
	resolver *Resolver
	configs  ConfigSource
	bus      *events.EventBus
	logger   *slog.Logger
}

func NewEngine(store Store, directory Directory, configs ConfigSource, bus *events.EventBus, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		resolver: NewResolver(directory, logger),
		configs:  configs,
		bus:      bus,
		logger:   logger,
	}
}

// Resolver exposes approver resolution for callers that want a dry run.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// SubmitExpense moves a draft expense into the approval chain. If resolution
// finds no approver the expense auto-approves and no approval row is created.
func (e *Engine) SubmitExpense(ctx context.Context, expenseID, actingUserID int64) (*SubmitResult, error) {
	var (
		result  SubmitResult
		pending []events.Event
	)

	err := e.store.InTransaction(ctx, func(tx Store) error {
		exp, err := tx.Expenses().GetByID(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.SubmitterID != actingUserID {
			return internal.ErrUnauthorizedAccess
		}
		if !exp.CanSubmit() {
			return internal.NewStateTransitionError("expense can only be submitted from draft or rejected")
		}

		cfg, err := e.configs.ActiveConfig(ctx, exp.CompanyID)
		if err != nil {
			return err
		}

		approver, err := e.resolver.NextApprover(ctx, exp, cfg, 0)
		if err != nil {
			return err
		}

		now := time.Now()
		before := snapshot(exp)
		exp.MarkSubmitted(now)

		if approver == nil {
			exp.MarkApproved(now)
			if err := tx.Expenses().Update(ctx, exp); err != nil {
				return err
			}
			if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "expense", exp.ID, "auto_approve", before, snapshot(exp)); err != nil {
				return err
			}
			result.Expense = exp
			pending = append(pending,
				events.NewExpenseSubmitted(exp.ID, exp.CompanyID, exp.SubmitterID),
				events.NewExpenseApproved(exp.ID, exp.CompanyID, exp.AmountCompanyCcy))
			return nil
		}

		if err := tx.Expenses().Update(ctx, exp); err != nil {
			return err
		}

		approval := &Approval{
			ExpenseID:  exp.ID,
			ApproverID: approver.ID,
			Level:      1,
			Status:     ApprovalStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Approvals().Create(ctx, approval); err != nil {
			return err
		}

		if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "expense", exp.ID, "submit", before, snapshot(exp)); err != nil {
			return err
		}
		if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "approval", approval.ID, "create", "", snapshot(approval)); err != nil {
			return err
		}

		result.Expense = exp
		result.Approval = approval
		pending = append(pending,
			events.NewExpenseSubmitted(exp.ID, exp.CompanyID, exp.SubmitterID),
			events.NewApprovalCreated(approval.ID, exp.ID, approval.ApproverID, approval.Level))
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, pending)
	e.logger.Info("expense submitted",
		"expense_id", expenseID,
		"status", result.Expense.ExpenseStatus,
		"auto_approved", result.Approval == nil)
	return &result, nil
}

// Approve records one approver's positive decision and advances the chain.
func (e *Engine) Approve(ctx context.Context, approvalID, actingUserID int64, comments string) (*DecisionResult, error) {
	var (
		result  DecisionResult
		pending []events.Event
	)

	err := e.store.InTransaction(ctx, func(tx Store) error {
		approval, exp, err := e.loadForDecision(ctx, tx, approvalID, actingUserID)
		if err != nil {
			return err
		}

		now := time.Now()
		approvalBefore := snapshot(approval)
		approval.MarkApproved(now, comments)
		if err := tx.Approvals().Update(ctx, approval); err != nil {
			return err
		}
		if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "approval", approval.ID, "approve", approvalBefore, snapshot(approval)); err != nil {
			return err
		}
		pending = append(pending, events.NewApprovalDecided(approval.ID, exp.ID, actingUserID, ApprovalStatusApproved))

		cfg, err := e.configs.ActiveConfig(ctx, exp.CompanyID)
		if err != nil {
			return err
		}
		next, err := e.resolver.NextApprover(ctx, exp, cfg, approval.Level)
		if err != nil {
			return err
		}

		if next != nil {
			nextApproval := &Approval{
				ExpenseID:  exp.ID,
				ApproverID: next.ID,
				Level:      approval.Level + 1,
				Status:     ApprovalStatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Approvals().Create(ctx, nextApproval); err != nil {
				return err
			}
			if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "approval", nextApproval.ID, "create", "", snapshot(nextApproval)); err != nil {
				return err
			}
			result.NextApproval = nextApproval
			pending = append(pending, events.NewApprovalCreated(nextApproval.ID, exp.ID, nextApproval.ApproverID, nextApproval.Level))
		} else {
			expenseBefore := snapshot(exp)
			exp.MarkApproved(now)
			if err := tx.Expenses().Update(ctx, exp); err != nil {
				return err
			}
			if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "expense", exp.ID, "approve", expenseBefore, snapshot(exp)); err != nil {
				return err
			}
			pending = append(pending, events.NewExpenseApproved(exp.ID, exp.CompanyID, exp.AmountCompanyCcy))
		}

		result.Approval = approval
		result.Expense = exp
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, pending)
	e.logger.Info("approval granted",
		"approval_id", approvalID,
		"approver_id", actingUserID,
		"expense_status", result.Expense.ExpenseStatus)
	return &result, nil
}

// Reject records a negative decision: the approval is rejected, every sibling
// pending approval is cancelled and the expense is rejected, all atomically.
// Comments are validated before any mutation; reason is an optional short
// category stored alongside them.
func (e *Engine) Reject(ctx context.Context, approvalID, actingUserID int64, comments, reason string) (*DecisionResult, error) {
	if err := (RejectDTO{Comments: comments}).Validate(); err != nil {
		return nil, err
	}

	var (
		result  DecisionResult
		pending []events.Event
	)

	err := e.store.InTransaction(ctx, func(tx Store) error {
		approval, exp, err := e.loadForDecision(ctx, tx, approvalID, actingUserID)
		if err != nil {
			return err
		}

		now := time.Now()
		approvalBefore := snapshot(approval)
		approval.MarkRejected(now, comments, reason)
		if err := tx.Approvals().Update(ctx, approval); err != nil {
			return err
		}
		if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "approval", approval.ID, "reject", approvalBefore, snapshot(approval)); err != nil {
			return err
		}

		siblings, err := tx.Approvals().PendingByExpense(ctx, exp.ID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.ID == approval.ID {
				continue
			}
			siblingBefore := snapshot(sibling)
			sibling.MarkCancelled(now)
			if err := tx.Approvals().Update(ctx, sibling); err != nil {
				return err
			}
			if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "approval", sibling.ID, "cancel", siblingBefore, snapshot(sibling)); err != nil {
				return err
			}
			result.Cancelled = append(result.Cancelled, sibling)
		}

		expenseBefore := snapshot(exp)
		exp.MarkRejected(now)
		if err := tx.Expenses().Update(ctx, exp); err != nil {
			return err
		}
		if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "expense", exp.ID, "reject", expenseBefore, snapshot(exp)); err != nil {
			return err
		}

		result.Approval = approval
		result.Expense = exp
		pending = append(pending,
			events.NewApprovalDecided(approval.ID, exp.ID, actingUserID, ApprovalStatusRejected),
			events.NewExpenseRejected(exp.ID, exp.CompanyID, actingUserID, comments, reason))
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, pending)
	e.logger.Info("approval rejected",
		"approval_id", approvalID,
		"approver_id", actingUserID,
		"cancelled_siblings", len(result.Cancelled))
	return &result, nil
}

// BulkApprove applies Approve to each id independently. Each item runs in its
// own transaction, so one failure cannot corrupt the others.
func (e *Engine) BulkApprove(ctx context.Context, approvalIDs []int64, actingUserID int64, comments string) *BulkResult {
	return e.bulkDecide(ctx, approvalIDs, func(id int64) error {
		_, err := e.Approve(ctx, id, actingUserID, comments)
		return err
	})
}

// BulkReject applies Reject to each id independently.
func (e *Engine) BulkReject(ctx context.Context, approvalIDs []int64, actingUserID int64, comments, reason string) *BulkResult {
	return e.bulkDecide(ctx, approvalIDs, func(id int64) error {
		_, err := e.Reject(ctx, id, actingUserID, comments, reason)
		return err
	})
}

func (e *Engine) bulkDecide(ctx context.Context, approvalIDs []int64, decide func(id int64) error) *BulkResult {
	result := &BulkResult{Results: make([]BulkItemResult, 0, len(approvalIDs))}
	for _, id := range approvalIDs {
		if err := decide(id); err != nil {
			result.Failed++
			result.Results = append(result.Results, BulkItemResult{ApprovalID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, BulkItemResult{ApprovalID: id, Success: true})
	}
	return result
}

// Delegate reassigns a pending approval to another eligible approver in the
// same company. The record keeps its level; only approver and delegation
// metadata change.
func (e *Engine) Delegate(ctx context.Context, approvalID, actingUserID, delegateUserID int64, reason string) (*Approval, error) {
	var (
		result  *Approval
		pending []events.Event
	)

	err := e.store.InTransaction(ctx, func(tx Store) error {
		approval, err := tx.Approvals().GetByID(ctx, approvalID)
		if err != nil {
			return err
		}
		if !approval.IsPending() {
			return internal.NewStateTransitionError("only pending approvals can be delegated")
		}

		exp, err := tx.Expenses().GetByID(ctx, approval.ExpenseID)
		if err != nil {
			return err
		}

		delegate, err := e.resolver.directory.GetByID(ctx, delegateUserID)
		if err != nil {
			return err
		}
		if !delegate.IsActive || !delegate.SameCompany(exp.CompanyID) {
			return internal.ErrDelegateNotEligible
		}

		now := time.Now()
		before := snapshot(approval)
		original := approval.ApproverID
		approval.DelegateTo(delegate.ID, actingUserID, reason, now)
		if err := tx.Approvals().Update(ctx, approval); err != nil {
			return err
		}
		if err := e.recordAudit(ctx, tx, exp.CompanyID, actingUserID, "approval", approval.ID, "delegate", before, snapshot(approval)); err != nil {
			return err
		}

		result = approval
		pending = append(pending, events.NewApprovalDelegated(approval.ID, original, delegate.ID, reason))
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, pending)
	e.logger.Info("approval delegated",
		"approval_id", approvalID,
		"delegated_by", actingUserID,
		"delegate_id", delegateUserID)
	return result, nil
}

// PendingForApprover lists an approver's open inbox.
func (e *Engine) PendingForApprover(ctx context.Context, approverID int64, limit, offset int) ([]*Approval, error) {
	return e.store.Approvals().PendingByApprover(ctx, approverID, limit, offset)
}

// ApprovalHistory returns every approval record of an expense, the chain's
// audit trail, ordered by level.
func (e *Engine) ApprovalHistory(ctx context.Context, expenseID int64) ([]*Approval, error) {
	return e.store.Approvals().ByExpense(ctx, expenseID)
}

// loadForDecision fetches and guards the approval plus its expense for an
// approve/reject: the approval must be assigned to the actor and pending, and
// the expense must still be submitted.
func (e *Engine) loadForDecision(ctx context.Context, tx Store, approvalID, actingUserID int64) (*Approval, *expense.Expense, error) {
	approval, err := tx.Approvals().GetByID(ctx, approvalID)
	if err != nil {
		return nil, nil, err
	}
	if approval.ApproverID != actingUserID {
		return nil, nil, internal.ErrNotPendingApprover
	}
	if !approval.IsPending() {
		return nil, nil, internal.NewStateTransitionError("approval has already been processed")
	}

	exp, err := tx.Expenses().GetByID(ctx, approval.ExpenseID)
	if err != nil {
		return nil, nil, err
	}
	if !exp.IsSubmitted() {
		return nil, nil, internal.NewStateTransitionError("expense is not awaiting approval")
	}
	return approval, exp, nil
}

func (e *Engine) recordAudit(ctx context.Context, tx Store, companyID, actorID int64, entityType string, entityID int64, action, before, after string) error {
	return tx.Audit().Append(ctx, &auditDatamodel.Entry{
		CompanyID:  companyID,
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
		CreatedAt:  time.Now(),
	})
}

func (e *Engine) publish(ctx context.Context, pending []events.Event) {
	for _, ev := range pending {
		if err := e.bus.Publish(ctx, ev); err != nil {
			e.logger.Error("failed to publish event", "event_type", ev.EventType(), "error", err)
		}
	}
}

func snapshot(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
