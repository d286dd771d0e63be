package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	ExpenseSubmittedEvent  = "expense.submitted"
	ExpenseApprovedEvent   = "expense.approved"
	ExpenseRejectedEvent   = "expense.rejected"
	ApprovalCreatedEvent   = "approval.created"
	ApprovalDecidedEvent   = "approval.decided"
	ApprovalDelegatedEvent = "approval.delegated"
)

func NewExpenseSubmitted(expenseID, companyID, submitterID int64) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      ExpenseSubmittedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"expense_id":   expenseID,
			"company_id":   companyID,
			"submitter_id": submitterID,
		},
	}
}

func NewExpenseApproved(expenseID, companyID int64, amountCompanyCcy int64) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      ExpenseApprovedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"expense_id":         expenseID,
			"company_id":         companyID,
			"amount_company_ccy": amountCompanyCcy,
		},
	}
}

func NewExpenseRejected(expenseID, companyID, rejectedBy int64, comments, reason string) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      ExpenseRejectedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"expense_id":  expenseID,
			"company_id":  companyID,
			"rejected_by": rejectedBy,
			"comments":    comments,
			"reason":      reason,
		},
	}
}

func NewApprovalCreated(approvalID, expenseID, approverID int64, level int) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      ApprovalCreatedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"approval_id": approvalID,
			"expense_id":  expenseID,
			"approver_id": approverID,
			"level":       level,
		},
	}
}

func NewApprovalDecided(approvalID, expenseID, approverID int64, decision string) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      ApprovalDecidedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"approval_id": approvalID,
			"expense_id":  expenseID,
			"approver_id": approverID,
			"decision":    decision,
		},
	}
}

func NewApprovalDelegated(approvalID, fromUserID, toUserID int64, reason string) Event {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      ApprovalDelegatedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"approval_id": approvalID,
			"from_user":   fromUserID,
			"to_user":     toUserID,
			"reason":      reason,
		},
	}
}
