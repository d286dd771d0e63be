package workflow

import (
	"unicode/utf8"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/expense"
)

// SubmitResult is the outcome of submitting an expense: the updated expense
// and, unless it auto-approved, the pending level-1 approval.
type SubmitResult struct {
	Expense  *expense.Expense `json:"expense"`
	Approval *Approval        `json:"approval,omitempty"`
}

// DecisionResult is the outcome of an approve or reject. NextApproval is set
// when the chain advanced to another level; Cancelled lists sibling pending
// approvals voided by a rejection.
type DecisionResult struct {
	Approval     *Approval        `json:"approval"`
	Expense      *expense.Expense `json:"expense"`
	NextApproval *Approval        `json:"next_approval,omitempty"`
	Cancelled    []*Approval      `json:"cancelled,omitempty"`
}

// BulkItemResult reports one approval id's fate within a bulk operation.
type BulkItemResult struct {
	ApprovalID int64  `json:"approval_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// BulkResult aggregates per-item outcomes. Items fail independently; one
// failure never rolls back a sibling.
type BulkResult struct {
	Results   []BulkItemResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

type DecideDTO struct {
	Comments string `json:"comments,omitempty"`
}

type RejectDTO struct {
	Comments string `json:"comments"`
	Reason   string `json:"reason,omitempty"`
}

func (dto RejectDTO) Validate() error {
	if utf8.RuneCountInString(dto.Comments) < MinRejectionCommentLength {
		return internal.NewValidationError(
			"rejection comments must be at least 10 characters",
			internal.ErrCodeCommentTooShort)
	}
	return nil
}

type BulkDecideDTO struct {
	ApprovalIDs []int64 `json:"approval_ids"`
	Comments    string  `json:"comments,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

func (dto BulkDecideDTO) Validate() error {
	if len(dto.ApprovalIDs) == 0 {
		return internal.NewValidationFieldError("approval_ids", "approval_ids is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type DelegateDTO struct {
	DelegateUserID int64  `json:"delegate_user_id"`
	Reason         string `json:"reason,omitempty"`
}

func (dto DelegateDTO) Validate() error {
	if dto.DelegateUserID == 0 {
		return internal.NewValidationFieldError("delegate_user_id", "delegate_user_id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
