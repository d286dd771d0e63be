package workflow

import (
	"time"

	approvalDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/approval"
)

const (
	ApprovalStatusPending   = "pending"
	ApprovalStatusApproved  = "approved"
	ApprovalStatusRejected  = "rejected"
	ApprovalStatusCancelled = "cancelled"
)

// MinRejectionCommentLength is the minimum comment length required to reject.
const MinRejectionCommentLength = 10

// Approval is one approver's decision record at one level of one expense's
// chain. Once a terminal status is reached the record is immutable; before a
// decision, delegation may swap the approver in place.
type Approval struct {
	ID               int64      `json:"id"`
	ExpenseID        int64      `json:"expense_id"`
	ApproverID       int64      `json:"approver_id"`
	Level            int        `json:"level"`
	Status           string     `json:"status"`
	Comments         string     `json:"comments,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	DelegatedFrom    *int64     `json:"delegated_from,omitempty"`
	DelegatedBy      *int64     `json:"delegated_by,omitempty"`
	DelegatedAt      *time.Time `json:"delegated_at,omitempty"`
	DelegationReason string     `json:"delegation_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (a *Approval) IsPending() bool {
	return a.Status == ApprovalStatusPending
}

func (a *Approval) MarkApproved(now time.Time, comments string) {
	a.Status = ApprovalStatusApproved
	a.Comments = comments
	a.DecidedAt = &now
	a.UpdatedAt = now
}

// MarkRejected records the negative decision. Reason is an optional short
// category on top of the mandatory free-text comments.
func (a *Approval) MarkRejected(now time.Time, comments, reason string) {
	a.Status = ApprovalStatusRejected
	a.Comments = comments
	a.RejectionReason = reason
	a.DecidedAt = &now
	a.UpdatedAt = now
}

func (a *Approval) MarkCancelled(now time.Time) {
	a.Status = ApprovalStatusCancelled
	a.DecidedAt = &now
	a.UpdatedAt = now
}

// DelegateTo reassigns the pending approval. Level and status are untouched;
// the original approver and the delegator are kept as metadata.
func (a *Approval) DelegateTo(delegateID, delegatedBy int64, reason string, now time.Time) {
	original := a.ApproverID
	a.DelegatedFrom = &original
	a.DelegatedBy = &delegatedBy
	a.DelegatedAt = &now
	a.DelegationReason = reason
	a.ApproverID = delegateID
	a.UpdatedAt = now
}

func ApprovalToDataModel(a *Approval) *approvalDatamodel.Approval {
	return &approvalDatamodel.Approval{
		ID:               a.ID,
		ExpenseID:        a.ExpenseID,
		ApproverID:       a.ApproverID,
		Level:            a.Level,
		Status:           a.Status,
		Comments:         a.Comments,
		RejectionReason:  a.RejectionReason,
		DecidedAt:        a.DecidedAt,
		DueDate:          a.DueDate,
		DelegatedFrom:    a.DelegatedFrom,
		DelegatedBy:      a.DelegatedBy,
		DelegatedAt:      a.DelegatedAt,
		DelegationReason: a.DelegationReason,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func ApprovalFromDataModel(a *approvalDatamodel.Approval) *Approval {
	return &Approval{
		ID:               a.ID,
		ExpenseID:        a.ExpenseID,
		ApproverID:       a.ApproverID,
		Level:            a.Level,
		Status:           a.Status,
		Comments:         a.Comments,
		RejectionReason:  a.RejectionReason,
		DecidedAt:        a.DecidedAt,
		DueDate:          a.DueDate,
		DelegatedFrom:    a.DelegatedFrom,
		DelegatedBy:      a.DelegatedBy,
		DelegatedAt:      a.DelegatedAt,
		DelegationReason: a.DelegationReason,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func ApprovalFromDataModelSlice(approvals []*approvalDatamodel.Approval) []*Approval {
	result := make([]*Approval, len(approvals))
	for i, a := range approvals {
		result[i] = ApprovalFromDataModel(a)
	}
	return result
}
