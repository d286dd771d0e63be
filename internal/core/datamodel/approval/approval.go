package approval

import (
	"time"
)

// Approval is one approver's decision record at one level of one expense's
// chain. Rows are never deleted; they form the audit trail of the decision.
// A partial unique index on (expense_id, level) where status='pending' backs
// the engine's single-pending-per-level guarantee.
type Approval struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	ExpenseID        int64      `json:"expense_id" gorm:"column:expense_id;not null;index"`
	ApproverID       int64      `json:"approver_id" gorm:"column:approver_id;not null;index"`
	Level            int        `json:"level" gorm:"column:level;not null"`
	Status           string     `json:"status" gorm:"column:status;default:pending"`
	Comments         string     `json:"comments" gorm:"column:comments"`
	RejectionReason  string     `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	DecidedAt        *time.Time `json:"decided_at,omitempty" gorm:"column:decided_at"`
	DueDate          *time.Time `json:"due_date,omitempty" gorm:"column:due_date"`
	DelegatedFrom    *int64     `json:"delegated_from,omitempty" gorm:"column:delegated_from"`
	DelegatedBy      *int64     `json:"delegated_by,omitempty" gorm:"column:delegated_by"`
	DelegatedAt      *time.Time `json:"delegated_at,omitempty" gorm:"column:delegated_at"`
	DelegationReason string     `json:"delegation_reason,omitempty" gorm:"column:delegation_reason"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Approval) TableName() string {
	return "approvals"
}
