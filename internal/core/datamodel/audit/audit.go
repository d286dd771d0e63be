package audit

import (
	"time"
)

// Entry is an append-only record of a state-changing action. The engine only
// ever writes these; nothing in the service reads them back.
type Entry struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	CompanyID  int64     `json:"company_id" gorm:"column:company_id;not null;index"`
	ActorID    int64     `json:"actor_id" gorm:"column:actor_id;not null"`
	EntityType string    `json:"entity_type" gorm:"column:entity_type;not null"`
	EntityID   int64     `json:"entity_id" gorm:"column:entity_id;not null;index"`
	Action     string    `json:"action" gorm:"column:action;not null"`
	Before     string    `json:"before,omitempty" gorm:"column:before_state;type:jsonb"`
	After      string    `json:"after,omitempty" gorm:"column:after_state;type:jsonb"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (Entry) TableName() string {
	return "audit_logs"
}
