package audit

import "time"

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Entry is one immutable record of an attempted action. Rows are append-only;
// nothing in the application updates or deletes them.
type Entry struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	ActorID     *string   `gorm:"type:varchar(64)"` // nil for anonymous attempts
	EntityType  string    `gorm:"type:varchar(40);not null;index:idx_audit_entity"`
	EntityID    string    `gorm:"type:varchar(64);not null;index:idx_audit_entity"`
	Action      string    `gorm:"type:varchar(40);not null"`
	PerformedBy string    `gorm:"type:varchar(255);not null"`
	Status      string    `gorm:"type:varchar(10);not null"`
	Reason      *string   `gorm:"type:text"`
	Metadata    []byte    `gorm:"type:jsonb"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Entry) TableName() string {
	return "audit_logs"
}
