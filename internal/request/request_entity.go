package request

import (
	"time"

	"leavedesk/internal/domain"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDenied   = "DENIED"
	StatusArchived = "ARCHIVED"
	StatusDeleted  = "DELETED"
)

const (
	LeaveTypeVacation = "Vacation"
	LeaveTypeSick     = "Sick Leave"
	LeaveTypeUnpaid   = "Unpaid"
	LeaveTypeOther    = "Other"
)

const (
	ShiftFirstHalf  = "First-Half"
	ShiftSecondHalf = "Second-Half"
	ShiftFull       = "Full Shift"
)

// EntityType tags audit entries and outbox events for this aggregate.
const EntityType = domain.EntityLeaveRequest

// LeaveRequest is one employee's leave submission. Rows are only ever
// soft-deleted through the lifecycle engine; physical removal happens in the
// purge worker once the grace period has elapsed.
//
// DeletedAt is a plain nullable timestamp rather than gorm's soft-delete
// type: soft-deleted rows must stay readable (restore, dashboards, purge).
type LeaveRequest struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	EmployeeName string    `gorm:"type:varchar(255);not null"`
	ManagerName  string    `gorm:"type:varchar(255);not null"`
	LeaveType    string    `gorm:"type:varchar(30);not null"`
	ShiftType    string    `gorm:"type:varchar(20);not null;default:'Full Shift'"`
	StartDate    time.Time `gorm:"type:date;not null"`
	EndDate      time.Time `gorm:"type:date;not null"`
	DurationDays int       `gorm:"type:int;not null;default:1"`
	Reason       string    `gorm:"type:text"`
	SubmittedAt  time.Time `gorm:"not null"`

	Status string `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_leave_requests_status"`
	// PreviousStatus is the last real workflow status (PENDING, APPROVED
	// or DENIED), set while the row is ARCHIVED or DELETED and cleared on
	// the way back.
	PreviousStatus *string `gorm:"type:varchar(20)"`
	AdminNotes     *string `gorm:"type:text"`

	ApprovedBy *string    `gorm:"type:varchar(255)"`
	ApprovedAt *time.Time ``
	DeniedBy   *string    `gorm:"type:varchar(255)"`
	DeniedAt   *time.Time ``

	ArchivedBy    *string    `gorm:"type:varchar(255)"`
	ArchivedAt    *time.Time ``
	ArchiveReason *string    `gorm:"type:text"`
	UnarchivedBy  *string    `gorm:"type:varchar(255)"`
	UnarchivedAt  *time.Time ``

	DeletedBy    *string    `gorm:"type:varchar(255)"`
	DeletedAt    *time.Time `gorm:"index:idx_leave_requests_deleted_at"`
	DeleteReason *string    `gorm:"type:text"`
	RestoredBy   *string    `gorm:"type:varchar(255)"`
	RestoredAt   *time.Time ``

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

func IsWorkflowStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}
