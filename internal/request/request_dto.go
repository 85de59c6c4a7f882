package request

import "time"

type CreateRequest struct {
	EmployeeName string `json:"employee_name" binding:"required,max=255"`
	ManagerName  string `json:"manager_name" binding:"required,max=255"`
	LeaveType    string `json:"leave_type" binding:"required,oneof='Vacation' 'Sick Leave' 'Unpaid' 'Other'"`
	ShiftType    string `json:"shift_type" binding:"required,oneof='First-Half' 'Second-Half' 'Full Shift'"`
	StartDate    string `json:"start_date" binding:"required"`
	EndDate      string `json:"end_date" binding:"required"`
	Reason       string `json:"reason" binding:"max=2000"`
}

// TransitionPayload carries the action-specific side data. Identity fields
// (who approved, deleted, restored, ...) never come from here; they are
// always derived from the authenticated actor.
type TransitionPayload struct {
	AdminNotes string `json:"admin_notes" binding:"max=2000"`
	Reason     string `json:"reason" binding:"max=2000"`
}

type ListQuery struct {
	Status         string `form:"status" binding:"omitempty,oneof=PENDING APPROVED DENIED ARCHIVED DELETED"`
	IncludeDeleted bool   `form:"include_deleted"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

type Response struct {
	ID           int64  `json:"id"`
	EmployeeName string `json:"employee_name"`
	ManagerName  string `json:"manager_name"`
	LeaveType    string `json:"leave_type"`
	ShiftType    string `json:"shift_type"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	DurationDays int    `json:"duration_days"`
	Reason       string `json:"reason"`
	SubmittedAt  string `json:"submitted_at"`

	Status         string  `json:"status"`
	PreviousStatus *string `json:"previous_status,omitempty"`
	AdminNotes     *string `json:"admin_notes,omitempty"`

	ApprovedBy *string `json:"approved_by,omitempty"`
	ApprovedAt *string `json:"approved_at,omitempty"`
	DeniedBy   *string `json:"denied_by,omitempty"`
	DeniedAt   *string `json:"denied_at,omitempty"`

	ArchivedBy    *string `json:"archived_by,omitempty"`
	ArchivedAt    *string `json:"archived_at,omitempty"`
	ArchiveReason *string `json:"archive_reason,omitempty"`
	UnarchivedBy  *string `json:"unarchived_by,omitempty"`
	UnarchivedAt  *string `json:"unarchived_at,omitempty"`

	DeletedBy    *string `json:"deleted_by,omitempty"`
	DeletedAt    *string `json:"deleted_at,omitempty"`
	DeleteReason *string `json:"delete_reason,omitempty"`
	RestoredBy   *string `json:"restored_by,omitempty"`
	RestoredAt   *string `json:"restored_at,omitempty"`

	// RemainingDays is only present on soft-deleted rows, for messaging.
	RemainingDays *int `json:"remaining_days,omitempty"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func mapToResponse(lr LeaveRequest, now time.Time) Response {
	resp := Response{
		ID:           lr.ID,
		EmployeeName: lr.EmployeeName,
		ManagerName:  lr.ManagerName,
		LeaveType:    lr.LeaveType,
		ShiftType:    lr.ShiftType,
		StartDate:    lr.StartDate.Format("2006-01-02"),
		EndDate:      lr.EndDate.Format("2006-01-02"),
		DurationDays: lr.DurationDays,
		Reason:       lr.Reason,
		SubmittedAt:  lr.SubmittedAt.Format(time.RFC3339),

		Status:         lr.Status,
		PreviousStatus: lr.PreviousStatus,
		AdminNotes:     lr.AdminNotes,

		ApprovedBy: lr.ApprovedBy,
		ApprovedAt: formatTime(lr.ApprovedAt),
		DeniedBy:   lr.DeniedBy,
		DeniedAt:   formatTime(lr.DeniedAt),

		ArchivedBy:    lr.ArchivedBy,
		ArchivedAt:    formatTime(lr.ArchivedAt),
		ArchiveReason: lr.ArchiveReason,
		UnarchivedBy:  lr.UnarchivedBy,
		UnarchivedAt:  formatTime(lr.UnarchivedAt),

		DeletedBy:    lr.DeletedBy,
		DeletedAt:    formatTime(lr.DeletedAt),
		DeleteReason: lr.DeleteReason,
		RestoredBy:   lr.RestoredBy,
		RestoredAt:   formatTime(lr.RestoredAt),
	}

	if lr.Status == StatusDeleted && lr.DeletedAt != nil {
		days := RemainingDays(*lr.DeletedAt, now)
		resp.RemainingDays = &days
	}

	return resp
}

func mapToListResponse(requests []LeaveRequest, now time.Time) []Response {
	resp := make([]Response, len(requests))
	for i, lr := range requests {
		resp[i] = mapToResponse(lr, now)
	}
	return resp
}
