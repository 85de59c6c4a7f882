package domain

// Lifecycle actions a principal can attempt on a leave request. Action names
// are part of the audit trail, so they are stable strings.
const (
	ActionApprove    = "approve"
	ActionDeny       = "deny"
	ActionArchive    = "archive"
	ActionUnarchive  = "unarchive"
	ActionSoftDelete = "soft-delete"
	ActionRestore    = "restore"
)

// EntityLeaveRequest tags audit entries and outbox events for the leave
// request aggregate.
const EntityLeaveRequest = "leave_request"
