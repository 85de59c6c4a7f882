package bootstrap

import "context"

// AuditLog is a server-lifecycle audit line (startup, shutdown), separate
// from the domain audit trail in internal/audit.
type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}
