package audit

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"leavedesk/internal/domain"
)

// Record deliberately ignores its own failures: losing an audit entry is
// preferable to blocking a legitimate business action, so every write path
// here is log-and-continue.
//
//go:generate mockgen -source=audit_recorder.go -destination=mock/audit_recorder_mock.go -package=mock
type Recorder interface {
	Record(ctx context.Context, e Entry)
	RecordUnauthorized(ctx context.Context, actor *domain.Principal, action, entityType, entityID string)
	RecordForbidden(ctx context.Context, actor domain.Principal, action, entityType, entityID string, requiredRoles []string)
}

type recorder struct {
	repo   Repository
	logger *zap.Logger
}

func NewRecorder(repo Repository, logger ...*zap.Logger) Recorder {
	l := zap.L().Named("audit.recorder")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.recorder")
	}
	return &recorder{repo: repo, logger: l}
}

func (r *recorder) Record(ctx context.Context, e Entry) {
	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Warn("audit entry dropped",
			zap.String("action", e.Action),
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityID),
			zap.String("status", e.Status),
			zap.Error(err),
		)
	}
}

func (r *recorder) RecordUnauthorized(ctx context.Context, actor *domain.Principal, action, entityType, entityID string) {
	reason := "authentication required"
	e := Entry{
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		PerformedBy: "anonymous",
		Status:      StatusFailure,
		Reason:      &reason,
	}
	if actor != nil {
		e.ActorID = &actor.ID
		e.PerformedBy = actor.Email
	}
	r.Record(ctx, e)
}

func (r *recorder) RecordForbidden(ctx context.Context, actor domain.Principal, action, entityType, entityID string, requiredRoles []string) {
	reason := "role " + actor.Role + " may not " + action
	meta, err := json.Marshal(map[string]any{
		"required_roles": strings.Join(requiredRoles, ","),
		"actor_role":     actor.Role,
	})
	if err != nil {
		r.logger.Warn("audit metadata encode failed", zap.Error(err))
		meta = nil
	}

	r.Record(ctx, Entry{
		ActorID:     &actor.ID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		PerformedBy: actor.Email,
		Status:      StatusFailure,
		Reason:      &reason,
		Metadata:    meta,
	})
}
