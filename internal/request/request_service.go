package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"leavedesk/internal/audit"
	"leavedesk/internal/authz"
	"leavedesk/internal/domain"
	"leavedesk/internal/events"
	"leavedesk/internal/messaging/kafka"
	requesterrors "leavedesk/internal/request/errors"
	"leavedesk/internal/shared/apperror"
	"leavedesk/internal/shared/contextutil"
)

//go:generate mockgen -source=request_service.go -destination=mock/request_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actor domain.Principal, req CreateRequest) (Response, error)
	GetByID(ctx context.Context, id int64) (Response, error)
	List(ctx context.Context, q ListQuery) ([]Response, int64, error)
	Summary(ctx context.Context) (map[string]int64, error)

	// Transition runs one lifecycle action inside a single transaction:
	// load with a row lock, authorize, validate against the transition
	// table, write, enqueue the outbox event, commit, audit.
	Transition(ctx context.Context, action string, id int64, actor domain.Principal, payload TransitionPayload) (Response, error)

	Approve(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error)
	Deny(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error)
	Archive(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error)
	Unarchive(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error)
	SoftDelete(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error)
	Restore(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	outbox   kafka.OutboxRepository
	gate     authz.Gate
	recorder audit.Recorder
	logger   *zap.Logger
	now      func() time.Time
	flight   singleflight.Group
}

func NewService(
	db *sql.DB,
	repo Repository,
	outbox kafka.OutboxRepository,
	gate authz.Gate,
	recorder audit.Recorder,
	logger ...*zap.Logger,
) Service {
	return NewServiceWithClock(db, repo, outbox, gate, recorder, func() time.Time { return time.Now().UTC() }, logger...)
}

// NewServiceWithClock injects the wall clock so grace-period behavior is
// testable without sleeping.
func NewServiceWithClock(
	db *sql.DB,
	repo Repository,
	outbox kafka.OutboxRepository,
	gate authz.Gate,
	recorder audit.Recorder,
	now func() time.Time,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("request.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("request.service")
	}
	return &service{
		db:       db,
		repo:     repo,
		outbox:   outbox,
		gate:     gate,
		recorder: recorder,
		logger:   l,
		now:      now,
	}
}

func (s *service) Create(ctx context.Context, actor domain.Principal, req CreateRequest) (Response, error) {
	s.logger.Debug("create request",
		zap.String("actor_id", actor.ID),
		zap.String("employee_name", req.EmployeeName),
		zap.String("leave_type", req.LeaveType),
	)

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return Response{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return Response{}, err
	}
	if startDate.After(endDate) {
		return Response{}, requesterrors.ErrInvalidDateRange
	}

	now := s.now()
	lr := &LeaveRequest{
		EmployeeName: req.EmployeeName,
		ManagerName:  req.ManagerName,
		LeaveType:    req.LeaveType,
		ShiftType:    req.ShiftType,
		StartDate:    startDate,
		EndDate:      endDate,
		DurationDays: int(endDate.Sub(startDate).Hours()/24) + 1,
		Reason:       req.Reason,
		SubmittedAt:  now,
		Status:       StatusPending,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create request begin tx failed", zap.Error(err))
		return Response{}, internalError(err)
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Create(ctx, lr); err != nil {
		s.logger.Error("create request persist failed", zap.Error(err))
		return Response{}, mapCreateError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create request commit failed", zap.Error(err))
		return Response{}, internalError(err)
	}

	s.logger.Info("create request success",
		zap.Int64("request_id", lr.ID),
		zap.String("actor_id", actor.ID),
	)
	return mapToResponse(*lr, now), nil
}

func (s *service) GetByID(ctx context.Context, id int64) (Response, error) {
	lr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Response{}, requesterrors.ErrRequestNotFound
		}
		return Response{}, internalError(err)
	}
	return mapToResponse(*lr, s.now()), nil
}

func (s *service) List(ctx context.Context, q ListQuery) ([]Response, int64, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	requests, total, err := s.repo.FindMany(ctx, ListFilter{
		Status:         q.Status,
		IncludeDeleted: q.IncludeDeleted,
	}, page, pageSize)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return mapToListResponse(requests, s.now()), total, nil
}

// Summary collapses concurrent dashboard refreshes into one query.
func (s *service) Summary(ctx context.Context) (map[string]int64, error) {
	v, err, _ := s.flight.Do("status_summary", func() (any, error) {
		return s.repo.CountByStatus(ctx)
	})
	if err != nil {
		return nil, internalError(err)
	}
	return v.(map[string]int64), nil
}

func (s *service) Approve(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error) {
	return s.Transition(ctx, domain.ActionApprove, id, actor, payload)
}

func (s *service) Deny(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error) {
	return s.Transition(ctx, domain.ActionDeny, id, actor, payload)
}

func (s *service) Archive(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error) {
	return s.Transition(ctx, domain.ActionArchive, id, actor, payload)
}

func (s *service) Unarchive(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error) {
	return s.Transition(ctx, domain.ActionUnarchive, id, actor, payload)
}

func (s *service) SoftDelete(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error) {
	return s.Transition(ctx, domain.ActionSoftDelete, id, actor, payload)
}

func (s *service) Restore(ctx context.Context, id int64, actor domain.Principal, payload TransitionPayload) (Response, error) {
	return s.Transition(ctx, domain.ActionRestore, id, actor, payload)
}

func (s *service) Transition(ctx context.Context, action string, id int64, actor domain.Principal, payload TransitionPayload) (Response, error) {
	s.logger.Debug("transition requested",
		zap.String("action", action),
		zap.Int64("request_id", id),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", actor.Role),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("transition begin tx failed", zap.Error(err))
		return Response{}, internalError(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	lr, err := qtx.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Response{}, requesterrors.ErrRequestNotFound
		}
		s.logger.Error("transition load failed", zap.Int64("request_id", id), zap.Error(err))
		return Response{}, internalError(err)
	}

	allowed, err := s.gate.Authorize(action, actor.Role)
	if err != nil {
		s.logger.Error("transition authorize failed",
			zap.String("action", action),
			zap.String("actor_role", actor.Role),
			zap.Error(err),
		)
		return Response{}, err
	}
	if !allowed {
		s.recorder.RecordForbidden(ctx, actor, action, EntityType, strconv.FormatInt(id, 10), s.gate.RequiredRoles(action))
		s.logger.Warn("transition forbidden",
			zap.String("action", action),
			zap.Int64("request_id", id),
			zap.String("actor_role", actor.Role),
		)
		return Response{}, requesterrors.ErrForbidden
	}

	now := s.now()
	fromStatus := lr.Status

	if err := applyTransition(lr, action, actor, payload, now); err != nil {
		s.logger.Warn("transition rejected",
			zap.String("action", action),
			zap.Int64("request_id", id),
			zap.String("from_status", fromStatus),
			zap.Error(err),
		)
		return Response{}, err
	}

	if err := qtx.Save(ctx, lr); err != nil {
		s.logger.Error("transition persist failed",
			zap.String("action", action),
			zap.Int64("request_id", id),
			zap.Error(err),
		)
		return Response{}, internalError(err)
	}

	if err := s.enqueueTransitionEvent(ctx, s.outbox.WithTx(tx), lr, action, fromStatus, actor, now); err != nil {
		s.logger.Error("transition outbox enqueue failed",
			zap.String("action", action),
			zap.Int64("request_id", id),
			zap.Error(err),
		)
		return Response{}, internalError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("transition commit failed",
			zap.String("action", action),
			zap.Int64("request_id", id),
			zap.Error(err),
		)
		return Response{}, internalError(err)
	}

	// Success is audited only after commit so a rolled-back transaction
	// can never leave an entry claiming success.
	s.recordSuccess(ctx, lr, action, fromStatus, actor, payload)

	s.logger.Info("transition success",
		zap.String("action", action),
		zap.Int64("request_id", id),
		zap.String("from_status", fromStatus),
		zap.String("to_status", lr.Status),
	)
	return mapToResponse(*lr, now), nil
}

// applyTransition validates action against the transition table and computes
// the new field values. Identity fields always come from the authenticated
// actor so callers cannot spoof who acted.
func applyTransition(lr *LeaveRequest, action string, actor domain.Principal, payload TransitionPayload, now time.Time) error {
	by := actor.Email

	switch action {
	case domain.ActionApprove:
		if lr.Status != StatusPending {
			return requesterrors.ErrNotPending
		}
		lr.Status = StatusApproved
		lr.ApprovedBy = &by
		lr.ApprovedAt = &now
		setOptional(&lr.AdminNotes, payload.AdminNotes)

	case domain.ActionDeny:
		if lr.Status != StatusPending {
			return requesterrors.ErrNotPending
		}
		lr.Status = StatusDenied
		lr.DeniedBy = &by
		lr.DeniedAt = &now
		setOptional(&lr.AdminNotes, payload.AdminNotes)

	case domain.ActionArchive:
		switch lr.Status {
		case StatusArchived:
			return requesterrors.ErrAlreadyArchived
		case StatusDeleted:
			return requesterrors.ErrArchiveDeleted
		}
		prev := lr.Status
		lr.PreviousStatus = &prev
		lr.Status = StatusArchived
		lr.ArchivedBy = &by
		lr.ArchivedAt = &now
		setOptional(&lr.ArchiveReason, payload.Reason)

	case domain.ActionUnarchive:
		if lr.Status != StatusArchived {
			return requesterrors.ErrNotArchived
		}
		if lr.PreviousStatus == nil || !IsWorkflowStatus(*lr.PreviousStatus) {
			return corruptState(fmt.Sprintf("archived request %d has no valid previous status", lr.ID))
		}
		lr.Status = *lr.PreviousStatus
		lr.PreviousStatus = nil
		lr.UnarchivedBy = &by
		lr.UnarchivedAt = &now

	case domain.ActionSoftDelete:
		if lr.Status == StatusDeleted {
			return requesterrors.ErrAlreadyDeleted
		}
		if strings.TrimSpace(payload.Reason) == "" {
			return requesterrors.ErrDeleteReasonRequired
		}
		// An ARCHIVED row already carries its pre-archive workflow
		// status; keep it so restore never lands on ARCHIVED.
		if lr.Status != StatusArchived {
			prev := lr.Status
			lr.PreviousStatus = &prev
		}
		if lr.PreviousStatus == nil || !IsWorkflowStatus(*lr.PreviousStatus) {
			return corruptState(fmt.Sprintf("archived request %d has no valid previous status", lr.ID))
		}
		lr.Status = StatusDeleted
		lr.DeletedBy = &by
		lr.DeletedAt = &now
		reason := payload.Reason
		lr.DeleteReason = &reason

	case domain.ActionRestore:
		if lr.Status != StatusDeleted {
			return requesterrors.ErrNotDeleted
		}
		if lr.DeletedAt == nil {
			return corruptState(fmt.Sprintf("deleted request %d has no deletion timestamp", lr.ID))
		}
		if IsExpired(*lr.DeletedAt, now) {
			return requesterrors.ErrRestoreExpired
		}
		if lr.PreviousStatus == nil || !IsWorkflowStatus(*lr.PreviousStatus) {
			return corruptState(fmt.Sprintf("deleted request %d has no valid previous status", lr.ID))
		}
		lr.Status = *lr.PreviousStatus
		lr.PreviousStatus = nil
		lr.DeletedAt = nil
		lr.RestoredBy = &by
		lr.RestoredAt = &now

	default:
		return corruptState(fmt.Sprintf("unknown transition action %q", action))
	}

	return nil
}

func (s *service) enqueueTransitionEvent(
	ctx context.Context,
	outboxTx kafka.OutboxRepository,
	lr *LeaveRequest,
	action, fromStatus string,
	actor domain.Principal,
	now time.Time,
) error {
	evt := events.RequestTransitioned{
		EventType:  "request_transitioned",
		RequestID:  lr.ID,
		Action:     action,
		FromStatus: fromStatus,
		ToStatus:   lr.Status,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		OccurredAt: now,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return outboxTx.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: EntityType,
		AggregateID:   strconv.FormatInt(lr.ID, 10),
		EventType:     evt.EventType,
		Topic:         events.RequestLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) recordSuccess(
	ctx context.Context,
	lr *LeaveRequest,
	action, fromStatus string,
	actor domain.Principal,
	payload TransitionPayload,
) {
	meta, err := json.Marshal(map[string]any{
		"from_status": fromStatus,
		"to_status":   lr.Status,
	})
	if err != nil {
		meta = nil
	}

	entry := audit.Entry{
		ActorID:     &actor.ID,
		EntityType:  EntityType,
		EntityID:    strconv.FormatInt(lr.ID, 10),
		Action:      action,
		PerformedBy: actor.Email,
		Status:      audit.StatusSuccess,
		Metadata:    meta,
	}
	if payload.Reason != "" {
		reason := payload.Reason
		entry.Reason = &reason
	}
	s.recorder.Record(ctx, entry)
}

func setOptional(dst **string, v string) {
	if v != "" {
		*dst = &v
	}
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, requesterrors.ErrInvalidDateFormat
	}
	return t, nil
}

func internalError(err error) error {
	return apperror.Wrap(err, apperror.CodeInternalError, "An unexpected error occurred", http.StatusInternalServerError)
}

// corruptState marks a data-integrity violation. It is an internal error, not
// an invalid transition: the row broke an invariant the engine relies on.
func corruptState(detail string) error {
	return internalError(errors.New(detail))
}
