package request_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leavedesk/internal/audit"
	"leavedesk/internal/authz"
	"leavedesk/internal/domain"
	"leavedesk/internal/messaging/kafka"
	"leavedesk/internal/request"
	requesterrors "leavedesk/internal/request/errors"
	"leavedesk/internal/shared/apperror"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

var (
	managerActor = domain.Principal{ID: "mgr-1", Email: "manager@example.com", Role: domain.RoleManager}
	adminActor   = domain.Principal{ID: "adm-1", Email: "admin@example.com", Role: domain.RoleAdmin}
	userActor    = domain.Principal{ID: "usr-1", Email: "user@example.com", Role: domain.RoleUser}
)

type fakeRequestRepository struct {
	createFn            func(ctx context.Context, lr *request.LeaveRequest) error
	findByIDForUpdateFn func(ctx context.Context, id int64) (*request.LeaveRequest, error)
	saveFn              func(ctx context.Context, lr *request.LeaveRequest) error
	findByIDFn          func(ctx context.Context, id int64) (*request.LeaveRequest, error)
	findManyFn          func(ctx context.Context, f request.ListFilter, page, pageSize int) ([]request.LeaveRequest, int64, error)
	countByStatusFn     func(ctx context.Context) (map[string]int64, error)
	deleteExpiredFn     func(ctx context.Context, cutoff time.Time) (int64, error)

	saved []request.LeaveRequest
}

func (f *fakeRequestRepository) WithTx(tx *sql.Tx) request.Repository { return f }

func (f *fakeRequestRepository) Create(ctx context.Context, lr *request.LeaveRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, lr)
	}
	lr.ID = 1
	return nil
}

func (f *fakeRequestRepository) FindByIDForUpdate(ctx context.Context, id int64) (*request.LeaveRequest, error) {
	return f.findByIDForUpdateFn(ctx, id)
}

func (f *fakeRequestRepository) Save(ctx context.Context, lr *request.LeaveRequest) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, lr)
	}
	f.saved = append(f.saved, *lr)
	return nil
}

func (f *fakeRequestRepository) FindByID(ctx context.Context, id int64) (*request.LeaveRequest, error) {
	return f.findByIDFn(ctx, id)
}

func (f *fakeRequestRepository) FindMany(ctx context.Context, fl request.ListFilter, page, pageSize int) ([]request.LeaveRequest, int64, error) {
	return f.findManyFn(ctx, fl, page, pageSize)
}

func (f *fakeRequestRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return f.countByStatusFn(ctx)
}

func (f *fakeRequestRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.deleteExpiredFn(ctx, cutoff)
}

type fakeOutboxRepository struct {
	createFn func(ctx context.Context, event kafka.OutboxEvent) error
	created  []kafka.OutboxEvent
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	f.created = append(f.created, event)
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type fakeRecorder struct {
	entries []audit.Entry
}

func (f *fakeRecorder) Record(ctx context.Context, e audit.Entry) {
	f.entries = append(f.entries, e)
}

func (f *fakeRecorder) RecordUnauthorized(ctx context.Context, actor *domain.Principal, action, entityType, entityID string) {
	reason := "authentication required"
	f.entries = append(f.entries, audit.Entry{
		EntityType: entityType, EntityID: entityID, Action: action,
		Status: audit.StatusFailure, Reason: &reason,
	})
}

func (f *fakeRecorder) RecordForbidden(ctx context.Context, actor domain.Principal, action, entityType, entityID string, requiredRoles []string) {
	reason := "forbidden"
	f.entries = append(f.entries, audit.Entry{
		ActorID: &actor.ID, EntityType: entityType, EntityID: entityID, Action: action,
		PerformedBy: actor.Email, Status: audit.StatusFailure, Reason: &reason,
	})
}

type engineFixture struct {
	svc      request.Service
	repo     *fakeRequestRepository
	outbox   *fakeOutboxRepository
	recorder *fakeRecorder
	mock     sqlmock.Sqlmock
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gate, err := authz.NewGate()
	require.NoError(t, err)

	repo := &fakeRequestRepository{}
	outbox := &fakeOutboxRepository{}
	recorder := &fakeRecorder{}

	svc := request.NewServiceWithClock(db, repo, outbox, gate, recorder,
		func() time.Time { return fixedNow }, zap.NewNop())

	return &engineFixture{svc: svc, repo: repo, outbox: outbox, recorder: recorder, mock: mock}
}

func (f *engineFixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *engineFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func pendingRequest(id int64) *request.LeaveRequest {
	return &request.LeaveRequest{
		ID:           id,
		EmployeeName: "Jane Doe",
		ManagerName:  "John Roe",
		LeaveType:    request.LeaveTypeVacation,
		ShiftType:    request.ShiftFull,
		StartDate:    time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC),
		DurationDays: 3,
		SubmittedAt:  fixedNow.Add(-48 * time.Hour),
		Status:       request.StatusPending,
	}
}

func strPtr(v string) *string { return &v }

func assertInvalidTransition(t *testing.T, err error, reason string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
	assert.Equal(t, reason, appErr.Message)
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("manager approves pending request", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		resp, err := f.svc.Approve(ctx, 7, managerActor, request.TransitionPayload{AdminNotes: "enjoy"})
		require.NoError(t, err)

		assert.Equal(t, request.StatusApproved, resp.Status)
		require.NotNil(t, resp.ApprovedBy)
		assert.Equal(t, managerActor.Email, *resp.ApprovedBy)
		require.NotNil(t, resp.ApprovedAt)
		assert.Equal(t, fixedNow.Format(time.RFC3339), *resp.ApprovedAt)
		require.NotNil(t, resp.AdminNotes)
		assert.Equal(t, "enjoy", *resp.AdminNotes)
		assert.Nil(t, resp.PreviousStatus)

		require.Len(t, f.repo.saved, 1)
		assert.Equal(t, request.StatusApproved, f.repo.saved[0].Status)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("approve on non pending request is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusApproved
			return lr, nil
		}

		_, err := f.svc.Approve(ctx, 7, managerActor, request.TransitionPayload{})
		assertInvalidTransition(t, err, "Request is not pending")
		assert.Empty(t, f.repo.saved)
		assert.Empty(t, f.outbox.created)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return nil, sql.ErrNoRows
		}

		_, err := f.svc.Approve(ctx, 404, managerActor, request.TransitionPayload{})
		assert.ErrorIs(t, err, requesterrors.ErrRequestNotFound)
	})
}

func TestService_Deny(t *testing.T) {
	ctx := context.Background()

	t.Run("identity comes from the actor, not the payload", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		resp, err := f.svc.Deny(ctx, 7, managerActor, request.TransitionPayload{AdminNotes: "coverage gap"})
		require.NoError(t, err)

		assert.Equal(t, request.StatusDenied, resp.Status)
		require.NotNil(t, resp.DeniedBy)
		assert.Equal(t, managerActor.Email, *resp.DeniedBy)
		assert.Nil(t, resp.ApprovedBy)
	})

	t.Run("deny after approve is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusApproved
			lr.ApprovedBy = strPtr(managerActor.Email)
			lr.ApprovedAt = &fixedNow
			return lr, nil
		}

		_, err := f.svc.Deny(ctx, 7, managerActor, request.TransitionPayload{})
		assertInvalidTransition(t, err, "Request is not pending")
	})
}

func TestService_Archive(t *testing.T) {
	ctx := context.Background()

	t.Run("archive records the previous status", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusApproved
			return lr, nil
		}

		resp, err := f.svc.Archive(ctx, 7, adminActor, request.TransitionPayload{Reason: "season closed"})
		require.NoError(t, err)

		assert.Equal(t, request.StatusArchived, resp.Status)
		require.NotNil(t, resp.PreviousStatus)
		assert.Equal(t, request.StatusApproved, *resp.PreviousStatus)
		require.NotNil(t, resp.ArchivedBy)
		assert.Equal(t, adminActor.Email, *resp.ArchivedBy)
		require.NotNil(t, resp.ArchiveReason)
		assert.Equal(t, "season closed", *resp.ArchiveReason)
	})

	t.Run("double archive is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusArchived
			lr.PreviousStatus = strPtr(request.StatusPending)
			return lr, nil
		}

		_, err := f.svc.Archive(ctx, 7, adminActor, request.TransitionPayload{})
		assertInvalidTransition(t, err, "Request is already archived")
	})

	t.Run("archiving a deleted request is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusDeleted
			lr.PreviousStatus = strPtr(request.StatusPending)
			deletedAt := fixedNow.Add(-time.Hour)
			lr.DeletedAt = &deletedAt
			return lr, nil
		}

		_, err := f.svc.Archive(ctx, 7, adminActor, request.TransitionPayload{})
		assertInvalidTransition(t, err, "Request is deleted")
	})
}

func TestService_Unarchive(t *testing.T) {
	ctx := context.Background()

	t.Run("unarchive restores the previous status and clears it", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusArchived
			lr.PreviousStatus = strPtr(request.StatusDenied)
			return lr, nil
		}

		resp, err := f.svc.Unarchive(ctx, 7, adminActor, request.TransitionPayload{})
		require.NoError(t, err)

		assert.Equal(t, request.StatusDenied, resp.Status)
		assert.Nil(t, resp.PreviousStatus)
		require.NotNil(t, resp.UnarchivedBy)
		assert.Equal(t, adminActor.Email, *resp.UnarchivedBy)
	})

	t.Run("unarchive on non archived request is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		_, err := f.svc.Unarchive(ctx, 7, adminActor, request.TransitionPayload{})
		assertInvalidTransition(t, err, "Request is not archived")
	})

	t.Run("archived row without previous status is a data integrity error", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusArchived
			lr.PreviousStatus = nil
			return lr, nil
		}

		_, err := f.svc.Unarchive(ctx, 7, adminActor, request.TransitionPayload{})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInternalError, appErr.Code)
	})
}

func TestService_SoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete records reason, actor and timestamp", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusDenied
			return lr, nil
		}

		resp, err := f.svc.SoftDelete(ctx, 7, adminActor, request.TransitionPayload{Reason: "duplicate entry"})
		require.NoError(t, err)

		assert.Equal(t, request.StatusDeleted, resp.Status)
		require.NotNil(t, resp.PreviousStatus)
		assert.Equal(t, request.StatusDenied, *resp.PreviousStatus)
		require.NotNil(t, resp.DeletedBy)
		assert.Equal(t, adminActor.Email, *resp.DeletedBy)
		require.NotNil(t, resp.DeleteReason)
		assert.Equal(t, "duplicate entry", *resp.DeleteReason)
		require.NotNil(t, resp.RemainingDays)
		assert.Equal(t, 7, *resp.RemainingDays)
	})

	t.Run("reason is required", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		_, err := f.svc.SoftDelete(ctx, 7, adminActor, request.TransitionPayload{Reason: "   "})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Reason is required to delete a request", appErr.Message)
		assert.Empty(t, f.repo.saved)
	})

	t.Run("deleting an archived row keeps its pre archive status", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusArchived
			lr.PreviousStatus = strPtr(request.StatusApproved)
			return lr, nil
		}

		resp, err := f.svc.SoftDelete(ctx, 7, adminActor, request.TransitionPayload{Reason: "cleanup"})
		require.NoError(t, err)

		assert.Equal(t, request.StatusDeleted, resp.Status)
		require.NotNil(t, resp.PreviousStatus)
		assert.Equal(t, request.StatusApproved, *resp.PreviousStatus)
	})

	t.Run("double delete is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusDeleted
			lr.PreviousStatus = strPtr(request.StatusPending)
			deletedAt := fixedNow.Add(-time.Hour)
			lr.DeletedAt = &deletedAt
			return lr, nil
		}

		_, err := f.svc.SoftDelete(ctx, 7, adminActor, request.TransitionPayload{Reason: "again"})
		assertInvalidTransition(t, err, "Request is already deleted")
	})
}

func TestService_Restore(t *testing.T) {
	ctx := context.Background()

	deletedRequest := func(id int64, deletedAgo time.Duration) *request.LeaveRequest {
		lr := pendingRequest(id)
		lr.Status = request.StatusDeleted
		lr.PreviousStatus = strPtr(request.StatusApproved)
		deletedAt := fixedNow.Add(-deletedAgo)
		lr.DeletedAt = &deletedAt
		lr.DeletedBy = strPtr(adminActor.Email)
		lr.DeleteReason = strPtr("mistake")
		return lr
	}

	t.Run("restore within the grace period round trips", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return deletedRequest(id, 72*time.Hour), nil
		}

		resp, err := f.svc.Restore(ctx, 7, adminActor, request.TransitionPayload{})
		require.NoError(t, err)

		assert.Equal(t, request.StatusApproved, resp.Status)
		assert.Nil(t, resp.PreviousStatus)
		assert.Nil(t, resp.DeletedAt)
		assert.Nil(t, resp.RemainingDays)
		require.NotNil(t, resp.RestoredBy)
		assert.Equal(t, adminActor.Email, *resp.RestoredBy)
	})

	t.Run("restore at exactly seven days still succeeds", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return deletedRequest(id, request.GracePeriod), nil
		}

		resp, err := f.svc.Restore(ctx, 7, adminActor, request.TransitionPayload{})
		require.NoError(t, err)
		assert.Equal(t, request.StatusApproved, resp.Status)
	})

	t.Run("restore past the grace period is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return deletedRequest(id, request.GracePeriod+time.Second), nil
		}

		_, err := f.svc.Restore(ctx, 7, adminActor, request.TransitionPayload{})
		assertInvalidTransition(t, err, "Cannot restore request deleted more than 7 days ago")
		assert.Empty(t, f.repo.saved)
	})

	t.Run("restore on a live request is rejected", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		_, err := f.svc.Restore(ctx, 7, adminActor, request.TransitionPayload{})
		assertInvalidTransition(t, err, "Request is not deleted")
	})

	t.Run("deleted row without timestamp is a data integrity error", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := deletedRequest(id, time.Hour)
			lr.DeletedAt = nil
			return lr, nil
		}

		_, err := f.svc.Restore(ctx, 7, adminActor, request.TransitionPayload{})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInternalError, appErr.Code)
	})
}

func TestService_Transition_Authorization(t *testing.T) {
	ctx := context.Background()

	t.Run("user role is denied and the denial is audited once", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		_, err := f.svc.Approve(ctx, 7, userActor, request.TransitionPayload{})
		assert.ErrorIs(t, err, requesterrors.ErrForbidden)

		require.Len(t, f.recorder.entries, 1)
		entry := f.recorder.entries[0]
		assert.Equal(t, audit.StatusFailure, entry.Status)
		assert.Equal(t, domain.ActionApprove, entry.Action)
		assert.Equal(t, "7", entry.EntityID)
		assert.Equal(t, userActor.Email, entry.PerformedBy)

		assert.Empty(t, f.repo.saved)
		assert.Empty(t, f.outbox.created)
	})

	t.Run("manager may not archive", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			lr := pendingRequest(id)
			lr.Status = request.StatusApproved
			return lr, nil
		}

		_, err := f.svc.Archive(ctx, 7, managerActor, request.TransitionPayload{})
		assert.ErrorIs(t, err, requesterrors.ErrForbidden)
	})
}

func TestService_Transition_AuditAndOutbox(t *testing.T) {
	ctx := context.Background()

	t.Run("success is audited after commit with status metadata", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		_, err := f.svc.SoftDelete(ctx, 9, adminActor, request.TransitionPayload{Reason: "test data"})
		require.NoError(t, err)

		require.Len(t, f.recorder.entries, 1)
		entry := f.recorder.entries[0]
		assert.Equal(t, audit.StatusSuccess, entry.Status)
		assert.Equal(t, domain.ActionSoftDelete, entry.Action)
		assert.Equal(t, "9", entry.EntityID)
		require.NotNil(t, entry.Reason)
		assert.Equal(t, "test data", *entry.Reason)

		var meta map[string]string
		require.NoError(t, json.Unmarshal(entry.Metadata, &meta))
		assert.Equal(t, request.StatusPending, meta["from_status"])
		assert.Equal(t, request.StatusDeleted, meta["to_status"])
	})

	t.Run("a lifecycle event is enqueued in the same transaction", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}

		_, err := f.svc.Approve(ctx, 9, managerActor, request.TransitionPayload{})
		require.NoError(t, err)

		require.Len(t, f.outbox.created, 1)
		evt := f.outbox.created[0]
		assert.Equal(t, "leave_request", evt.AggregateType)
		assert.Equal(t, "9", evt.AggregateID)
		assert.Equal(t, "request_transitioned", evt.EventType)
		assert.Equal(t, kafka.OutboxStatusPending, evt.Status)
		assert.NotEmpty(t, evt.ID)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(evt.Payload, &payload))
		assert.Equal(t, "approve", payload["action"])
		assert.Equal(t, request.StatusPending, payload["from_status"])
		assert.Equal(t, request.StatusApproved, payload["to_status"])
		assert.Equal(t, managerActor.Email, payload["actor_email"])
	})

	t.Run("outbox failure rolls the transition back", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.findByIDForUpdateFn = func(ctx context.Context, id int64) (*request.LeaveRequest, error) {
			return pendingRequest(id), nil
		}
		f.outbox.createFn = func(ctx context.Context, event kafka.OutboxEvent) error {
			return errors.New("outbox table missing")
		}

		_, err := f.svc.Approve(ctx, 9, managerActor, request.TransitionPayload{})
		require.Error(t, err)
		assert.Empty(t, f.recorder.entries)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("valid submission starts pending", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectCommit()

		resp, err := f.svc.Create(ctx, userActor, request.CreateRequest{
			EmployeeName: "Jane Doe",
			ManagerName:  "John Roe",
			LeaveType:    request.LeaveTypeVacation,
			ShiftType:    request.ShiftFull,
			StartDate:    "2026-03-16",
			EndDate:      "2026-03-18",
			Reason:       "spring break",
		})
		require.NoError(t, err)

		assert.Equal(t, request.StatusPending, resp.Status)
		assert.Equal(t, 3, resp.DurationDays)
		assert.Equal(t, int64(1), resp.ID)
	})

	t.Run("duplicate pending submission maps to a conflict", func(t *testing.T) {
		f := newEngineFixture(t)
		f.expectRollback()
		f.repo.createFn = func(ctx context.Context, lr *request.LeaveRequest) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_leave_requests_pending_submission"}
		}

		_, err := f.svc.Create(ctx, userActor, request.CreateRequest{
			EmployeeName: "Jane Doe",
			ManagerName:  "John Roe",
			LeaveType:    request.LeaveTypeVacation,
			ShiftType:    request.ShiftFull,
			StartDate:    "2026-03-16",
			EndDate:      "2026-03-18",
		})
		assert.ErrorIs(t, err, requesterrors.ErrDuplicateSubmission)
	})

	t.Run("start after end is rejected", func(t *testing.T) {
		f := newEngineFixture(t)

		_, err := f.svc.Create(ctx, userActor, request.CreateRequest{
			EmployeeName: "Jane Doe",
			ManagerName:  "John Roe",
			LeaveType:    request.LeaveTypeVacation,
			ShiftType:    request.ShiftFull,
			StartDate:    "2026-03-18",
			EndDate:      "2026-03-16",
		})
		assert.ErrorIs(t, err, requesterrors.ErrInvalidDateRange)
	})

	t.Run("malformed date is rejected", func(t *testing.T) {
		f := newEngineFixture(t)

		_, err := f.svc.Create(ctx, userActor, request.CreateRequest{
			EmployeeName: "Jane Doe",
			ManagerName:  "John Roe",
			LeaveType:    request.LeaveTypeVacation,
			ShiftType:    request.ShiftFull,
			StartDate:    "16-03-2026",
			EndDate:      "2026-03-18",
		})
		assert.ErrorIs(t, err, requesterrors.ErrInvalidDateFormat)
	})
}

func TestService_Summary(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.countByStatusFn = func(ctx context.Context) (map[string]int64, error) {
		return map[string]int64{
			request.StatusPending:  4,
			request.StatusApproved: 11,
		}, nil
	}

	counts, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[request.StatusPending])
	assert.Equal(t, int64(11), counts[request.StatusApproved])
}
