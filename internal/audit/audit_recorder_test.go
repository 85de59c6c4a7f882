package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"leavedesk/internal/audit"
	"leavedesk/internal/domain"
)

type fakeAuditRepository struct {
	createFn func(ctx context.Context, e *audit.Entry) error
	entries  []audit.Entry
}

func (f *fakeAuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, e); err != nil {
			return err
		}
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAuditRepository) FindByEntity(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	return f.entries, nil
}

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("persists entry", func(t *testing.T) {
		repo := &fakeAuditRepository{}
		recorder := audit.NewRecorder(repo, zap.NewNop())

		actorID := "u-1"
		recorder.Record(ctx, audit.Entry{
			ActorID:     &actorID,
			EntityType:  "leave_request",
			EntityID:    "42",
			Action:      domain.ActionApprove,
			PerformedBy: "manager@x",
			Status:      audit.StatusSuccess,
		})

		assert.Len(t, repo.entries, 1)
		assert.Equal(t, audit.StatusSuccess, repo.entries[0].Status)
	})

	t.Run("store failure is swallowed", func(t *testing.T) {
		repo := &fakeAuditRepository{
			createFn: func(ctx context.Context, e *audit.Entry) error {
				return errors.New("sink unavailable")
			},
		}
		recorder := audit.NewRecorder(repo, zap.NewNop())

		assert.NotPanics(t, func() {
			recorder.Record(ctx, audit.Entry{
				EntityType:  "leave_request",
				EntityID:    "42",
				Action:      domain.ActionSoftDelete,
				PerformedBy: "admin@x",
				Status:      audit.StatusSuccess,
			})
		})
		assert.Empty(t, repo.entries)
	})
}

func TestRecorder_RecordForbidden(t *testing.T) {
	ctx := context.Background()
	repo := &fakeAuditRepository{}
	recorder := audit.NewRecorder(repo, zap.NewNop())

	actor := domain.Principal{ID: "u-9", Email: "user@x", Role: domain.RoleUser}
	recorder.RecordForbidden(ctx, actor, domain.ActionArchive, "leave_request", "7", []string{domain.RoleAdmin})

	assert.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, audit.StatusFailure, entry.Status)
	assert.Equal(t, "user@x", entry.PerformedBy)
	assert.Equal(t, "u-9", *entry.ActorID)
	assert.NotNil(t, entry.Reason)
	assert.Contains(t, *entry.Reason, domain.RoleUser)

	var meta map[string]string
	assert.NoError(t, json.Unmarshal(entry.Metadata, &meta))
	assert.Equal(t, domain.RoleAdmin, meta["required_roles"])
}

func TestRecorder_RecordUnauthorized(t *testing.T) {
	ctx := context.Background()
	repo := &fakeAuditRepository{}
	recorder := audit.NewRecorder(repo, zap.NewNop())

	recorder.RecordUnauthorized(ctx, nil, domain.ActionRestore, "leave_request", "3")

	assert.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, audit.StatusFailure, entry.Status)
	assert.Equal(t, "anonymous", entry.PerformedBy)
	assert.Nil(t, entry.ActorID)
}
