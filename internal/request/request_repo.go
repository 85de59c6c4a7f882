package request

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	Status         string
	IncludeDeleted bool
}

// Repository mixes two access paths on purpose: the transition path runs raw
// SQL through the caller's *sql.Tx so FOR UPDATE actually binds to the
// transaction, while read-only dashboard queries go through gorm.
//
//go:generate mockgen -source=request_repo.go -destination=mock/request_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, lr *LeaveRequest) error
	// FindByIDForUpdate loads one row under a row-level lock so concurrent
	// transitions on the same id serialize. Returns sql.ErrNoRows when the
	// id does not exist or was purged.
	FindByIDForUpdate(ctx context.Context, id int64) (*LeaveRequest, error)
	Save(ctx context.Context, lr *LeaveRequest) error
	FindByID(ctx context.Context, id int64) (*LeaveRequest, error)
	FindMany(ctx context.Context, f ListFilter, page, pageSize int) ([]LeaveRequest, int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// DeleteExpired physically removes soft-deleted rows whose grace
	// period ended before cutoff. Only the purge worker calls this.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	gdb *gorm.DB
	db  *sql.DB
	tx  *sql.Tx
}

func NewRepository(gdb *gorm.DB, db *sql.DB) Repository {
	return &repository{gdb: gdb, db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{gdb: r.gdb, db: r.db, tx: tx}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) execer() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const requestColumns = `
	id, employee_name, manager_name, leave_type, shift_type,
	start_date, end_date, duration_days, reason, submitted_at,
	status, previous_status, admin_notes,
	approved_by, approved_at, denied_by, denied_at,
	archived_by, archived_at, archive_reason, unarchived_by, unarchived_at,
	deleted_by, deleted_at, delete_reason, restored_by, restored_at,
	created_at, updated_at
`

func scanRequest(row *sql.Row) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := row.Scan(
		&lr.ID, &lr.EmployeeName, &lr.ManagerName, &lr.LeaveType, &lr.ShiftType,
		&lr.StartDate, &lr.EndDate, &lr.DurationDays, &lr.Reason, &lr.SubmittedAt,
		&lr.Status, &lr.PreviousStatus, &lr.AdminNotes,
		&lr.ApprovedBy, &lr.ApprovedAt, &lr.DeniedBy, &lr.DeniedAt,
		&lr.ArchivedBy, &lr.ArchivedAt, &lr.ArchiveReason, &lr.UnarchivedBy, &lr.UnarchivedAt,
		&lr.DeletedBy, &lr.DeletedAt, &lr.DeleteReason, &lr.RestoredBy, &lr.RestoredAt,
		&lr.CreatedAt, &lr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *repository) Create(ctx context.Context, lr *LeaveRequest) error {
	query := `
        INSERT INTO leave_requests (
            employee_name, manager_name, leave_type, shift_type,
            start_date, end_date, duration_days, reason, submitted_at,
            status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
        RETURNING id
    `

	return r.execer().QueryRowContext(
		ctx, query,
		lr.EmployeeName, lr.ManagerName, lr.LeaveType, lr.ShiftType,
		lr.StartDate, lr.EndDate, lr.DurationDays, lr.Reason, lr.SubmittedAt,
		lr.Status,
	).Scan(&lr.ID)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id int64) (*LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(r.execer().QueryRowContext(ctx, query, id))
}

func (r *repository) Save(ctx context.Context, lr *LeaveRequest) error {
	query := `
        UPDATE leave_requests SET
            status = $2, previous_status = $3, admin_notes = $4,
            approved_by = $5, approved_at = $6, denied_by = $7, denied_at = $8,
            archived_by = $9, archived_at = $10, archive_reason = $11,
            unarchived_by = $12, unarchived_at = $13,
            deleted_by = $14, deleted_at = $15, delete_reason = $16,
            restored_by = $17, restored_at = $18,
            updated_at = NOW()
        WHERE id = $1
    `

	res, err := r.execer().ExecContext(
		ctx, query,
		lr.ID,
		lr.Status, lr.PreviousStatus, lr.AdminNotes,
		lr.ApprovedBy, lr.ApprovedAt, lr.DeniedBy, lr.DeniedAt,
		lr.ArchivedBy, lr.ArchivedAt, lr.ArchiveReason,
		lr.UnarchivedBy, lr.UnarchivedAt,
		lr.DeletedBy, lr.DeletedAt, lr.DeleteReason,
		lr.RestoredBy, lr.RestoredAt,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := r.gdb.WithContext(ctx).First(&lr, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *repository) FindMany(ctx context.Context, f ListFilter, page, pageSize int) ([]LeaveRequest, int64, error) {
	db := r.gdb.WithContext(ctx).Model(&LeaveRequest{})

	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	} else if !f.IncludeDeleted {
		db = db.Where("status <> ?", StatusDeleted)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []LeaveRequest
	err := db.
		Order("submitted_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error
	return requests, total, err
}

func (r *repository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var rows []statusCount
	err := r.gdb.WithContext(ctx).
		Model(&LeaveRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM leave_requests WHERE status = $1 AND deleted_at < $2`

	res, err := r.execer().ExecContext(ctx, query, StatusDeleted, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
