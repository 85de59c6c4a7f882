package request

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	requesterrors "leavedesk/internal/request/errors"
)

func mapCreateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == "uq_leave_requests_pending_submission" {
			return requesterrors.ErrDuplicateSubmission
		}
		return internalError(err)
	}

	// Drivers that do not surface *pgconn.PgError still report the
	// constraint in the message text.
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_leave_requests_pending_submission") {
		return requesterrors.ErrDuplicateSubmission
	}

	return internalError(err)
}
