package requesterrors

import (
	"net/http"

	"leavedesk/internal/shared/apperror"
)

var (
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"Request not found",
		http.StatusNotFound,
	)
	ErrForbidden = apperror.New(
		apperror.CodeForbidden,
		"You do not have permission to perform this action",
		http.StatusForbidden,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must be before or equal end_date",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrDeleteReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"Reason is required to delete a request",
		http.StatusBadRequest,
	)
	ErrDuplicateSubmission = apperror.New(
		apperror.CodeConflict,
		"An identical request is already pending",
		http.StatusConflict,
	)
)

// Invalid-transition rejections. The message strings are part of the
// external contract: callers match on them for user messaging, so they must
// not change.
var (
	ErrNotPending = invalidTransition("Request is not pending")

	ErrAlreadyArchived = invalidTransition("Request is already archived")
	ErrArchiveDeleted  = invalidTransition("Request is deleted")
	ErrNotArchived     = invalidTransition("Request is not archived")

	ErrAlreadyDeleted = invalidTransition("Request is already deleted")
	ErrNotDeleted     = invalidTransition("Request is not deleted")
	ErrRestoreExpired = invalidTransition("Cannot restore request deleted more than 7 days ago")
)

func invalidTransition(reason string) *apperror.AppError {
	return apperror.New(apperror.CodeInvalidState, reason, http.StatusBadRequest)
}
