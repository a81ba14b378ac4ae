package http

import (
	"context"
	"errors"
	"net/http"

	"zenbank/internal/core"
	"zenbank/internal/log"
	"zenbank/internal/session"
)

// Error codes returned in the "code" field.
const (
	CodeBadRequest         = "bad_request"
	CodeValidation         = "validation_error"
	CodeInvalidAmount      = "invalid_amount"
	CodeInvalidType        = "invalid_transaction_type"
	CodeUnauthorized       = "unauthorized"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidSession     = "invalid_session"
	CodeSessionExpired     = "session_expired"
	CodeIncorrectPIN       = "incorrect_pin"
	CodeNotFound           = "not_found"
	CodeUsernameTaken      = "username_taken"
	CodeInsufficientFunds  = "insufficient_funds"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
)

// errBadRequest marks malformed request bodies and query strings.
var errBadRequest = errors.New("malformed request")

// errorResponse maps a service error to its HTTP response.
func errorResponse(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return NewJSONResponse().
			Status(http.StatusBadRequest).
			Payload(errorBody{Error: verr.Error(), Code: CodeValidation, Field: verr.Field})
	case errors.Is(err, errBadRequest):
		return BadRequestError(err.Error())
	case errors.Is(err, core.ErrInvalidAmount):
		return ErrorResponse(http.StatusBadRequest, CodeInvalidAmount, "amount must be positive with at most two decimals")
	case errors.Is(err, core.ErrInvalidTransactionType):
		return ErrorResponse(http.StatusBadRequest, CodeInvalidType, "type must be deposit or withdrawal")
	case errors.Is(err, core.ErrInvalidCredentials):
		return UnauthorizedError(CodeInvalidCredentials, core.ErrInvalidCredentials.Error())
	case errors.Is(err, session.ErrExpired):
		return UnauthorizedError(CodeSessionExpired, "session expired after inactivity")
	case errors.Is(err, session.ErrNotFound):
		return UnauthorizedError(CodeInvalidSession, "invalid session")
	case errors.Is(err, core.ErrIncorrectPIN):
		return ErrorResponse(http.StatusForbidden, CodeIncorrectPIN, core.ErrIncorrectPIN.Error())
	case errors.Is(err, core.ErrUserNotFound):
		return ErrorResponse(http.StatusNotFound, CodeNotFound, core.ErrUserNotFound.Error())
	case errors.Is(err, core.ErrUsernameTaken):
		return ErrorResponse(http.StatusConflict, CodeUsernameTaken, core.ErrUsernameTaken.Error())
	case errors.Is(err, core.ErrInsufficientFunds):
		return ErrorResponse(http.StatusUnprocessableEntity, CodeInsufficientFunds, core.ErrInsufficientFunds.Error())
	default:
		return InternalServerError()
	}
}

// writeError sends the mapped response and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	b := errorResponse(err)
	if b.statusCode >= http.StatusInternalServerError {
		errorType := log.ErrorTypeInternal
		if errors.Is(err, context.DeadlineExceeded) {
			errorType = log.ErrorTypeTimeout
		}
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, errorType, nil)
	}
	b.Write(w)
}
