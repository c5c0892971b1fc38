package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/AlexZinkM/agent-wallet/internal/errors"
	"github.com/AlexZinkM/agent-wallet/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError renders err as model.ErrorResponse with a status derived from
// its code.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), model.ErrorResponse{
		Error:       err.Error(),
		Code:        string(apperrors.CodeOf(err)),
		Category:    string(apperrors.CategoryOf(err)),
		Recoverable: apperrors.Recoverable(err),
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, apperrors.New(apperrors.CodeInvalidArgument, msg))
}

func statusOf(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument, apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeAuthentication:
		return http.StatusUnauthorized
	case apperrors.CodePermissionDenied:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAlreadyExists, apperrors.CodeState:
		return http.StatusConflict
	case apperrors.CodeLimitExceeded, apperrors.CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case apperrors.CodeRateLimited, apperrors.CodePoolBusy:
		return http.StatusTooManyRequests
	case apperrors.CodeNotSupported:
		return http.StatusNotImplemented
	case apperrors.CodeNetwork, apperrors.CodeRPC, apperrors.CodeRetriesExhausted:
		return http.StatusBadGateway
	case apperrors.CodeNoHealthyEndpoint:
		return http.StatusServiceUnavailable
	case apperrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return false
	}
	http.Error(w, "Method not allowed. Should be "+method, http.StatusMethodNotAllowed)
	return true
}
