package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrEmptyPersonalNumber is returned when login is attempted with a blank personal number.
	ErrEmptyPersonalNumber = errors.New("please enter a personal number")
	// ErrUnknownPersonalNumber is returned when no user matches the personal number.
	ErrUnknownPersonalNumber = errors.New("unregistered personal number, contact an administrator")
	// ErrAccountDisabled is returned when the matched account is not active.
	ErrAccountDisabled = errors.New("account is disabled, contact an administrator")
	// ErrUserExists is returned when creating a user with a duplicate personal number.
	ErrUserExists = errors.New("personal number already exists")
	// ErrUserNotFound is returned when a user lookup finds no row.
	ErrUserNotFound = errors.New("user not found")
	// ErrTeamExists is returned when creating a team with a duplicate name.
	ErrTeamExists = errors.New("team name already exists")
	// ErrEmptyTeamName is returned when creating a team without a name.
	ErrEmptyTeamName = errors.New("please enter a team name")
	// ErrTeamNotFound is returned when a team lookup finds no row.
	ErrTeamNotFound = errors.New("team not found")
	// ErrBlockNotFound is returned when a block lookup finds no row.
	ErrBlockNotFound = errors.New("block not found")
	// ErrNotOwner is returned when a block mutation is attempted by a non-owner.
	ErrNotOwner = errors.New("only the block owner may modify it")
	// ErrNotAuthenticated is returned when no valid session backs the request.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the session's role is insufficient.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrNothingToUpdate is returned when an update carries no recognised fields.
	ErrNothingToUpdate = errors.New("nothing to update")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrEmptyPersonalNumber):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "EMPTY_PERSONAL_NUMBER")
	case errors.Is(err, ErrUnknownPersonalNumber):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "UNKNOWN_PERSONAL_NUMBER")
	case errors.Is(err, ErrAccountDisabled):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ACCOUNT_DISABLED")
	case errors.Is(err, ErrUserExists):
		return NewHTTPError(http.StatusConflict, err.Error(), "USER_EXISTS")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrTeamExists):
		return NewHTTPError(http.StatusConflict, err.Error(), "TEAM_EXISTS")
	case errors.Is(err, ErrEmptyTeamName):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "EMPTY_TEAM_NAME")
	case errors.Is(err, ErrTeamNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "TEAM_NOT_FOUND")
	case errors.Is(err, ErrBlockNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "BLOCK_NOT_FOUND")
	case errors.Is(err, ErrNotOwner):
		return NewHTTPError(http.StatusForbidden, err.Error(), "NOT_OWNER")
	case errors.Is(err, ErrNotAuthenticated):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "NOT_AUTHENTICATED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNothingToUpdate):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "NOTHING_TO_UPDATE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
