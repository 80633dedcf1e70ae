package errors

import (
	"net/http"
	"strings"
)

// ProblemContentType is the media type used for error bodies.
const ProblemContentType = "application/problem+json"

const problemTypePrefix = "/problems/"

// Problem is the problem-detail payload returned for every failed request.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

var problemTitles = map[string]string{
	ErrValidation.Code:           "Validation failed",
	ErrUnprocessable.Code:        "Unprocessable request",
	ErrInvalidVersionToken.Code:  "Malformed version token",
	ErrBulkRequest.Code:          "Invalid bulk request",
	ErrUnauthorized.Code:         "Authentication required",
	ErrForbidden.Code:            "Access denied",
	ErrNotFound.Code:             "Resource not found",
	ErrVersionConflict.Code:      "Version conflict",
	ErrPreconditionRequired.Code: "Precondition required",
	ErrRateLimited.Code:          "Too many requests",
	ErrInternal.Code:             "Internal server error",
	ErrDependencyFailure.Code:    "Service unavailable",
}

// ToProblem converts an error into its problem-detail payload. Details of 5xx
// errors are replaced by a generic message; 4xx details pass through.
func ToProblem(err error, instance string) Problem {
	appErr := FromError(err)
	if appErr == nil {
		appErr = ErrInternal
	}

	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	code := appErr.Code
	if code == "" {
		code = ErrInternal.Code
	}

	title, ok := problemTitles[code]
	if !ok {
		title = http.StatusText(status)
	}

	detail := appErr.Message
	if status >= http.StatusInternalServerError {
		detail = genericDetail(status)
	}

	return Problem{
		Type:     problemTypePrefix + kebab(code),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

func genericDetail(status int) string {
	if status == http.StatusServiceUnavailable {
		return ErrDependencyFailure.Message
	}
	return ErrInternal.Message
}

func kebab(code string) string {
	return strings.ReplaceAll(strings.ToLower(code), "_", "-")
}
