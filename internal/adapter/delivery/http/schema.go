package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/swooosh/internal/entity"
)

// Error paths and types carried by errorResponse.
const (
	errorPathOther = "other"

	errorTypeEmpty   = "empty"
	errorTypeInvalid = "invalid"
	errorTypeServer  = "server"
	errorTypeRate    = "rate"
)

// createRequest represents the structure for a request to create a short link.
type createRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// urlResponse represents the structure for a response containing a short link record.
type urlResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toURLResponse(url *entity.URL) urlResponse {
	return urlResponse{
		ID:        url.ID,
		URL:       url.URL,
		Clicks:    url.Clicks,
		CreatedAt: url.CreatedAt,
		UpdatedAt: url.UpdatedAt,
	}
}

type errorDetail struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// errorResponse is the JSON error body of the mutation endpoint, e.g.
// {"error":{"path":"other","type":"rate"}}.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

func newErrorResponse(path, typ string) errorResponse {
	return errorResponse{Error: errorDetail{Path: path, Type: typ}}
}

var (
	emptyRequestBodyResponse   = newErrorResponse(errorPathOther, errorTypeEmpty)
	invalidRequestBodyResponse = newErrorResponse(errorPathOther, errorTypeInvalid)
	serverErrorResponse        = newErrorResponse(errorPathOther, errorTypeServer)
	rateLimitedResponse        = newErrorResponse(errorPathOther, errorTypeRate)
)

// validationErrorResponse points at the first field that failed validation.
func validationErrorResponse(err error) errorResponse {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return newErrorResponse(errs[0].Field(), errorTypeInvalid)
	}

	return invalidRequestBodyResponse
}
