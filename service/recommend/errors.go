package recommend

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrInvalidPrompt is returned before any provider call when the prompt is
// missing or blank.
var ErrInvalidPrompt = errors.New("invalid prompt")

// Kind classifies a generation failure for the caller.
type Kind int

const (
	Failure Kind = iota
	CredentialMissing
	ModelMisconfigured
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case CredentialMissing:
		return "credential_missing"
	case ModelMisconfigured:
		return "model_misconfigured"
	case RateLimited:
		return "rate_limited"
	default:
		return "failure"
	}
}

// Message is the user-facing text for k.
func (k Kind) Message() string {
	switch k {
	case CredentialMissing:
		return "Language model API key is missing or invalid"
	case ModelMisconfigured:
		return "Invalid model configuration"
	case RateLimited:
		return "API rate limit exceeded. Please try again later."
	default:
		return "Failed to generate playlist. Please try again."
	}
}

func (k Kind) HTTPStatus() int {
	if k == RateLimited {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or Failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Failure
}

// classify maps a provider error to a Kind by its HTTP status. Errors with
// no status fall back to matching on the message text.
func classify(err error) Kind {
	status, msg := 0, err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CredentialMissing
	case status == http.StatusNotFound:
		return ModelMisconfigured
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "model"):
		return ModelMisconfigured
	case status != 0:
		return Failure
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key"):
		return CredentialMissing
	case strings.Contains(lower, "model"):
		return ModelMisconfigured
	case strings.Contains(lower, "rate limit"):
		return RateLimited
	}
	return Failure
}
