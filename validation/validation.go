package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nijaru/yt-audio/errors"
)

const DefaultMaxURLLength = 2048

type Validator struct {
	maxURLLength int
}

func NewValidator() *Validator {
	return &Validator{maxURLLength: DefaultMaxURLLength}
}

// RequiredQuery returns the trimmed query parameter key. The value itself is
// not interpreted; malformed URLs fail later at the provider.
func (v *Validator) RequiredQuery(r *http.Request, key string) (string, error) {
	const op = "Validator.RequiredQuery"

	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return "", errors.InvalidInput(op, nil, fmt.Sprintf("%s is required", key))
	}

	if v.maxURLLength > 0 && len(value) > v.maxURLLength {
		return "", errors.InvalidInput(op, nil, fmt.Sprintf("%s is too long", key))
	}

	return value, nil
}

// RequestValidationOpts holds options for request validation
type RequestValidationOpts struct {
	MaxContentLength int64
	AllowedMethods   []string
}

// ValidateRequest validates HTTP requests
func (v *Validator) ValidateRequest(r *http.Request, opts RequestValidationOpts) error {
	const op = "Validator.ValidateRequest"

	if len(opts.AllowedMethods) > 0 {
		methodAllowed := false
		for _, method := range opts.AllowedMethods {
			if r.Method == method {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			return errors.InvalidInput(op, nil, fmt.Sprintf("Method %s not allowed", r.Method))
		}
	}

	if opts.MaxContentLength > 0 && r.ContentLength > opts.MaxContentLength {
		return errors.InvalidInput(op, nil, "Request body too large")
	}

	return nil
}
