package geocode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyAddress is returned by ValidateAddress for empty or whitespace-only input.
var ErrEmptyAddress = errors.New("address is empty")

// HTTPError captures an unexpected provider status code and response body.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// ValidateAddress reports ErrEmptyAddress when address has no visible text.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return ErrEmptyAddress
	}
	return nil
}
