package recipes

import "unicode/utf8"

// Content length bounds, inclusive, counted in Unicode code points.
const (
	MinContentLength = 10
	MaxContentLength = 2000
)

// ValidationError carries a message that is safe to return to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrContentRequired = &ValidationError{Message: "content required."}
	ErrContentTooShort = &ValidationError{Message: "content too short."}
	ErrContentTooLong  = &ValidationError{Message: "content too long."}
)

// ValidateContent checks recipe content. A nil content means the field was
// absent or not a string.
func ValidateContent(content *string) error {
	if content == nil {
		return ErrContentRequired
	}

	n := utf8.RuneCountInString(*content)
	switch {
	case n < MinContentLength:
		return ErrContentTooShort
	case n > MaxContentLength:
		return ErrContentTooLong
	}

	return nil
}
