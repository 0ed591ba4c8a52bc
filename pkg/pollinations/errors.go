package pollinations

import (
	"errors"
	"fmt"
)

// ErrEmptyContent is wrapped by a RequestError when a response parsed
// correctly but carried no assistant content at choices[0].message.content.
var ErrEmptyContent = errors.New("response has no content")

// errMissingChoices marks a 2xx body with no choices field (for example a
// JSON null). It is treated like any other malformed body and retried.
var errMissingChoices = errors.New("malformed response: no choices field")

// RequestError reports a failure between building a request and extracting
// its result: transport errors, timeouts, non-2xx statuses, malformed bodies
// and missing content. Err holds the underlying cause.
type RequestError struct {
	Op  string // "send" or "list models".
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("pollinations: %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
