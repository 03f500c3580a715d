package bridge

import "fmt"

// Method names understood by Plugin.Handle.
const (
	MethodLoad    = "load"
	MethodForward = "forward"
	MethodDestroy = "destroy"
)

// Argument keys.
const (
	ArgFilePath = "filePath"
	ArgModuleID = "moduleId"
	ArgInputs   = "inputs"
)

// Error codes reported to the host.
const (
	CodeLoadError    = "loadError"
	CodeForwardError = "forwardError"
)

// MethodCall is one request from the host.
type MethodCall struct {
	Arguments map[string]any
	Method    string
}

// Result is the answer to a MethodCall. Exactly one of Value, Err and
// NotImplemented is meaningful; a nil Value with no error is a valid
// success.
type Result struct {
	Value          any
	Err            *Error
	NotImplemented bool
}

// Success reports whether the call completed without an error.
func (r Result) Success() bool {
	return r.Err == nil && !r.NotImplemented
}

// Error is a failed call as seen by the host: a stable code, a fixed
// message and the underlying cause.
type Error struct {
	Details error
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Details)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Details
}

func success(v any) Result {
	return Result{Value: v}
}

func failure(code, msg string, cause error) Result {
	return Result{Err: &Error{Code: code, Message: msg, Details: cause}}
}
