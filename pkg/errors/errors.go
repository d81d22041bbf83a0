package errors

import (
	"fmt"
	"runtime"
	"time"
)

// Error carries a validated code plus message, optional cause, structured
// context, and the stack captured at construction.
type Error struct {
	Code      Code
	Message   string
	Cause     error
	Context   map[string]string
	Stack     []Frame
	Timestamp time.Time
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

// New creates an Error. Code is the compulsory first argument; cause may be
// nil when there is no underlying error to preserve.
func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Stack:     captureStackTrace(),
	}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithAdditional annotates an error while preserving its code, message,
// cause, stack, and timestamp. Each call lands under the next free
// additional_N context key. Foreign errors are lifted into an Error under
// CommonInternal first.
func WithAdditional(cause error, format string, args ...interface{}) *Error {
	if base, ok := cause.(*Error); ok {
		annotated := &Error{
			Code:      base.Code,
			Message:   base.Message,
			Cause:     base.Cause,
			Context:   make(map[string]string, len(base.Context)+1),
			Stack:     base.Stack,
			Timestamp: base.Timestamp,
		}

		for k, v := range base.Context {
			annotated.Context[k] = v
		}

		nextIndex := 0
		for {
			if _, exists := annotated.Context[fmt.Sprintf("additional_%d", nextIndex)]; !exists {
				break
			}
			nextIndex++
		}
		annotated.Context[fmt.Sprintf("additional_%d", nextIndex)] = fmt.Sprintf(format, args...)

		return annotated
	}

	annotated := New(CommonInternal, fmt.Sprintf(format, args...), cause)
	annotated.AddContext("additional_0", fmt.Sprintf(format, args...))
	return annotated
}

// Methods on *Error for chaining - only essential ones
func (e *Error) AddContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// Error methods
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func captureStackTrace() []Frame {
	var frames []Frame
	for i := 1; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		frames = append(frames, Frame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}
	return frames
}
