package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad      Phase = "load"      // model loading
	PhaseEncode    Phase = "encode"    // host value to tagged value
	PhaseDecode    Phase = "decode"    // tagged value to host value
	PhaseWire      Phase = "wire"      // binary frame codec
	PhaseExecute   Phase = "execute"   // engine forward
	PhaseLifecycle Phase = "lifecycle" // module handle state
	PhaseBridge    Phase = "bridge"    // method channel dispatch
)

// Kind categorizes the error
type Kind string

const (
	KindLoad               Kind = "load"
	KindUnsupportedType    Kind = "unsupported_type"
	KindUnsupportedKeyType Kind = "unsupported_key_type"
	KindEmptyCollection    Kind = "empty_collection_type_ambiguity"
	KindIncompatibleLayout Kind = "incompatible_layout"
	KindExecution          Kind = "execution"
	KindUseAfterDestroy    Kind = "use_after_destroy"
	KindUnknownTag         Kind = "unknown_type_tag"
	KindVersionMismatch    Kind = "version_mismatch"
	KindInvalidData        Kind = "invalid_data"
	KindInvalidUTF8        Kind = "invalid_utf8"
	KindOverflow           Kind = "overflow"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
)

// Sentinels for errors.Is. They match on Kind only.
var (
	ErrLoad               = &Error{Kind: KindLoad}
	ErrUnsupportedType    = &Error{Kind: KindUnsupportedType}
	ErrUnsupportedKeyType = &Error{Kind: KindUnsupportedKeyType}
	ErrEmptyCollection    = &Error{Kind: KindEmptyCollection}
	ErrIncompatibleLayout = &Error{Kind: KindIncompatibleLayout}
	ErrExecution          = &Error{Kind: KindExecution}
	ErrUseAfterDestroy    = &Error{Kind: KindUseAfterDestroy}
	ErrUnknownTag         = &Error{Kind: KindUnknownTag}
	ErrVersionMismatch    = &Error{Kind: KindVersionMismatch}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Tag    string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Tag != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Tag != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", tag ")
			b.WriteString(e.Tag)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("tag ")
			b.WriteString(e.Tag)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Tag != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// An empty Phase on the target matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the element path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Tag sets the type tag name
func (b *Builder) Tag(t string) *Builder {
	b.err.Tag = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the bridge error taxonomy

// Load creates a model loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoad,
		Detail: detail,
		Cause:  cause,
	}
}

// UnsupportedType creates an error for a host value with no type tag
func UnsupportedType(path []string, goType string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindUnsupportedType,
		Path:   path,
		GoType: goType,
		Detail: "no type tag for value",
	}
}

// UnsupportedKeyType creates an error for a dictionary whose keys are not
// all strings or all 64-bit integers
func UnsupportedKeyType(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindUnsupportedKeyType,
		Path:   path,
		Detail: detail,
	}
}

// EmptyCollection creates an error for an empty collection whose element
// type cannot be inferred
func EmptyCollection(path []string, goType string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindEmptyCollection,
		Path:   path,
		GoType: goType,
		Detail: "empty collection needs a type hint",
	}
}

// IncompatibleLayout creates a tensor layout error
func IncompatibleLayout(path []string, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindIncompatibleLayout,
		Path:   path,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Execution wraps an engine failure during forward
func Execution(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindExecution,
		Detail: detail,
		Cause:  cause,
	}
}

// UseAfterDestroy creates a lifecycle violation error
func UseAfterDestroy(what string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindUseAfterDestroy,
		Detail: what + " called on destroyed module",
	}
}

// UnknownTag creates an error for a type tag outside the closed enumeration
func UnknownTag(phase Phase, path []string, tag uint8) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownTag,
		Path:   path,
		Detail: fmt.Sprintf("type tag %d is not defined", tag),
		Value:  tag,
	}
}

// VersionMismatch creates a wire schema version error
func VersionMismatch(got, want uint8) *Error {
	return &Error{
		Phase:  PhaseWire,
		Kind:   KindVersionMismatch,
		Detail: fmt.Sprintf("frame version %d, expected %d", got, want),
		Value:  got,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Tag:    targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Append returns path extended by elem without aliasing the caller's slice.
func Append(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}
