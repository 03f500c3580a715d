// Package errors provides structured error types for the tensor bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: element path, Go type, type tag and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindUnsupportedType).
//		Path("inputs", "[1]").
//		GoType("chan int").
//		Detail("no type tag for value").
//		Build()
//
// Or use convenience constructors for the bridge taxonomy:
//
//	err := errors.Load("read model file", cause)
//	err := errors.UnknownTag(errors.PhaseDecode, path, 99)
//
// Callers match categories with the phase-less sentinels:
//
//	if errors.Is(err, errors.ErrUseAfterDestroy) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
