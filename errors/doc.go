// Package errors provides structured error types for wasm-asserts.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a location path, a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCodegen, errors.KindTypeMismatch).
//		Path("assert_3", "add").
//		Detail("argument 1: expected i32, got f64").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseCodegen, "export", "add")
//	err := errors.Assertion(3, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
