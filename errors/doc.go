// Package errors provides the structured error type used across the
// compiler pipeline's phases (parse, decode, validate, compile).
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category), with an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCompile, errors.KindUnsupported).
//		Detail("i64 result").
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
