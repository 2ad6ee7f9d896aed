// Package errors provides the structured error type used throughout the
// dispatch table builder.
//
// Errors are categorized by Phase (which component raised them) and Kind
// (the structural-assertion / missing-metadata / unresolved-target taxonomy).
// The Error type carries a field path and a cause chain so a fault can be
// traced back to the selector, class-id, or range that triggered it.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRangeBuild, errors.KindStructuralAssertion).
//		Path("selector", "42").
//		Detail("overlapping target ranges").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.RangeOverlap(selectorID, a, b)
//	err := errors.MissingMetadataFor(errors.PhaseRegistry, "member", name)
//
// Every error returned by this package is a compiler-bug signal: there is no
// recovery path, callers abort the compilation. All errors implement the
// standard error interface and support errors.Is/As.
package errors
