package errors

import (
	"fmt"
	"strings"
)

// Phase names the component that raised the error.
type Phase string

const (
	PhaseRegistry   Phase = "registry"   // SelectorRegistry
	PhaseRangeBuild Phase = "rangebuild" // TargetRangeBuilder
	PhaseSignature  Phase = "signature"  // SignatureSynthesizer
	PhasePack       Phase = "pack"       // RowDisplacementPacker
	PhaseEmit       Phase = "emit"       // TableEmitter
	PhaseBuild      Phase = "build"      // orchestrator phase-ordering
	PhaseLoad       Phase = "load"       // program description loading
)

// Kind categorizes the error.
type Kind string

const (
	// KindStructuralAssertion marks an internal invariant violation: range
	// overlap, isSetter disagreement, signature queried before ranges are
	// final, a phase run out of order. Always a programmer fault.
	KindStructuralAssertion Kind = "structural_assertion"
	// KindMissingMetadata marks a reachable member with no front-end
	// metadata (no call-count entry, no procedure attributes).
	KindMissingMetadata Kind = "missing_metadata"
	// KindUnresolvedTarget marks an emission-time failure to resolve a
	// function object for a reference whose class is concrete and loaded.
	KindUnresolvedTarget Kind = "unresolved_target"
)

// Error is the structured error type used throughout the builder.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error's phase and kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path.
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value.
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common fault patterns.

// RangeOverlap reports two target ranges of the same selector that overlap
// or are out of order — a TargetRangeBuilder invariant violation.
func RangeOverlap(selectorID uint32, a, b [2]uint32) *Error {
	return New(PhaseRangeBuild, KindStructuralAssertion).
		Path("selector", fmt.Sprint(selectorID)).
		Detail("overlapping target ranges [%d,%d] and [%d,%d]", a[0], a[1], b[0], b[1]).
		Build()
}

// SetterDisagreement reports two targets merged into the same selector that
// disagree on whether the member is a setter.
func SetterDisagreement(selectorID uint32) *Error {
	return New(PhaseRegistry, KindStructuralAssertion).
		Path("selector", fmt.Sprint(selectorID)).
		Detail("merged targets disagree on isSetter").
		Build()
}

// UnknownSelector reports a selectorForTarget lookup for a reference whose
// selector was never created by getOrCreate.
func UnknownSelector(refName string) *Error {
	return New(PhaseRegistry, KindStructuralAssertion).
		Path("reference", refName).
		Detail("selector looked up before creation").
		Build()
}

// SignatureTooEarly reports a signature read before targetRanges is final.
func SignatureTooEarly(selectorID uint32) *Error {
	return New(PhaseSignature, KindStructuralAssertion).
		Path("selector", fmt.Sprint(selectorID)).
		Detail("signature computed before target ranges were finalized").
		Build()
}

// PhaseOutOfOrder reports an orchestrator phase invoked before its
// predecessor completed.
func PhaseOutOfOrder(got, want string) *Error {
	return New(PhaseBuild, KindStructuralAssertion).
		Detail("phase %q invoked before %q completed", got, want).
		Build()
}

// MissingMetadataFor reports a reachable member with no front-end metadata.
func MissingMetadataFor(phase Phase, what, name string) *Error {
	return New(phase, KindMissingMetadata).
		Detail("%s %q has no front-end metadata", what, name).
		Build()
}

// UnresolvedTarget reports an emission-time failure to resolve a function
// object for a reference whose class is concrete and loaded.
func UnresolvedTarget(refName string) *Error {
	return New(PhaseEmit, KindUnresolvedTarget).
		Path("reference", refName).
		Detail("getExistingFunction returned none for a loaded, concrete target").
		Build()
}

// Wrap wraps an existing error with additional context.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
