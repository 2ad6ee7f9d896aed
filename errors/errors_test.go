package errors

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseRangeBuild,
				Kind:   KindStructuralAssertion,
				Path:   []string{"selector", "42"},
				Detail: "overlapping target ranges",
			},
			contains: []string{"[rangebuild]", "structural_assertion", "selector.42", "overlapping target ranges"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseEmit,
				Kind:  KindUnresolvedTarget,
			},
			contains: []string{"[emit]", "unresolved_target"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindMissingMetadata,
				Detail: "no such file",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "missing_metadata", "no such file", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !containsSubstring(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhasePack,
		Kind:  KindStructuralAssertion,
		Cause: cause,
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestError_Is(t *testing.T) {
	a := &Error{Phase: PhaseRegistry, Kind: KindStructuralAssertion}
	b := &Error{Phase: PhaseRegistry, Kind: KindStructuralAssertion, Detail: "different detail"}
	c := &Error{Phase: PhaseRegistry, Kind: KindMissingMetadata}

	if !errors.Is(a, b) {
		t.Error("expected a.Is(b) to match on phase+kind regardless of detail")
	}
	if errors.Is(a, c) {
		t.Error("expected a.Is(c) not to match on different kind")
	}
	if errors.Is(a, errors.New("plain error")) {
		t.Error("expected a.Is(plain error) to be false")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseSignature, KindStructuralAssertion).
		Path("selector", "7").
		Value(7).
		Detail("signature computed before ranges finalized").
		Build()

	if err.Phase != PhaseSignature {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseSignature)
	}
	if err.Kind != KindStructuralAssertion {
		t.Errorf("Kind = %v, want %v", err.Kind, KindStructuralAssertion)
	}
	if err.Value != 7 {
		t.Errorf("Value = %v, want 7", err.Value)
	}
}

func TestBuilder_DetailWithArgs(t *testing.T) {
	err := New(PhaseRangeBuild, KindStructuralAssertion).
		Detail("selector %d has %d overlapping ranges", 9, 2).
		Build()

	want := "selector 9 has 2 overlapping ranges"
	if err.Detail != want {
		t.Errorf("Detail = %q, want %q", err.Detail, want)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("RangeOverlap", func(t *testing.T) {
		err := RangeOverlap(3, [2]uint32{0, 2}, [2]uint32{1, 4})
		if err.Phase != PhaseRangeBuild || err.Kind != KindStructuralAssertion {
			t.Fatalf("unexpected phase/kind: %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("SetterDisagreement", func(t *testing.T) {
		err := SetterDisagreement(5)
		if err.Kind != KindStructuralAssertion {
			t.Fatalf("Kind = %v, want %v", err.Kind, KindStructuralAssertion)
		}
	})

	t.Run("UnknownSelector", func(t *testing.T) {
		err := UnknownSelector("Foo.bar")
		if !containsSubstring(err.Error(), "Foo.bar") {
			t.Fatalf("expected error to mention reference name, got %q", err.Error())
		}
	})

	t.Run("UnresolvedTarget", func(t *testing.T) {
		err := UnresolvedTarget("Foo.baz")
		if err.Phase != PhaseEmit || err.Kind != KindUnresolvedTarget {
			t.Fatalf("unexpected phase/kind: %v/%v", err.Phase, err.Kind)
		}
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("io failure")
	err := Wrap(PhaseLoad, KindMissingMetadata, cause, "read program description")
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !containsSubstring(err.Error(), "io failure") {
		t.Errorf("expected wrapped error to mention cause, got %q", err.Error())
	}
}

func containsSubstring(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
