package errors

import (
	"errors"
	"strings"
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
				Phase:  PhaseEncode,
				Kind:   KindUnsupportedType,
				Path:   []string{"inputs", "[2]", "mask"},
				GoType: "struct {}",
				Tag:    "List",
				Detail: "no type tag",
			},
			contains: []string{"[encode]", "unsupported_type", "inputs.[2].mask", "struct {}", "List", "no type tag"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindUnknownTag,
			},
			contains: []string{"[decode]", "unknown_type_tag"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseExecute,
				Kind:   KindExecution,
				Detail: "forward",
				Cause:  errors.New("shape mismatch"),
			},
			contains: []string{"[execute]", "execution", "forward", "caused by", "shape mismatch"},
		},
		{
			name:     "sentinel without phase",
			err:      ErrUseAfterDestroy,
			contains: []string{"use_after_destroy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Load("read model file", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindUnsupportedKeyType,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindUnsupportedKeyType}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindUnsupportedKeyType}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrUnsupportedKeyType) {
		t.Error("errors.Is should match the phase-less sentinel")
	}
	if errors.Is(err, ErrUnsupportedType) {
		t.Error("errors.Is should not match a different sentinel")
	}
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel *Error
		name     string
	}{
		{Load("x", nil), ErrLoad, "load"},
		{UnsupportedType(nil, "chan int"), ErrUnsupportedType, "unsupported type"},
		{UnsupportedKeyType(nil, "mixed"), ErrUnsupportedKeyType, "unsupported key"},
		{EmptyCollection(nil, "[]interface {}"), ErrEmptyCollection, "empty collection"},
		{IncompatibleLayout(nil, "stride %d", 3), ErrIncompatibleLayout, "layout"},
		{Execution("trap", nil), ErrExecution, "execution"},
		{UseAfterDestroy("forward"), ErrUseAfterDestroy, "use after destroy"},
		{UnknownTag(PhaseDecode, nil, 99), ErrUnknownTag, "unknown tag"},
		{VersionMismatch(2, 1), ErrVersionMismatch, "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v does not match sentinel %v", tt.err, tt.sentinel)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindOverflow).
		Path("inputs", "[0]").
		GoType("uint64").
		Tag("Long").
		Value(uint64(1 << 63)).
		Cause(cause).
		Detail("expected %s, got %s", "int64", "uint64").
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindOverflow {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
	}
	if len(err.Path) != 2 || err.Path[0] != "inputs" || err.Path[1] != "[0]" {
		t.Errorf("Path = %v, want [inputs [0]]", err.Path)
	}
	if err.GoType != "uint64" {
		t.Errorf("GoType = %v, want 'uint64'", err.GoType)
	}
	if err.Tag != "Long" {
		t.Errorf("Tag = %v, want 'Long'", err.Tag)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected int64, got uint64" {
		t.Errorf("Detail = %v, want 'expected int64, got uint64'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseWire, []string{"str"}, make([]byte, 64))
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		if strings.Count(err.Detail, "00") != 32 {
			t.Errorf("Detail should preview 32 bytes: %s", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseWire, []string{"list"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseEncode, []string{"val"}, uint64(1<<63), "Long")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
	})

	t.Run("UnknownTag", func(t *testing.T) {
		err := UnknownTag(PhaseWire, []string{"[1]"}, 42)
		if err.Value != uint8(42) {
			t.Errorf("Value = %v, want 42", err.Value)
		}
		if !strings.Contains(err.Error(), "42") {
			t.Errorf("message should name the tag: %s", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseLoad, "export", "forward")
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
	})
}

func TestAppend(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "root"

	a := Append(base, "a")
	b := Append(base, "b")

	if a[1] != "a" || b[1] != "b" {
		t.Errorf("Append aliased the base path: a=%v b=%v", a, b)
	}
}
