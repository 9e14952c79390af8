package core

import (
	"errors"
	"testing"
)

func TestParamForKey(t *testing.T) {
	for _, p := range Params() {
		got, ok := ParamForKey(p.Spec().Key)
		if !ok || got != p {
			t.Errorf("ParamForKey(%q) = %v, %v", p.Spec().Key, got, ok)
		}
	}
	if _, ok := ParamForKey('x'); ok {
		t.Error("Expected unknown key to fail")
	}
}

func TestDefaultValuesValid(t *testing.T) {
	if err := DefaultValues.Validate(); err != nil {
		t.Fatalf("Defaults invalid: %v", err)
	}
}

func TestValidateReportsFirstViolation(t *testing.T) {
	v := Values{ParamOffset: 2, ParamLength: 0, ParamSpacing: 0, ParamRepeats: 0}

	var minErr *MinimumError
	if err := v.Validate(); !errors.As(err, &minErr) || minErr.Param != ParamLength {
		t.Fatalf("Expected length violation, got %v", err)
	}
	if minErr.Error() != "min_length=1" {
		t.Errorf("Error() = %q", minErr.Error())
	}
}

func TestMinimumErrorText(t *testing.T) {
	tests := []struct {
		p    Param
		want string
	}{
		{ParamOffset, "min_offset=2"},
		{ParamLength, "min_length=1"},
		{ParamSpacing, "min_spacing=6"},
		{ParamRepeats, "min_repeats=0"},
	}
	for _, tt := range tests {
		if got := (&MinimumError{Param: tt.p}).Error(); got != tt.want {
			t.Errorf("%v: got %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestStoreCommitAllOrNothing(t *testing.T) {
	s := NewStore(DefaultValues)

	p := s.Begin()
	p.Set(ParamOffset, 500)
	p.Set(ParamSpacing, 3)
	if _, err := s.Commit(p); err == nil {
		t.Fatal("Expected commit to fail")
	}
	if s.Snapshot() != DefaultValues {
		t.Errorf("Failed commit changed the store: %v", s.Snapshot())
	}

	p = s.Begin()
	p.Set(ParamOffset, 500)
	vals, err := s.Commit(p)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if vals.Get(ParamOffset) != 500 || s.Get(ParamOffset) != 500 {
		t.Errorf("Offset not committed: %v", vals)
	}
	if s.Get(ParamLength) != DefaultValues.Get(ParamLength) {
		t.Error("Untouched parameter changed")
	}
}

func TestPendingLastWriteWins(t *testing.T) {
	p := NewStore(DefaultValues).Begin()
	p.Set(ParamRepeats, 3)
	p.Set(ParamRepeats, 4)

	if p.Values().Get(ParamRepeats) != 4 {
		t.Errorf("Last write must win, got %d", p.Values().Get(ParamRepeats))
	}
}

func TestValuesString(t *testing.T) {
	want := "offset=10 length=10 spacing=20 repeats=0"
	if got := DefaultValues.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParamString(t *testing.T) {
	if ParamSpacing.String() != "spacing" {
		t.Errorf("String() = %q", ParamSpacing.String())
	}
	if Param(9).String() != "unknown" {
		t.Errorf("Out of range param must be unknown")
	}
}
