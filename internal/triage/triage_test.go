package triage

import (
	"errors"
	"testing"
)

func TestStatus_Boundaries(t *testing.T) {
	cases := []struct {
		rmssd int
		want  Status
	}{
		{80, StatusGreen},
		{50, StatusGreen},
		{49, StatusYellow},
		{30, StatusYellow},
		{29, StatusRed},
		{10, StatusRed},
		{-5, StatusRed},
	}
	for _, c := range cases {
		if got := StatusFor(c.rmssd); got != c.want {
			t.Errorf("status(%d) = %s, want %s", c.rmssd, got, c.want)
		}
	}
}

func TestStateTag_Boundaries(t *testing.T) {
	cases := []struct {
		rmssd int
		want  StateTag
	}{
		{50, TagCalm},
		{49, TagRecover},
		{30, TagRecover},
		{29, TagAlert},
	}
	for _, c := range cases {
		if got := StateTagFor(c.rmssd); got != c.want {
			t.Errorf("stateTag(%d) = %s, want %s", c.rmssd, got, c.want)
		}
	}
}

func TestStatusAndStateTagNeverDiverge(t *testing.T) {
	pairs := map[Status]StateTag{
		StatusGreen:  TagCalm,
		StatusYellow: TagRecover,
		StatusRed:    TagAlert,
	}
	for _, th := range []Thresholds{DefaultThresholds(), {Green: 60, Yellow: 20}, {Green: 1, Yellow: 0}} {
		c := NewClassifier(th)
		for rmssd := -10; rmssd <= 200; rmssd++ {
			s := c.Status(rmssd)
			if got := c.StateTag(rmssd); got != pairs[s] {
				t.Fatalf("thresholds %+v rmssd=%d: status %s paired with tag %s", th, rmssd, s, got)
			}
		}
	}
}

func TestAssess_Label(t *testing.T) {
	a := NewClassifier(DefaultThresholds()).Assess(62)
	if a.Label != "Status: GREEN (RMSSD≈62 ms)" {
		t.Fatalf("unexpected label %q", a.Label)
	}
	if a.Tag != TagCalm {
		t.Fatalf("expected CALM, got %s", a.Tag)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds invalid: %v", err)
	}
	bad := []Thresholds{
		{Green: 30, Yellow: 30},
		{Green: 20, Yellow: 40},
		{Green: 50, Yellow: -1},
	}
	for _, th := range bad {
		err := th.Validate()
		if !errors.Is(err, ErrInvalidThresholds) {
			t.Errorf("thresholds %+v: expected ErrInvalidThresholds, got %v", th, err)
		}
	}
}
