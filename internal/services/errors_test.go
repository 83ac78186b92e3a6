package services_test

import (
	"errors"
	"strings"
	"testing"

	"mangarecap/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEncode, "encoded", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encoded", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFatalClassification(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{nil, false},
		{services.Wrap(services.ErrCacheUnavailable, "cache", "read", "", errors.New("eio")), false},
		{services.Wrap(services.ErrClassification, "classify", "page 3", "", nil), false},
		{services.Wrap(services.ErrNarrationSynthesis, "narrate", "", "", nil), true},
		{services.Wrap(services.ErrAudioMix, "mixed", "", "", nil), true},
		{errors.New("plain"), true},
	}
	for _, tc := range cases {
		if got := services.Fatal(tc.err); got != tc.fatal {
			t.Errorf("Fatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}

func TestStageErrorCarriesStageAndCause(t *testing.T) {
	cause := services.Wrap(services.ErrEncode, "", "ffmpeg", "exit 1", nil)
	err := services.NewStageError("ENCODED", cause)
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected encode marker through stage error: %v", err)
	}
	stage, ok := services.FailedStage(err)
	if !ok || stage != "ENCODED" {
		t.Fatalf("FailedStage = %q,%v", stage, ok)
	}
	if again := services.NewStageError("CACHED", err); again != err {
		t.Fatal("expected existing stage error to be preserved")
	}
	if services.NewStageError("X", nil) != nil {
		t.Fatal("nil cause should produce nil")
	}
	if !strings.HasPrefix(err.Error(), "stage ENCODED failed: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
