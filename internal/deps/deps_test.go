package deps

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"mangarecap/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "also-not-present", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("Missing = %#v", missing)
	}
}

func TestRequirementsMarksTTSOptionalWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.TTS.Enabled = false
	reqs := Requirements(&cfg)
	if len(reqs) != 3 || !reqs[2].Optional || reqs[0].Optional {
		t.Fatalf("requirements = %#v", reqs)
	}
	cfg.TTS.Enabled = true
	if Requirements(&cfg)[2].Optional {
		t.Fatal("edge-tts should be required when TTS is enabled")
	}
}

func TestMissingFilters(t *testing.T) {
	listing := `Filters:
  T.. = Timeline support
 ... zoompan           V->V       Apply Zoom & Pan effect.
 ... concat            N->N       Concatenate audio and video streams.
 T.C amix              N->A       Audio mixing.
 T.C volume            A->A       Change input volume.
 ... adelay            A->A       Delay one or more audio channels.
`
	got := MissingFilters(listing, RequiredFilters)
	if !slices.Equal(got, []string{"ass"}) {
		t.Fatalf("MissingFilters = %v", got)
	}
}
