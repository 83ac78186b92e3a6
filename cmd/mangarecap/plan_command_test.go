package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mangarecap/internal/testsupport"
)

const planManifest = `manga_id: hero-saga
chapter_id: ch-3
chapter_number: "3"
title: Hero Saga
pages:
  - image: pages/001.png
    label: cover
  - image: pages/002.png
    description: The hero draws his sword.
  - image: pages/003.png
    description: A rival appears on the roof.
narration:
  summary: The hero meets his rival.
  segments:
    - text: Our hero finally draws his blade.
      pages: [1]
    - text: But a rival watches from above.
      pages: [2]
`

func writePlanManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for i := 1; i <= 3; i++ {
		testsupport.WritePNG(t, filepath.Join(dir, "pages", fmt.Sprintf("%03d.png", i)), 40+i, 60)
	}
	path := filepath.Join(dir, "chapter.yaml")
	if err := os.WriteFile(path, []byte(planManifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestPlanManifestPrintsTables(t *testing.T) {
	env := setupCLITestEnv(t)
	manifestPath := writePlanManifest(t)

	out, _, err := runCLI(t, []string{"plan", "--manifest", manifestPath}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Pages: 3 (2 content)")
	requireContains(t, out, "Timing: estimated")
	requireContains(t, out, "Our hero finally draws his blade.")
	requireContains(t, out, "Segment")
	requireContains(t, out, "Cue")
}

func TestPlanManifestJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	manifestPath := writePlanManifest(t)

	out, _, err := runCLI(t, []string{"plan", "--manifest", manifestPath, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}
	var payload struct {
		Timeline struct {
			Plans []struct {
				PageIndex int `json:"page_index"`
			} `json:"plans"`
			Total int64 `json:"total"`
		} `json:"timeline"`
		Cues []struct {
			End int64 `json:"end"`
		} `json:"cues"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode plan json: %v\n%s", err, out)
	}
	if len(payload.Timeline.Plans) != 2 || payload.Timeline.Plans[0].PageIndex != 1 {
		t.Fatalf("unexpected plans: %+v", payload.Timeline.Plans)
	}
	if len(payload.Cues) == 0 || payload.Cues[len(payload.Cues)-1].End != payload.Timeline.Total {
		t.Fatalf("cues do not end at the timeline total: %+v", payload)
	}

	if _, err := os.Stat(filepath.Join(env.cfg.Cache.Dir, "hero-saga")); !os.IsNotExist(err) {
		t.Fatalf("plan must not write the cache, stat err = %v", err)
	}
}

func TestRenderRequiresChapterSelection(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"render"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--manga and --chapter are required") {
		t.Fatalf("expected selection error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"render", "--manifest", "chapter.yaml", "--manga", "m"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not both") {
		t.Fatalf("expected exclusive flag error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"render", "--next"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--next requires --manga") {
		t.Fatalf("expected --next manga error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"render", "--next", "--manga", "m", "--chapter", "c"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "drop --chapter") {
		t.Fatalf("expected --next chapter error, got %v", err)
	}
}

func TestPlanOnlineRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.LLM.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"plan", "--manga", "m", "--chapter", "c"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "llm.api_key is required") {
		t.Fatalf("expected missing api key error, got %v", err)
	}
}
