package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"mangarecap/internal/logging"
	"mangarecap/internal/media/ffprobe"
	"mangarecap/internal/pipeline"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
	"mangarecap/internal/testsupport"
)

const sample = `manga_id: hero-saga
chapter_id: ch-12
chapter_number: "12"
title: Hero Saga
mood: action
music: music/theme.mp3
pages:
  - image: pages/001.png
    label: cover
  - image: pages/002.png
    label: content
    description: The hero draws his sword.
    mood: action
  - image: pages/003.png
    description: The rival appears on the roof.
  - image: pages/004.png
narration:
  summary: The hero meets his rival.
  segments:
    - text: Our hero finally draws his blade.
      pages: [1]
    - text: But a rival watches from above.
      pages: [2]
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	for i := 1; i <= 4; i++ {
		testsupport.WritePNG(t, filepath.Join(dir, "pages", fmt.Sprintf("%03d.png", i)), 10, 10)
	}
	testsupport.WriteFile(t, filepath.Join(dir, "music", "theme.mp3"), 16)
	path := filepath.Join(dir, "chapter.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	path := writeManifest(t, sample)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := filepath.Dir(path)
	if m.Pages[0].Image != filepath.Join(dir, "pages", "001.png") {
		t.Fatalf("page image = %q", m.Pages[0].Image)
	}
	ch := m.Chapter()
	if ch.Music != filepath.Join(dir, "music", "theme.mp3") || ch.Mood != "action" || ch.OrderKey() != "12" {
		t.Fatalf("chapter = %+v", ch)
	}
	if ch.SegmentAudio != nil || ch.NarrationAudio != "" {
		t.Fatalf("unexpected audio in chapter: %+v", ch)
	}
}

func TestLoadMissingImage(t *testing.T) {
	path := writeManifest(t, strings.Replace(sample, "pages/004.png", "pages/missing.png", 1))
	if _, err := Load(path); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	cases := map[string]string{
		"unknown key":   sample + "extra: true\n",
		"no pages":      "manga_id: m\nchapter_id: c\n",
		"bad label":     strings.Replace(sample, "label: cover", "label: poster", 1),
		"page range":    strings.Replace(sample, "pages: [2]", "pages: [9]", 1),
		"missing ids":   strings.Replace(sample, "manga_id: hero-saga", "manga_id: \"\"", 1),
		"partial audio": strings.Replace(sample, "      pages: [1]", "      pages: [1]\n      audio: a.mp3", 1),
	}
	for name, body := range cases {
		if _, err := Parse(strings.NewReader(body)); !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestStaticCollaborators(t *testing.T) {
	m, err := Load(writeManifest(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx := context.Background()

	pages, err := m.FetchPages(ctx, "ch-12", "")
	if err != nil || len(pages) != 4 || pages[2].Index != 2 {
		t.Fatalf("FetchPages = %+v, %v", pages, err)
	}
	if _, err := m.FetchPages(ctx, "other", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for other chapter, got %v", err)
	}

	c := m.Classifier()
	var labels []recap.Label
	for _, p := range pages[:3] {
		verdict, err := c.Classify(ctx, p)
		if err != nil {
			t.Fatalf("Classify(%d): %v", p.Index, err)
		}
		labels = append(labels, verdict.Apply(p).Label)
	}
	if !slices.Equal(labels, []recap.Label{recap.LabelMeta, recap.LabelContent, recap.LabelContent}) {
		t.Fatalf("labels = %v", labels)
	}
	if _, err := c.Classify(ctx, pages[3]); !errors.Is(err, services.ErrClassification) {
		t.Fatalf("unlabeled page without description should fail, got %v", err)
	}

	result, err := m.Narrator().Narrate(ctx, recap.NarrationRequest{})
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if len(result.Segments) != 2 || result.Segments[1].Index != 1 || !slices.Equal(result.Segments[1].SourcePages, []int{2}) {
		t.Fatalf("segments = %+v", result.Segments)
	}
	if result.SummaryText() != "The hero meets his rival." {
		t.Fatalf("summary = %q", result.SummaryText())
	}

	empty := &Manifest{}
	if _, err := empty.Narrator().Narrate(ctx, recap.NarrationRequest{}); !errors.Is(err, services.ErrNarrationSynthesis) {
		t.Fatalf("expected narration error, got %v", err)
	}
}

func TestManifestPlansOffline(t *testing.T) {
	m, err := Load(writeManifest(t, sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := testsupport.NewConfig(t)
	a, err := pipeline.New(cfg, pipeline.Dependencies{
		Pages:      m,
		Classifier: m.Classifier(),
		Narrator:   m.Narrator(),
		Prober:     ffprobe.NewProber(cfg.FFprobeBinary()),
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	res, err := a.Plan(context.Background(), m.Chapter())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Stage != pipeline.StageSubtitled {
		t.Fatalf("stage = %s", res.Stage)
	}
	var shown []int
	for _, plan := range res.Timeline.Plans {
		shown = append(shown, plan.PageIndex)
	}
	if !slices.Equal(shown, []int{1, 2}) {
		t.Fatalf("displayed pages = %v", shown)
	}
	if len(res.Cues) < 2 || res.Cues[len(res.Cues)-1].End != res.Timeline.Total {
		t.Fatalf("cues do not cover the timeline: %+v", res.Cues)
	}
}
