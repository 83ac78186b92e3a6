package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mangarecap/internal/pipeline"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// PageEntry is one page image and its optional verdict.
type PageEntry struct {
	Image       string `yaml:"image"`
	Label       string `yaml:"label,omitempty"`
	Description string `yaml:"description,omitempty"`
	Mood        string `yaml:"mood,omitempty"`
}

// SegmentEntry is one narration segment. Pages are 0-based indices into the
// manifest's page list.
type SegmentEntry struct {
	Text  string `yaml:"text"`
	Pages []int  `yaml:"pages"`
	// Audio is an optional prerecorded clip for this segment.
	Audio string `yaml:"audio,omitempty"`
}

// Narration is the chapter script.
type Narration struct {
	Summary  string         `yaml:"summary,omitempty"`
	Audio    string         `yaml:"audio,omitempty"`
	Segments []SegmentEntry `yaml:"segments"`
}

// Manifest describes one chapter.
type Manifest struct {
	MangaID       string      `yaml:"manga_id"`
	ChapterID     string      `yaml:"chapter_id"`
	ChapterNumber string      `yaml:"chapter_number,omitempty"`
	Title         string      `yaml:"title,omitempty"`
	Synopsis      string      `yaml:"synopsis,omitempty"`
	Genres        []string    `yaml:"genres,omitempty"`
	Mood          string      `yaml:"mood,omitempty"`
	Music         string      `yaml:"music,omitempty"`
	Output        string      `yaml:"output,omitempty"`
	Pages         []PageEntry `yaml:"pages"`
	Narration     Narration   `yaml:"narration"`

	dir string
}

// Load reads and validates a manifest. Relative paths resolve against the
// manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "manifest", "read", path, err)
		}
		return nil, services.Wrap(services.ErrValidation, "manifest", "read", path, err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "manifest", "resolve path", path, err)
	}
	m.dir = filepath.Dir(abs)
	m.resolvePaths()
	if err := m.checkFiles(); err != nil {
		return nil, err
	}
	return m, nil
}

// Parse decodes and validates a manifest without touching the filesystem.
// Unknown keys are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, services.Wrap(services.ErrValidation, "manifest", "parse", "", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks identifiers, page entries and segment page references.
func (m *Manifest) Validate() error {
	var problems []string
	if strings.TrimSpace(m.MangaID) == "" {
		problems = append(problems, "manga_id is required")
	}
	if strings.TrimSpace(m.ChapterID) == "" {
		problems = append(problems, "chapter_id is required")
	}
	if len(m.Pages) == 0 {
		problems = append(problems, "at least one page is required")
	}
	for i, p := range m.Pages {
		if strings.TrimSpace(p.Image) == "" {
			problems = append(problems, fmt.Sprintf("pages[%d]: image is required", i))
		}
		if p.Label != "" {
			if _, ok := recap.ParseLabel(p.Label); !ok {
				problems = append(problems, fmt.Sprintf("pages[%d]: unknown label %q", i, p.Label))
			}
		}
	}
	for i, seg := range m.Narration.Segments {
		for _, idx := range seg.Pages {
			if idx < 0 || idx >= len(m.Pages) {
				problems = append(problems, fmt.Sprintf("narration.segments[%d]: page %d out of range", i, idx))
			}
		}
		if seg.Audio == "" && m.hasSegmentAudio() {
			problems = append(problems, fmt.Sprintf("narration.segments[%d]: audio is required when any segment has audio", i))
		}
	}
	if m.Narration.Audio != "" && m.hasSegmentAudio() {
		problems = append(problems, "narration.audio and per-segment audio are mutually exclusive")
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "manifest", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || m.dir == "" {
		return path
	}
	return filepath.Join(m.dir, path)
}

func (m *Manifest) resolvePaths() {
	for i := range m.Pages {
		m.Pages[i].Image = m.resolve(m.Pages[i].Image)
	}
	for i := range m.Narration.Segments {
		m.Narration.Segments[i].Audio = m.resolve(m.Narration.Segments[i].Audio)
	}
	m.Narration.Audio = m.resolve(m.Narration.Audio)
	m.Music = m.resolve(m.Music)
	m.Output = m.resolve(m.Output)
}

func (m *Manifest) checkFiles() error {
	paths := make([]string, 0, len(m.Pages)+2)
	for _, p := range m.Pages {
		paths = append(paths, p.Image)
	}
	for _, seg := range m.Narration.Segments {
		if seg.Audio != "" {
			paths = append(paths, seg.Audio)
		}
	}
	for _, p := range []string{m.Narration.Audio, m.Music} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return services.Wrap(services.ErrNotFound, "manifest", "check files", p, err)
		}
	}
	return nil
}

// Chapter returns the assembler input described by the manifest.
func (m *Manifest) Chapter() pipeline.Chapter {
	ch := pipeline.Chapter{
		MangaID:        m.MangaID,
		ChapterID:      m.ChapterID,
		ChapterNumber:  m.ChapterNumber,
		Title:          m.Title,
		Synopsis:       m.Synopsis,
		Genres:         m.Genres,
		OutputPath:     m.Output,
		NarrationAudio: m.Narration.Audio,
		Music:          m.Music,
		Mood:           m.Mood,
	}
	if m.hasSegmentAudio() {
		ch.SegmentAudio = make([]string, len(m.Narration.Segments))
		for i, seg := range m.Narration.Segments {
			ch.SegmentAudio[i] = seg.Audio
		}
	}
	return ch
}

func (m *Manifest) hasSegmentAudio() bool {
	for _, seg := range m.Narration.Segments {
		if seg.Audio != "" {
			return true
		}
	}
	return false
}
