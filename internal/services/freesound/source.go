package freesound

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"mangarecap/internal/config"
	"mangarecap/internal/fileutil"
	"mangarecap/internal/logging"
	"mangarecap/internal/services"
)

var moodQueries = map[string]string{
	"tense":      "suspense tension dramatic",
	"action":     "action epic battle intense",
	"sad":        "sad emotional melancholy piano",
	"comedic":    "funny comedy upbeat quirky",
	"romantic":   "romantic love gentle soft",
	"dark":       "dark ominous horror ambient",
	"happy":      "happy upbeat cheerful positive",
	"mysterious": "mystery suspense ambient",
	"epic":       "epic orchestral cinematic",
	"calm":       "calm peaceful ambient relaxing",
}

var moodFilePatterns = map[string][]string{
	"action":     {"action_", "volatile", "epic_", "heroic"},
	"tense":      {"dark_", "darkest", "action_"},
	"dark":       {"dark_", "darkest"},
	"epic":       {"epic_", "heroic", "action_"},
	"sad":        {"dreams", "inspired"},
	"romantic":   {"dreams", "inspired", "wholesome"},
	"happy":      {"wholesome", "inspired"},
	"comedic":    {"wholesome"},
	"calm":       {"dreams", "inspired"},
	"mysterious": {"dark_", "dreams"},
}

var musicExtensions = []string{".mp3", ".wav", ".m4a", ".ogg"}

const defaultQuery = "ambient background music"

// Query returns the Freesound search text for mood.
func Query(mood string) string {
	if q, ok := moodQueries[strings.ToLower(strings.TrimSpace(mood))]; ok {
		return q
	}
	return defaultQuery
}

// HTTPDoer describes the HTTP client used for Freesound requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source resolves a music track for a mood.
type Source struct {
	musicDir string
	apiKey   string
	baseURL  string
	client   HTTPDoer
	logger   *slog.Logger
}

// NewSource builds a music source from config.
func NewSource(cfg *config.Config, logger *slog.Logger) *Source {
	timeout := time.Duration(cfg.Music.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Source{
		musicDir: cfg.Paths.MusicDir,
		apiKey:   strings.TrimSpace(cfg.Music.FreesoundAPIKey),
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.Music.FreesoundURL), "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "music"),
	}
}

// WithHTTPClient returns a copy of s using client.
func (s *Source) WithHTTPClient(client HTTPDoer) *Source {
	cp := *s
	cp.client = client
	return &cp
}

// Fetch returns a music file path for mood, downloading into dir when the
// local library has nothing. It returns "" when no music is available.
func (s *Source) Fetch(ctx context.Context, mood, dir string) (string, error) {
	if path := s.findLocal(mood); path != "" {
		s.logger.Info("using local music", logging.String("mood", mood), logging.String("path", path))
		return path, nil
	}
	if s.apiKey == "" || s.baseURL == "" {
		s.logger.Info("no music available", logging.String("mood", mood))
		return "", nil
	}
	hit, ok, err := s.search(ctx, Query(mood))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "music", "freesound search", mood, err)
	}
	if !ok {
		s.logger.Info("freesound returned no previews", logging.String("mood", mood))
		return "", nil
	}
	dst := filepath.Join(dir, fmt.Sprintf("freesound_%d.mp3", hit.ID))
	if err := s.download(ctx, hit.Previews.HQ, dst); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "music", "freesound download", hit.Name, err)
	}
	s.logger.Info("downloaded freesound preview",
		logging.String("mood", mood),
		logging.String("name", hit.Name),
		logging.Float64("duration_seconds", hit.Duration),
	)
	return dst, nil
}

// findLocal picks the first file (by name) matching a mood pattern, else the
// first music file in the directory.
func (s *Source) findLocal(mood string) string {
	entries, err := os.ReadDir(s.musicDir)
	if err != nil {
		return ""
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(musicExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		files = append(files, e.Name())
	}
	slices.Sort(files)
	for _, pattern := range moodFilePatterns[strings.ToLower(strings.TrimSpace(mood))] {
		for _, name := range files {
			if strings.Contains(strings.ToLower(name), pattern) {
				return filepath.Join(s.musicDir, name)
			}
		}
	}
	if len(files) > 0 {
		return filepath.Join(s.musicDir, files[0])
	}
	return ""
}

type searchHit struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Previews struct {
		HQ string `json:"preview-hq-mp3"`
	} `json:"previews"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

func (s *Source) search(ctx context.Context, query string) (searchHit, bool, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("token", s.apiKey)
	params.Set("fields", "id,name,duration,previews,avg_rating")
	params.Set("filter", "duration:[60 TO 300]")
	params.Set("sort", "rating_desc")
	params.Set("page_size", "10")
	body, err := s.get(ctx, s.baseURL+"/search/text/?"+params.Encode())
	if err != nil {
		return searchHit{}, false, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return searchHit{}, false, fmt.Errorf("decode search: %w", err)
	}
	for _, hit := range resp.Results {
		if strings.TrimSpace(hit.Previews.HQ) != "" {
			return hit, true, nil
		}
	}
	return searchHit{}, false, nil
}

func (s *Source) download(ctx context.Context, src, dst string) error {
	body, err := s.get(ctx, src)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(dst, body, 0o644)
}

func (s *Source) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("freesound returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}
