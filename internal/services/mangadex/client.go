package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mangarecap/internal/config"
	"mangarecap/internal/fileutil"
	"mangarecap/internal/logging"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

const (
	userAgent        = "mangarecap/1.0"
	maxGenres        = 5
	downloadsPerSec  = 5
	maxPageBodyBytes = 64 << 20
	feedPageSize     = 100
	defaultLanguage  = "en"
)

// HTTPDoer describes the HTTP client used by the MangaDex client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the MangaDex REST API.
type Client struct {
	baseURL   string
	dataSaver bool
	language  string
	client    HTTPDoer
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLimiter overrides download pacing.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// NewClient builds a client from the mangadex config section.
func NewClient(cfg config.MangaDex, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		dataSaver: cfg.DataSaver,
		language:  strings.TrimSpace(cfg.Language),
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(downloadsPerSec), 1),
		logger:    logging.NewComponentLogger(logger, "mangadex"),
	}
	if c.language == "" {
		c.language = defaultLanguage
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type localized map[string]string

// pick returns the English value, or any value when no English one exists.
func (l localized) pick() string {
	if v := strings.TrimSpace(l["en"]); v != "" {
		return v
	}
	for _, v := range l {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type mangaResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Title       localized `json:"title"`
			Description localized `json:"description"`
			Tags        []struct {
				Attributes struct {
					Name  localized `json:"name"`
					Group string    `json:"group"`
				} `json:"attributes"`
			} `json:"tags"`
		} `json:"attributes"`
	} `json:"data"`
}

type atHomeResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

// ChapterInfo describes one chapter as listed by MangaDex. Number is empty
// for oneshots and other unnumbered chapters.
type ChapterInfo struct {
	ID      string
	MangaID string
	Number  string
	Title   string
	Pages   int
}

// OrderKey returns the chapter number, or the ID when the chapter has none.
func (c ChapterInfo) OrderKey() string {
	if n := strings.TrimSpace(c.Number); n != "" {
		return n
	}
	return c.ID
}

type chapterData struct {
	ID         string `json:"id"`
	Attributes struct {
		Chapter     *string `json:"chapter"`
		Title       *string `json:"title"`
		Pages       int     `json:"pages"`
		ExternalURL *string `json:"externalUrl"`
	} `json:"attributes"`
	Relationships []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"relationships"`
}

func (d chapterData) info() ChapterInfo {
	info := ChapterInfo{ID: d.ID, Pages: d.Attributes.Pages}
	if d.Attributes.Chapter != nil {
		info.Number = strings.TrimSpace(*d.Attributes.Chapter)
	}
	if d.Attributes.Title != nil {
		info.Title = strings.TrimSpace(*d.Attributes.Title)
	}
	for _, rel := range d.Relationships {
		if rel.Type == "manga" {
			info.MangaID = rel.ID
			break
		}
	}
	return info
}

type feedResponse struct {
	Data   []chapterData `json:"data"`
	Offset int           `json:"offset"`
	Total  int           `json:"total"`
}

// Chapter looks up a single chapter's number, title and parent manga.
func (c *Client) Chapter(ctx context.Context, chapterID string) (ChapterInfo, error) {
	var resp struct {
		Data chapterData `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/chapter/"+url.PathEscape(chapterID), &resp); err != nil {
		return ChapterInfo{}, services.Wrap(services.ErrExternalTool, "mangadex", "chapter", chapterID, err)
	}
	return resp.Data.info(), nil
}

// ListChapters returns the manga's readable chapters in the configured
// language, ascending by chapter number. External chapters carry no pages
// and are skipped, and when several groups released the same number only the
// first listed release is kept.
func (c *Client) ListChapters(ctx context.Context, mangaID string) ([]ChapterInfo, error) {
	var (
		out    []ChapterInfo
		seen   = make(map[string]bool)
		offset = 0
	)
	for {
		q := url.Values{}
		q.Set("translatedLanguage[]", c.language)
		q.Set("order[chapter]", "asc")
		q.Set("limit", strconv.Itoa(feedPageSize))
		q.Set("offset", strconv.Itoa(offset))
		endpoint := c.baseURL + "/manga/" + url.PathEscape(mangaID) + "/feed?" + q.Encode()

		var resp feedResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "mangadex", "feed", mangaID, err)
		}
		for _, d := range resp.Data {
			info := d.info()
			if info.Pages == 0 || d.Attributes.ExternalURL != nil {
				continue
			}
			if info.Number != "" {
				if seen[info.Number] {
					continue
				}
				seen[info.Number] = true
			}
			if info.MangaID == "" {
				info.MangaID = mangaID
			}
			out = append(out, info)
		}
		offset += len(resp.Data)
		if len(resp.Data) == 0 || offset >= resp.Total {
			break
		}
	}
	c.logger.Debug("chapter feed listed",
		logging.String(logging.FieldMangaID, mangaID),
		logging.Int("chapters", len(out)),
		logging.String("language", c.language),
	)
	return out, nil
}

// MangaContext returns a fresh context for mangaID built from the series
// title, description and genre tags.
func (c *Client) MangaContext(ctx context.Context, mangaID string) (recap.MangaContext, error) {
	var resp mangaResponse
	endpoint := c.baseURL + "/manga/" + url.PathEscape(mangaID) + "?includes[]=tag"
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return recap.MangaContext{}, services.Wrap(services.ErrExternalTool, "mangadex", "manga", mangaID, err)
	}
	attrs := resp.Data.Attributes
	mc := recap.MangaContext{
		MangaID:     mangaID,
		Title:       attrs.Title.pick(),
		Synopsis:    attrs.Description.pick(),
		LastUpdated: time.Now().UTC(),
	}
	for _, tag := range attrs.Tags {
		if tag.Attributes.Group != "" && tag.Attributes.Group != "genre" {
			continue
		}
		if name := tag.Attributes.Name.pick(); name != "" {
			mc.Genres = append(mc.Genres, name)
		}
		if len(mc.Genres) == maxGenres {
			break
		}
	}
	return mc, nil
}

// FetchPages downloads every page of chapterID into dir and returns them in
// reading order with their local paths as ImageRef. Labels are left empty.
func (c *Client) FetchPages(ctx context.Context, chapterID, dir string) ([]recap.Page, error) {
	var home atHomeResponse
	if err := c.getJSON(ctx, c.baseURL+"/at-home/server/"+url.PathEscape(chapterID), &home); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "mangadex", "at-home", chapterID, err)
	}
	quality, files := "data", home.Chapter.Data
	if c.dataSaver && len(home.Chapter.DataSaver) > 0 {
		quality, files = "data-saver", home.Chapter.DataSaver
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "mangadex", "at-home", "chapter has no pages", nil)
	}

	pages := make([]recap.Page, 0, len(files))
	for i, name := range files {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		src := strings.TrimRight(home.BaseURL, "/") + "/" + path.Join(quality, home.Chapter.Hash, name)
		dst := filepath.Join(dir, fmt.Sprintf("page_%03d%s", i+1, strings.ToLower(path.Ext(name))))
		if err := c.download(ctx, src, dst); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "mangadex", "download", fmt.Sprintf("page %d", i), err)
		}
		c.logger.Debug("page downloaded", logging.Int(logging.FieldPageIndex, i), logging.String("path", dst))
		pages = append(pages, recap.Page{Index: i, ImageRef: dst})
	}
	c.logger.Info("chapter pages downloaded",
		logging.String(logging.FieldChapterID, chapterID),
		logging.Int("pages", len(pages)),
		logging.String("quality", quality),
	)
	return pages, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	body, err := c.get(ctx, endpoint, 8<<20)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, src, dst string) error {
	body, err := c.get(ctx, src, maxPageBodyBytes)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(dst, body, 0o644)
}

func (c *Client) get(ctx context.Context, endpoint string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%s returned %d", endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
