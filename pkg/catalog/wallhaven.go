package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
	"github.com/HxprLee/manpaper/util/log"
)

const wallhavenSearchURL = "https://wallhaven.cc/api/v1/search"

const userAgent = "manpaper/1.0"

// SearchFilters are the knobs the Wallhaven search API accepts.
type SearchFilters struct {
	Query string

	// Purity toggles. At least one must be set.
	SFW, Sketchy, NSFW bool

	// Category toggles. At least one must be set.
	General, Anime, People bool

	Resolutions string // exact, e.g. "2560x1440"
	AtLeast     string // minimum, e.g. "1920x1080"
	Ratios      string // e.g. "16x9"

	Page int
}

// purity encodes the toggles the way the API wants them, a bitstring in
// sfw/sketchy/nsfw order.
func (f SearchFilters) purity() string {
	return bitstring(f.SFW, f.Sketchy, f.NSFW)
}

func (f SearchFilters) categories() string {
	return bitstring(f.General, f.Anime, f.People)
}

func bitstring(bits ...bool) string {
	var b strings.Builder
	for _, set := range bits {
		if set {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Meta is the paging block of a search response.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
}

type searchResponse struct {
	Data []struct {
		ID         string `json:"id"`
		URL        string `json:"url"`
		ShortURL   string `json:"short_url"`
		Path       string `json:"path"`
		Purity     string `json:"purity"`
		Category   string `json:"category"`
		DimensionX int    `json:"dimension_x"`
		DimensionY int    `json:"dimension_y"`
		Thumbs     struct {
			Small string `json:"small"`
		} `json:"thumbs"`
	} `json:"data"`
	Meta Meta `json:"meta"`
}

// Client searches the Wallhaven API.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	limiter    *rate.Limiter

	// baseURL is swapped out in tests.
	baseURL string
}

// NewClient creates a Wallhaven search client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: newHTTPClient(),
		limiter:    newAPILimiter(),
		baseURL:    wallhavenSearchURL,
	}
}

// Search queries Wallhaven and returns the matching wallpapers as online
// items, plus the paging metadata.
func (c *Client) Search(ctx context.Context, f SearchFilters) ([]wallpaper.Item, Meta, error) {
	apiKey := c.cfg.WallhavenAPIKey()
	if apiKey == "" {
		return nil, Meta{}, wallpaper.ErrAPIKeyMissing
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, Meta{}, fmt.Errorf("search: %w", wallpaper.ErrCancelled)
	}

	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("purity", f.purity())
	q.Set("categories", f.categories())
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Resolutions != "" {
		q.Set("resolutions", f.Resolutions)
	}
	if f.AtLeast != "" {
		q.Set("atleast", f.AtLeast)
	}
	if f.Ratios != "" {
		q.Set("ratios", f.Ratios)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Meta{}, wallpaper.WrapNetwork("wallhaven search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, Meta{}, fmt.Errorf("wallhaven rejected the API key: %w", wallpaper.ErrAPIKeyMissing)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, Meta{}, wallpaper.WrapNetwork("wallhaven search",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Meta{}, wallpaper.WrapNetwork("wallhaven search", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, Meta{}, fmt.Errorf("failed to parse wallhaven response: %w", err)
	}

	items := make([]wallpaper.Item, 0, len(parsed.Data))
	for _, w := range parsed.Data {
		kind, ok := wallpaper.KindForPath(w.Path)
		if !ok {
			log.Debugf("skipping wallhaven result %s with unsupported format %s", w.ID, path.Ext(w.Path))
			continue
		}
		items = append(items, wallpaper.Item{
			ID:       w.ID,
			Name:     path.Base(w.Path),
			Kind:     kind,
			Source:   wallpaper.SourceOnline,
			FullURL:  w.Path,
			ThumbURL: w.Thumbs.Small,
			PageURL:  w.URL,
			Purity:   w.Purity,
			Category: w.Category,
			Width:    w.DimensionX,
			Height:   w.DimensionY,
		})
	}
	return items, parsed.Meta, nil
}
