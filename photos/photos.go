// Package photos fetches image metadata from an Unsplash-shaped
// provider, substituting deterministic mock pages whenever the
// provider is unavailable or the request is unauthorized.
package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/picsync/picsync"
	"github.com/picsync/picsync/internal/domain"
)

const (
	defaultBaseURL = "https://api.unsplash.com"
	defaultTimeout = 3 * time.Second
	pageSize       = 12
)

var mockDescriptions = []string{
	"Mock Image",
	"Misty morning ridge",
	"Harbor lights at dusk",
	"Dunes after rain",
	"Winter birch forest",
	"Rooftops in fog",
}

type Client struct {
	client    *http.Client
	baseURL   string
	accessKey string
}

// New builds a provider client. An empty access key is valid: every
// fetch then serves mock data.
func New(accessKey string) *Client {
	return NewWithBaseURL(accessKey, defaultBaseURL)
}

func NewWithBaseURL(accessKey, baseURL string) *Client {
	return &Client{
		client:    &http.Client{Timeout: defaultTimeout},
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		accessKey: accessKey,
	}
}

// FetchPage returns one fixed-size page of images. Missing credentials
// and 401/403 responses fall back to the deterministic mock page; any
// other non-2xx response is a FetchFailedError.
func (c *Client) FetchPage(ctx context.Context, page int) ([]picsync.Image, error) {
	if c.accessKey == "" {
		slog.Warn(
			"Photo provider access key missing, using mock data",
			slog.String("module", "photos"),
		)
		return MockPage(page), nil
	}

	endpoint := fmt.Sprintf("%s/photos?page=%d&per_page=%d", c.baseURL, page, pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		slog.Warn(
			"Photo provider rejected the access key, using mock data",
			slog.Int("status", resp.StatusCode),
			slog.String("module", "photos"),
		)
		return MockPage(page), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.FetchFailedError{Status: resp.StatusCode}
	}

	var images []picsync.Image
	err = json.NewDecoder(resp.Body).Decode(&images)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	return images, nil
}

// FetchByID returns a single image. Mock ids and missing credentials
// resolve locally without a network call.
func (c *Client) FetchByID(ctx context.Context, id string) (picsync.Image, error) {
	if c.accessKey == "" || picsync.IsMockImageID(id) {
		return mockImageForID(id), nil
	}

	endpoint := c.baseURL + "/photos/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return picsync.Image{}, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return picsync.Image{}, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return picsync.Image{}, domain.FetchFailedError{Status: resp.StatusCode}
	}

	var image picsync.Image
	err = json.NewDecoder(resp.Body).Decode(&image)
	if err != nil {
		return picsync.Image{}, fmt.Errorf("failed to decode response: %v", err)
	}

	return image, nil
}

// MockPage synthesizes a full page of images. The page number and item
// index seed every field, so repeated calls return identical pages.
func MockPage(page int) []picsync.Image {
	images := make([]picsync.Image, 0, pageSize)
	for i := 0; i < pageSize; i++ {
		images = append(images, mockImage(page, i))
	}
	return images
}

func mockImage(page, index int) picsync.Image {
	seed := fmt.Sprintf("%d-%d", page, index)
	return picsync.Image{
		ID: fmt.Sprintf("%s%s", picsync.MockImagePrefix, seed),
		URLs: picsync.ImageURLs{
			Regular: fmt.Sprintf("https://picsum.photos/seed/%s/800/600", seed),
			Small:   fmt.Sprintf("https://picsum.photos/seed/%s/400/300", seed),
			Thumb:   fmt.Sprintf("https://picsum.photos/seed/%s/200/150", seed),
		},
		User: picsync.ImageAuthor{
			Name:     "Mock User",
			Username: "mockuser",
		},
		Description: mockDescriptions[xxh3.HashString(seed)%uint64(len(mockDescriptions))],
	}
}

// mockImageForID reverses a mock id back into its page and index so
// the same image is returned as fetch-by-page produced. Anything
// unparseable maps to the first image of page one, matching the
// behavior for real ids fetched without credentials.
func mockImageForID(id string) picsync.Image {
	rest := strings.TrimPrefix(id, picsync.MockImagePrefix)
	parts := strings.Split(rest, "-")
	if len(parts) == 2 {
		page, err1 := strconv.Atoi(parts[0])
		index, err2 := strconv.Atoi(parts[1])
		if err1 == nil && err2 == nil && page > 0 && index >= 0 && index < pageSize {
			return mockImage(page, index)
		}
	}
	return mockImage(1, 0)
}
