package photos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/picsync/picsync"
	"github.com/picsync/picsync/internal/domain"
)

func TestFetchPageWithoutKeyReturnsMocks(t *testing.T) {
	c := New("")

	images, err := c.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(images) != 12 {
		t.Fatalf("expected 12 images, got %d", len(images))
	}
	for i, img := range images {
		want := fmt.Sprintf("mock-1-%d", i)
		if img.ID != want {
			t.Fatalf("expected id %s, got %s", want, img.ID)
		}
		if img.URLs.Regular == "" || img.URLs.Small == "" || img.URLs.Thumb == "" {
			t.Fatalf("mock image %s missing urls", img.ID)
		}
	}
}

func TestMockFallbackDeterminism(t *testing.T) {
	c := New("")

	first, err := c.FetchPage(context.Background(), 3)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	second, err := c.FetchPage(context.Background(), 3)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("page sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("mock page not deterministic at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFetchPageAuthRejectedFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Client-ID bad-key" {
			t.Errorf("missing Client-ID header, got %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewWithBaseURL("bad-key", srv.URL)

	images, err := c.FetchPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("auth rejection must not surface an error, got %v", err)
	}
	if len(images) != 12 || images[0].ID != "mock-2-0" {
		t.Fatalf("expected mock page 2, got %+v", images[:1])
	}
}

func TestFetchPageServerErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithBaseURL("key", srv.URL)

	_, err := c.FetchPage(context.Background(), 1)
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected FetchFailedError, got %v", err)
	}
}

func TestFetchPageDecodesProviderResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") != "12" {
			t.Errorf("expected per_page=12, got %s", r.URL.Query().Get("per_page"))
		}
		json.NewEncoder(w).Encode([]picsync.Image{
			{ID: "real-1", User: picsync.ImageAuthor{Name: "Ansel", Username: "ansel"}},
		})
	}))
	defer srv.Close()

	c := NewWithBaseURL("key", srv.URL)

	images, err := c.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(images) != 1 || images[0].ID != "real-1" {
		t.Fatalf("unexpected images %+v", images)
	}
}

func TestFetchByIDMockShortCircuits(t *testing.T) {
	// key configured, but mock ids never touch the network
	c := NewWithBaseURL("key", "http://localhost:1")

	img, err := c.FetchByID(context.Background(), "mock-4-7")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if img.ID != "mock-4-7" {
		t.Fatalf("expected the same mock image back, got %s", img.ID)
	}

	// matches the fetch-by-page rendition of the same image
	page, _ := New("").FetchPage(context.Background(), 4)
	if img != page[7] {
		t.Fatalf("mock image mismatch: %+v vs %+v", img, page[7])
	}
}

func TestFetchByIDWithoutKeyReturnsMock(t *testing.T) {
	c := New("")

	img, err := c.FetchByID(context.Background(), "real-id")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !picsync.IsMockImageID(img.ID) {
		t.Fatalf("expected a mock image, got %s", img.ID)
	}
}

func TestFetchByIDNonSuccessFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewWithBaseURL("key", srv.URL)

	_, err := c.FetchByID(context.Background(), "gone")
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected FetchFailedError, got %v", err)
	}
}
