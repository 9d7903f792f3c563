// Package gallery holds the presentation-side data plumbing: infinite
// scroll pagination over the photo adapter and feed-click resolution
// of image ids into the focused selection.
package gallery

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/picsync/picsync"
	"github.com/picsync/picsync/identity"
)

// Fetcher is the photo adapter surface the gallery consumes.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) ([]picsync.Image, error)
	FetchByID(ctx context.Context, id string) (picsync.Image, error)
}

// Pager accumulates pages for the grid. The adapter does not paginate
// or deduplicate on its own, so the state lives here.
type Pager struct {
	fetcher Fetcher

	mu      sync.Mutex
	images  []picsync.Image
	next    int
	hasMore bool
}

func NewPager(fetcher Fetcher) *Pager {
	return &Pager{fetcher: fetcher, next: 1, hasMore: true}
}

// Next loads the following page and returns it. A short page marks the
// end of the feed.
func (p *Pager) Next(ctx context.Context) ([]picsync.Image, error) {
	p.mu.Lock()
	if !p.hasMore {
		p.mu.Unlock()
		return nil, nil
	}
	page := p.next
	p.mu.Unlock()

	images, err := p.fetcher.FetchPage(ctx, page)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = page + 1
	p.hasMore = len(images) > 0
	p.images = append(p.images, images...)
	return images, nil
}

// Images returns everything loaded so far.
func (p *Pager) Images() []picsync.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]picsync.Image, len(p.images))
	copy(out, p.images)
	return out
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Resolver turns feed-item clicks into the focused selection. Results
// are cached briefly so rapid clicks on the same item skip the
// network, and a response is only applied while its request is still
// the newest one.
type Resolver struct {
	fetcher Fetcher
	session *identity.Session
	cache   *cache.Cache

	mu     sync.Mutex
	wanted string
}

func NewResolver(fetcher Fetcher, session *identity.Session) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		session: session,
		cache:   cache.New(time.Minute, 5*time.Minute),
	}
}

// Open resolves imageID and focuses it. When a newer Open or Cancel
// arrives before the fetch resolves, the stale result is dropped
// instead of overwriting the newer selection.
func (r *Resolver) Open(ctx context.Context, imageID string) error {
	r.mu.Lock()
	r.wanted = imageID
	r.mu.Unlock()

	if x, found := r.cache.Get(imageID); found {
		img := x.(picsync.Image)
		r.applyIfCurrent(imageID, img)
		return nil
	}

	img, err := r.fetcher.FetchByID(ctx, imageID)
	if err != nil {
		return err
	}

	r.cache.Set(imageID, img, cache.DefaultExpiration)
	r.applyIfCurrent(imageID, img)
	return nil
}

// Cancel abandons any in-flight resolution, e.g. when the detail view
// closes.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	r.wanted = ""
	r.mu.Unlock()
}

func (r *Resolver) applyIfCurrent(imageID string, img picsync.Image) {
	r.mu.Lock()
	current := r.wanted == imageID
	r.mu.Unlock()
	if current {
		r.session.Select(&img)
	}
}
