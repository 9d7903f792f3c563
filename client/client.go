// Package client implements the shared interaction store: a live,
// eventually-consistent view over the picsyncd interaction log with
// optimistic local writes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/picsync/picsync"
	"github.com/picsync/picsync/internal/config"
	"github.com/picsync/picsync/internal/domain"
)

const (
	defaultTimeout    = 3 * time.Second
	heartbeatInterval = 30 * time.Second
	maxReconnectWait  = 30 * time.Second
)

// FeedWindow bounds the global recent subscription.
const FeedWindow = 20

// Filter selects which records a subscription observes. The zero value
// is the bounded global feed.
type Filter struct {
	ImageID string
	Limit   int
}

// ByImage observes every record for one image.
func ByImage(imageID string) Filter {
	return Filter{ImageID: imageID}
}

// Recent observes the most recent records across all images, bounded
// to at most limit entries (capped at FeedWindow).
func Recent(limit int) Filter {
	if limit <= 0 || limit > FeedWindow {
		limit = FeedWindow
	}
	return Filter{Limit: limit}
}

// OnChange receives a fresh snapshot after every matching change. The
// slice is the callback's to keep.
type OnChange func([]picsync.Interaction)

type subscription struct {
	id       int
	filter   Filter
	onChange OnChange
	records  []picsync.Interaction
	seen     map[string]bool
}

// Store is the client-side shared interaction log. All writes are
// optimistic: they apply to local subscriptions immediately and
// propagate to the server asynchronously, in issue order.
//
// A Store built without a valid app id or server URL is permanently
// degraded: reads deliver empty snapshots, writes are silent no-ops,
// Available reports false. It never fails or panics.
type Store struct {
	serverURL string
	available bool
	degraded  error
	http      *http.Client

	mu           sync.Mutex
	subs         map[int]*subscription
	nextSubID    int
	lastWriteErr error

	ops      chan operation
	resub    chan struct{}
	shutdown chan struct{}
	once     sync.Once
}

type operation struct {
	action string
	item   picsync.Interaction
}

// New builds a Store against the given picsyncd server. appID must be a
// well-formed version-4 UUID; anything else yields a degraded store.
func New(serverURL, appID string) *Store {
	s := &Store{
		serverURL: serverURL,
		http:      &http.Client{Timeout: defaultTimeout},
		subs:      map[int]*subscription{},
		ops:       make(chan operation, 256),
		resub:     make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
	}

	if serverURL == "" {
		s.degraded = domain.SyncUnavailableError{Reason: "server url missing"}
	} else if !config.IsValidAppID(appID) {
		s.degraded = domain.SyncUnavailableError{Reason: "app id missing or invalid"}
	}
	if s.degraded != nil {
		slog.Warn(
			"Real-time features disabled",
			slog.String("reason", s.degraded.Error()),
			slog.String("module", "store"),
		)
		return s
	}

	s.available = true
	go s.sender()
	go s.socketLoop()
	return s
}

// Available reports whether live sync is configured and enabled.
func (s *Store) Available() bool {
	return s.available
}

// Err explains why the store is degraded, or nil when sync is live.
// Suitable for a UI advisory banner.
func (s *Store) Err() error {
	return s.degraded
}

// LastWriteErr returns the most recent propagation failure, if any.
// Optimistic applications are never rolled back; divergence heals on
// the next snapshot refresh.
func (s *Store) LastWriteErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWriteErr
}

// Close stops background sync. Subsequent writes are no-ops.
func (s *Store) Close() {
	s.once.Do(func() {
		close(s.shutdown)
	})
}

// Subscribe registers a live query. The callback fires once with the
// current snapshot and then after every matching create or delete,
// local or remote. The returned function cancels the subscription.
func (s *Store) Subscribe(filter Filter, onChange OnChange) func() {
	if !s.available {
		onChange([]picsync.Interaction{})
		return func() {}
	}

	s.mu.Lock()
	s.nextSubID++
	sub := &subscription{
		id:       s.nextSubID,
		filter:   filter,
		onChange: onChange,
		seen:     map[string]bool{},
	}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	s.requestResubscribe()
	go s.refresh(sub.id)

	return func() {
		s.mu.Lock()
		delete(s.subs, sub.id)
		s.mu.Unlock()
		s.requestResubscribe()
	}
}

// Create assigns an id and a client timestamp, applies the record to
// matching subscriptions, and queues the server write. The completed
// record is returned; when the store is degraded nothing happens beyond
// filling the fields.
func (s *Store) Create(draft picsync.Draft) picsync.Interaction {
	item := picsync.Interaction{
		ID:        uuid.NewString(),
		Type:      draft.Type,
		ImageID:   draft.ImageID,
		Payload:   draft.Payload,
		Username:  draft.Username,
		UserColor: draft.UserColor,
		Timestamp: time.Now().UnixMilli(),
	}

	if !s.available {
		return item
	}

	s.apply(picsync.Event{Action: picsync.ActionCreate, Item: item})

	select {
	case s.ops <- operation{action: picsync.ActionCreate, item: item}:
	case <-s.shutdown:
	}

	return item
}

// Delete removes the record from matching subscriptions and queues the
// server delete. A no-op when the store is degraded.
func (s *Store) Delete(id string) {
	if !s.available {
		return
	}

	s.apply(picsync.Event{Action: picsync.ActionDelete, Item: picsync.Interaction{ID: id}})

	select {
	case s.ops <- operation{action: picsync.ActionDelete, item: picsync.Interaction{ID: id}}:
	case <-s.shutdown:
	}
}

// apply folds one event into every matching subscription and notifies
// outside the lock so callbacks may call back into the store.
func (s *Store) apply(event picsync.Event) {
	type pending struct {
		onChange OnChange
		snapshot []picsync.Interaction
	}
	var notify []pending

	s.mu.Lock()
	for _, sub := range s.subs {
		changed := false
		switch event.Action {
		case picsync.ActionCreate:
			if matches(sub.filter, event.Item) && !sub.seen[event.Item.ID] {
				sub.records = append(sub.records, event.Item)
				sub.seen[event.Item.ID] = true
				changed = true
			}
		case picsync.ActionDelete:
			for i, rec := range sub.records {
				if rec.ID == event.Item.ID {
					sub.records = append(sub.records[:i], sub.records[i+1:]...)
					delete(sub.seen, event.Item.ID)
					changed = true
					break
				}
			}
		}
		if changed {
			notify = append(notify, pending{sub.onChange, snapshot(sub)})
		}
	}
	s.mu.Unlock()

	for _, p := range notify {
		p.onChange(p.snapshot)
	}
}

// refresh replaces a subscription's records with the server snapshot.
// Runs on subscribe and after every reconnect; this is what heals any
// optimistic divergence.
func (s *Store) refresh(subID int) {
	s.mu.Lock()
	sub, ok := s.subs[subID]
	filter := Filter{}
	if ok {
		filter = sub.filter
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	items, err := s.fetchSnapshot(filter)
	if err != nil {
		slog.ErrorContext(
			context.Background(), "Error fetching snapshot",
			slog.String("error", err.Error()),
			slog.String("module", "store"),
		)
		return
	}

	s.mu.Lock()
	sub, ok = s.subs[subID]
	if !ok {
		s.mu.Unlock()
		return
	}
	sub.records = items
	sub.seen = map[string]bool{}
	for _, item := range items {
		sub.seen[item.ID] = true
	}
	onChange := sub.onChange
	snap := snapshot(sub)
	s.mu.Unlock()

	onChange(snap)
}

func (s *Store) fetchSnapshot(filter Filter) ([]picsync.Interaction, error) {
	var endpoint string
	if filter.ImageID != "" {
		endpoint = s.serverURL + "/interactions?imageId=" + url.QueryEscape(filter.ImageID)
	} else {
		limit := filter.Limit
		if limit <= 0 || limit > FeedWindow {
			limit = FeedWindow
		}
		endpoint = fmt.Sprintf("%s/interactions/recent?limit=%d", s.serverURL, limit)
	}

	resp, err := s.http.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var items []picsync.Interaction
	err = json.NewDecoder(resp.Body).Decode(&items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// sender drains the write queue one operation at a time, preserving the
// order this client issued its writes.
func (s *Store) sender() {
	for {
		select {
		case <-s.shutdown:
			return
		case op := <-s.ops:
			err := s.send(op)
			s.mu.Lock()
			s.lastWriteErr = err
			s.mu.Unlock()
			if err != nil {
				slog.Error(
					"Error propagating write",
					slog.String("error", err.Error()),
					slog.String("action", op.action),
					slog.String("module", "store"),
				)
			}
		}
	}
}

func (s *Store) send(op operation) error {
	switch op.action {
	case picsync.ActionCreate:
		body, err := json.Marshal(op.item)
		if err != nil {
			return err
		}
		resp, err := s.http.Post(s.serverURL+"/interactions", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil
	case picsync.ActionDelete:
		req, err := http.NewRequest(http.MethodDelete, s.serverURL+"/interactions/"+url.PathEscape(op.item.ID), nil)
		if err != nil {
			return err
		}
		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		// 404 means another client already removed it; converged.
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return nil
	}
	return fmt.Errorf("unknown operation: %s", op.action)
}

func (s *Store) requestResubscribe() {
	select {
	case s.resub <- struct{}{}:
	default:
	}
}

// listenImageIDs derives the websocket listen set from the live
// subscriptions. Any global subscription widens the set to everything.
func (s *Store) listenImageIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for _, sub := range s.subs {
		if sub.filter.ImageID == "" {
			return []string{}
		}
		ids = append(ids, sub.filter.ImageID)
	}
	return ids
}

func (s *Store) subscriptionIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	return ids
}

func matches(filter Filter, item picsync.Interaction) bool {
	if filter.ImageID == "" {
		return true
	}
	return filter.ImageID == item.ImageID
}

// snapshot renders a subscription's current records for delivery. The
// global feed is trimmed to its window newest-first; per-image views
// keep arrival order and leave sorting to the aggregation layer.
func snapshot(sub *subscription) []picsync.Interaction {
	out := make([]picsync.Interaction, len(sub.records))
	copy(out, sub.records)

	if sub.filter.ImageID != "" {
		return out
	}

	limit := sub.filter.Limit
	if limit <= 0 || limit > FeedWindow {
		limit = FeedWindow
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
