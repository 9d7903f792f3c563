package usecase

import (
	"context"
	"testing"

	"github.com/picsync/picsync"
)

type mockInteractionRepo struct {
	created []picsync.Interaction
	deleted []string
	stored  map[string]picsync.Interaction
}

func newMockInteractionRepo() *mockInteractionRepo {
	return &mockInteractionRepo{stored: map[string]picsync.Interaction{}}
}

func (m *mockInteractionRepo) Create(ctx context.Context, item picsync.Interaction) error {
	m.created = append(m.created, item)
	m.stored[item.ID] = item
	return nil
}

func (m *mockInteractionRepo) Delete(ctx context.Context, id string) (picsync.Interaction, error) {
	m.deleted = append(m.deleted, id)
	item := m.stored[id]
	delete(m.stored, id)
	return item, nil
}

func (m *mockInteractionRepo) GetByImage(ctx context.Context, imageID string) ([]picsync.Interaction, error) {
	var items []picsync.Interaction
	for _, item := range m.stored {
		if item.ImageID == imageID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockInteractionRepo) GetRecent(ctx context.Context, limit int) ([]picsync.Interaction, error) {
	var items []picsync.Interaction
	for _, item := range m.stored {
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (m *mockInteractionRepo) CountsByImage(ctx context.Context, imageID string) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, item := range m.stored {
		if item.ImageID == imageID {
			counts[item.Type]++
		}
	}
	return counts, nil
}

type mockSignal struct {
	events []picsync.Event
}

func (m *mockSignal) Publish(ctx context.Context, event picsync.Event) error {
	m.events = append(m.events, event)
	return nil
}

func validLike() picsync.Interaction {
	return picsync.Interaction{
		ID:        "id-1",
		Type:      picsync.KindLike,
		ImageID:   "mock-1-0",
		Username:  "SwiftFox42",
		Timestamp: 1700000000000,
	}
}

func TestCreatePublishesEvent(t *testing.T) {
	repo := newMockInteractionRepo()
	sig := &mockSignal{}
	uc := NewInteractionUsecase(repo, sig)

	err := uc.Create(context.Background(), validLike())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created record, got %d", len(repo.created))
	}
	if len(sig.events) != 1 || sig.events[0].Action != picsync.ActionCreate {
		t.Fatalf("expected a create event, got %+v", sig.events)
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*picsync.Interaction)
	}{
		{"missing id", func(i *picsync.Interaction) { i.ID = "" }},
		{"unknown type", func(i *picsync.Interaction) { i.Type = "wave" }},
		{"missing image", func(i *picsync.Interaction) { i.ImageID = "" }},
		{"missing username", func(i *picsync.Interaction) { i.Username = "" }},
		{"missing timestamp", func(i *picsync.Interaction) { i.Timestamp = 0 }},
		{"like with payload", func(i *picsync.Interaction) { i.Payload = "hi" }},
		{"emoji without payload", func(i *picsync.Interaction) {
			i.Type = picsync.KindEmoji
			i.Payload = ""
		}},
		{"comment without payload", func(i *picsync.Interaction) {
			i.Type = picsync.KindComment
			i.Payload = ""
		}},
		{"color on like", func(i *picsync.Interaction) { i.UserColor = "#3b82f6" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockInteractionRepo()
			uc := NewInteractionUsecase(repo, &mockSignal{})

			item := validLike()
			tc.mutate(&item)

			if err := uc.Create(context.Background(), item); err == nil {
				t.Fatalf("expected validation error")
			}
			if len(repo.created) != 0 {
				t.Fatalf("invalid record reached the repository")
			}
		})
	}
}

func TestDeletePublishesDeletedItem(t *testing.T) {
	repo := newMockInteractionRepo()
	sig := &mockSignal{}
	uc := NewInteractionUsecase(repo, sig)

	item := validLike()
	if err := uc.Create(context.Background(), item); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := uc.Delete(context.Background(), item.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != item.ID {
		t.Fatalf("expected delete of %s, got %v", item.ID, repo.deleted)
	}

	last := sig.events[len(sig.events)-1]
	if last.Action != picsync.ActionDelete || last.Item.ImageID != item.ImageID {
		t.Fatalf("delete event should carry the removed item, got %+v", last)
	}
}

func TestGetRecentCapsLimit(t *testing.T) {
	repo := newMockInteractionRepo()
	uc := NewInteractionUsecase(repo, &mockSignal{})

	for i := 0; i < 30; i++ {
		item := validLike()
		item.ID = item.ID + string(rune('a'+i))
		repo.stored[item.ID] = item
	}

	items, err := uc.GetRecent(context.Background(), 100)
	if err != nil {
		t.Fatalf("get recent failed: %v", err)
	}
	if len(items) > FeedWindow {
		t.Fatalf("feed window exceeded: %d", len(items))
	}
}
