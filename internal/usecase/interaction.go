package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/picsync/picsync"
)

const FeedWindow = 20

// InteractionRepository defines storage operations for the interaction log.
type InteractionRepository interface {
	Create(ctx context.Context, item picsync.Interaction) error
	Delete(ctx context.Context, id string) (picsync.Interaction, error)
	GetByImage(ctx context.Context, imageID string) ([]picsync.Interaction, error)
	GetRecent(ctx context.Context, limit int) ([]picsync.Interaction, error)
	CountsByImage(ctx context.Context, imageID string) (map[string]int64, error)
}

// Signal fans out change events to live subscribers.
type Signal interface {
	Publish(ctx context.Context, event picsync.Event) error
}

type InteractionUsecase struct {
	repo   InteractionRepository
	signal Signal
}

func NewInteractionUsecase(repo InteractionRepository, signal Signal) *InteractionUsecase {
	return &InteractionUsecase{repo: repo, signal: signal}
}

// Create persists a fully client-authored record and broadcasts it.
// Ids and timestamps are assigned by the writing client, never here.
func (uc *InteractionUsecase) Create(ctx context.Context, item picsync.Interaction) error {
	if err := validate(item); err != nil {
		return err
	}

	err := uc.repo.Create(ctx, item)
	if err != nil {
		return err
	}

	uc.publish(ctx, picsync.Event{Action: picsync.ActionCreate, Item: item})
	return nil
}

// Delete removes one record by id and broadcasts the removal. Ownership
// is a display-name convention enforced by clients, not here.
func (uc *InteractionUsecase) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}

	item, err := uc.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	uc.publish(ctx, picsync.Event{Action: picsync.ActionDelete, Item: item})
	return nil
}

func (uc *InteractionUsecase) GetByImage(ctx context.Context, imageID string) ([]picsync.Interaction, error) {
	if imageID == "" {
		return nil, fmt.Errorf("imageId is required")
	}
	return uc.repo.GetByImage(ctx, imageID)
}

func (uc *InteractionUsecase) GetRecent(ctx context.Context, limit int) ([]picsync.Interaction, error) {
	if limit <= 0 || limit > FeedWindow {
		limit = FeedWindow
	}
	return uc.repo.GetRecent(ctx, limit)
}

func (uc *InteractionUsecase) CountsByImage(ctx context.Context, imageID string) (map[string]int64, error) {
	if imageID == "" {
		return nil, fmt.Errorf("imageId is required")
	}
	return uc.repo.CountsByImage(ctx, imageID)
}

// publish is fire-and-forget: the write already committed, a lost
// broadcast only delays convergence until the next snapshot fetch.
func (uc *InteractionUsecase) publish(ctx context.Context, event picsync.Event) {
	err := uc.signal.Publish(ctx, event)
	if err != nil {
		slog.ErrorContext(
			ctx, "Error publishing event",
			slog.String("error", err.Error()),
			slog.String("module", "interaction"),
		)
	}
}

func validate(item picsync.Interaction) error {
	if item.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !picsync.ValidKind(item.Type) {
		return fmt.Errorf("unknown interaction type: %s", item.Type)
	}
	if item.ImageID == "" {
		return fmt.Errorf("imageId is required")
	}
	if item.Username == "" {
		return fmt.Errorf("username is required")
	}
	if item.Timestamp <= 0 {
		return fmt.Errorf("timestamp is required")
	}

	switch item.Type {
	case picsync.KindLike:
		if item.Payload != "" {
			return fmt.Errorf("like carries no payload")
		}
	case picsync.KindEmoji, picsync.KindComment:
		if item.Payload == "" {
			return fmt.Errorf("payload is required for %s", item.Type)
		}
	}

	if item.UserColor != "" && item.Type != picsync.KindComment {
		return fmt.Errorf("userColor is only set on comments")
	}

	return nil
}
