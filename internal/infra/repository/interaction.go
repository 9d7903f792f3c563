package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/picsync/picsync"
	"github.com/picsync/picsync/internal/domain"
	"github.com/picsync/picsync/internal/infra/database/models"
)

var tracer = otel.Tracer("repository")

const countCacheTTL = 10 // seconds

type InteractionRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

// NewInteractionRepository creates the postgres-backed interaction log.
// mc may be nil; count reads then always hit the database.
func NewInteractionRepository(db *gorm.DB, mc *memcache.Client) *InteractionRepository {
	return &InteractionRepository{db: db, mc: mc}
}

// Create inserts the client-authored record. Conflicts on the id are
// ignored so client retries stay idempotent.
func (r *InteractionRepository) Create(ctx context.Context, item picsync.Interaction) error {
	ctx, span := tracer.Start(ctx, "Interaction.Repository.Create")
	defer span.End()

	row := models.Interaction{
		ID:        item.ID,
		Type:      item.Type,
		ImageID:   item.ImageID,
		Payload:   item.Payload,
		Username:  item.Username,
		UserColor: item.UserColor,
		Timestamp: item.Timestamp,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		span.RecordError(err)
		return pkgerrors.Wrap(err, "create interaction")
	}

	r.invalidateCounts(item.ImageID)
	return nil
}

// Delete removes the record with the given id and returns the deleted
// row so the caller can broadcast it.
func (r *InteractionRepository) Delete(ctx context.Context, id string) (picsync.Interaction, error) {
	ctx, span := tracer.Start(ctx, "Interaction.Repository.Delete")
	defer span.End()

	var row models.Interaction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return picsync.Interaction{}, domain.NotFoundError{Resource: "interaction"}
		}
		span.RecordError(err)
		return picsync.Interaction{}, pkgerrors.Wrap(err, "load interaction for delete")
	}

	err = r.db.WithContext(ctx).Delete(&models.Interaction{}, "id = ?", id).Error
	if err != nil {
		span.RecordError(err)
		return picsync.Interaction{}, pkgerrors.Wrap(err, "delete interaction")
	}

	r.invalidateCounts(row.ImageID)
	return toDomain(row), nil
}

// GetByImage returns every record for one image in insertion order.
func (r *InteractionRepository) GetByImage(ctx context.Context, imageID string) ([]picsync.Interaction, error) {
	ctx, span := tracer.Start(ctx, "Interaction.Repository.GetByImage")
	defer span.End()

	var rows []models.Interaction
	err := r.db.WithContext(ctx).
		Where("image_id = ?", imageID).
		Order("seq asc").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(err, "query interactions by image")
	}

	return toDomainSlice(rows), nil
}

// GetRecent returns the most recent records across all images, newest
// first. Client timestamps order the result; seq breaks ties.
func (r *InteractionRepository) GetRecent(ctx context.Context, limit int) ([]picsync.Interaction, error) {
	ctx, span := tracer.Start(ctx, "Interaction.Repository.GetRecent")
	defer span.End()

	var rows []models.Interaction
	err := r.db.WithContext(ctx).
		Order("timestamp desc, seq desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(err, "query recent interactions")
	}

	return toDomainSlice(rows), nil
}

// CountsByImage returns per-type record counts for one image, cached in
// memcached for a short window.
func (r *InteractionRepository) CountsByImage(ctx context.Context, imageID string) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "Interaction.Repository.CountsByImage")
	defer span.End()

	cacheKey := countCacheKey(imageID)
	if r.mc != nil {
		cached, err := r.mc.Get(cacheKey)
		if err == nil {
			var counts map[string]int64
			if json.Unmarshal(cached.Value, &counts) == nil {
				return counts, nil
			}
		}
	}

	var rows []struct {
		Type  string
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Select("type, count(*) as count").
		Where("image_id = ?", imageID).
		Group("type").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(err, "count interactions by image")
	}

	counts := make(map[string]int64)
	for _, row := range rows {
		counts[row.Type] = row.Count
	}

	if r.mc != nil {
		encoded, err := json.Marshal(counts)
		if err == nil {
			r.mc.Set(&memcache.Item{
				Key:        cacheKey,
				Value:      encoded,
				Expiration: countCacheTTL,
			})
		}
	}

	return counts, nil
}

func (r *InteractionRepository) invalidateCounts(imageID string) {
	if r.mc == nil {
		return
	}
	r.mc.Delete(countCacheKey(imageID))
}

func countCacheKey(imageID string) string {
	return fmt.Sprintf("picsync:counts:%s", imageID)
}

func toDomain(row models.Interaction) picsync.Interaction {
	return picsync.Interaction{
		ID:        row.ID,
		Type:      row.Type,
		ImageID:   row.ImageID,
		Payload:   row.Payload,
		Username:  row.Username,
		UserColor: row.UserColor,
		Timestamp: row.Timestamp,
	}
}

func toDomainSlice(rows []models.Interaction) []picsync.Interaction {
	items := make([]picsync.Interaction, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDomain(row))
	}
	return items
}
