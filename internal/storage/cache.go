package storage

import (
	"context"
	"encoding/json"
	"time"

	"menuboard/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyMenuData       = "menu_data"
	keyCategoriesData = "categories_data"
	keyDataTimestamp  = "data_timestamp"
)

type itemsDoc struct {
	Items []domain.CatalogItem `json:"items"`
}

type categoriesDoc struct {
	Categories []domain.Category `json:"categories"`
}

// MenuCache persists fallback snapshots of the catalog in redis so a
// display can paint immediately after a restart, before any network
// round trip completes.
type MenuCache struct {
	Client *redis.Client
}

func NewMenuCache(client *redis.Client) *MenuCache {
	return &MenuCache{Client: client}
}

// LoadSnapshot returns the persisted snapshot, or (nil, nil) when the
// cache is empty.
func (c *MenuCache) LoadSnapshot(ctx context.Context) (*domain.CacheSnapshot, error) {
	rawItems, err := c.Client.Get(ctx, keyMenuData).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rawCats, err := c.Client.Get(ctx, keyCategoriesData).Bytes()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	snap, err := decodeSnapshot(rawItems, rawCats)
	if err != nil {
		return nil, err
	}

	if ts, err := c.Client.Get(ctx, keyDataTimestamp).Result(); err == nil {
		if captured, err := time.Parse(time.RFC3339, ts); err == nil {
			snap.CapturedAt = captured
		}
	}
	return snap, nil
}

// SaveSnapshot replaces the whole snapshot. The three keys are written
// through one transactional pipeline so a partial snapshot is never
// observable.
func (c *MenuCache) SaveSnapshot(ctx context.Context, snap *domain.CacheSnapshot) error {
	rawItems, rawCats, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	pipe := c.Client.TxPipeline()
	pipe.Set(ctx, keyMenuData, rawItems, 0)
	pipe.Set(ctx, keyCategoriesData, rawCats, 0)
	pipe.Set(ctx, keyDataTimestamp, snap.CapturedAt.Format(time.RFC3339), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func encodeSnapshot(snap *domain.CacheSnapshot) ([]byte, []byte, error) {
	rawItems, err := json.Marshal(itemsDoc{Items: snap.Items})
	if err != nil {
		return nil, nil, err
	}
	rawCats, err := json.Marshal(categoriesDoc{Categories: snap.Categories})
	if err != nil {
		return nil, nil, err
	}
	return rawItems, rawCats, nil
}

func decodeSnapshot(rawItems, rawCats []byte) (*domain.CacheSnapshot, error) {
	var items itemsDoc
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return nil, err
	}
	var cats categoriesDoc
	if len(rawCats) > 0 {
		if err := json.Unmarshal(rawCats, &cats); err != nil {
			return nil, err
		}
	}
	return &domain.CacheSnapshot{
		Items:      items.Items,
		Categories: cats.Categories,
	}, nil
}
