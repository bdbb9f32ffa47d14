package storage

import (
	"context"
	"database/sql"
	"fmt"

	"menuboard/internal/domain"

	"go.uber.org/zap"
)

// CloudBackend talks to the remote relational backend: row reads and
// idempotent upserts over postgres, change events over a kafka topic.
type CloudBackend struct {
	DB      *sql.DB
	Brokers []string
	Topic   string
	GroupID string
	Log     *zap.SugaredLogger
}

func NewCloudBackend(db *sql.DB, brokers []string, topic, groupID string, log *zap.SugaredLogger) *CloudBackend {
	return &CloudBackend{
		DB:      db,
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Log:     log,
	}
}

func (b *CloudBackend) SelectAll(ctx context.Context, class domain.EntityClass) ([]domain.Row, error) {
	switch class {
	case domain.EntityCatalog:
		return b.selectItems(ctx)
	case domain.EntityCategories:
		return b.selectCategories(ctx)
	default:
		return nil, fmt.Errorf("select not supported for entity class %q", class)
	}
}

func (b *CloudBackend) selectItems(ctx context.Context) ([]domain.Row, error) {
	rows, err := b.DB.QueryContext(ctx, `
		SELECT id, name, price, description, image_url, category_id, digital_visible, featured
		FROM menu_items
		ORDER BY name`)
	if err != nil {
		return nil, &domain.TransportError{Op: "select menu_items", Err: err}
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		var id, name string
		var price float64
		var desc, img, cat sql.NullString
		var visible sql.NullBool
		var featured bool
		if err := rows.Scan(&id, &name, &price, &desc, &img, &cat, &visible, &featured); err != nil {
			continue
		}
		r := domain.Row{"id": id, "name": name, "price": price, "featured": featured}
		if desc.Valid {
			r["description"] = desc.String
		}
		if img.Valid {
			r["image_url"] = img.String
		}
		if cat.Valid {
			r["category_id"] = cat.String
		}
		if visible.Valid {
			r["digital_visible"] = visible.Bool
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.TransportError{Op: "select menu_items", Err: err}
	}
	return out, nil
}

func (b *CloudBackend) selectCategories(ctx context.Context) ([]domain.Row, error) {
	rows, err := b.DB.QueryContext(ctx, `
		SELECT id, name, icon_url, digital_visible
		FROM categories
		ORDER BY name`)
	if err != nil {
		return nil, &domain.TransportError{Op: "select categories", Err: err}
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		var id, name string
		var icon sql.NullString
		var visible sql.NullBool
		if err := rows.Scan(&id, &name, &icon, &visible); err != nil {
			continue
		}
		r := domain.Row{"id": id, "name": name}
		if icon.Valid {
			r["icon_url"] = icon.String
		}
		if visible.Valid {
			r["digital_visible"] = visible.Bool
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.TransportError{Op: "select categories", Err: err}
	}
	return out, nil
}

// UpsertAll writes a batch of rows for one entity class. Upserts key
// on id, so replays and in-batch duplicates merge last-write-wins.
func (b *CloudBackend) UpsertAll(ctx context.Context, class domain.EntityClass, batch []domain.Row) error {
	if len(batch) == 0 {
		return nil
	}

	var stmt string
	var bind func(r domain.Row) []any
	switch class {
	case domain.EntityCategories:
		stmt = `
			INSERT INTO categories (id, name, icon_url, digital_visible)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				icon_url = EXCLUDED.icon_url,
				digital_visible = EXCLUDED.digital_visible`
		bind = func(r domain.Row) []any {
			return []any{r["id"], r["name"], r["icon_url"], r["digital_visible"]}
		}
	case domain.EntityCatalog:
		stmt = `
			INSERT INTO menu_items (id, name, price, description, image_url, category_id, digital_visible, featured)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				description = EXCLUDED.description,
				image_url = EXCLUDED.image_url,
				category_id = EXCLUDED.category_id,
				digital_visible = EXCLUDED.digital_visible,
				featured = EXCLUDED.featured`
		bind = func(r domain.Row) []any {
			return []any{r["id"], r["name"], r["price"], r["description"], r["image_url"],
				nullIfEmpty(r["category_id"]), r["digital_visible"], r["featured"]}
		}
	case domain.EntitySales:
		stmt = `
			INSERT INTO sales (id, item_id, quantity, total, sold_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				item_id = EXCLUDED.item_id,
				quantity = EXCLUDED.quantity,
				total = EXCLUDED.total,
				sold_at = EXCLUDED.sold_at`
		bind = func(r domain.Row) []any {
			return []any{r["id"], r["item_id"], r["quantity"], r["total"], r["sold_at"]}
		}
	case domain.EntityCustomers:
		stmt = `
			INSERT INTO customers (id, name, phone, email)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				phone = EXCLUDED.phone,
				email = EXCLUDED.email`
		bind = func(r domain.Row) []any {
			return []any{r["id"], r["name"], r["phone"], r["email"]}
		}
	case domain.EntityState:
		stmt = `
			INSERT INTO pos_state_snapshots (id, payload, captured_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				payload = EXCLUDED.payload,
				captured_at = EXCLUDED.captured_at`
		bind = func(r domain.Row) []any {
			return []any{r["id"], r["payload"], r["captured_at"]}
		}
	default:
		return fmt.Errorf("upsert not supported for entity class %q", class)
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return &domain.TransportError{Op: "begin upsert " + string(class), Err: err}
	}
	defer tx.Rollback()

	for _, r := range batch {
		if _, err := tx.ExecContext(ctx, stmt, bind(r)...); err != nil {
			return &domain.TransportError{Op: "upsert " + string(class), Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &domain.TransportError{Op: "commit upsert " + string(class), Err: err}
	}
	return nil
}

func nullIfEmpty(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	if v == nil {
		return nil
	}
	return v
}
