package storage

import (
	"menuboard/internal/domain"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// RuntimeDB reads the embedded runtime's own sqlite store. The store
// is an opaque collaborator: read-only here, schema owned elsewhere.
type RuntimeDB struct {
	db *sqlx.DB
}

func OpenRuntimeDB(dsn string) (*RuntimeDB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return &RuntimeDB{db: db}, nil
}

func NewRuntimeDB(db *sqlx.DB) *RuntimeDB {
	return &RuntimeDB{db: db}
}

func (p *RuntimeDB) ListItems() ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	err := p.db.Select(&items, `
		SELECT id, name, price,
			COALESCE(description, '') AS description,
			COALESCE(image_url, '') AS image_url,
			COALESCE(category_id, '') AS category_id,
			digital_visible, featured
		FROM menu_items
		ORDER BY name`)
	return items, err
}

func (p *RuntimeDB) ListCategories() ([]domain.Category, error) {
	var cats []domain.Category
	err := p.db.Select(&cats, `
		SELECT id, name,
			COALESCE(icon_url, '') AS icon_url,
			digital_visible
		FROM categories
		ORDER BY name`)
	return cats, err
}

func (p *RuntimeDB) ListSales() ([]domain.SaleRecord, error) {
	var sales []domain.SaleRecord
	err := p.db.Select(&sales, `
		SELECT id, COALESCE(item_id, '') AS item_id, quantity, total, sold_at
		FROM sales
		ORDER BY sold_at`)
	return sales, err
}

func (p *RuntimeDB) ListCustomers() ([]domain.CustomerRecord, error) {
	var customers []domain.CustomerRecord
	err := p.db.Select(&customers, `
		SELECT id, name,
			COALESCE(phone, '') AS phone,
			COALESCE(email, '') AS email
		FROM customers
		ORDER BY name`)
	return customers, err
}

// LocalState assembles the full locally authored snapshot handed to
// the sync engine.
func (p *RuntimeDB) LocalState() (*domain.LocalSnapshot, error) {
	items, err := p.ListItems()
	if err != nil {
		return nil, err
	}
	cats, err := p.ListCategories()
	if err != nil {
		return nil, err
	}
	sales, err := p.ListSales()
	if err != nil {
		return nil, err
	}
	customers, err := p.ListCustomers()
	if err != nil {
		return nil, err
	}
	return &domain.LocalSnapshot{
		Items:      items,
		Categories: cats,
		Sales:      sales,
		Customers:  customers,
	}, nil
}

func (p *RuntimeDB) Close() error {
	return p.db.Close()
}
