package domain

import "time"

type SourceMode string

const (
	ModeEmbeddedLocal SourceMode = "embedded_local"
	ModeCloudRemote   SourceMode = "cloud_remote"
)

// EntityClass identifies a class of rows on the cloud backend wire.
type EntityClass string

const (
	EntityCatalog    EntityClass = "catalog"
	EntityCategories EntityClass = "categories"
	EntitySales      EntityClass = "sales"
	EntityCustomers  EntityClass = "customers"
	EntityState      EntityClass = "state"
	EntityAll        EntityClass = "all"
)

type Freshness string

const (
	FreshnessStale Freshness = "stale"
	FreshnessFresh Freshness = "fresh"
)

type CatalogItem struct {
	ID             string  `json:"id" db:"id" validate:"required"`
	Name           string  `json:"name" db:"name" validate:"required"`
	Price          float64 `json:"price" db:"price" validate:"gte=0"`
	Description    string  `json:"description,omitempty" db:"description"`
	ImageURL       string  `json:"image_url,omitempty" db:"image_url"`
	CategoryID     string  `json:"category_id,omitempty" db:"category_id"`
	DigitalVisible *bool   `json:"digital_visible,omitempty" db:"digital_visible"`
	Featured       bool    `json:"featured" db:"featured"`
}

// Visible reports the advisory digital-visibility flag; unset counts as visible.
func (i CatalogItem) Visible() bool {
	return i.DigitalVisible == nil || *i.DigitalVisible
}

type Category struct {
	ID             string `json:"id" db:"id" validate:"required"`
	Name           string `json:"name" db:"name" validate:"required"`
	IconURL        string `json:"icon_url,omitempty" db:"icon_url"`
	DigitalVisible *bool  `json:"digital_visible,omitempty" db:"digital_visible"`
}

func (c Category) Visible() bool {
	return c.DigitalVisible == nil || *c.DigitalVisible
}

type SaleRecord struct {
	ID       string    `json:"id" db:"id" validate:"required"`
	ItemID   string    `json:"item_id" db:"item_id"`
	Quantity int       `json:"quantity" db:"quantity" validate:"gte=0"`
	Total    float64   `json:"total" db:"total" validate:"gte=0"`
	SoldAt   time.Time `json:"sold_at" db:"sold_at"`
}

type CustomerRecord struct {
	ID    string `json:"id" db:"id" validate:"required"`
	Name  string `json:"name" db:"name" validate:"required"`
	Phone string `json:"phone,omitempty" db:"phone"`
	Email string `json:"email,omitempty" db:"email"`
}

// CacheSnapshot is the unit of persistence for the fallback cache.
// It is written wholly or not at all.
type CacheSnapshot struct {
	Items      []CatalogItem `json:"items"`
	Categories []Category    `json:"categories"`
	CapturedAt time.Time     `json:"captured_at"`
}

// LocalSnapshot is the full locally authored operational state handed
// to the sync engine.
type LocalSnapshot struct {
	Items      []CatalogItem    `json:"items"`
	Categories []Category       `json:"categories"`
	Sales      []SaleRecord     `json:"sales"`
	Customers  []CustomerRecord `json:"customers"`
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
)

const (
	ReasonInvalidFields     = "INVALID_FIELDS"
	ReasonOrphanedCategory  = "ORPHANED_CATEGORY"
	ReasonAlreadyInProgress = "ALREADY_IN_PROGRESS"
)

type RejectedRow struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type SyncJobResult struct {
	JobID       string          `json:"job_id"`
	EntityClass EntityClass     `json:"entity_class"`
	Outcome     Outcome         `json:"outcome"`
	Accepted    int             `json:"accepted"`
	Rejected    []RejectedRow   `json:"rejected,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Message     string          `json:"message"`
	Timestamp   time.Time       `json:"timestamp"`
	Steps       []SyncJobResult `json:"steps,omitempty"`
}

// Row is the loosely typed shape rows arrive in from the cloud backend.
// It is parsed and validated at ingress; nothing past the validate
// boundary handles a raw Row.
type Row map[string]any

type ChangeEvent struct {
	Entity EntityClass `json:"entity"`
	ID     string      `json:"id,omitempty"`
	Action string      `json:"action,omitempty"`
}

// Subscription is a live change-event feed on the cloud backend.
type Subscription interface {
	// Err yields a single transport error if the feed dies.
	Err() <-chan error
	Close() error
}
