package service

import (
	"context"

	"menuboard/internal/domain"
)

// SnapshotStore is the process-wide persistent fallback cache. Written
// by the reconciler only; every reader goes through the published view.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (*domain.CacheSnapshot, error)
	SaveSnapshot(ctx context.Context, snap *domain.CacheSnapshot) error
}

// CloudGateway is the remote backend: row reads, idempotent row
// writes, and a change-event subscription.
type CloudGateway interface {
	SelectAll(ctx context.Context, class domain.EntityClass) ([]domain.Row, error)
	UpsertAll(ctx context.Context, class domain.EntityClass, rows []domain.Row) error
	Subscribe(ctx context.Context, classes []domain.EntityClass, handler func(domain.ChangeEvent)) (domain.Subscription, error)
}

// LocalProvider is the embedded runtime's data source. Synchronous, no
// network; authoritative when the session runs embedded.
type LocalProvider interface {
	ListItems() ([]domain.CatalogItem, error)
	ListCategories() ([]domain.Category, error)
}

// LocalStateSource supplies the full locally authored snapshot for a
// push.
type LocalStateSource interface {
	LocalState() (*domain.LocalSnapshot, error)
}

type ReconcilerInterface interface {
	Resolve(ctx context.Context) *DataView
	CurrentView() *DataView
}

type SyncInterface interface {
	Push(ctx context.Context, class domain.EntityClass, snap *domain.LocalSnapshot) domain.SyncJobResult
}

type HealthReporter interface {
	Online() bool
}
