package mocks

import (
	"context"

	"menuboard/internal/domain"

	"github.com/stretchr/testify/mock"
)

type SnapshotStore struct {
	mock.Mock
}

func (m *SnapshotStore) LoadSnapshot(ctx context.Context) (*domain.CacheSnapshot, error) {
	args := m.Called(ctx)
	var snap *domain.CacheSnapshot
	if v := args.Get(0); v != nil {
		snap = v.(*domain.CacheSnapshot)
	}
	return snap, args.Error(1)
}

func (m *SnapshotStore) SaveSnapshot(ctx context.Context, snap *domain.CacheSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

type CloudGateway struct {
	mock.Mock
}

func (m *CloudGateway) SelectAll(ctx context.Context, class domain.EntityClass) ([]domain.Row, error) {
	args := m.Called(ctx, class)
	var rows []domain.Row
	if v := args.Get(0); v != nil {
		rows = v.([]domain.Row)
	}
	return rows, args.Error(1)
}

func (m *CloudGateway) UpsertAll(ctx context.Context, class domain.EntityClass, rows []domain.Row) error {
	args := m.Called(ctx, class, rows)
	return args.Error(0)
}

func (m *CloudGateway) Subscribe(ctx context.Context, classes []domain.EntityClass, handler func(domain.ChangeEvent)) (domain.Subscription, error) {
	args := m.Called(ctx, classes, handler)
	var sub domain.Subscription
	if v := args.Get(0); v != nil {
		sub = v.(domain.Subscription)
	}
	return sub, args.Error(1)
}

type LocalProvider struct {
	mock.Mock
}

func (m *LocalProvider) ListItems() ([]domain.CatalogItem, error) {
	args := m.Called()
	var items []domain.CatalogItem
	if v := args.Get(0); v != nil {
		items = v.([]domain.CatalogItem)
	}
	return items, args.Error(1)
}

func (m *LocalProvider) ListCategories() ([]domain.Category, error) {
	args := m.Called()
	var cats []domain.Category
	if v := args.Get(0); v != nil {
		cats = v.([]domain.Category)
	}
	return cats, args.Error(1)
}
