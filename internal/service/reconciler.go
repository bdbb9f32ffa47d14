package service

import (
	"context"
	"sync"
	"time"

	"menuboard/internal/domain"
	"menuboard/internal/validate"

	"go.uber.org/zap"
)

// DataView is the published, already filtered state the display layer
// reads. Degraded carries a recoverable error message when the view
// could not be refreshed; it is empty while healthy.
type DataView struct {
	Items      []domain.CatalogItem `json:"items"`
	Categories []domain.Category    `json:"categories"`
	Freshness  domain.Freshness     `json:"freshness"`
	Online     bool                 `json:"online"`
	CapturedAt time.Time            `json:"captured_at,omitempty"`
	Degraded   string               `json:"degraded,omitempty"`
}

// SourceReconciler decides which source is authoritative for the
// session, keeps the published view warm, and persists fallback
// snapshots. Resolve never fails to its caller: every failure degrades
// to a prior cache or an explicit empty view.
type SourceReconciler struct {
	session *Session
	cache   SnapshotStore
	cloud   CloudGateway
	local   LocalProvider
	log     *zap.SugaredLogger

	mu       sync.Mutex
	inflight chan struct{}

	viewMu    sync.RWMutex
	view      DataView
	published bool
}

func NewSourceReconciler(session *Session, cache SnapshotStore, cloud CloudGateway, local LocalProvider, log *zap.SugaredLogger) *SourceReconciler {
	return &SourceReconciler{
		session: session,
		cache:   cache,
		cloud:   cloud,
		local:   local,
		log:     log,
	}
}

// Resolve refreshes the published view from the authoritative source.
// A Resolve entered while another is in flight waits for that one's
// result instead of spawning a second fetch.
func (r *SourceReconciler) Resolve(ctx context.Context) *DataView {
	r.mu.Lock()
	if r.inflight != nil {
		done := r.inflight
		r.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return r.CurrentView()
	}
	done := make(chan struct{})
	r.inflight = done
	r.mu.Unlock()

	r.resolve(ctx)

	r.mu.Lock()
	r.inflight = nil
	r.mu.Unlock()
	close(done)

	return r.CurrentView()
}

func (r *SourceReconciler) CurrentView() *DataView {
	r.viewMu.RLock()
	defer r.viewMu.RUnlock()
	v := r.view
	return &v
}

var _ ReconcilerInterface = (*SourceReconciler)(nil)

func (r *SourceReconciler) resolve(ctx context.Context) {
	if !r.hasPublished() {
		snap, err := r.cache.LoadSnapshot(ctx)
		switch {
		case err != nil:
			r.log.Warnw("cache load failed", "error", err)
		case snap != nil:
			// fast paint before any network round trip
			r.publish(snap.Items, snap.Categories, domain.FreshnessStale, false, snap.CapturedAt, "")
		}
	}

	if r.session.Mode == domain.ModeEmbeddedLocal {
		r.resolveEmbedded()
		return
	}
	r.resolveCloud(ctx)
}

func (r *SourceReconciler) resolveEmbedded() {
	if r.local == nil {
		r.degrade("embedded runtime provider unavailable")
		return
	}
	items, err := r.local.ListItems()
	if err != nil {
		r.log.Errorw("embedded runtime read failed", "error", err)
		r.degrade("embedded runtime read failed")
		return
	}
	cats, err := r.local.ListCategories()
	if err != nil {
		r.log.Errorw("embedded runtime read failed", "error", err)
		r.degrade("embedded runtime read failed")
		return
	}
	r.publish(items, cats, domain.FreshnessFresh, true, time.Now(), "")
}

func (r *SourceReconciler) resolveCloud(ctx context.Context) {
	if err := r.session.CloudConfigured(); err != nil {
		r.log.Errorw("cloud backend not configured", "error", err)
		r.fallback(ctx, err.Error())
		return
	}
	if r.cloud == nil {
		r.fallback(ctx, "cloud gateway unavailable")
		return
	}

	itemRows, err := r.cloud.SelectAll(ctx, domain.EntityCatalog)
	if err != nil {
		r.log.Warnw("cloud item fetch failed", "error", err)
		r.fallback(ctx, "cloud fetch failed")
		return
	}
	catRows, err := r.cloud.SelectAll(ctx, domain.EntityCategories)
	if err != nil {
		r.log.Warnw("cloud category fetch failed", "error", err)
		r.fallback(ctx, "cloud fetch failed")
		return
	}

	items := make([]domain.CatalogItem, 0, len(itemRows))
	for _, row := range itemRows {
		item, err := validate.ParseItemRow(row)
		if err != nil {
			r.log.Debugw("dropping invalid item row", "error", err)
			continue
		}
		items = append(items, item)
	}
	cats := make([]domain.Category, 0, len(catRows))
	for _, row := range catRows {
		cat, err := validate.ParseCategoryRow(row)
		if err != nil {
			r.log.Debugw("dropping invalid category row", "error", err)
			continue
		}
		cats = append(cats, cat)
	}

	capturedAt := time.Now()
	r.publish(items, cats, domain.FreshnessFresh, true, capturedAt, "")

	// the snapshot stores the validated, unfiltered rows; visibility
	// filtering applies to the published view only
	snap := &domain.CacheSnapshot{Items: items, Categories: cats, CapturedAt: capturedAt}
	if err := r.cache.SaveSnapshot(ctx, snap); err != nil {
		r.log.Warnw("persisting snapshot failed", "error", err)
	}
}

// fallback degrades in order: current view, persisted cache, embedded
// runtime data, explicit empty view. The cache is never overwritten
// here; a failed fetch leaves persistence untouched.
func (r *SourceReconciler) fallback(ctx context.Context, reason string) {
	if r.hasPublished() {
		r.degrade(reason)
		return
	}
	if snap, err := r.cache.LoadSnapshot(ctx); err == nil && snap != nil {
		r.publish(snap.Items, snap.Categories, domain.FreshnessStale, false, snap.CapturedAt, reason)
		return
	}
	if r.local != nil {
		items, itemsErr := r.local.ListItems()
		cats, catsErr := r.local.ListCategories()
		if itemsErr == nil && catsErr == nil {
			r.publish(items, cats, domain.FreshnessStale, false, time.Now(), reason)
			return
		}
	}
	r.publish(nil, nil, domain.FreshnessStale, false, time.Time{}, reason)
}

func (r *SourceReconciler) hasPublished() bool {
	r.viewMu.RLock()
	defer r.viewMu.RUnlock()
	return r.published
}

// publish replaces the view. Publishes are monotonic per session: once
// a fresh snapshot is out, a cache-origin snapshot never overwrites
// it; only the connectivity flags move.
func (r *SourceReconciler) publish(items []domain.CatalogItem, cats []domain.Category, freshness domain.Freshness, online bool, capturedAt time.Time, degraded string) {
	r.viewMu.Lock()
	defer r.viewMu.Unlock()

	if r.published && r.view.Freshness == domain.FreshnessFresh && freshness == domain.FreshnessStale {
		r.view.Online = online
		r.view.Degraded = degraded
		return
	}

	r.view = DataView{
		Items:      validate.FilterVisibleItems(items),
		Categories: validate.FilterVisibleCategories(cats),
		Freshness:  freshness,
		Online:     online,
		CapturedAt: capturedAt,
		Degraded:   degraded,
	}
	r.published = true
}

func (r *SourceReconciler) degrade(reason string) {
	r.viewMu.Lock()
	defer r.viewMu.Unlock()
	r.view.Online = false
	r.view.Degraded = reason
}
