package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"menuboard/internal/domain"
	"menuboard/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncEngine pushes locally authored state up to the cloud backend for
// the downstream reporting consumer. Push-only: it never reads back
// and never mutates local state, so every push is safe to retry.
type SyncEngine struct {
	session *Session
	gateway CloudGateway
	log     *zap.SugaredLogger

	mu      sync.Mutex
	running map[domain.EntityClass]bool
}

func NewSyncEngine(session *Session, gateway CloudGateway, log *zap.SugaredLogger) *SyncEngine {
	return &SyncEngine{
		session: session,
		gateway: gateway,
		log:     log,
		running: make(map[domain.EntityClass]bool),
	}
}

var _ SyncInterface = (*SyncEngine)(nil)

// Push validates, repairs and upserts one entity class from the given
// snapshot. At most one push per class runs at a time; a second call
// for the same class fails immediately with ALREADY_IN_PROGRESS.
// Distinct classes may run concurrently.
func (e *SyncEngine) Push(ctx context.Context, class domain.EntityClass, snap *domain.LocalSnapshot) domain.SyncJobResult {
	switch class {
	case domain.EntityCatalog, domain.EntitySales, domain.EntityCustomers, domain.EntityAll:
	default:
		return failedResult(class, fmt.Sprintf("unknown entity class %q", class))
	}
	if e.gateway == nil {
		return failedResult(class, "cloud backend not configured")
	}
	if snap == nil {
		return failedResult(class, "no local snapshot to push")
	}

	if !e.begin(class) {
		res := failedResult(class, (&domain.ConcurrencyError{EntityClass: class}).Error())
		res.Rejected = []domain.RejectedRow{{Reason: domain.ReasonAlreadyInProgress}}
		return res
	}
	defer e.end(class)

	switch class {
	case domain.EntityCatalog:
		return e.pushCatalog(ctx, snap)
	case domain.EntitySales:
		return e.pushSales(ctx, snap)
	case domain.EntityCustomers:
		return e.pushCustomers(ctx, snap)
	default:
		return e.pushAll(ctx, snap)
	}
}

func (e *SyncEngine) begin(class domain.EntityClass) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[class] {
		return false
	}
	e.running[class] = true
	return true
}

func (e *SyncEngine) end(class domain.EntityClass) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, class)
}

// pushCatalog pushes categories before items so every surviving
// category reference resolves on the backend, repairing dangling
// references instead of blocking the batch.
func (e *SyncEngine) pushCatalog(ctx context.Context, snap *domain.LocalSnapshot) domain.SyncJobResult {
	res := newResult(domain.EntityCatalog)

	var cats []domain.Category
	for _, cat := range snap.Categories {
		if err := validate.CheckCategory(cat); err != nil {
			res.Rejected = append(res.Rejected, domain.RejectedRow{ID: cat.ID, Reason: domain.ReasonInvalidFields})
			continue
		}
		cats = append(cats, cat)
	}

	var items []domain.CatalogItem
	for _, item := range snap.Items {
		if err := validate.CheckItem(item); err != nil {
			res.Rejected = append(res.Rejected, domain.RejectedRow{ID: item.ID, Reason: domain.ReasonInvalidFields})
			continue
		}
		items = append(items, item)
	}

	catIDs := make(map[string]struct{}, len(cats))
	catIDSlice := make([]string, 0, len(cats))
	for _, cat := range cats {
		catIDs[cat.ID] = struct{}{}
		catIDSlice = append(catIDSlice, cat.ID)
	}
	items, orphans := validate.RepairReferences(items, catIDs)
	for _, orphan := range orphans {
		e.log.Warnw("repaired dangling category reference", "item_id", orphan.ID)
	}
	res.Rejected = append(res.Rejected, orphans...)

	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	for _, dup := range validate.DuplicateIDs(catIDSlice) {
		res.Warnings = append(res.Warnings, "duplicate category id "+dup)
	}
	for _, dup := range validate.DuplicateIDs(itemIDs) {
		res.Warnings = append(res.Warnings, "duplicate item id "+dup)
	}

	catErr := e.upsert(ctx, domain.EntityCategories, rowsOf(cats))
	if catErr == nil {
		res.Accepted += len(cats)
	}
	itemErr := e.upsert(ctx, domain.EntityCatalog, rowsOf(items))
	if itemErr == nil {
		res.Accepted += len(items)
	}

	invalid := countReason(res.Rejected, domain.ReasonInvalidFields)
	switch {
	case catErr != nil && itemErr != nil:
		res.Outcome = domain.OutcomeFailed
		res.Message = "catalog push failed: " + itemErr.Error()
	case catErr != nil || itemErr != nil || invalid > 0:
		res.Outcome = domain.OutcomePartial
		res.Message = fmt.Sprintf("catalog push partial: accepted %d, rejected %d", res.Accepted, invalid)
	default:
		res.Outcome = domain.OutcomeSucceeded
		res.Message = fmt.Sprintf("catalog push succeeded: accepted %d rows", res.Accepted)
	}
	return res
}

func (e *SyncEngine) pushSales(ctx context.Context, snap *domain.LocalSnapshot) domain.SyncJobResult {
	res := newResult(domain.EntitySales)

	var sales []domain.SaleRecord
	for _, sale := range snap.Sales {
		if err := validate.CheckSale(sale); err != nil {
			res.Rejected = append(res.Rejected, domain.RejectedRow{ID: sale.ID, Reason: domain.ReasonInvalidFields})
			continue
		}
		sales = append(sales, sale)
	}

	ids := make([]string, 0, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ID)
	}
	for _, dup := range validate.DuplicateIDs(ids) {
		res.Warnings = append(res.Warnings, "duplicate sale id "+dup)
	}

	finishSingle(&res, "sales", len(sales), e.upsert(ctx, domain.EntitySales, rowsOf(sales)))
	return res
}

func (e *SyncEngine) pushCustomers(ctx context.Context, snap *domain.LocalSnapshot) domain.SyncJobResult {
	res := newResult(domain.EntityCustomers)

	var customers []domain.CustomerRecord
	for _, customer := range snap.Customers {
		if err := validate.CheckCustomer(customer); err != nil {
			res.Rejected = append(res.Rejected, domain.RejectedRow{ID: customer.ID, Reason: domain.ReasonInvalidFields})
			continue
		}
		customers = append(customers, customer)
	}

	ids := make([]string, 0, len(customers))
	for _, customer := range customers {
		ids = append(ids, customer.ID)
	}
	for _, dup := range validate.DuplicateIDs(ids) {
		res.Warnings = append(res.Warnings, "duplicate customer id "+dup)
	}

	finishSingle(&res, "customers", len(customers), e.upsert(ctx, domain.EntityCustomers, rowsOf(customers)))
	return res
}

func (e *SyncEngine) pushState(ctx context.Context, snap *domain.LocalSnapshot) domain.SyncJobResult {
	res := newResult(domain.EntityState)

	payload, _ := json.Marshal(snap)
	row := domain.Row{
		"id":          "latest",
		"payload":     string(payload),
		"captured_at": time.Now(),
	}
	finishSingle(&res, "state", 1, e.upsert(ctx, domain.EntityState, []domain.Row{row}))
	return res
}

// pushAll runs categories and items first (so item references resolve
// on the backend), then sales, customers, and the opaque full-state
// snapshot. A failing sub-step does not abort the others.
func (e *SyncEngine) pushAll(ctx context.Context, snap *domain.LocalSnapshot) domain.SyncJobResult {
	res := newResult(domain.EntityAll)
	res.Steps = []domain.SyncJobResult{
		e.pushCatalog(ctx, snap),
		e.pushSales(ctx, snap),
		e.pushCustomers(ctx, snap),
		e.pushState(ctx, snap),
	}

	succeeded, failed := 0, 0
	for _, step := range res.Steps {
		res.Accepted += step.Accepted
		res.Rejected = append(res.Rejected, step.Rejected...)
		res.Warnings = append(res.Warnings, step.Warnings...)
		switch step.Outcome {
		case domain.OutcomeSucceeded:
			succeeded++
		case domain.OutcomeFailed:
			failed++
		}
	}

	switch {
	case failed == len(res.Steps):
		res.Outcome = domain.OutcomeFailed
		res.Message = "full push failed"
	case failed == 0 && succeeded == len(res.Steps):
		res.Outcome = domain.OutcomeSucceeded
		res.Message = fmt.Sprintf("full push succeeded: accepted %d rows", res.Accepted)
	default:
		res.Outcome = domain.OutcomePartial
		res.Message = fmt.Sprintf("full push partial: accepted %d rows, %d of %d steps failed", res.Accepted, failed, len(res.Steps))
	}
	return res
}

func (e *SyncEngine) upsert(ctx context.Context, class domain.EntityClass, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := e.gateway.UpsertAll(ctx, class, rows); err != nil {
		e.log.Errorw("upsert failed", "entity_class", class, "rows", len(rows), "error", err)
		return err
	}
	return nil
}

func finishSingle(res *domain.SyncJobResult, label string, accepted int, err error) {
	invalid := countReason(res.Rejected, domain.ReasonInvalidFields)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		res.Message = label + " push failed: " + err.Error()
		return
	}
	res.Accepted = accepted
	if invalid > 0 {
		res.Outcome = domain.OutcomePartial
		res.Message = fmt.Sprintf("%s push partial: accepted %d, rejected %d", label, accepted, invalid)
		return
	}
	res.Outcome = domain.OutcomeSucceeded
	res.Message = fmt.Sprintf("%s push succeeded: accepted %d rows", label, accepted)
}

func countReason(rejected []domain.RejectedRow, reason string) int {
	n := 0
	for _, r := range rejected {
		if r.Reason == reason {
			n++
		}
	}
	return n
}

func newResult(class domain.EntityClass) domain.SyncJobResult {
	return domain.SyncJobResult{
		JobID:       uuid.NewString(),
		EntityClass: class,
		Timestamp:   time.Now(),
	}
}

func failedResult(class domain.EntityClass, msg string) domain.SyncJobResult {
	res := newResult(class)
	res.Outcome = domain.OutcomeFailed
	res.Message = msg
	return res
}

// rowsOf converts a slice of domain records into backend wire rows via
// their json shapes.
func rowsOf(vals any) []domain.Row {
	data, _ := json.Marshal(vals)
	var rows []domain.Row
	_ = json.Unmarshal(data, &rows)
	return rows
}
