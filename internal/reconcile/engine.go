package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/boiler-scraper/internal/models"
)

// Store is the persistent boiler catalog. Name is unique; BulkInsert skips
// names that already exist and reports how many rows it actually wrote.
type Store interface {
	AllNames(ctx context.Context) ([]string, error)
	FindNamesIn(ctx context.Context, names []string) ([]string, error)
	BulkInsert(ctx context.Context, boilers []*models.Boiler) (int, error)
	BulkUpdate(ctx context.Context, boilers []*models.Boiler, fields []string) (int, error)
	FindByNames(ctx context.Context, names []string) ([]*models.Boiler, error)
}

// UpdateFields are the columns the update path owns.
var UpdateFields = buildUpdateFields()

func buildUpdateFields() []string {
	fields := []string{"price", "product_url", "description", "country", "documentation"}
	for _, k := range models.AttributeKeys {
		fields = append(fields, string(k))
	}
	for i := 1; i <= models.MaxImages; i++ {
		fields = append(fields, fmt.Sprintf("image_%d", i))
	}
	return fields
}

type BatchResult struct {
	Created   int
	Updated   int
	Unchanged int
	Conflicts int
	Errors    int
}

func (r *BatchResult) add(o BatchResult) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Conflicts += o.Conflicts
	r.Errors += o.Errors
}

// Engine reconciles batches of collected products against a Store.
type Engine struct {
	store    Store
	preparer *Preparer
	logger   *slog.Logger
}

func NewEngine(store Store, preparer *Preparer, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		preparer: preparer,
		logger:   logger.With("component", "reconcile"),
	}
}

// LoadIndex builds the name index from everything already stored.
func (e *Engine) LoadIndex(ctx context.Context) (*NameIndex, error) {
	names, err := e.store.AllNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored names: %w", err)
	}
	return NewNameIndex(names...), nil
}

// Flush writes one batch. Store failures are logged and counted against the
// batch, never returned, so a bad batch does not stop the run. Names that
// were written are added to index.
func (e *Engine) Flush(ctx context.Context, batch []*models.RawProduct, index *NameIndex) BatchResult {
	var result BatchResult
	if len(batch) == 0 {
		return result
	}

	creates, updates, invalid := e.partition(batch, index)
	result.Errors += invalid
	creates, updates = e.recheck(ctx, creates, updates, index)

	if len(creates) > 0 {
		r := e.create(ctx, creates)
		result.add(r)
		if r.Errors == 0 {
			index.Add(names(creates)...)
		}
	}

	if len(updates) > 0 {
		r := e.update(ctx, updates)
		result.add(r)
		if r.Errors == 0 {
			index.Add(names(updates)...)
		}
	}

	e.logger.Info("batch flushed",
		"size", len(batch),
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"conflicts", result.Conflicts,
		"errors", result.Errors,
	)
	return result
}

// partition validates and prepares the batch and splits it by whether the
// name is already stored. A name repeated within the batch keeps its last
// record.
func (e *Engine) partition(batch []*models.RawProduct, index *NameIndex) (creates, updates []*models.Boiler, invalid int) {
	createAt := make(map[string]int)
	updateAt := make(map[string]int)

	for _, raw := range batch {
		if err := Validate(raw); err != nil {
			invalid++
			e.logger.Warn("record dropped", "name", nameOf(raw), "error", err)
			continue
		}

		b := e.preparer.Prepare(raw)
		if index.Contains(b.Name) {
			updates = upsertSlice(updates, updateAt, b)
		} else {
			creates = upsertSlice(creates, createAt, b)
		}
	}
	return creates, updates, invalid
}

// recheck asks the store which create candidates exist already, e.g. written
// by another run since the index was loaded, and routes those to update. A
// failed lookup leaves the split alone; inserts skip existing names anyway.
func (e *Engine) recheck(ctx context.Context, creates, updates []*models.Boiler, index *NameIndex) ([]*models.Boiler, []*models.Boiler) {
	if len(creates) == 0 {
		return creates, updates
	}

	found, err := e.store.FindNamesIn(ctx, names(creates))
	if err != nil {
		e.logger.Warn("failed to recheck new names", "count", len(creates), "error", err)
		return creates, updates
	}
	if len(found) == 0 {
		return creates, updates
	}

	stored := make(map[string]bool, len(found))
	for _, name := range found {
		stored[name] = true
	}
	index.Add(found...)

	fresh := creates[:0]
	for _, b := range creates {
		if stored[b.Name] {
			updates = append(updates, b)
		} else {
			fresh = append(fresh, b)
		}
	}
	e.logger.Info("names stored since the index was loaded", "count", len(found))
	return fresh, updates
}

func upsertSlice(list []*models.Boiler, at map[string]int, b *models.Boiler) []*models.Boiler {
	if i, ok := at[b.Name]; ok {
		list[i] = b
		return list
	}
	at[b.Name] = len(list)
	return append(list, b)
}

func (e *Engine) create(ctx context.Context, boilers []*models.Boiler) BatchResult {
	inserted, err := e.store.BulkInsert(ctx, boilers)
	if err != nil {
		e.logger.Error("bulk insert failed", "count", len(boilers), "error", err)
		return BatchResult{Errors: len(boilers)}
	}

	r := BatchResult{Created: inserted, Conflicts: len(boilers) - inserted}
	if r.Conflicts > 0 {
		e.logger.Info("existing names skipped on insert", "count", r.Conflicts)
	}
	return r
}

func (e *Engine) update(ctx context.Context, fresh []*models.Boiler) BatchResult {
	stored, err := e.store.FindByNames(ctx, names(fresh))
	if err != nil {
		e.logger.Error("failed to load boilers for update", "count", len(fresh), "error", err)
		return BatchResult{Errors: len(fresh)}
	}

	byName := make(map[string]*models.Boiler, len(stored))
	for _, b := range stored {
		byName[b.Name] = b
	}

	var r BatchResult
	var changed []*models.Boiler
	for _, b := range fresh {
		existing, ok := byName[b.Name]
		if !ok {
			e.logger.Debug("boiler vanished before update", "name", b.Name)
			continue
		}
		if sameReconcilable(existing, b) {
			r.Unchanged++
			continue
		}
		existing.CopyReconcilable(b)
		changed = append(changed, existing)
	}
	if len(changed) == 0 {
		return r
	}

	updated, err := e.store.BulkUpdate(ctx, changed, UpdateFields)
	if err != nil {
		e.logger.Error("bulk update failed", "count", len(changed), "error", err)
		return BatchResult{Errors: len(fresh)}
	}
	r.Updated = updated
	return r
}

// sameReconcilable reports whether every column the update path owns
// already holds the fresh value.
func sameReconcilable(stored, fresh *models.Boiler) bool {
	for _, f := range UpdateFields {
		a, _ := stored.Field(f)
		b, _ := fresh.Field(f)
		if a != b {
			return false
		}
	}
	return true
}

func names(boilers []*models.Boiler) []string {
	out := make([]string, len(boilers))
	for i, b := range boilers {
		out[i] = b.Name
	}
	return out
}

func nameOf(p *models.RawProduct) string {
	if p == nil {
		return ""
	}
	return p.Name
}
