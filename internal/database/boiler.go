package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/reconcile"
)

// ChangeKind tells a ChangeRecorder which write produced the change.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
)

// ChangeRecorder is called inside the write transaction for every boiler
// that was actually inserted or updated.
type ChangeRecorder interface {
	RecordWithTx(ctx context.Context, tx pgx.Tx, kind ChangeKind, boiler *models.Boiler) error
}

var (
	boilerColumns = buildBoilerColumns()

	insertBoilerSQL = fmt.Sprintf(
		"INSERT INTO boilers (%s) VALUES (%s) ON CONFLICT (name) DO NOTHING RETURNING id, created_at, updated_at",
		strings.Join(boilerColumns, ", "), placeholders(1, len(boilerColumns)))

	selectBoilerSQL = fmt.Sprintf("SELECT id, %s, created_at, updated_at FROM boilers",
		strings.Join(boilerColumns, ", "))
)

func buildBoilerColumns() []string {
	cols := []string{"name", "price", "product_url", "description", "country", "documentation"}
	for _, key := range models.AttributeKeys {
		cols = append(cols, string(key))
	}
	for i := 1; i <= models.MaxImages; i++ {
		cols = append(cols, fmt.Sprintf("image_%d", i))
	}
	return cols
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(ph, ", ")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// columnValue returns the value b carries for a boilers column, with empty
// optional columns mapped to NULL.
func columnValue(b *models.Boiler, col string) (any, bool) {
	v, ok := b.Field(col)
	if !ok {
		return nil, false
	}
	switch col {
	case "name", "price", "product_url", "description", "country":
		return v, true
	}
	return nullable(v), true
}

func insertArgs(b *models.Boiler) []any {
	args := make([]any, 0, len(boilerColumns))
	for _, col := range boilerColumns {
		v, _ := columnValue(b, col)
		args = append(args, v)
	}
	return args
}

// BoilerRepository is the Postgres-backed boiler catalog.
type BoilerRepository struct {
	db       *DB
	recorder ChangeRecorder
	logger   *slog.Logger
}

var _ reconcile.Store = (*BoilerRepository)(nil)

func NewBoilerRepository(db *DB, logger *slog.Logger) *BoilerRepository {
	return &BoilerRepository{
		db:     db,
		logger: logger.With("component", "boiler_repository"),
	}
}

// WithRecorder attaches a ChangeRecorder; writes and their change records
// commit together.
func (r *BoilerRepository) WithRecorder(rec ChangeRecorder) *BoilerRepository {
	r.recorder = rec
	return r
}

func (r *BoilerRepository) AllNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, "SELECT name FROM boilers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan names: %w", err)
	}
	return names, nil
}

func (r *BoilerRepository) FindNamesIn(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := r.db.pool.Query(ctx, "SELECT name FROM boilers WHERE name = ANY($1)", names)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan names: %w", err)
	}
	return found, nil
}

// BulkInsert writes boilers in one transaction. Names that already exist are
// left untouched and not counted.
func (r *BoilerRepository) BulkInsert(ctx context.Context, boilers []*models.Boiler) (int, error) {
	if len(boilers) == 0 {
		return 0, nil
	}

	var inserted int
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, b := range boilers {
			batch.Queue(insertBoilerSQL, insertArgs(b)...)
		}

		br := tx.SendBatch(ctx, batch)
		var created []*models.Boiler
		for _, b := range boilers {
			err := br.QueryRow().Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
			if errors.Is(err, pgx.ErrNoRows) {
				r.logger.Debug("name already stored", "name", b.Name)
				continue
			}
			if err != nil {
				br.Close()
				return fmt.Errorf("failed to insert boiler %q: %w", b.Name, classify(err))
			}
			created = append(created, b)
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close insert batch: %w", classify(err))
		}

		if err := r.record(ctx, tx, ChangeCreated, created); err != nil {
			return err
		}
		inserted = len(created)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// BulkUpdate rewrites fields for every boiler, matched by name, in one
// transaction. Unknown fields are rejected before anything is sent.
func (r *BoilerRepository) BulkUpdate(ctx context.Context, boilers []*models.Boiler, fields []string) (int, error) {
	if len(boilers) == 0 || len(fields) == 0 {
		return 0, nil
	}

	sets := make([]string, 0, len(fields)+1)
	for i, f := range fields {
		if f == "name" {
			return 0, fmt.Errorf("%w: name is the update key", ErrInvalidValue)
		}
		if _, ok := columnValue(&models.Boiler{}, f); !ok {
			return 0, fmt.Errorf("%w: unknown field %q", ErrInvalidValue, f)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", f, i+2))
	}
	sets = append(sets, "updated_at = NOW()")
	query := fmt.Sprintf("UPDATE boilers SET %s WHERE name = $1", strings.Join(sets, ", "))

	var updated int
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, b := range boilers {
			args := make([]any, 0, len(fields)+1)
			args = append(args, b.Name)
			for _, f := range fields {
				v, _ := columnValue(b, f)
				args = append(args, v)
			}
			batch.Queue(query, args...)
		}

		br := tx.SendBatch(ctx, batch)
		var changed []*models.Boiler
		for _, b := range boilers {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return fmt.Errorf("failed to update boiler %q: %w", b.Name, classify(err))
			}
			if tag.RowsAffected() > 0 {
				changed = append(changed, b)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to close update batch: %w", classify(err))
		}

		if err := r.record(ctx, tx, ChangeUpdated, changed); err != nil {
			return err
		}
		updated = len(changed)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (r *BoilerRepository) record(ctx context.Context, tx pgx.Tx, kind ChangeKind, boilers []*models.Boiler) error {
	if r.recorder == nil {
		return nil
	}
	for _, b := range boilers {
		if err := r.recorder.RecordWithTx(ctx, tx, kind, b); err != nil {
			return fmt.Errorf("failed to record %s change for %q: %w", kind, b.Name, err)
		}
	}
	return nil
}

func (r *BoilerRepository) FindByNames(ctx context.Context, names []string) ([]*models.Boiler, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := r.db.pool.Query(ctx, selectBoilerSQL+" WHERE name = ANY($1)", names)
	if err != nil {
		return nil, fmt.Errorf("failed to query boilers: %w", err)
	}
	return collectBoilers(rows)
}

func (r *BoilerRepository) FindByName(ctx context.Context, name string) (*models.Boiler, error) {
	b, err := scanBoiler(r.db.pool.QueryRow(ctx, selectBoilerSQL+" WHERE name = $1", name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("boiler %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get boiler: %w", err)
	}
	return b, nil
}

// List returns boilers ordered by name.
func (r *BoilerRepository) List(ctx context.Context, limit, offset int) ([]*models.Boiler, error) {
	rows, err := r.db.pool.Query(ctx, selectBoilerSQL+" ORDER BY name LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list boilers: %w", err)
	}
	return collectBoilers(rows)
}

func (r *BoilerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM boilers").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count boilers: %w", err)
	}
	return n, nil
}

func collectBoilers(rows pgx.Rows) ([]*models.Boiler, error) {
	defer rows.Close()

	var out []*models.Boiler
	for rows.Next() {
		b, err := scanBoiler(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan boiler: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func scanBoiler(row pgx.Row) (*models.Boiler, error) {
	b := &models.Boiler{Attributes: models.Attributes{}}

	var doc *string
	attrs := make([]*string, len(models.AttributeKeys))
	images := make([]*string, models.MaxImages)

	dest := []any{&b.ID, &b.Name, &b.Price, &b.ProductURL, &b.Description, &b.Country, &doc}
	for i := range attrs {
		dest = append(dest, &attrs[i])
	}
	for i := range images {
		dest = append(dest, &images[i])
	}
	dest = append(dest, &b.CreatedAt, &b.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if doc != nil {
		b.Documentation = *doc
	}
	for i, key := range models.AttributeKeys {
		if attrs[i] != nil {
			b.Attributes.Set(key, *attrs[i])
		}
	}
	for i, img := range images {
		if img != nil {
			b.Images[i] = *img
		}
	}
	return b, nil
}
