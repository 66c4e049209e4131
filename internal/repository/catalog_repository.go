package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/northwind-service/internal/domain"
)

// ErrUnknownEntity is returned for entities outside the catalog whitelist.
var ErrUnknownEntity = errors.New("unknown entity")

// catalogTable binds an exposed entity to its table and primary key. Identifiers are
// never taken from the request, only from this table.
type catalogTable struct {
	table   string
	key     string
	textKey bool
}

var catalogTables = map[domain.Entity]catalogTable{
	domain.EntityProducts:   {table: "products", key: "product_id"},
	domain.EntityCategories: {table: "categories", key: "category_id"},
	domain.EntitySuppliers:  {table: "suppliers", key: "supplier_id"},
	domain.EntityCustomers:  {table: "customers", key: "customer_id", textKey: true},
	domain.EntityOrders:     {table: "orders", key: "order_id"},
	domain.EntityEmployees:  {table: "employees", key: "employee_id"},
}

// CatalogRepository serves read-only listings of the storefront tables.
type CatalogRepository interface {
	List(ctx context.Context, entity domain.Entity, limit, offset int) ([]domain.Record, error)
	Get(ctx context.Context, entity domain.Entity, id string) (domain.Record, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a Postgres-backed implementation.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

// KnownEntity reports whether entity is served by the catalog.
func KnownEntity(entity domain.Entity) bool {
	_, ok := catalogTables[entity]
	return ok
}

func (r *catalogRepository) List(ctx context.Context, entity domain.Entity, limit, offset int) ([]domain.Record, error) {
	tbl, ok := catalogTables[entity]
	if !ok {
		return nil, ErrUnknownEntity
	}
	if r.pool == nil {
		return nil, ErrUnavailable
	}

	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY %s LIMIT $1 OFFSET $2`,
		pgx.Identifier{tbl.table}.Sanitize(), pgx.Identifier{tbl.key}.Sanitize())

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Record, len(items))
	for i, item := range items {
		out[i] = domain.Record(item)
	}
	return out, nil
}

func (r *catalogRepository) Get(ctx context.Context, entity domain.Entity, id string) (domain.Record, error) {
	tbl, ok := catalogTables[entity]
	if !ok {
		return nil, ErrUnknownEntity
	}
	if r.pool == nil {
		return nil, ErrUnavailable
	}

	arg, ok := tbl.keyArg(id)
	if !ok {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1`,
		pgx.Identifier{tbl.table}.Sanitize(), pgx.Identifier{tbl.key}.Sanitize())

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	item, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return domain.Record(item), nil
}

// keyArg converts a path id into a parameter of the key column's own type so the
// primary key index serves the lookup. Ids that cannot be an integer key match nothing.
func (t catalogTable) keyArg(id string) (any, bool) {
	if t.textKey {
		return id, true
	}
	n, err := strconv.ParseInt(id, 10, 32)
	if err != nil {
		return nil, false
	}
	return int32(n), true
}
