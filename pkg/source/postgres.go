package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-graphview/pkg/validation"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// relationsQuery reads every CMDB relation with both endpoint items and
// their item types. The limit is one past the record cap so an oversized
// inventory is reported rather than silently truncated.
const relationsQuery = `
SELECT r."id", r."type", r."description",
       s."id", s."name", s."status", st."name",
       t."id", t."name", t."status", tt."name"
FROM "AssetRelation" r
JOIN "ConfigurationItem" s ON s."id" = r."sourceId"
JOIN "ConfigurationItem" t ON t."id" = r."targetId"
LEFT JOIN "ItemType" st ON st."id" = s."itemTypeId"
LEFT JOIN "ItemType" tt ON tt."id" = t."itemTypeId"
ORDER BY s."name", r."createdAt", r."id"
LIMIT $1`

// querier is the part of pgxpool.Pool the source uses
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource reads relations straight from the CMDB database
type PGSource struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPGSource connects to the CMDB database
func NewPGSource(ctx context.Context, databaseURL string) (*PGSource, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// a viewer only ever runs one query at a time
	config.MaxConns = 4
	config.MinConns = 0
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &PGSource{db: pool, pool: pool}, nil
}

func (p *PGSource) Name() string {
	return "postgres"
}

func (p *PGSource) Load(ctx context.Context) ([]visualization.RelationRecord, error) {
	rows, err := p.db.Query(ctx, relationsQuery, validation.MaxRecords+1)
	if err != nil {
		return nil, wrap("query", p.Name(), err)
	}

	records, err := pgx.CollectRows(rows, scanRelation)
	if err != nil {
		return nil, wrap("scan", p.Name(), err)
	}
	return records, nil
}

// Ping checks database connectivity
func (p *PGSource) Ping(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Ping(ctx)
}

// Close closes the connection pool
func (p *PGSource) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func scanRelation(row pgx.CollectableRow) (visualization.RelationRecord, error) {
	var (
		rec                      visualization.RelationRecord
		description              *string
		srcStatus, srcCategory   *string
		destStatus, destCategory *string
	)
	err := row.Scan(
		&rec.ID, &rec.Kind, &description,
		&rec.Source.ID, &rec.Source.Name, &srcStatus, &srcCategory,
		&rec.Target.ID, &rec.Target.Name, &destStatus, &destCategory,
	)
	if err != nil {
		return rec, err
	}

	rec.Description = deref(description)
	rec.Source.Status = deref(srcStatus)
	rec.Source.Category = deref(srcCategory)
	rec.Target.Status = deref(destStatus)
	rec.Target.Category = deref(destCategory)
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
