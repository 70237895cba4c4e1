package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphview/pkg/validation"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// fakeRows serves fixed rows through the pgx.Rows interface
type fakeRows struct {
	rows   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			s, ok := row[i].(string)
			if !ok {
				return fmt.Errorf("scan: column %d is NULL", i)
			}
			*d = s
		case **string:
			if row[i] == nil {
				*d = nil
				continue
			}
			s := row[i].(string)
			*d = &s
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	sql  string
	args []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestPGSourceLoad(t *testing.T) {
	rows := &fakeRows{rows: [][]any{
		{"r1", "DEPENDS_ON", "orders need payments", "a", "orders", "ACTIVE", "Service", "b", "payments", "ACTIVE", "Service"},
		{"r2", "RUNS_ON", nil, "a", "orders", "ACTIVE", "Service", "h", "host-1", nil, nil},
	}}
	db := &fakeQuerier{rows: rows}
	src := &PGSource{db: db}

	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, visualization.RelationRecord{
		ID:          "r1",
		Kind:        "DEPENDS_ON",
		Description: "orders need payments",
		Source:      visualization.EntityRef{ID: "a", Name: "orders", Status: "ACTIVE", Category: "Service"},
		Target:      visualization.EntityRef{ID: "b", Name: "payments", Status: "ACTIVE", Category: "Service"},
	}, records[0])
	assert.Equal(t, visualization.EntityRef{ID: "h", Name: "host-1"}, records[1].Target)
	assert.Empty(t, records[1].Description)

	assert.True(t, rows.closed)
	assert.True(t, strings.Contains(db.sql, `"AssetRelation"`))
	assert.Equal(t, []any{validation.MaxRecords + 1}, db.args)
}

func TestPGSourceErrors(t *testing.T) {
	boom := errors.New("connection reset")

	_, err := (&PGSource{db: &fakeQuerier{err: boom}}).Load(context.Background())
	assert.ErrorIs(t, err, boom)
	var srcErr *Error
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "query", srcErr.Op)
	assert.Equal(t, "postgres", srcErr.Source)

	rows := &fakeRows{rows: [][]any{{"r1"}}}
	_, err = (&PGSource{db: &fakeQuerier{rows: rows}}).Load(context.Background())
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "scan", srcErr.Op)

	rows = &fakeRows{err: boom}
	_, err = (&PGSource{db: &fakeQuerier{rows: rows}}).Load(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPGSourceWithoutPool(t *testing.T) {
	src := &PGSource{db: &fakeQuerier{rows: &fakeRows{}}}
	assert.NoError(t, src.Ping(context.Background()))
	assert.NoError(t, src.Close())
}
