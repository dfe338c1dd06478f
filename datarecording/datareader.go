package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"
)

// QueryParams narrows a query. Where is a condition without the WHERE
// keyword whose ? placeholders are bound to Args. OrderBy is written without
// ORDER BY. A zero Limit returns every matching row.
type QueryParams struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

func (p QueryParams) filter() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) window() string {
	var b strings.Builder

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", p.Limit, p.Offset)
	}

	return b.String()
}

// DataReader reads tables written by a DataRecorder back into the structs
// they were recorded from.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table fill.
	MapTable(table string, sample any)

	// ListTables returns the mapped tables, sorted.
	ListTables() []string

	// Query returns pointers to the matching rows and the number of rows
	// that match regardless of Limit and Offset.
	Query(ctx context.Context, table string, params QueryParams) ([]any, int, error)

	Close() error
}

type sqliteReader struct {
	db    *sql.DB
	types map[string]reflect.Type
}

// NewReader opens a database written by New. The path includes the
// .sqlite3 extension.
func NewReader(path string) (DataReader, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader over an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:    db,
		types: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(table string, sample any) {
	r.types[table] = reflect.TypeOf(sample)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.types))
	for name := range r.types {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	table string,
	params QueryParams,
) ([]any, int, error) {
	t, mapped := r.types[table]
	if !mapped {
		return nil, 0, fmt.Errorf("table %s is not mapped", table)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+params.filter(),
		params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM "+table+params.filter()+params.window(),
		params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, t)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// scanRows fills one new struct of type t per row. Columns are matched to
// fields by name, the way the recorder names them. Unknown columns are
// skipped.
func scanRows(rows *sql.Rows, t reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fields := make(map[string]bool)
	for _, name := range structs.Names(reflect.New(t).Interface()) {
		fields[name] = true
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(t)
		targets := make([]any, len(columns))

		for i, column := range columns {
			if !fields[column] {
				targets[i] = new(any)
				continue
			}

			targets[i] = entry.Elem().FieldByName(column).Addr().Interface()
		}

		err = rows.Scan(targets...)
		if err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

// TraceQuery selects rows of a message trace. Empty fields do not filter.
// Until bounds the time only when it is greater than From.
type TraceQuery struct {
	Kind   string
	Model  string
	From   float64
	Until  float64
	Limit  int
	Offset int
}

func (q TraceQuery) params() QueryParams {
	var (
		conds []string
		args  []any
	)

	if q.Kind != "" {
		conds = append(conds, "Kind = ?")
		args = append(args, q.Kind)
	}

	if q.Model != "" {
		conds = append(conds, "(Src = ? OR Dst = ?)")
		args = append(args, q.Model, q.Model)
	}

	if q.From > 0 {
		conds = append(conds, "Time >= ?")
		args = append(args, q.From)
	}

	if q.Until > q.From {
		conds = append(conds, "Time < ?")
		args = append(args, q.Until)
	}

	return QueryParams{
		Where:   strings.Join(conds, " AND "),
		Args:    args,
		OrderBy: "Time, rowid",
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
}

// ReadMessages returns the rows of a message trace table that match q, in
// recording order, and how many rows match without Limit and Offset.
func ReadMessages(
	ctx context.Context,
	reader DataReader,
	table string,
	q TraceQuery,
) ([]MessageRecord, int, error) {
	reader.MapTable(table, MessageRecord{})

	rows, total, err := reader.Query(ctx, table, q.params())
	if err != nil {
		return nil, 0, err
	}

	records := make([]MessageRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, *row.(*MessageRecord))
	}

	return records, total, nil
}
