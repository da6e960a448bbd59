// Package sqlite implements the document store contract on top of an
// embedded SQLite database. Documents are kept as JSON and filtered with
// json_extract, so it serves offline runs and tests without a cluster.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/pteich/elastic-status-history/elastic"
)

const schema = `
CREATE TABLE IF NOT EXISTS indices (
    name TEXT PRIMARY KEY,
    mapping TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
    idx TEXT NOT NULL,
    id TEXT NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (idx, id)
);
`

// Store is an elastic.Client backed by SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	memory := path == ":memory:"
	dsn := path
	if !memory {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if memory {
		// every connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) EnsureIndex(ctx context.Context, index string, mapping elastic.Mapping) (bool, error) {
	data, err := json.Marshal(mapping)
	if err != nil {
		return false, err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO indices (name, mapping) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		index, string(data),
	)
	if err != nil {
		return false, fmt.Errorf("create index %s: %w", index, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteIndex(ctx context.Context, index string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE idx = ?`, index); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM indices WHERE name = ?`, index); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Put(ctx context.Context, index, id string, doc any, mode elastic.PutMode) error {
	if err := s.requireIndex(ctx, index); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	query := `INSERT INTO documents (idx, id, body) VALUES (?, ?, ?)
	          ON CONFLICT(idx, id) DO UPDATE SET body = excluded.body`
	if mode == elastic.PutCreate {
		query = `INSERT INTO documents (idx, id, body) VALUES (?, ?, ?)`
	}

	if _, err := s.sqlDB.ExecContext(ctx, query, index, id, string(data)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", elastic.ErrConflict, index, id)
		}
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, index string, req elastic.SearchRequest) (elastic.SearchResult, error) {
	if err := s.requireIndex(ctx, index); err != nil {
		return nil, err
	}
	return s.search(ctx, index, req, req.Size, 0)
}

func (s *Store) Count(ctx context.Context, index string, req elastic.SearchRequest) (int64, error) {
	if err := s.requireIndex(ctx, index); err != nil {
		return 0, err
	}

	where, args, err := buildWhere(index, req)
	if err != nil {
		return 0, err
	}

	var count int64
	row := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (s *Store) Scroll(index string, size int, req elastic.SearchRequest) elastic.ScrollService {
	return &ScrollService{store: s, index: index, size: size, req: req}
}

// Stop closes the database handle.
func (s *Store) Stop() {
	_ = s.sqlDB.Close()
}

func (s *Store) requireIndex(ctx context.Context, index string) error {
	var name string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT name FROM indices WHERE name = ?`, index).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", elastic.ErrIndexNotFound, index)
	}
	return err
}

func (s *Store) search(ctx context.Context, index string, req elastic.SearchRequest, limit, offset int) (*elastic.Result, error) {
	where, args, err := buildWhere(index, req)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, body FROM documents WHERE ` + where

	orderBy := make([]string, 0, len(req.Sort)+1)
	for _, sf := range req.Sort {
		path, err := jsonPath(sf.Field)
		if err != nil {
			return nil, err
		}
		dir := "ASC"
		if sf.Desc {
			dir = "DESC"
		}
		orderBy = append(orderBy, "json_extract(body, ?) "+dir)
		args = append(args, path)
	}
	// rowid keeps ties in write order
	orderBy = append(orderBy, "rowid ASC")
	query += " ORDER BY " + strings.Join(orderBy, ", ")

	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	result := &elastic.Result{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		result.HitList = append(result.HitList, elastic.Hit{ID: id, Source: []byte(body)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	result.Count = int64(len(result.HitList))

	return result, nil
}

func buildWhere(index string, req elastic.SearchRequest) (string, []any, error) {
	clauses := []string{"idx = ?"}
	args := []any{index}

	for field, value := range req.Terms {
		path, err := jsonPath(field)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, "json_extract(body, ?) = ?")
		args = append(args, path, value)
	}

	for _, r := range req.Ranges {
		path, err := jsonPath(r.Field)
		if err != nil {
			return "", nil, err
		}
		if r.Gte != "" {
			clauses = append(clauses, "json_extract(body, ?) >= ?")
			args = append(args, path, r.Gte)
		}
		if r.Lte != "" {
			clauses = append(clauses, "json_extract(body, ?) <= ?")
			args = append(args, path, r.Lte)
		}
	}

	if req.Text != nil {
		// query_string is approximated by a case-insensitive substring match on any field
		term := strings.ToLower(strings.Trim(req.Text.Query, "*"))
		ors := make([]string, 0, len(req.Text.Fields))
		for _, field := range req.Text.Fields {
			path, err := jsonPath(field)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, `lower(json_extract(body, ?)) LIKE ? ESCAPE '\'`)
			args = append(args, path, "%"+likeEscaper.Replace(term)+"%")
		}
		if len(ors) > 0 {
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func jsonPath(field string) (string, error) {
	if field == "" || strings.ContainsAny(field, `"\`) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return `$."` + field + `"`, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// ScrollService pages through a search with LIMIT/OFFSET.
type ScrollService struct {
	store  *Store
	index  string
	size   int
	req    elastic.SearchRequest
	offset int
	done   bool
}

func (s *ScrollService) Do(ctx context.Context) (elastic.SearchResult, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.offset == 0 {
		if err := s.store.requireIndex(ctx, s.index); err != nil {
			return nil, err
		}
	}

	result, err := s.store.search(ctx, s.index, s.req, s.size, s.offset)
	if err != nil {
		return nil, err
	}
	if len(result.HitList) == 0 {
		s.done = true
		return nil, io.EOF
	}
	if s.size <= 0 || len(result.HitList) < s.size {
		s.done = true
	}
	s.offset += len(result.HitList)

	return result, nil
}

func (s *ScrollService) Clear(context.Context) error {
	s.done = true
	return nil
}

var _ elastic.Client = (*Store)(nil)
