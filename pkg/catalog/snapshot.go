package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// SnapshotStore serves the identifier catalogue from a local CSV export
// of the IdentificadorObjeto table, for offline runs and tests. DuckDB
// reads the file in place; no import step is needed.
//
// Expected columns: ObjetoId, TipoIdentificadorId, ValorIdentificador
// (header row required, extra columns ignored).
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshot opens a CSV snapshot through an in-memory DuckDB.
func OpenSnapshot(path string) (*SnapshotStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot file: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// read_csv_auto takes the path as a SQL literal
	escaped := strings.ReplaceAll(path, "'", "''")
	create := fmt.Sprintf(
		`CREATE VIEW identificador_objeto AS SELECT * FROM read_csv_auto('%s', header=true)`,
		escaped)
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("register snapshot %s: %w", path, err)
	}

	return &SnapshotStore{db: db}, nil
}

// IdentifiersOfKind implements Store.
func (s *SnapshotStore) IdentifiersOfKind(ctx context.Context, kindID int64) ([]string, error) {
	const query = `SELECT ValorIdentificador FROM identificador_objeto WHERE TipoIdentificadorId = ?`

	rows, err := s.db.QueryContext(ctx, query, kindID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot identifiers: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan snapshot identifier: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot identifiers: %w", err)
	}
	return values, nil
}

// FindObjectID implements Store, mirroring the production LIKE match.
func (s *SnapshotStore) FindObjectID(ctx context.Context, fragment string) (int64, bool, error) {
	const query = `SELECT ObjetoId FROM identificador_objeto WHERE ValorIdentificador LIKE '%' || ? || '%' LIMIT 1`

	var id int64
	err := s.db.QueryRowContext(ctx, query, fragment).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("snapshot lookup %q: %w", fragment, err)
	}
	return id, true, nil
}

// Close implements Store.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
