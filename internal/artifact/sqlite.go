package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/straja-ai/wsd/internal/sense"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	word       TEXT NOT NULL,
	role       TEXT NOT NULL,
	blob       BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (word, role)
)`

// SQLiteStore keeps artifact blobs in a single SQLite database, one row per
// (word, role). ONNX graphs referenced by model blobs resolve against
// modelDir.
type SQLiteStore struct {
	db       *sql.DB
	modelDir string
}

var (
	_ Store  = (*SQLiteStore)(nil)
	_ Writer = (*SQLiteStore)(nil)
)

// OpenSQLite opens (and if needed creates) the artifact database at path.
func OpenSQLite(ctx context.Context, path, modelDir string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create artifacts table: %w", err)
	}
	return &SQLiteStore{db: db, modelDir: modelDir}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, word sense.Word) (Pair, error) {
	if err := checkWord(word); err != nil {
		return Pair{}, err
	}
	vecData, err := s.blob(ctx, word, RoleVectorizer)
	if err != nil {
		return Pair{}, err
	}
	modelData, err := s.blob(ctx, word, RoleModel)
	if err != nil {
		return Pair{}, err
	}
	pair, err := decodePair(vecData, modelData, s.modelDir)
	if err != nil {
		return Pair{}, fmt.Errorf("load %s artifacts: %w", word, err)
	}
	return pair, nil
}

func (s *SQLiteStore) blob(ctx context.Context, word sense.Word, role string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM artifacts WHERE word = ? AND role = ?`,
		string(word), role,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s row %s: %w", role, BlobName(word, role), sense.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", BlobName(word, role), err)
	}
	return data, nil
}

// Save upserts both blobs in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, word sense.Word, pair Pair) error {
	if err := checkWord(word); err != nil {
		return err
	}
	vecData, modelData, err := encodePair(pair)
	if err != nil {
		return fmt.Errorf("save %s artifacts: %w", word, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin artifact tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, row := range []struct {
		role string
		data []byte
	}{
		{RoleVectorizer, vecData},
		{RoleModel, modelData},
	} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (word, role, blob, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (word, role) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
			string(word), row.role, row.data, now,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", BlobName(word, row.role), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifact tx: %w", err)
	}
	return nil
}

// Words lists every word that has at least one stored blob.
func (s *SQLiteStore) Words(ctx context.Context) ([]sense.Word, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT word FROM artifacts ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("list artifact words: %w", err)
	}
	defer rows.Close()

	var out []sense.Word
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan artifact word: %w", err)
		}
		out = append(out, sense.Word(w))
	}
	return out, rows.Err()
}
