// Package sqlite provides the durable corpus store. Documents and
// snapshots are persisted in SQLite; queries are served by the in-memory
// versioned index, rebuilt from disk at startup. A persisted index that
// fails to load blocks startup rather than silently serving an empty
// corpus.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/corpus/memory"
	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CorpusStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS corpus_documents (
	id           TEXT PRIMARY KEY,
	source_type  TEXT NOT NULL,
	source_label TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	severity     TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL,
	chunk_index  INTEGER NOT NULL DEFAULT 0,
	embedding    BLOB NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	seq          INTEGER NOT NULL,
	active       INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS corpus_snapshots (
	version    TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS corpus_snapshot_members (
	version TEXT NOT NULL,
	doc_id  TEXT NOT NULL,
	PRIMARY KEY (version, doc_id)
);

CREATE TABLE IF NOT EXISTS corpus_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the SQLite-backed corpus store.
type Store struct {
	db    *sql.DB
	path  string
	index *memory.Index
	seq   int64
	model string
}

// NewStore opens (or creates) the corpus database and rebuilds the
// in-memory index from it. If dataDir is empty, defaults to
// ~/.reelrate/data/corpus.db. embedder may be nil when all documents
// arrive pre-embedded.
func NewStore(dataDir string, embedder driven.EmbeddingService, opts memory.Options) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".reelrate", "data")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// WAL mode for better concurrency between the writer and readers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &Store{
		db:    db,
		path:  dbPath,
		index: memory.New(embedder, opts),
	}
	if embedder != nil {
		s.model = embedder.ModelVersion()
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// load rebuilds the in-memory index from the active rows. Any decoding
// failure is ErrCorpusCorrupt: startup must block, never serve an empty
// index in place of a broken one.
func (s *Store) load() error {
	var model string
	err := s.db.QueryRow(`SELECT value FROM corpus_meta WHERE key = 'embedding_model'`).Scan(&model)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading corpus meta: %w: %v", domain.ErrCorpusCorrupt, err)
	}
	if model != "" {
		if s.model != "" && s.model != model {
			return fmt.Errorf("corpus embedded with %q, configured embedder is %q: %w", model, s.model, domain.ErrVersionMismatch)
		}
		s.model = model
	}

	var version string
	err = s.db.QueryRow(`SELECT value FROM corpus_meta WHERE key = 'active_version'`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading corpus meta: %w: %v", domain.ErrCorpusCorrupt, err)
	}

	rows, err := s.db.Query(`
		SELECT id, source_type, source_label, category, severity, content, chunk_index, embedding, created_at, seq
		FROM corpus_documents WHERE active = 1 ORDER BY seq ASC`)
	if err != nil {
		return fmt.Errorf("loading corpus documents: %w: %v", domain.ErrCorpusCorrupt, err)
	}
	defer rows.Close()

	var docs []domain.CorpusDocument
	for rows.Next() {
		var (
			doc  domain.CorpusDocument
			blob []byte
			seq  int64
		)
		if err := rows.Scan(&doc.ID, (*string)(&doc.SourceType), &doc.SourceLabel,
			(*string)(&doc.Category), (*string)(&doc.Severity),
			&doc.Content, &doc.ChunkIndex, &blob, &doc.CreatedAt, &seq); err != nil {
			return fmt.Errorf("scanning corpus row: %w: %v", domain.ErrCorpusCorrupt, err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("document %s: %w: %v", doc.ID, domain.ErrCorpusCorrupt, err)
		}
		doc.Embedding = vector
		docs = append(docs, doc)
		if seq > s.seq {
			s.seq = seq
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading corpus documents: %w: %v", domain.ErrCorpusCorrupt, err)
	}

	if len(docs) == 0 {
		return nil
	}
	if err := s.index.Seed(docs, s.model, domain.CorpusVersion(version)); err != nil {
		return err
	}
	return nil
}

// Upsert adds documents to the index and persists the accepted ones.
func (s *Store) Upsert(ctx context.Context, docs []domain.CorpusDocument) ([]domain.UpsertResult, error) {
	results, err := s.index.Upsert(ctx, docs)
	if err != nil {
		return nil, err
	}

	accepted := make(map[string]bool)
	for _, r := range results {
		if r.Status == domain.UpsertAccepted {
			accepted[r.DocumentID] = true
		}
	}
	if len(accepted) == 0 {
		return results, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, doc := range s.index.ActiveDocuments() {
		if !accepted[doc.ID] {
			continue
		}
		s.seq++
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO corpus_documents
			(id, source_type, source_label, category, severity, content, chunk_index, embedding, created_at, seq, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			doc.ID, string(doc.SourceType), doc.SourceLabel, string(doc.Category), string(doc.Severity),
			doc.Content, doc.ChunkIndex, encodeVector(doc.Embedding), doc.CreatedAt, s.seq); err != nil {
			return nil, fmt.Errorf("persist document %s: %w", doc.ID, err)
		}
	}
	if err := s.writeMeta(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return results, nil
}

// Search serves from the in-memory index; readers never block on writes.
func (s *Store) Search(ctx context.Context, query []float32, topK int, floor float64, filter domain.CorpusFilter) ([]domain.ScoredDocument, error) {
	return s.index.Search(ctx, query, topK, floor, filter)
}

// Delete removes documents. Rows stay on disk (marked inactive) so
// snapshots can still be rolled back to. The rows are deactivated in one
// transaction and the in-memory swap follows the commit, so a failed
// write never leaves the served index ahead of the database.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE corpus_documents SET active = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deactivate document %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return s.index.Delete(ctx, ids)
}

// Snapshot captures the active state in memory and on disk.
func (s *Store) Snapshot(ctx context.Context) (domain.CorpusVersion, error) {
	version, err := s.index.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO corpus_snapshots (version, created_at) VALUES (?, ?)`,
		string(version), time.Now().UTC()); err != nil {
		return "", fmt.Errorf("persist snapshot: %w", err)
	}
	for _, doc := range s.index.ActiveDocuments() {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO corpus_snapshot_members (version, doc_id) VALUES (?, ?)`,
			string(version), doc.ID); err != nil {
			return "", fmt.Errorf("persist snapshot member: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return version, nil
}

// Rollback restores a snapshot. The in-memory swap is atomic; disk
// active flags follow. After a restart the snapshot is rebuilt from the
// persisted member list.
func (s *Store) Rollback(ctx context.Context, version domain.CorpusVersion) error {
	if err := s.index.Rollback(ctx, version); err == nil {
		return s.persistRollback(ctx, version)
	}

	// Snapshot not held in memory (e.g. after restart): rebuild it from
	// the persisted member rows.
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_snapshots WHERE version = ?`, string(version)).Scan(&exists); err != nil {
		return fmt.Errorf("lookup snapshot %s: %w", version, err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s: %w", version, domain.ErrUnknownVersion)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.source_type, d.source_label, d.category, d.severity, d.content, d.chunk_index, d.embedding, d.created_at
		FROM corpus_documents d
		JOIN corpus_snapshot_members m ON m.doc_id = d.id
		WHERE m.version = ? ORDER BY d.seq ASC`, string(version))
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", version, err)
	}
	defer rows.Close()

	var docs []domain.CorpusDocument
	for rows.Next() {
		var (
			doc  domain.CorpusDocument
			blob []byte
		)
		if err := rows.Scan(&doc.ID, (*string)(&doc.SourceType), &doc.SourceLabel,
			(*string)(&doc.Category), (*string)(&doc.Severity),
			&doc.Content, &doc.ChunkIndex, &blob, &doc.CreatedAt); err != nil {
			return fmt.Errorf("scan snapshot member: %w", err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("document %s: %w: %v", doc.ID, domain.ErrCorpusCorrupt, err)
		}
		doc.Embedding = vector
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load snapshot %s: %w", version, err)
	}
	if err := s.index.Seed(docs, s.model, version); err != nil {
		return err
	}
	return s.persistRollback(ctx, version)
}

func (s *Store) persistRollback(ctx context.Context, version domain.CorpusVersion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rollback: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `UPDATE corpus_documents SET active = 0`); err != nil {
		return fmt.Errorf("reset active flags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE corpus_documents SET active = 1
		WHERE id IN (SELECT doc_id FROM corpus_snapshot_members WHERE version = ?)`, string(version)); err != nil {
		return fmt.Errorf("restore active flags: %w", err)
	}
	if err := s.writeMeta(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rollback: %w", err)
	}
	return nil
}

func (s *Store) writeMeta(ctx context.Context, tx *sql.Tx) error {
	version, err := s.index.ActiveVersion(ctx)
	if err != nil {
		return err
	}
	model := s.index.EmbeddingModel()
	if model == "" {
		model = s.model
	}
	for key, value := range map[string]string{
		"active_version":  string(version),
		"embedding_model": model,
	} {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO corpus_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("write corpus meta %s: %w", key, err)
		}
	}
	return nil
}

// ActiveVersion returns the version tag of the active index.
func (s *Store) ActiveVersion(ctx context.Context) (domain.CorpusVersion, error) {
	return s.index.ActiveVersion(ctx)
}

// EmbeddingModel returns the model the corpus was embedded with.
func (s *Store) EmbeddingModel() string {
	if m := s.index.EmbeddingModel(); m != "" {
		return m
	}
	return s.model
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeVector serialises a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

// decodeVector deserialises a little-endian float32 vector.
func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
