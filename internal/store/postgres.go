package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq" // Postgres driver + pq.Array helper

	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/logx"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// writeLockKey is the pg_advisory_lock key guarding the three tl_search*
// relations as one atomic write critical section.
const writeLockKey = int64(0x73656172636820 & 0x7fffffffffffffff) // "search " folded into an int64 literal

// Postgres is the Store implementation backed by a real tl_search* schema.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres at connStr and verifies the connection.
func Open(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations: read the directory, parse the version prefix,
// apply each pending file in its own transaction, record it.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("store: ensure schema_migrations: %w", err)
	}

	applied := map[int]bool{}

	rows, err := p.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("store: read schema_migrations: %w", err)
	}

	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan schema_migrations: %w", err)
		}

		applied[v] = true
	}

	rows.Close()

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("store: read migrations dir: %w", err)
	}

	type migration struct {
		version int
		name    string
		sql     string
	}

	var pending []migration

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}

		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}

		version, convErr := strconv.Atoi(parts[0])
		if convErr != nil || applied[version] {
			continue
		}

		content, readErr := migrationFiles.ReadFile("migrations/" + e.Name())
		if readErr != nil {
			return fmt.Errorf("store: read migration %s: %w", e.Name(), readErr)
		}

		pending = append(pending, migration{version: version, name: e.Name(), sql: string(content)})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	for _, m := range pending {
		logx.Info("applying migration", map[string]any{"version": m.version, "file": m.name})

		tx, txErr := p.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("store: begin migration tx: %w", txErr)
		}

		if _, execErr := tx.ExecContext(ctx, m.sql); execErr != nil {
			tx.Rollback()
			return fmt.Errorf("store: apply migration %d: %w", m.version, execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("store: commit migration %d: %w", m.version, commitErr)
		}
	}

	return nil
}

// BeginWrite acquires the corpus-wide advisory lock and opens a
// transaction scoped to it. Writers serialize across processes;
// readers keep seeing the last committed state via MVCC.
func (p *Postgres) BeginWrite(ctx context.Context) (WriteTx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, writeLockKey); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("store: acquire write lock: %w", err)
	}

	return &pgWriteTx{tx: tx}, nil
}

// FindByChecksumPIDURL is the lock-free early-out dedupe lookup run
// before any write lock is acquired.
func (p *Postgres) FindByChecksumPIDURL(ctx context.Context, checksum string, pid int64, url string) (docmodel.Document, bool, error) {
	return scanOneDocument(ctx, p.db, `
		SELECT id, pid, tstamp, url, title, language, protected, filesize, groups, text, checksum, vector_length
		FROM tl_search WHERE checksum = $1 AND pid = $2 AND url = $3
	`, checksum, pid, url)
}

// CorpusSize returns the current live document count.
func (p *Postgres) CorpusSize(ctx context.Context) (int, error) {
	return corpusSize(ctx, p.db)
}

// TermDocumentFrequencies returns documentFrequency for the named terms.
func (p *Postgres) TermDocumentFrequencies(ctx context.Context, terms []string) (map[string]int, error) {
	return termDocumentFrequencies(ctx, p.db, terms)
}

// MatchingTerms returns every dictionary term matching any of the given
// LIKE patterns, grouped by pattern.
func (p *Postgres) MatchingTerms(ctx context.Context, patterns []string) (map[string][]string, error) {
	out := make(map[string][]string, len(patterns))

	for _, pat := range patterns {
		rows, err := p.db.QueryContext(ctx, `SELECT term FROM tl_search_term WHERE term LIKE $1`, pat)
		if err != nil {
			return nil, fmt.Errorf("store: matching terms for %q: %w", pat, err)
		}

		var terms []string

		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: scan matching term: %w", err)
			}

			terms = append(terms, t)
		}

		rows.Close()

		out[pat] = terms
	}

	return out, nil
}

// DocumentCountForTerms returns the number of distinct live documents
// containing at least one of the named terms.
func (p *Postgres) DocumentCountForTerms(ctx context.Context, terms []string) (int, error) {
	if len(terms) == 0 {
		return 0, nil
	}

	var n int

	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT i.pid)
		FROM tl_search_index i
		JOIN tl_search_term t ON t.id = i.term_id
		WHERE t.term = ANY($1)
	`, pq.Array(terms)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: document count for terms: %w", err)
	}

	return n, nil
}

// CandidateDocuments returns every live document containing at least one
// of the named terms, restricted to pids if non-empty, joined with its
// postings' surface forms.
func (p *Postgres) CandidateDocuments(ctx context.Context, terms []string, pids []int64) ([]docmodel.Document, map[int64][]PostingTerm, error) {
	if len(terms) == 0 {
		return nil, nil, nil
	}

	query := `
		SELECT d.id, d.pid, d.tstamp, d.url, d.title, d.language, d.protected,
		       d.filesize, d.groups, d.text, d.checksum, d.vector_length,
		       t.term, i.relevance
		FROM tl_search_index i
		JOIN tl_search_term t ON t.id = i.term_id
		JOIN tl_search d ON d.id = i.pid
		WHERE t.term = ANY($1)
	`
	args := []any{pq.Array(terms)}

	if len(pids) > 0 {
		query += ` AND d.pid = ANY($2)`
		args = append(args, pq.Array(pids))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("store: candidate documents: %w", err)
	}
	defer rows.Close()

	docs := make(map[int64]docmodel.Document)
	postings := make(map[int64][]PostingTerm)

	for rows.Next() {
		var (
			d        docmodel.Document
			term     string
			relevance int
		)

		if err := rows.Scan(&d.ID, &d.PID, &d.Tstamp, &d.URL, &d.Title, &d.Language, &d.Protected,
			&d.Filesize, pq.Array(&d.Groups), &d.Text, &d.Checksum, &d.VectorLength,
			&term, &relevance); err != nil {
			return nil, nil, fmt.Errorf("store: scan candidate row: %w", err)
		}

		docs[d.ID] = d
		postings[d.ID] = append(postings[d.ID], PostingTerm{Term: term, Relevance: relevance})
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: candidate documents rows: %w", err)
	}

	out := make([]docmodel.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}

	return out, postings, nil
}

func corpusSize(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tl_search`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: corpus size: %w", err)
	}

	return n, nil
}

func termDocumentFrequencies(ctx context.Context, q querier, terms []string) (map[string]int, error) {
	out := make(map[string]int, len(terms))
	if len(terms) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, `SELECT term, document_frequency FROM tl_search_term WHERE term = ANY($1)`, pq.Array(terms))
	if err != nil {
		return nil, fmt.Errorf("store: term document frequencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			term string
			df   int
		)

		if err := rows.Scan(&term, &df); err != nil {
			return nil, fmt.Errorf("store: scan term frequency: %w", err)
		}

		out[term] = df
	}

	return out, rows.Err()
}

// querier is the subset of *sql.DB / *sql.Tx used by both the read-only
// Store methods and the write transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// pgWriteTx implements WriteTx over one *sql.Tx already holding the
// advisory write lock.
type pgWriteTx struct {
	tx *sql.Tx
}

func (w *pgWriteTx) FindByChecksumPIDURL(ctx context.Context, checksum string, pid int64, url string) (docmodel.Document, bool, error) {
	return scanOneDocument(ctx, w.tx, `
		SELECT id, pid, tstamp, url, title, language, protected, filesize, groups, text, checksum, vector_length
		FROM tl_search WHERE checksum = $1 AND pid = $2 AND url = $3
	`, checksum, pid, url)
}

func (w *pgWriteTx) FindByChecksumPID(ctx context.Context, checksum string, pid int64) (docmodel.Document, bool, error) {
	return scanOneDocument(ctx, w.tx, `
		SELECT id, pid, tstamp, url, title, language, protected, filesize, groups, text, checksum, vector_length
		FROM tl_search WHERE checksum = $1 AND pid = $2
	`, checksum, pid)
}

func (w *pgWriteTx) FindByURL(ctx context.Context, url string) (docmodel.Document, bool, error) {
	return scanOneDocument(ctx, w.tx, `
		SELECT id, pid, tstamp, url, title, language, protected, filesize, groups, text, checksum, vector_length
		FROM tl_search WHERE url = $1
	`, url)
}

func scanOneDocument(ctx context.Context, q querier, query string, args ...any) (docmodel.Document, bool, error) {
	var d docmodel.Document

	row := q.QueryRowContext(ctx, query, args...)

	err := row.Scan(&d.ID, &d.PID, &d.Tstamp, &d.URL, &d.Title, &d.Language, &d.Protected,
		&d.Filesize, pq.Array(&d.Groups), &d.Text, &d.Checksum, &d.VectorLength)

	switch {
	case err == sql.ErrNoRows:
		return docmodel.Document{}, false, nil
	case err != nil:
		return docmodel.Document{}, false, fmt.Errorf("store: find document: %w", err)
	}

	return d, true, nil
}

func (w *pgWriteTx) UpsertDocument(ctx context.Context, doc docmodel.Document) (int64, error) {
	if doc.ID != 0 {
		_, err := w.tx.ExecContext(ctx, `
			UPDATE tl_search SET
				pid = $2, tstamp = NOW(), url = $3, title = $4, language = $5,
				protected = $6, filesize = $7, groups = $8, text = $9, checksum = $10
			WHERE id = $1
		`, doc.ID, doc.PID, doc.URL, doc.Title, doc.Language, doc.Protected,
			doc.Filesize, pq.Array(doc.Groups), doc.Text, doc.Checksum)
		if err != nil {
			return 0, fmt.Errorf("store: update document: %w", err)
		}

		return doc.ID, nil
	}

	var id int64

	err := w.tx.QueryRowContext(ctx, `
		INSERT INTO tl_search (pid, url, title, language, protected, filesize, groups, text, checksum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, doc.PID, doc.URL, doc.Title, doc.Language, doc.Protected,
		doc.Filesize, pq.Array(doc.Groups), doc.Text, doc.Checksum).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert document: %w", err)
	}

	return id, nil
}

func (w *pgWriteTx) DeleteDocument(ctx context.Context, id int64) error {
	if _, err := w.tx.ExecContext(ctx, `DELETE FROM tl_search WHERE id = $1`, id); err != nil {
		return fmt.Errorf("store: delete document: %w", err)
	}

	return nil
}

func (w *pgWriteTx) PostingsForDocument(ctx context.Context, docID int64) ([]docmodel.Posting, error) {
	rows, err := w.tx.QueryContext(ctx, `SELECT pid, term_id, relevance FROM tl_search_index WHERE pid = $1`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: postings for document: %w", err)
	}
	defer rows.Close()

	var out []docmodel.Posting

	for rows.Next() {
		var p docmodel.Posting
		if err := rows.Scan(&p.PID, &p.TermID, &p.Relevance); err != nil {
			return nil, fmt.Errorf("store: scan posting: %w", err)
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

func (w *pgWriteTx) DeletePostingsForDocument(ctx context.Context, docID int64) error {
	if _, err := w.tx.ExecContext(ctx, `DELETE FROM tl_search_index WHERE pid = $1`, docID); err != nil {
		return fmt.Errorf("store: delete postings: %w", err)
	}

	return nil
}

func (w *pgWriteTx) DecrementTermFrequencies(ctx context.Context, termIDs []int64) error {
	if len(termIDs) == 0 {
		return nil
	}

	_, err := w.tx.ExecContext(ctx, `
		UPDATE tl_search_term
		SET document_frequency = GREATEST(1, document_frequency) - 1
		WHERE id = ANY($1)
	`, pq.Array(termIDs))
	if err != nil {
		return fmt.Errorf("store: decrement term frequencies: %w", err)
	}

	return nil
}

func (w *pgWriteTx) UpsertTerms(ctx context.Context, terms []string) (map[string]int64, error) {
	out := make(map[string]int64, len(terms))
	if len(terms) == 0 {
		return out, nil
	}

	for _, term := range terms {
		var id int64

		err := w.tx.QueryRowContext(ctx, `
			INSERT INTO tl_search_term (term, document_frequency)
			VALUES ($1, 1)
			ON CONFLICT (term) DO UPDATE
				SET document_frequency = tl_search_term.document_frequency + 1
			RETURNING id
		`, term).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("store: upsert term %q: %w", term, err)
		}

		out[term] = id
	}

	return out, nil
}

func (w *pgWriteTx) DeleteZeroFrequencyTerms(ctx context.Context) error {
	if _, err := w.tx.ExecContext(ctx, `DELETE FROM tl_search_term WHERE document_frequency <= 0`); err != nil {
		return fmt.Errorf("store: delete zero frequency terms: %w", err)
	}

	return nil
}

func (w *pgWriteTx) InsertPostings(ctx context.Context, docID int64, tf map[int64]int) error {
	for termID, count := range tf {
		_, err := w.tx.ExecContext(ctx, `
			INSERT INTO tl_search_index (pid, term_id, relevance)
			VALUES ($1, $2, $3)
			ON CONFLICT (pid, term_id) DO UPDATE SET relevance = EXCLUDED.relevance
		`, docID, termID, count)
		if err != nil {
			return fmt.Errorf("store: insert posting: %w", err)
		}
	}

	return nil
}

func (w *pgWriteTx) CorpusSize(ctx context.Context) (int, error) {
	return corpusSize(ctx, w.tx)
}

func (w *pgWriteTx) DocumentIDRange(ctx context.Context) (int64, int64, bool, error) {
	var minID, maxID sql.NullInt64

	err := w.tx.QueryRowContext(ctx, `SELECT MIN(id), MAX(id) FROM tl_search`).Scan(&minID, &maxID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("store: document id range: %w", err)
	}

	if !minID.Valid {
		return 0, 0, false, nil
	}

	return minID.Int64, maxID.Int64, true, nil
}

func (w *pgWriteTx) AllDocumentIDs(ctx context.Context) ([]int64, error) {
	rows, err := w.tx.QueryContext(ctx, `SELECT id FROM tl_search`)
	if err != nil {
		return nil, fmt.Errorf("store: all document ids: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan document id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (w *pgWriteTx) DocumentByID(ctx context.Context, id int64) (docmodel.Document, bool, error) {
	return scanOneDocument(ctx, w.tx, `
		SELECT id, pid, tstamp, url, title, language, protected, filesize, groups, text, checksum, vector_length
		FROM tl_search WHERE id = $1
	`, id)
}

func (w *pgWriteTx) SetVectorLength(ctx context.Context, docID int64, length float64) error {
	if _, err := w.tx.ExecContext(ctx, `UPDATE tl_search SET vector_length = $2 WHERE id = $1`, docID, length); err != nil {
		return fmt.Errorf("store: set vector length: %w", err)
	}

	return nil
}

func (w *pgWriteTx) TermDocumentFrequencies(ctx context.Context, terms []string) (map[string]int, error) {
	return termDocumentFrequencies(ctx, w.tx, terms)
}

func (w *pgWriteTx) TermDocumentFrequenciesByID(ctx context.Context, termIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(termIDs))
	if len(termIDs) == 0 {
		return out, nil
	}

	rows, err := w.tx.QueryContext(ctx, `SELECT id, document_frequency FROM tl_search_term WHERE id = ANY($1)`, pq.Array(termIDs))
	if err != nil {
		return nil, fmt.Errorf("store: term document frequencies by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			df int
		)

		if err := rows.Scan(&id, &df); err != nil {
			return nil, fmt.Errorf("store: scan term frequency by id: %w", err)
		}

		out[id] = df
	}

	return out, rows.Err()
}

func (w *pgWriteTx) Commit() error {
	return w.tx.Commit()
}

func (w *pgWriteTx) Rollback() error {
	return w.tx.Rollback()
}
