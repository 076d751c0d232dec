package spacetraveling

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/prismic"
)

const (
	cursorScheme   = "snapshot"
	defaultPerPage = 20
)

// Store wraps a SQLite database holding a snapshot of the CMS documents and
// the resized banner images. It serves the same queries as the CMS client,
// so pages can be rendered without reaching the CMS.
type Store struct {
	db *sql.DB
}

// Snapshot describes the last successful generation.
type Snapshot struct {
	Ref       string
	Documents int
	TakenAt   time.Time
}

// Banner is a resized banner image cached for a post.
type Banner struct {
	UID       string
	SourceURL string
	Width     int
	Height    int
	Data      []byte
	UpdatedAt time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the server read while a revalidation writes; busy_timeout
	// makes the writer wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    uid TEXT NOT NULL,
    type TEXT NOT NULL,
    published_at TEXT NOT NULL,
    body TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_type_published ON documents (type, published_at);
CREATE UNIQUE INDEX IF NOT EXISTS documents_type_uid ON documents (type, uid);
CREATE TABLE IF NOT EXISTS banners (
    uid TEXT PRIMARY KEY,
    source_url TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    data BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ref TEXT NOT NULL,
    documents INTEGER NOT NULL,
    taken_at TEXT NOT NULL
);
`)
	return err
}

// ReplaceDocuments swaps every stored document of docType for docs in one
// transaction and records the snapshot.
func (s *Store) ReplaceDocuments(ctx context.Context, docType, ref string, docs []prismic.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE type = ?`, docType); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO documents (id, uid, type, published_at, body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	n := 0
	for _, doc := range docs {
		if doc.Type != docType {
			continue
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", doc.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.UID, doc.Type, sortKey(doc.FirstPublicationDate), string(body)); err != nil {
			return fmt.Errorf("insert %s: %w", doc.ID, err)
		}
		n++
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (ref, documents, taken_at) VALUES (?, ?, ?)`,
		ref, n, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// sortKey normalizes a publication date to UTC so that string order is
// time order. Undated documents sort first.
func sortKey(raw string) string {
	t, err := content.ParseTimestamp(raw)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// LastSnapshot returns the most recent snapshot, or sql.ErrNoRows if the
// store was never generated.
func (s *Store) LastSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var takenAt string
	err := s.db.QueryRowContext(ctx, `SELECT ref, documents, taken_at FROM snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&snap.Ref, &snap.Documents, &takenAt)
	if err != nil {
		return Snapshot{}, err
	}
	snap.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
	return snap, nil
}

// Query returns the first page of documents of q.Type. Fetch and Ref are
// ignored: the snapshot holds whole published documents only.
func (s *Store) Query(ctx context.Context, q prismic.Query) (prismic.Response, error) {
	size := q.PageSize
	if size <= 0 {
		size = defaultPerPage
	}
	return s.page(ctx, q.Type, strings.HasSuffix(q.Orderings, " desc]"), 0, size)
}

// FetchPage follows a cursor returned by an earlier Query.
func (s *Store) FetchPage(ctx context.Context, cursor string) (prismic.Response, error) {
	u, err := url.Parse(cursor)
	if err != nil || u.Scheme != cursorScheme {
		return prismic.Response{}, fmt.Errorf("store: %w: %q", prismic.ErrInvalidCursor, cursor)
	}
	v := u.Query()
	offset, err1 := strconv.Atoi(v.Get("offset"))
	size, err2 := strconv.Atoi(v.Get("size"))
	if err1 != nil || err2 != nil || offset < 0 || size <= 0 {
		return prismic.Response{}, fmt.Errorf("store: %w: %q", prismic.ErrInvalidCursor, cursor)
	}
	return s.page(ctx, v.Get("type"), v.Get("order") == "desc", offset, size)
}

func (s *Store) page(ctx context.Context, docType string, desc bool, offset, size int) (prismic.Response, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	// one extra row tells whether a next page exists
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE type = ? ORDER BY published_at `+order+`, id `+order+` LIMIT ? OFFSET ?`,
		docType, size+1, offset)
	if err != nil {
		return prismic.Response{}, err
	}
	defer rows.Close()

	var docs []prismic.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return prismic.Response{}, err
		}
		var doc prismic.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return prismic.Response{}, fmt.Errorf("store: decode document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return prismic.Response{}, err
	}

	resp := prismic.Response{
		Page:           offset/size + 1,
		ResultsPerPage: size,
		Results:        docs,
	}
	if len(docs) > size {
		resp.Results = docs[:size]
		resp.NextPage = pageCursor(docType, desc, offset+size, size)
	}
	resp.ResultsSize = len(resp.Results)
	return resp, nil
}

func pageCursor(docType string, desc bool, offset, size int) string {
	v := url.Values{}
	v.Set("type", docType)
	v.Set("offset", strconv.Itoa(offset))
	v.Set("size", strconv.Itoa(size))
	if desc {
		v.Set("order", "desc")
	}
	return (&url.URL{Scheme: cursorScheme, Host: "documents", RawQuery: v.Encode()}).String()
}

// GetByUID returns the stored document of docType with the given uid.
func (s *Store) GetByUID(ctx context.Context, docType, uid, ref string) (prismic.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE type = ? AND uid = ?`, docType, uid).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return prismic.Document{}, prismic.ErrNotFound
	}
	if err != nil {
		return prismic.Document{}, err
	}
	var doc prismic.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return prismic.Document{}, fmt.Errorf("store: decode %s: %w", uid, err)
	}
	return doc, nil
}

// SaveBanner upserts a resized banner.
func (s *Store) SaveBanner(ctx context.Context, b Banner) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO banners (uid, source_url, width, height, data, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.UID, b.SourceURL, b.Width, b.Height, b.Data, b.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

// GetBanner returns the banner stored for uid, or sql.ErrNoRows.
func (s *Store) GetBanner(ctx context.Context, uid string) (Banner, error) {
	b := Banner{UID: uid}
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `SELECT source_url, width, height, data, updated_at FROM banners WHERE uid = ?`, uid).
		Scan(&b.SourceURL, &b.Width, &b.Height, &b.Data, &updatedAt)
	if err != nil {
		return Banner{}, err
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return b, nil
}

// DeleteBannersExcept removes banners of posts no longer in uids.
func (s *Store) DeleteBannersExcept(ctx context.Context, uids []string) error {
	if len(uids) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM banners`)
		return err
	}
	args := make([]any, len(uids))
	for i, uid := range uids {
		args[i] = uid
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(uids)), ",")
	_, err := s.db.ExecContext(ctx, `DELETE FROM banners WHERE uid NOT IN (`+placeholders+`)`, args...)
	return err
}
