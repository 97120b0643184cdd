package prelude

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// CacheStore is the optional on-disk persisted-cache-blob store (spec §6.3
// "Persisted state": "a byte blob embedded at build time and/or written by
// a --precompile-base mode"). Backed by a tiny modernc.org/sqlite table
// rather than a bare file on disk, the same pure-Go-driver choice the
// retrieval pack's sentra database layer makes for embedded local storage.
type CacheStore struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS base_cache (
	content_hash TEXT PRIMARY KEY,
	build_id     TEXT NOT NULL,
	blob         BLOB NOT NULL,
	created_at   INTEGER NOT NULL
)`

// OpenCacheStore opens (creating if absent) a sqlite-backed cache store at
// path.
func OpenCacheStore(path string) (*CacheStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening base cache store: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating base cache table: %w", err)
	}
	return &CacheStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *CacheStore) Close() error { return s.db.Close() }

// contentHash is the lookup key: a sha256 over the blob bytes, not a
// uuid — the uuid column records provenance (which precompile run produced
// this row), the hash is what a reader checks to confirm the blob matches
// what it expects before trusting it as the embedded fast path.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores a serialized BaseCacheBlob (see Serialize), tagging it with a
// fresh build id, and returns the content hash it was stored under.
func (s *CacheStore) Put(data []byte, createdAtUnix int64) (hash string, buildID uuid.UUID, err error) {
	hash = contentHash(data)
	buildID = uuid.New()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO base_cache (content_hash, build_id, blob, created_at) VALUES (?, ?, ?, ?)`,
		hash, buildID.String(), data, createdAtUnix,
	)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("storing base cache blob: %w", err)
	}
	return hash, buildID, nil
}

// Get retrieves a previously stored blob by content hash. ok is false if no
// row matches.
func (s *CacheStore) Get(hash string) (data []byte, buildID uuid.UUID, ok bool, err error) {
	row := s.db.QueryRow(`SELECT build_id, blob FROM base_cache WHERE content_hash = ?`, hash)
	var idStr string
	if err = row.Scan(&idStr, &data); err != nil {
		if err == sql.ErrNoRows {
			return nil, uuid.Nil, false, nil
		}
		return nil, uuid.Nil, false, fmt.Errorf("loading base cache blob: %w", err)
	}
	buildID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, uuid.Nil, false, fmt.Errorf("parsing stored build id: %w", err)
	}
	return data, buildID, true, nil
}

// Latest returns the most recently created row, used by the
// --precompile-base mode's consumer to pick up the newest blob without
// knowing its hash in advance.
func (s *CacheStore) Latest() (data []byte, hash string, buildID uuid.UUID, ok bool, err error) {
	row := s.db.QueryRow(`SELECT content_hash, build_id, blob FROM base_cache ORDER BY created_at DESC LIMIT 1`)
	var idStr string
	if err = row.Scan(&hash, &idStr, &data); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", uuid.Nil, false, nil
		}
		return nil, "", uuid.Nil, false, fmt.Errorf("loading latest base cache blob: %w", err)
	}
	buildID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, "", uuid.Nil, false, fmt.Errorf("parsing stored build id: %w", err)
	}
	return data, hash, buildID, true, nil
}
