package enrich

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// Cache is an optional SQLite-backed lookup cache so repeated runs can
// build full coverage of a large registry without re-spending budget on
// repositories fetched recently. Correctness never depends on it: every
// method failure degrades to a cache miss.
type Cache struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// OpenCache opens (creating if needed) the cache database at path.
// Entries older than maxAge are treated as misses.
func OpenCache(path string, maxAge time.Duration) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS repo_cache (
		repo       TEXT PRIMARY KEY,
		fetched_at INTEGER NOT NULL,
		data       TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Cache{db: db, maxAge: maxAge, now: time.Now}, nil
}

// Get returns cached repo data, or nil on miss or staleness.
func (c *Cache) Get(owner, repo string) *RepoData {
	var (
		fetchedAt int64
		raw       string
	)
	row := c.db.QueryRow(`SELECT fetched_at, data FROM repo_cache WHERE repo = ?`, owner+"/"+repo)
	if err := row.Scan(&fetchedAt, &raw); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			// Corrupt row: miss, the fresh fetch will overwrite it.
			return nil
		}
		return nil
	}
	if c.now().Sub(time.Unix(fetchedAt, 0)) > c.maxAge {
		return nil
	}
	var data RepoData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return &data
}

// Put stores freshly fetched repo data.
func (c *Cache) Put(owner, repo string, data *RepoData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO repo_cache (repo, fetched_at, data) VALUES (?, ?, ?)
		 ON CONFLICT(repo) DO UPDATE SET fetched_at = excluded.fetched_at, data = excluded.data`,
		owner+"/"+repo, c.now().Unix(), string(raw),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
