// Package scancache keeps recent scan inventories in SQLite so a repeated
// copy or verify of the same source can skip the directory walk.
package scancache

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"copyverify/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultTTL is how long a cached scan stays valid.
const DefaultTTL = 5 * time.Minute

type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open creates the database file and schema if needed.
func Open(dbPath string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to cache: %w", err)
	}

	if needsMigration(db) {
		if err := runMigrations(dbPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set cache pragmas: %w", err)
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key identifies a file or directory by its path and modification time, so
// touching the root invalidates the entry. A root that cannot be stat'ed is
// keyed by path alone.
func Key(path string) string {
	data := path
	if info, err := os.Stat(path); err == nil {
		data = fmt.Sprintf("%s%d", path, info.ModTime().UnixNano())
	}
	return digest(data)
}

// SelectionKey identifies an explicit list of files regardless of order.
func SelectionKey(files []string) string {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	return digest(strings.Join(sorted, "|"))
}

func digest(data string) string {
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached inventory for key if it has not expired. Expired
// entries are removed.
func (s *Store) Get(ctx context.Context, key string) (domain.ScanStatistics, bool, error) {
	var blob string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT stats, created_at FROM scan_cache WHERE key = ?`, key,
	).Scan(&blob, &createdAt)
	if err == sql.ErrNoRows {
		return domain.ScanStatistics{}, false, nil
	}
	if err != nil {
		return domain.ScanStatistics{}, false, fmt.Errorf("read cache entry: %w", err)
	}

	if s.now().Sub(time.Unix(0, createdAt)) >= s.ttl {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM scan_cache WHERE key = ?`, key); err != nil {
			return domain.ScanStatistics{}, false, fmt.Errorf("drop expired entry: %w", err)
		}
		return domain.ScanStatistics{}, false, nil
	}

	var stats domain.ScanStatistics
	if err := json.Unmarshal([]byte(blob), &stats); err != nil {
		return domain.ScanStatistics{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return stats, true, nil
}

func (s *Store) Put(ctx context.Context, key string, stats domain.ScanStatistics) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scan_cache (key, root, stats, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET root = excluded.root, stats = excluded.stats, created_at = excluded.created_at
	`, key, stats.Root, string(blob), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scan_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// ClearExpired removes every entry older than the TTL and returns how many went.
func (s *Store) ClearExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_cache WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear expired entries: %w", err)
	}
	return res.RowsAffected()
}
