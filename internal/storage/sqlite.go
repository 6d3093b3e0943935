package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ledgerling/ledgerling/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// patternCacheTTL bounds how long a cached pattern may be served without a
// database read.
const patternCacheTTL = 5 * time.Minute

// SQLiteStorage implements the store interfaces using SQLite. One instance
// backs all of them; pattern lookups are cached because the hot path reads
// the same payee patterns for every transaction in a batch.
type SQLiteStorage struct {
	cacheExpiry  time.Time
	db           *sql.DB
	patternCache map[string]*model.PayeePattern
	dbPath       string
	cacheMutex   sync.RWMutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:           db,
		dbPath:       dbPath,
		patternCache: make(map[string]*model.PayeePattern),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Transactions returns the transaction store view.
func (s *SQLiteStorage) Transactions() *TransactionStore {
	return &TransactionStore{s: s}
}

// Patterns returns the payee pattern store view.
func (s *SQLiteStorage) Patterns() *PatternStore {
	return &PatternStore{s: s}
}

// Categorizations returns the categorization store view.
func (s *SQLiteStorage) Categorizations() *CategorizationStore {
	return &CategorizationStore{s: s}
}

// Audit returns the audit log view.
func (s *SQLiteStorage) Audit() *AuditLog {
	return &AuditLog{s: s}
}

// Metrics returns the accuracy metrics view.
func (s *SQLiteStorage) Metrics() *AccuracyMetrics {
	return &AccuracyMetrics{s: s}
}

// queryable abstracts *sql.DB and *sql.Tx so read helpers work in both.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func patternCacheKey(tenantID, canonicalName string) string {
	return tenantID + "\x00" + canonicalName
}

func (s *SQLiteStorage) getCachedPattern(tenantID, canonicalName string) *model.PayeePattern {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	if p, ok := s.patternCache[patternCacheKey(tenantID, canonicalName)]; ok {
		clone := *p
		return &clone
	}
	return nil
}

func (s *SQLiteStorage) cachePattern(p *model.PayeePattern) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if time.Now().After(s.cacheExpiry) {
		s.patternCache = make(map[string]*model.PayeePattern)
		s.cacheExpiry = time.Now().Add(patternCacheTTL)
	}
	clone := *p
	s.patternCache[patternCacheKey(p.TenantID, p.CanonicalName)] = &clone
}

// invalidatePatternCache drops the whole cache. Writes are rare next to reads,
// so tracking individual keys is not worth the bookkeeping.
func (s *SQLiteStorage) invalidatePatternCache() {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	s.patternCache = make(map[string]*model.PayeePattern)
	s.cacheExpiry = time.Time{}
}
