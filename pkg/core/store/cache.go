package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"autodcf/pkg/core/fundamentals"
)

// StatementCache caches scraped financial statements so repeated runs on
// the same ticker do not hammer the source site. Hybrid vault: DB when a
// pool is configured, files otherwise.
type StatementCache struct {
	pool    *pgxpool.Pool
	fileDir string
	maxAge  time.Duration
}

// NewStatementCache creates a cache. If pool is nil the cache works off
// files in dir; maxAge of zero disables expiry.
func NewStatementCache(pool *pgxpool.Pool, dir string, maxAge time.Duration) *StatementCache {
	if pool == nil && dir == "" {
		dir = filepath.Join("cache", "statements")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARN] statement cache dir: %v\n", err)
		}
	}
	return &StatementCache{pool: pool, fileDir: dir, maxAge: maxAge}
}

// statementEntry is the serialized cache record.
type statementEntry struct {
	Ticker    string                 `json:"ticker"`
	Years     int                    `json:"years"`
	Income    fundamentals.TableData `json:"income"`
	Balance   fundamentals.TableData `json:"balance"`
	Cash      fundamentals.TableData `json:"cash"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// Get returns cached statements for a ticker and lookback, if fresh ones
// exist. A corrupt or stale entry is a miss, never an error.
func (c *StatementCache) Get(ctx context.Context, ticker string, years int) (fundamentals.Statements, bool) {
	entry, ok := c.load(ctx, strings.ToUpper(ticker), years)
	if !ok {
		return fundamentals.Statements{}, false
	}
	if c.maxAge > 0 && time.Since(entry.FetchedAt) > c.maxAge {
		return fundamentals.Statements{}, false
	}

	income, err := fundamentals.FromData(entry.Income)
	if err != nil {
		fmt.Printf("[WARN] cached income table for %s: %v\n", ticker, err)
		return fundamentals.Statements{}, false
	}
	balance, err := fundamentals.FromData(entry.Balance)
	if err != nil {
		fmt.Printf("[WARN] cached balance table for %s: %v\n", ticker, err)
		return fundamentals.Statements{}, false
	}
	cash, err := fundamentals.FromData(entry.Cash)
	if err != nil {
		fmt.Printf("[WARN] cached cash table for %s: %v\n", ticker, err)
		return fundamentals.Statements{}, false
	}
	return fundamentals.Statements{Income: income, Balance: balance, Cash: cash}, true
}

// Save stores statements under (ticker, years). DB and file targets are
// both written when configured.
func (c *StatementCache) Save(ctx context.Context, ticker string, years int, statements fundamentals.Statements) error {
	entry := statementEntry{
		Ticker:    strings.ToUpper(ticker),
		Years:     years,
		Income:    statements.Income.Data(),
		Balance:   statements.Balance.Data(),
		Cash:      statements.Cash.Data(),
		FetchedAt: time.Now(),
	}
	entryJSON, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	// Schema assumption (managed outside this package):
	//
	//	CREATE TABLE IF NOT EXISTS statement_cache (
	//	  ticker TEXT NOT NULL,
	//	  years INT NOT NULL,
	//	  data JSONB NOT NULL,
	//	  fetched_at TIMESTAMPTZ NOT NULL,
	//	  PRIMARY KEY (ticker, years)
	//	);
	if c.pool != nil {
		query := `
			INSERT INTO statement_cache (ticker, years, data, fetched_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (ticker, years)
			DO UPDATE SET data = EXCLUDED.data, fetched_at = EXCLUDED.fetched_at
		`
		if _, err := c.pool.Exec(ctx, query, entry.Ticker, years, entryJSON, entry.FetchedAt); err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
	}

	if c.fileDir != "" {
		if err := os.WriteFile(c.entryPath(entry.Ticker, years), entryJSON, 0644); err != nil {
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
	}
	return nil
}

func (c *StatementCache) load(ctx context.Context, ticker string, years int) (*statementEntry, bool) {
	if c.pool != nil {
		query := `SELECT data FROM statement_cache WHERE ticker = $1 AND years = $2`
		var entryJSON []byte
		if err := c.pool.QueryRow(ctx, query, ticker, years).Scan(&entryJSON); err != nil {
			return nil, false // Cache miss
		}
		var entry statementEntry
		if err := json.Unmarshal(entryJSON, &entry); err != nil {
			fmt.Printf("[WARN] corrupt db cache entry for %s: %v\n", ticker, err)
			return nil, false
		}
		return &entry, true
	}

	if c.fileDir != "" {
		entryJSON, err := os.ReadFile(c.entryPath(ticker, years))
		if err != nil {
			return nil, false
		}
		var entry statementEntry
		if err := json.Unmarshal(entryJSON, &entry); err != nil {
			fmt.Printf("[WARN] corrupt file cache entry for %s: %v\n", ticker, err)
			return nil, false
		}
		return &entry, true
	}

	return nil, false
}

func (c *StatementCache) entryPath(ticker string, years int) string {
	return filepath.Join(c.fileDir, fmt.Sprintf("%s_%dy.json", ticker, years))
}
