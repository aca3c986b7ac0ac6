// Package audit mirrors the ledger's event journal into a SQL database for reporting. PostgreSQL
// (lib/pq) and SQLite (modernc) are supported; the journal in the state store stays authoritative.
package audit

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SundaeSwap-finance/sundae-farm/logger"
	"github.com/SundaeSwap-finance/sundae-farm/state"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Record is an exported event as stored in the database
type Record struct {
	Seq               uint64
	Block             uint64
	Kind              types.EventKind
	PoolID            uint64
	Caller            string
	Amount            string
	Reward            string
	AllocPoint        uint64
	StakeToken        string
	AccRewardPerShare string
	TotalStaked       string
	Hash              string
}

type Exporter struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger
}

func Open(ctx context.Context, driver, dsn string) (*Exporter, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported audit driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == DriverSQLite {
		// Every connection to an in-memory database is a different database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	e := &Exporter{db: db, driver: driver, logger: logger.GetForComponent("audit")}
	if err := e.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

func (e *Exporter) init(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	_, err := e.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS farm_events (
            seq BIGINT PRIMARY KEY,
            block BIGINT NOT NULL,
            kind TEXT NOT NULL,
            pool_id BIGINT NOT NULL,
            caller TEXT NOT NULL,
            amount TEXT NOT NULL,
            reward TEXT NOT NULL,
            alloc_point TEXT NOT NULL,
            stake_token TEXT NOT NULL,
            acc_reward_per_share TEXT NOT NULL,
            total_staked TEXT NOT NULL,
            prev_hash TEXT NOT NULL,
            hash TEXT NOT NULL
        )`)
	if err != nil {
		return fmt.Errorf("failed to create farm_events: %w", err)
	}
	return nil
}

func (e *Exporter) Close() error {
	return e.db.Close()
}

// placeholders renders n bind parameters in the driver's syntax
func (e *Exporter) placeholders(n int) string {
	params := make([]string, n)
	for i := range params {
		if e.driver == DriverPostgres {
			params[i] = "$" + strconv.Itoa(i+1)
		} else {
			params[i] = "?"
		}
	}
	return strings.Join(params, ", ")
}

// Export writes events, skipping any already present, and returns how many were new
func (e *Exporter) Export(ctx context.Context, events []types.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `INSERT INTO farm_events (seq, block, kind, pool_id, caller, amount, reward, alloc_point,
            stake_token, acc_reward_per_share, total_staked, prev_hash, hash)
        VALUES (` + e.placeholders(13) + `) ON CONFLICT (seq) DO NOTHING`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, event := range events {
		result, err := stmt.ExecContext(ctx,
			int64(event.Seq),
			int64(event.Block),
			string(event.Kind),
			int64(event.PoolID),
			event.Caller,
			event.Amount.Dec(),
			event.Reward.Dec(),
			strconv.FormatUint(event.AllocPoint, 10),
			event.StakeToken.String(),
			event.AccRewardPerShare.Dec(),
			event.TotalStaked.Dec(),
			hex.EncodeToString(event.PrevHash[:]),
			hex.EncodeToString(event.Hash[:]),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to export event %v: %w", event.Seq, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// LastSeq is the highest exported sequence number, or zero
func (e *Exporter) LastSeq(ctx context.Context) (uint64, error) {
	var seq int64
	if err := e.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM farm_events`).Scan(&seq); err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

// Sync exports every journaled event newer than what the database already holds
func (e *Exporter) Sync(ctx context.Context, store *state.Store) (int, error) {
	last, err := e.LastSeq(ctx)
	if err != nil {
		return 0, err
	}
	events, err := store.Events(last+1, 0)
	if err != nil {
		return 0, err
	}
	return e.Export(ctx, events)
}

// Emit lets the exporter follow the ledger live; failures are logged and picked up by the next Sync
func (e *Exporter) Emit(event types.Event) {
	if _, err := e.Export(context.Background(), []types.Event{event}); err != nil {
		e.logger.Error().Err(err).Uint64("seq", event.Seq).Msg("Failed to export event")
	}
}

// Records lists exported events for one caller, or for everyone when caller is empty
func (e *Exporter) Records(ctx context.Context, caller string) ([]Record, error) {
	query := `SELECT seq, block, kind, pool_id, caller, amount, reward, alloc_point, stake_token,
            acc_reward_per_share, total_staked, hash FROM farm_events`
	var args []interface{}
	if caller != "" {
		query += ` WHERE caller = ` + e.placeholders(1)
		args = append(args, caller)
	}
	query += ` ORDER BY seq`
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var seq, block, poolID int64
		var kind, allocPoint string
		err := rows.Scan(&seq, &block, &kind, &poolID, &r.Caller, &r.Amount, &r.Reward, &allocPoint,
			&r.StakeToken, &r.AccRewardPerShare, &r.TotalStaked, &r.Hash)
		if err != nil {
			return nil, err
		}
		r.Seq, r.Block, r.PoolID, r.Kind = uint64(seq), uint64(block), uint64(poolID), types.EventKind(kind)
		if r.AllocPoint, err = strconv.ParseUint(allocPoint, 10, 64); err != nil {
			return nil, fmt.Errorf("event %v has a malformed alloc point: %w", seq, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
