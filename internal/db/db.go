// Package db archives uploads and conversation turns in Postgres.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-chatbot/internal/config"
)

type DocumentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SessionID     string    `bun:"session_id,notnull"`
	Filename      string    `bun:"filename,notnull"`
	PageCount     int       `bun:"page_count,notnull"`
	NumChunks     int       `bun:"num_chunks,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type TurnRecord struct {
	bun.BaseModel `bun:"table:turns,alias:t"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SessionID     string    `bun:"session_id,notnull"`
	Question      string    `bun:"question,notnull"`
	Answer        string    `bun:"answer,notnull"`
	Route         string    `bun:"route"`
	ElapsedMS     int64     `bun:"elapsed_ms"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Archive persists what happened in a session. Failures are reported to the
// caller but never change an answer.
type Archive interface {
	SaveDocument(ctx context.Context, doc *DocumentRecord) error
	SaveTurn(ctx context.Context, turn *TurnRecord) error
	Close() error
}

// Nop is the archive used when no database is configured.
type Nop struct{}

func (Nop) SaveDocument(context.Context, *DocumentRecord) error { return nil }
func (Nop) SaveTurn(context.Context, *TurnRecord) error         { return nil }
func (Nop) Close() error                                        { return nil }

type BunArchive struct {
	db *bun.DB
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(dsn string) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
}

func InitDB(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*DocumentRecord)(nil), (*TurnRecord)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Open returns the configured archive: Nop when the database is disabled,
// otherwise a Postgres archive with its tables created.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Archive, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}

	db := NewDB(ConnectDB(cfg.DSN), cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Msg("Transcript archive enabled")
	return &BunArchive{db: db}, nil
}

func (a *BunArchive) SaveDocument(ctx context.Context, doc *DocumentRecord) error {
	if _, err := a.db.NewInsert().Model(doc).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (a *BunArchive) SaveTurn(ctx context.Context, turn *TurnRecord) error {
	if _, err := a.db.NewInsert().Model(turn).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

func (a *BunArchive) Close() error {
	return a.db.Close()
}
