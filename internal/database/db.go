package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

var DB *pgxpool.Pool

func ConnectDB() {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		logrus.Fatalf("unable to parse pgx config: %v", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		logrus.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		logrus.Fatalf("db ping error: %v", err)
	}

	if err := ensureSchema(ctx); err != nil {
		logrus.Fatalf("schema migration error: %v", err)
	}

	logrus.Infof("connected to database %s", os.Getenv("PG_DATABASE"))
}

func ensureSchema(ctx context.Context) error {
	q := `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id UUID PRIMARY KEY,
			room_id TEXT NOT NULL,
			game_id TEXT NOT NULL,
			status TEXT NOT NULL,
			player_ids TEXT[] NOT NULL,
			state JSONB,
			passcode_hash TEXT,
			version BIGINT NOT NULL DEFAULT 1,
			action_count BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_game_sessions_room ON game_sessions (room_id) WHERE status != 'completed';
	`
	_, err := DB.Exec(ctx, q)
	return err
}
