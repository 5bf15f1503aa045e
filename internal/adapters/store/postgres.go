package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS messages (
	seq       BIGSERIAL PRIMARY KEY,
	id        TEXT NOT NULL,
	room      TEXT NOT NULL,
	username  TEXT NOT NULL,
	text      TEXT NOT NULL,
	ts        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room_seq ON messages (room, seq DESC);
`

type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) FindMessages(ctx context.Context, room domain.RoomName, limit int) ([]domain.Message, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, room, username, text, ts FROM messages WHERE room = $1 ORDER BY seq DESC LIMIT $2`,
		string(room), limit)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		var (
			m        domain.Message
			roomName string
		)
		err := row.Scan(&m.ID, &roomName, &m.User, &m.Text, &m.Timestamp)
		m.Room = domain.RoomName(roomName)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (p *Postgres) SaveMessage(ctx context.Context, msg domain.Message) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (id, room, username, text, ts) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, string(msg.Room), msg.User, msg.Text, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteMessages(ctx context.Context, room domain.RoomName) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM messages WHERE room = $1`, string(room)); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

func (p *Postgres) CreateRoom(ctx context.Context, name domain.RoomName) error {
	if _, err := p.pool.Exec(ctx, `INSERT INTO rooms (name) VALUES ($1) ON CONFLICT DO NOTHING`, string(name)); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (p *Postgres) ListRooms(ctx context.Context) ([]domain.RoomName, error) {
	rows, err := p.pool.Query(ctx, `SELECT name FROM rooms ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	out := make([]domain.RoomName, len(names))
	for i, n := range names {
		out[i] = domain.RoomName(n)
	}
	return out, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
