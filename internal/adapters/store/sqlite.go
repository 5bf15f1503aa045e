package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Lobby/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// messageRow is keyed by Seq; ID is whatever the client sent and may repeat.
type messageRow struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement;index:idx_messages_room_seq,priority:2"`
	ID        string    `gorm:"not null"`
	Room      string    `gorm:"index:idx_messages_room_seq,priority:1;not null"`
	User      string    `gorm:"not null"`
	Text      string    `gorm:"not null"`
	Timestamp time.Time `gorm:"not null"`
}

func (messageRow) TableName() string { return "messages" }

type roomRow struct {
	Name      string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (roomRow) TableName() string { return "rooms" }

// SQLite is the gorm-backed gateway.
type SQLite struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	return NewSQLite(db)
}

// NewSQLite migrates the schema on an existing connection.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if err := db.AutoMigrate(&messageRow{}, &roomRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) FindMessages(ctx context.Context, room domain.RoomName, limit int) ([]domain.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("room = ?", string(room)).
		Order("seq DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	out := make([]domain.Message, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = domain.Message{
			ID:        r.ID,
			Room:      domain.RoomName(r.Room),
			User:      r.User,
			Text:      r.Text,
			Timestamp: r.Timestamp,
		}
	}
	return out, nil
}

func (s *SQLite) SaveMessage(ctx context.Context, msg domain.Message) error {
	row := messageRow{ID: msg.ID, Room: string(msg.Room), User: msg.User, Text: msg.Text, Timestamp: msg.Timestamp}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteMessages(ctx context.Context, room domain.RoomName) error {
	if err := s.db.WithContext(ctx).Where("room = ?", string(room)).Delete(&messageRow{}).Error; err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

func (s *SQLite) CreateRoom(ctx context.Context, name domain.RoomName) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&roomRow{Name: string(name)}).Error
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *SQLite) ListRooms(ctx context.Context) ([]domain.RoomName, error) {
	var rows []roomRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]domain.RoomName, len(rows))
	for i, r := range rows {
		out[i] = domain.RoomName(r.Name)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
