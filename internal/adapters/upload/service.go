// Package upload stores chat attachments for dynamic rooms.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxBytes = 20 << 20
	URLPrefix       = "/api/files/"
)

var (
	ErrGeneralRoom = errors.New("uploads are disabled in general")
	ErrEmptyFile   = errors.New("empty file")
	ErrTooLarge    = errors.New("file too large")
	ErrInvalidKey  = errors.New("invalid file key")
)

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

type Service struct {
	store    core.ObjectStore
	maxBytes int64
}

func NewService(store core.ObjectStore, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, maxBytes: maxBytes}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload stores data under <room>/<uuid><ext> and returns the public URL.
func (s *Service) Upload(ctx context.Context, data []byte, filename, contentType, username string, room domain.RoomName) (string, error) {
	if room.IsGeneral() {
		return "", ErrGeneralRoom
	}
	if !domain.ValidRoomName(room) {
		return "", domain.ErrRoomNameInvalid
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	key := fmt.Sprintf("%s/%s%s", room, uuid.NewString(), ext)

	info, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	log.Info().Str("module", "upload").Str("room", string(room)).Str("username", username).
		Str("key", info.Name).Uint64("size", info.Size).Msg("file uploaded")
	return URLPrefix + key, nil
}

// Open returns a stored object by the key embedded in its URL.
func (s *Service) Open(ctx context.Context, key string) ([]byte, *core.ObjectInfo, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return nil, nil, ErrInvalidKey
	}
	return s.store.Get(ctx, key)
}

func (s *Service) Close() error { return s.store.Close() }

// OpenStore connects the configured object store.
func OpenStore(ctx context.Context, cfg config.UploadConfig) (core.ObjectStore, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewOsFSStore(cfg.Dir)
	case "nats":
		return OpenJetStreamStore(ctx, cfg.NatsURL, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
	}
}
