package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTokenGeneration = errors.New("session id generation failed")
)

// IDLength is the number of random bytes in a session id (64 hex chars).
const IDLength = 32

// Data is what a session holds server side. A zero UserID is an anonymous
// session that only carries flashes.
type Data struct {
	UserID    int64
	Remember  bool
	CreatedAt time.Time
}

type Config struct {
	Prefix      string
	TTL         time.Duration
	RememberTTL time.Duration
}

type Store struct {
	rdb *redis.Client
	cfg Config
}

func NewStore(rdb *redis.Client, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "dibs:session:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}

	return &Store{rdb: rdb, cfg: cfg}
}

// NewID returns a cryptographically random session id.
func NewID() (string, error) {
	b := make([]byte, IDLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Store) TTLFor(d Data) time.Duration {
	if d.Remember {
		return s.cfg.RememberTTL
	}
	return s.cfg.TTL
}

func (s *Store) dataKey(id string) string  { return s.cfg.Prefix + id }
func (s *Store) flashKey(id string) string { return s.cfg.Prefix + id + ":flashes" }

func (s *Store) Load(ctx context.Context, id string) (Data, error) {
	if id == "" {
		return Data{}, ErrNotFound
	}

	m, err := s.rdb.HGetAll(ctx, s.dataKey(id)).Result()
	if err != nil {
		return Data{}, fmt.Errorf("load session: %w", err)
	}
	if len(m) == 0 {
		return Data{}, ErrNotFound
	}

	var d Data
	if v := m["user_id"]; v != "" {
		d.UserID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Data{}, fmt.Errorf("decode session user: %w", err)
		}
	}
	d.Remember = m["remember"] == "1"
	if v := m["created_at"]; v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			d.CreatedAt = time.Unix(unix, 0).UTC()
		}
	}

	return d, nil
}

func (s *Store) Save(ctx context.Context, id string, d Data) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	remember := "0"
	if d.Remember {
		remember = "1"
	}

	key := s.dataKey(id)
	ttl := s.TTLFor(d)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_id", strconv.FormatInt(d.UserID, 10),
			"remember", remember,
			"created_at", strconv.FormatInt(d.CreatedAt.Unix(), 10),
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Destroy removes the session and any pending flashes.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.dataKey(id), s.flashKey(id)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *Store) AddFlash(ctx context.Context, id string, msg string) error {
	key := s.flashKey(id)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, msg)
		pipe.Expire(ctx, key, s.cfg.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("add flash: %w", err)
	}
	return nil
}

// PopFlashes returns pending flashes in insertion order and clears them.
func (s *Store) PopFlashes(ctx context.Context, id string) ([]string, error) {
	key := s.flashKey(id)

	var lr *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lr = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pop flashes: %w", err)
	}

	return lr.Val(), nil
}
