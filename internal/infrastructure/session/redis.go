package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/cafe-bot/internal/application/conversation"
)

var _ conversation.SessionStore = (*RedisStore)(nil)

const defaultKeyPrefix = "cafebot:sesion:"

// RedisConfig conexión a Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore sesiones en Redis como JSON; la expiración de la clave es ExpiresAt + ExpiredRetention.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisStore conecta y verifica con PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: conectar a redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ""), nil
}

// NewRedisStoreWithClient usa un cliente existente.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, now: time.Now}
}

func (r *RedisStore) key(userID int64) string {
	return r.keyPrefix + strconv.FormatInt(userID, 10)
}

// Get lee la sesión; nil, nil si no existe.
func (r *RedisStore) Get(ctx context.Context, userID int64) (*conversation.Session, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: leer: %w", err)
	}
	var s conversation.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: decodificar: %w", err)
	}
	return &s, nil
}

// Save escribe la sesión con TTL.
func (r *RedisStore) Save(ctx context.Context, s *conversation.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: codificar: %w", err)
	}
	ttl := conversation.ExpiredRetention
	if !s.ExpiresAt.IsZero() {
		ttl += s.ExpiresAt.Sub(r.now())
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := r.client.Set(ctx, r.key(s.UserID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("session: guardar: %w", err)
	}
	return nil
}

// Delete borra la sesión.
func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("session: borrar: %w", err)
	}
	return nil
}

// Close cierra el cliente.
func (r *RedisStore) Close() error { return r.client.Close() }
