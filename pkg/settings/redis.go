package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmylchreest/cleanlink/internal/logger"
)

// DefaultRedisKey is the hash that holds the settings when no key is given.
const DefaultRedisKey = "cleanlink:settings"

// Hash fields. Lists are stored as JSON arrays so an empty list can be told
// apart from a missing one.
const (
	fieldCategories    = "enabledCategories"
	fieldCustomParams  = "customParams"
	fieldCleanedCount  = "cleanedCount"
	fieldParamsRemoved = "paramsRemoved"
)

// maxTxRetries bounds optimistic-lock retries in Update.
const maxTxRetries = 10

// RedisStore keeps settings in a single Redis hash, so several cleanlink
// processes can share preferences and counters.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to the Redis server at url (redis://...) and
// verifies the connection.
func NewRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if key == "" {
		key = DefaultRedisKey
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, key: key}, nil
}

// Key returns the hash key in use.
func (r *RedisStore) Key() string {
	return r.key
}

// Channel returns the pub/sub channel that announces every write.
func (r *RedisStore) Channel() string {
	return r.key + ":changed"
}

func (r *RedisStore) Load(ctx context.Context) (Settings, error) {
	vals, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings from redis: %w", err)
	}
	return decodeHash(vals)
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	s = s.Clone()
	s.applyDefaults()
	fields, err := encodeHash(s)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, fields)
		pipe.Publish(ctx, r.Channel(), "save")
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save settings to redis: %w", err)
	}
	return nil
}

// Update uses WATCH/MULTI so concurrent updaters never lose each other's
// changes.
func (r *RedisStore) Update(ctx context.Context, fn func(*Settings) error) (Settings, error) {
	var result Settings

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, r.key).Result()
		if err != nil {
			return fmt.Errorf("failed to load settings from redis: %w", err)
		}
		s, err := decodeHash(vals)
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		s.applyDefaults()

		fields, err := encodeHash(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.key, fields)
			pipe.Publish(ctx, r.Channel(), "update")
			return nil
		})
		if err != nil {
			return err
		}
		result = s
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Settings{}, err
	}
	return Settings{}, fmt.Errorf("settings update on %s: too much contention", r.key)
}

// Notify subscribes to the change channel. It returns once the
// subscription is confirmed; onChange then runs for every write by any
// process using the same key, this one included.
func (r *RedisStore) Notify(ctx context.Context, onChange func()) error {
	pubsub := r.client.Subscribe(ctx, r.Channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close() //nolint:errcheck
		return fmt.Errorf("failed to subscribe to %s: %w", r.Channel(), err)
	}

	go func() {
		defer pubsub.Close() //nolint:errcheck
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				logger.Debug("settings changed in redis", "channel", msg.Channel, "op", msg.Payload)
				onChange()
			}
		}
	}()

	logger.Debug("subscribed to settings changes", "channel", r.Channel())
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func decodeHash(vals map[string]string) (Settings, error) {
	var s Settings

	if raw, ok := vals[fieldCategories]; ok {
		if err := json.Unmarshal([]byte(raw), &s.EnabledCategories); err != nil {
			return Settings{}, fmt.Errorf("corrupt %s field: %w", fieldCategories, err)
		}
	}
	if raw, ok := vals[fieldCustomParams]; ok {
		if err := json.Unmarshal([]byte(raw), &s.CustomParams); err != nil {
			return Settings{}, fmt.Errorf("corrupt %s field: %w", fieldCustomParams, err)
		}
	}

	var err error
	if raw, ok := vals[fieldCleanedCount]; ok {
		if s.Stats.CleanedCount, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Settings{}, fmt.Errorf("corrupt %s field: %w", fieldCleanedCount, err)
		}
	}
	if raw, ok := vals[fieldParamsRemoved]; ok {
		if s.Stats.ParamsRemoved, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Settings{}, fmt.Errorf("corrupt %s field: %w", fieldParamsRemoved, err)
		}
	}

	s.applyDefaults()
	return s, nil
}

func encodeHash(s Settings) (map[string]any, error) {
	cats, err := json.Marshal(s.EnabledCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to encode categories: %w", err)
	}
	custom, err := json.Marshal(s.CustomParams)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom params: %w", err)
	}
	return map[string]any{
		fieldCategories:    string(cats),
		fieldCustomParams:  string(custom),
		fieldCleanedCount:  strconv.FormatInt(s.Stats.CleanedCount, 10),
		fieldParamsRemoved: strconv.FormatInt(s.Stats.ParamsRemoved, 10),
	}, nil
}
