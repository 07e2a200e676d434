package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	PONG               = "PONG"
	RedisScanBatchSize = 1000
)

func init() {
	if err := RegisterStorage(func() ServiceStorage { return new(RedisDB) }); err != nil {
		panic(err)
	}
}

type RedisDB struct {
	db *redis.Client
}

// Init connects to RedisAddressOption, authenticating with PasswordOption. FlushOption empties the database.
func (b *RedisDB) Init(opts ...Option) error {
	address, err := stringOption(opts, RedisAddressOption)
	if err != nil {
		return err
	}
	if address == "" {
		return errors.New("redis address is required")
	}
	password, err := stringOption(opts, PasswordOption)
	if err != nil {
		return err
	}

	b.db = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
	})
	if err = redisotel.InstrumentTracing(b.db); err != nil {
		return errors.Wrap(err, "instrumenting redis tracing")
	}

	if flush, ok := optionValue(opts, FlushOption); ok && flush == true {
		if err = b.db.FlushAll(context.Background()).Err(); err != nil {
			return errors.Wrap(err, "flushing redis")
		}
	}
	return nil
}

func (b *RedisDB) URI() string {
	return b.db.Options().Addr
}

func (b *RedisDB) IsOpen() bool {
	pong, err := b.db.Ping(context.Background()).Result()
	if err != nil {
		logrus.WithError(err).Error("pinging redis")
		return false
	}
	return pong == PONG
}

func (b *RedisDB) Type() Type {
	return Redis
}

func (b *RedisDB) Close() error {
	return b.db.Close()
}

func (b *RedisDB) Write(ctx context.Context, namespace, key string, value []byte) error {
	// Zero expiration means the key has no expiration time.
	return b.db.Set(ctx, getRedisKey(namespace, key), value, 0).Err()
}

// WriteMany writes all values in one transaction.
func (b *RedisDB) WriteMany(ctx context.Context, namespaces, keys []string, values [][]byte) error {
	if len(namespaces) != len(keys) || len(namespaces) != len(values) {
		return errors.New("namespaces, keys, and values, are not of equal length")
	}
	_, err := b.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range namespaces {
			if err := pipe.Set(ctx, getRedisKey(namespaces[i], keys[i]), values[i], 0).Err(); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func (b *RedisDB) Read(ctx context.Context, namespace, key string) ([]byte, error) {
	res, err := b.db.Get(ctx, getRedisKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return res, err
}

func (b *RedisDB) ReadAll(ctx context.Context, namespace string) (map[string][]byte, error) {
	keys, err := b.scan(ctx, namespace)
	if err != nil {
		return nil, errors.Wrap(err, "read all keys error")
	}
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := b.db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "getting multiple keys")
	}
	if len(keys) != len(values) {
		return nil, errors.New("key length does not match value length")
	}
	for i, val := range values {
		s, ok := val.(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		result[strings.TrimPrefix(keys[i], namespacePrefix(namespace))] = []byte(s)
	}
	return result, nil
}

func (b *RedisDB) ReadAllKeys(ctx context.Context, namespace string) ([]string, error) {
	keys, err := b.scan(ctx, namespace)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, namespacePrefix(namespace))
	}
	return keys, nil
}

func (b *RedisDB) scan(ctx context.Context, namespace string) ([]string, error) {
	var cursor uint64
	allKeys := make([]string, 0)
	for {
		keys, nextCursor, err := b.db.Scan(ctx, cursor, namespacePrefix(namespace)+"*", RedisScanBatchSize).Result()
		if err != nil {
			return nil, errors.Wrap(err, "scan error")
		}
		allKeys = append(allKeys, keys...)
		if nextCursor == 0 {
			break
		}
		cursor = nextCursor
	}
	return allKeys, nil
}

func (b *RedisDB) Delete(ctx context.Context, namespace, key string) error {
	return b.db.Del(ctx, getRedisKey(namespace, key)).Err()
}

func (b *RedisDB) DeleteNamespace(ctx context.Context, namespace string) error {
	keys, err := b.scan(ctx, namespace)
	if err != nil {
		return errors.Wrap(err, "read all keys")
	}
	if len(keys) == 0 {
		return errors.Errorf("could not delete namespace<%s>, namespace does not exist", namespace)
	}
	return b.db.Del(ctx, keys...).Err()
}

func namespacePrefix(namespace string) string {
	return namespace + ":"
}

func getRedisKey(namespace, key string) string {
	return fmt.Sprintf("%s%s", namespacePrefix(namespace), key)
}
