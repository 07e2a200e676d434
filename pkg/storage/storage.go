package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Type string

const (
	Bolt   Type = "bolt"
	Redis  Type = "redis"
	Memory Type = "memory"
	// Postgres is the SQL provider, backed by lib/pq.
	Postgres Type = "postgres"
)

// Option IDs understood by the storage providers.
const (
	BoltDBFilePathOption = "boltdb-filepath-option"
	RedisAddressOption   = "redis-address-option"
	PasswordOption       = "storage-password-option"
	FlushOption          = "storage-flush-option"
	SQLConnectionOption  = "sql-connection-string-option"
)

// Option is a provider specific setting, matched by ID.
type Option struct {
	ID     string `json:"id,omitempty"`
	Option any    `json:"option,omitempty"`
}

// ServiceStorage describes the api for storage independent of DB providers.
type ServiceStorage interface {
	Init(opts ...Option) error
	Type() Type
	URI() string
	IsOpen() bool
	Close() error
	Write(ctx context.Context, namespace, key string, value []byte) error
	Read(ctx context.Context, namespace, key string) ([]byte, error)
	ReadAll(ctx context.Context, namespace string) (map[string][]byte, error)
	ReadAllKeys(ctx context.Context, namespace string) ([]string, error)
	Delete(ctx context.Context, namespace, key string) error
	DeleteNamespace(ctx context.Context, namespace string) error
}

var (
	providersMu sync.RWMutex
	providers   = make(map[Type]func() ServiceStorage)
)

// RegisterStorage makes a provider available to NewStorage under its Type.
func RegisterStorage(newStorage func() ServiceStorage) error {
	t := newStorage().Type()
	providersMu.Lock()
	defer providersMu.Unlock()
	if _, ok := providers[t]; ok {
		return errors.Errorf("storage provider <%s> already registered", t)
	}
	providers[t] = newStorage
	logrus.Debugf("storage provider <%s> registered", t)
	return nil
}

// AvailableStorage lists the registered provider types.
func AvailableStorage() []Type {
	providersMu.RLock()
	defer providersMu.RUnlock()
	types := make([]Type, 0, len(providers))
	for t := range providers {
		types = append(types, t)
	}
	return types
}

// NewStorage creates and initializes a fresh instance of the given provider.
func NewStorage(storageType Type, opts ...Option) (ServiceStorage, error) {
	providersMu.RLock()
	newStorage, ok := providers[storageType]
	providersMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unsupported storage type: %s", storageType)
	}
	s := newStorage()
	if err := s.Init(opts...); err != nil {
		return nil, errors.Wrapf(err, "initializing %s storage", storageType)
	}
	return s, nil
}

func optionValue(opts []Option, id string) (any, bool) {
	for _, opt := range opts {
		if opt.ID == id {
			return opt.Option, true
		}
	}
	return nil, false
}

func stringOption(opts []Option, id string) (string, error) {
	v, ok := optionValue(opts, id)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("option <%s> must be a string, got %T", id, v)
	}
	return s, nil
}

// MakeNamespace takes a set of possible namespace values and combines them as a convention.
func MakeNamespace(ns ...string) string {
	return strings.Join(ns, "-")
}
