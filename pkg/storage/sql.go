package storage

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"

	// the postgres driver is registered so "postgres" can be picked via configuration
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func init() {
	if err := RegisterStorage(func() ServiceStorage { return new(SQLDB) }); err != nil {
		panic(err)
	}
}

const sqlDriverName = "postgres"

// SQLDB keeps every namespace in one key/value table, keyed by namespace and key.
type SQLDB struct {
	db               *sql.DB
	connectionString string
}

// Init opens SQLConnectionOption and creates the tables if needed. FlushOption empties them.
func (s *SQLDB) Init(opts ...Option) error {
	connString, err := stringOption(opts, SQLConnectionOption)
	if err != nil {
		return err
	}
	if connString == "" {
		return errors.New("sql connection string is required")
	}
	s.connectionString = connString

	db, err := sql.Open(sqlDriverName, connString)
	if err != nil {
		return errors.Wrap(err, "opening sql db")
	}

	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS key_values (
    namespace varchar NOT NULL,
    key varchar NOT NULL,
    value varchar NOT NULL,
    PRIMARY KEY (namespace, key)
);`); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "creating key_values table")
	}

	if flush, ok := optionValue(opts, FlushOption); ok && flush == true {
		if _, err = db.Exec(`TRUNCATE key_values`); err != nil {
			_ = db.Close()
			return errors.Wrap(err, "flushing sql db")
		}
	}

	s.db = db
	return nil
}

func (s *SQLDB) Type() Type {
	return Postgres
}

// URI is the connection string with any password removed.
func (s *SQLDB) URI() string {
	fields := strings.Fields(s.connectionString)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}

func (s *SQLDB) IsOpen() bool {
	if err := s.db.Ping(); err != nil {
		logrus.WithError(err).Error("pinging db")
		return false
	}
	return true
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}

func (s *SQLDB) Write(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO key_values (namespace, key, value) VALUES ($1, $2, $3)
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value`, namespace, key, base64.RawStdEncoding.EncodeToString(value))
	return errors.Wrapf(err, "writing %s/%s", namespace, key)
}

// Read returns nil without error for a missing key.
func (s *SQLDB) Read(ctx context.Context, namespace, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM key_values WHERE namespace = $1 AND key = $2", namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s/%s", namespace, key)
	}
	return base64.RawStdEncoding.DecodeString(value)
}

func (s *SQLDB) ReadAll(ctx context.Context, namespace string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM key_values WHERE namespace = $1", namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "reading namespace<%s>", namespace)
	}
	defer closeRows(rows)

	all := make(map[string][]byte)
	for rows.Next() {
		var key, value string
		if err = rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		decoded, err := base64.RawStdEncoding.DecodeString(value)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s/%s", namespace, key)
		}
		all[key] = decoded
	}
	return all, rows.Err()
}

func (s *SQLDB) ReadAllKeys(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM key_values WHERE namespace = $1", namespace)
	if err != nil {
		return nil, errors.Wrapf(err, "reading keys of namespace<%s>", namespace)
	}
	defer closeRows(rows)

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLDB) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM key_values WHERE namespace = $1 AND key = $2", namespace, key)
	return errors.Wrapf(err, "deleting %s/%s", namespace, key)
}

func (s *SQLDB) DeleteNamespace(ctx context.Context, namespace string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM key_values WHERE namespace = $1", namespace)
	if err != nil {
		return errors.Wrapf(err, "deleting namespace<%s>", namespace)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Errorf("namespace<%s> does not exist", namespace)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logrus.WithError(err).Error("closing rows")
	}
}
