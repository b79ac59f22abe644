// Package redissheet stores dashboard tables in Redis.
//
// Each table is a header key holding a JSON array of column names and a list
// of JSON-encoded rows; a set tracks the table names. Keys share a prefix so
// several deployments can use one database.
package redissheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lherron/pipeboard/internal/sheet"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "pipeboard:"

// tombstone marks a list element for removal; rows are JSON arrays so it can
// never collide with one.
const tombstone = "\x00deleted"

// Store is a sheet.Store backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
}

var (
	_ sheet.Store  = (*Store)(nil)
	_ sheet.Schema = (*Store)(nil)
	_ sheet.Pinger = (*Store)(nil)
	_ sheet.Closer = (*Store)(nil)
)

// Open connects to the Redis server at redisURL and verifies the connection.
func Open(ctx context.Context, redisURL, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return New(client, prefix), nil
}

// New creates a store from an existing Redis client.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) tablesKey() string {
	return s.prefix + "tables"
}

func (s *Store) headerKey(table string) string {
	return s.prefix + table + ":header"
}

func (s *Store) rowsKey(table string) string {
	return s.prefix + table + ":rows"
}

func (s *Store) header(ctx context.Context, table string) ([]string, error) {
	raw, err := s.client.Get(ctx, s.headerKey(table)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", sheet.ErrTableNotFound, table)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", table, err)
	}
	var header []string
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return nil, fmt.Errorf("decode header of %s: %w", table, err)
	}
	return header, nil
}

func decodeRow(raw string) (sheet.Row, error) {
	var row sheet.Row
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

func encodeRow(row sheet.Row) (string, error) {
	if row == nil {
		row = sheet.Row{}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	return string(data), nil
}

func (s *Store) Rows(ctx context.Context, table string) ([]sheet.Row, error) {
	header, err := s.header(ctx, table)
	if err != nil {
		return nil, err
	}

	raws, err := s.client.LRange(ctx, s.rowsKey(table), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", table, err)
	}

	head := make(sheet.Row, len(header))
	for i, h := range header {
		head[i] = h
	}
	out := make([]sheet.Row, 0, len(raws)+1)
	out = append(out, head)
	for _, raw := range raws {
		row, err := decodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", table, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) AppendRow(ctx context.Context, table string, values sheet.Row) error {
	header, err := s.header(ctx, table)
	if err != nil {
		return err
	}
	if len(values) > len(header) {
		return sheet.ErrTooManyValues
	}
	raw, err := encodeRow(values)
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, s.rowsKey(table), raw).Err(); err != nil {
		return fmt.Errorf("append to %s: %w", table, err)
	}
	return nil
}

func (s *Store) SetCell(ctx context.Context, table string, row, col int, value any) error {
	header, err := s.header(ctx, table)
	if err != nil {
		return err
	}
	if col < 0 || col >= len(header) {
		return fmt.Errorf("%w: %d", sheet.ErrColOutOfRange, col)
	}
	if row < 1 {
		return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}

	key := s.rowsKey(table)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.LIndex(ctx, key, int64(row-1)).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
		}
		if err != nil {
			return fmt.Errorf("read row %d of %s: %w", row, table, err)
		}
		cells, err := decodeRow(raw)
		if err != nil {
			return err
		}
		for len(cells) <= col {
			cells = append(cells, "")
		}
		cells[col] = value
		updated, err := encodeRow(cells)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, key, int64(row-1), updated)
			return nil
		})
		if err != nil {
			return fmt.Errorf("update row %d of %s: %w", row, table, err)
		}
		return nil
	}, key)
}

func (s *Store) DeleteRow(ctx context.Context, table string, row int) error {
	if _, err := s.header(ctx, table); err != nil {
		return err
	}
	if row < 1 {
		return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}

	key := s.rowsKey(table)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("count rows of %s: %w", table, err)
		}
		if int64(row) > n {
			return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, key, int64(row-1), tombstone)
			pipe.LRem(ctx, key, 1, tombstone)
			return nil
		})
		if err != nil {
			return fmt.Errorf("delete row %d of %s: %w", row, table, err)
		}
		return nil
	}, key)
}

func (s *Store) EnsureTable(ctx context.Context, table string, header []string) error {
	if header == nil {
		header = []string{}
	}
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header of %s: %w", table, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.headerKey(table), data, 0)
		pipe.SAdd(ctx, s.tablesKey(), table)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *Store) Tables(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.tablesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Ping checks if Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
