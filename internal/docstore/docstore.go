// Package docstore is a small document database on top of Redis. Documents
// are hashes of JSON-encoded fields grouped into collections; every write is
// published so live queries can re-run.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"bookdot/internal/models"
	"bookdot/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 50

// Store is the entry point to the document database.
type Store struct {
	rdb *redis.Client
}

// New wraps a Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Collection returns a handle to the named collection.
func (s *Store) Collection(name string) *Collection {
	return &Collection{store: s, name: name}
}

// Collection groups documents of one kind.
type Collection struct {
	store *Store
	name  string
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) indexKey() string { return "docs:" + c.name }

func (c *Collection) docKey(id string) string { return "docs:" + c.name + ":" + id }

func (c *Collection) changesChannel() string { return "docs:changes:" + c.name }

// Doc returns a reference to the document with the given id.
func (c *Collection) Doc(id string) *DocRef {
	return &DocRef{coll: c, ID: id}
}

// Add stores v under a freshly generated id and returns the id.
func (c *Collection) Add(ctx context.Context, v any) (string, error) {
	id := uuid.NewString()
	if err := c.Doc(id).Set(ctx, v); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Collection) publish(ctx context.Context, id string) {
	if err := c.store.rdb.Publish(ctx, c.changesChannel(), id).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "docstore change publish failed",
			"collection", c.name,
			"error", err.Error(),
		)
	}
}

// DocRef addresses a single document.
type DocRef struct {
	coll *Collection
	ID   string
}

// Path is the collection/id form used in errors and logs.
func (d *DocRef) Path() string { return d.coll.name + "/" + d.ID }

// Get decodes the document into dest. It reports false when the document
// does not exist, leaving dest untouched.
func (d *DocRef) Get(ctx context.Context, dest any) (bool, error) {
	defer observability.TrackDocstore("get", d.coll.name)()

	fields, err := d.coll.store.rdb.HGetAll(ctx, d.coll.docKey(d.ID)).Result()
	if err != nil {
		return false, err
	}
	if len(fields) == 0 {
		return false, nil
	}
	return true, decode(fields, dest)
}

// Exists reports whether the document exists.
func (d *DocRef) Exists(ctx context.Context) (bool, error) {
	defer observability.TrackDocstore("exists", d.coll.name)()

	n, err := d.coll.store.rdb.Exists(ctx, d.coll.docKey(d.ID)).Result()
	return n > 0, err
}

// Set replaces the document with v.
func (d *DocRef) Set(ctx context.Context, v any) error {
	defer observability.TrackDocstore("set", d.coll.name)()

	fields, err := encode(v)
	if err != nil {
		return err
	}
	key := d.coll.docKey(d.ID)
	_, err = d.coll.store.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		pipe.SAdd(ctx, d.coll.indexKey(), d.ID)
		return nil
	})
	if err != nil {
		return err
	}
	d.coll.publish(ctx, d.ID)
	return nil
}

// Update merges fields into an existing document. It fails with NOT_FOUND
// when the document does not exist.
func (d *DocRef) Update(ctx context.Context, fields map[string]any) error {
	defer observability.TrackDocstore("update", d.coll.name)()

	encoded := make(map[string]any, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", k, err)
		}
		encoded[k] = string(b)
	}

	key := d.coll.docKey(d.ID)
	err := d.watch(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return models.NewNotFoundError("document", d.Path())
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(encoded) > 0 {
				pipe.HSet(ctx, key, encoded)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return err
	}
	d.coll.publish(ctx, d.ID)
	return nil
}

// Delete removes the document. Deleting a missing document is not an error.
func (d *DocRef) Delete(ctx context.Context) error {
	defer observability.TrackDocstore("delete", d.coll.name)()

	_, err := d.coll.store.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, d.coll.docKey(d.ID))
		pipe.SRem(ctx, d.coll.indexKey(), d.ID)
		return nil
	})
	if err != nil {
		return err
	}
	d.coll.publish(ctx, d.ID)
	return nil
}

// Increment atomically adds delta to a numeric field and returns the new
// value. The result never drops below zero.
func (d *DocRef) Increment(ctx context.Context, field string, delta int64) (int64, error) {
	defer observability.TrackDocstore("increment", d.coll.name)()

	key := d.coll.docKey(d.ID)
	var next int64
	err := d.watch(ctx, key, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, field).Result()
		switch {
		case errors.Is(err, redis.Nil):
			n, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				return models.NewNotFoundError("document", d.Path())
			}
			raw = "0"
		case err != nil:
			return err
		}
		current, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("field %s of %s is not numeric: %w", field, d.Path(), err)
		}
		next = int64(current) + delta
		if next < 0 {
			next = 0
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, strconv.FormatInt(next, 10))
			return nil
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	d.coll.publish(ctx, d.ID)
	return next, nil
}

// watch runs fn in an optimistic transaction on key, retrying when another
// writer touched the key first.
func (d *DocRef) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := d.coll.store.rdb.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update %s: too much contention", d.Path())
}

func encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("documents must encode as JSON objects: %w", err)
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[k] = string(v)
	}
	return fields, nil
}

func decode(fields map[string]string, dest any) error {
	raw := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		raw[k] = json.RawMessage(v)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
