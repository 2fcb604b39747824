package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"bookdot/internal/observability"
	"bookdot/internal/stream"

	"github.com/redis/go-redis/v9"
)

// Direction orders query results.
type Direction int

const (
	Asc Direction = iota
	Desc
)

type filter struct {
	field string
	value json.RawMessage
}

// Query is an immutable description of a collection read. Filters are
// equality matches; ordering compares numbers numerically and everything
// else as strings.
type Query struct {
	coll    *Collection
	filters []filter
	orderBy string
	dir     Direction
	limit   int
	err     error
}

func (c *Collection) query() *Query {
	return &Query{coll: c}
}

func (c *Collection) Where(field string, value any) *Query { return c.query().Where(field, value) }

func (c *Collection) OrderBy(field string, dir Direction) *Query {
	return c.query().OrderBy(field, dir)
}

func (c *Collection) Limit(n int) *Query { return c.query().Limit(n) }

// Get returns every document in the collection.
func (c *Collection) Get(ctx context.Context) ([]Snapshot, error) { return c.query().Get(ctx) }

func (c *Collection) Listen(ctx context.Context) *stream.Subscription[[]Snapshot] {
	return c.query().Listen(ctx)
}

func (q *Query) clone() *Query {
	out := *q
	out.filters = append([]filter(nil), q.filters...)
	return &out
}

func (q *Query) Where(field string, value any) *Query {
	out := q.clone()
	b, err := json.Marshal(value)
	if err != nil && out.err == nil {
		out.err = err
	}
	out.filters = append(out.filters, filter{field: field, value: b})
	return out
}

func (q *Query) OrderBy(field string, dir Direction) *Query {
	out := q.clone()
	out.orderBy = field
	out.dir = dir
	return out
}

func (q *Query) Limit(n int) *Query {
	out := q.clone()
	out.limit = n
	return out
}

// Get runs the query once.
func (q *Query) Get(ctx context.Context) ([]Snapshot, error) {
	if q.err != nil {
		return nil, q.err
	}
	defer observability.TrackDocstore("query", q.coll.name)()

	rdb := q.coll.store.rdb
	ids, err := rdb.SMembers(ctx, q.coll.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Snapshot{}, nil
	}

	pipe := rdb.Pipeline()
	for _, id := range ids {
		pipe.HGetAll(ctx, q.coll.docKey(id))
	}
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return nil, err
	}

	snaps := make([]Snapshot, 0, len(ids))
	for i, cmd := range cmds {
		fields, err := cmd.(*redis.MapStringStringCmd).Result()
		if err != nil {
			return nil, err
		}
		// Removed between SMEMBERS and HGETALL.
		if len(fields) == 0 {
			continue
		}
		snap := newSnapshot(ids[i], fields)
		if q.matches(snap) {
			snaps = append(snaps, snap)
		}
	}

	if q.orderBy != "" {
		sort.SliceStable(snaps, func(i, j int) bool {
			c := compare(snaps[i].data[q.orderBy], snaps[j].data[q.orderBy])
			if c == 0 {
				return snaps[i].ID < snaps[j].ID
			}
			if q.dir == Desc {
				return c > 0
			}
			return c < 0
		})
	} else {
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	}

	if q.limit > 0 && len(snaps) > q.limit {
		snaps = snaps[:q.limit]
	}
	return snaps, nil
}

// Listen emits the query result now and again after every write to the
// collection. A Redis error terminates the stream.
func (q *Query) Listen(ctx context.Context) *stream.Subscription[[]Snapshot] {
	return stream.New(ctx, func(ctx context.Context, emit stream.Emit[[]Snapshot]) error {
		sub := q.coll.store.rdb.Subscribe(ctx, q.coll.changesChannel())
		defer func() { _ = sub.Close() }()
		// Wait for the subscription to be confirmed so no write slips
		// between the first read and the subscription.
		if _, err := sub.Receive(ctx); err != nil {
			return err
		}
		changes := sub.Channel()

		gauge := observability.ActiveSubscriptions.WithLabelValues("docstore")
		gauge.Inc()
		defer gauge.Dec()

		for {
			snaps, err := q.Get(ctx)
			if err != nil {
				return err
			}
			if !emit(snaps) {
				return ctx.Err()
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case _, ok := <-changes:
				if !ok {
					return ctx.Err()
				}
			}
			// Coalesce bursts of writes into one re-read.
		drain:
			for {
				select {
				case <-changes:
				default:
					break drain
				}
			}
		}
	})
}

func (q *Query) matches(s Snapshot) bool {
	for _, f := range q.filters {
		v, ok := s.data[f.field]
		if !ok || !bytes.Equal(bytes.TrimSpace(v), f.value) {
			return false
		}
	}
	return true
}

func compare(a, b json.RawMessage) int {
	fa, errA := strconv.ParseFloat(string(a), 64)
	fb, errB := strconv.ParseFloat(string(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return bytes.Compare(a, b)
}

// Snapshot is one document as read by a query.
type Snapshot struct {
	ID   string
	data map[string]json.RawMessage
}

func newSnapshot(id string, fields map[string]string) Snapshot {
	data := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		data[k] = json.RawMessage(v)
	}
	return Snapshot{ID: id, data: data}
}

// DataTo decodes the document into dest.
func (s Snapshot) DataTo(dest any) error {
	b, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
