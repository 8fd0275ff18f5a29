package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// InMemory keeps messages in process. Suitable for a single web instance.
type InMemory struct {
	mu      sync.Mutex
	pending map[string]*queue
	until   map[string]time.Time
	limit   int
	ttl     time.Duration
	now     func() time.Time
}

type queue struct {
	msgs   []Message
	pushed time.Time
}

// NewInMemory returns a store keeping at most limit messages per key.
// Undrained messages are dropped by Sweep once ttl passed since the last push.
func NewInMemory(limit int, ttl time.Duration) *InMemory {
	if limit <= 0 {
		limit = 16
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &InMemory{
		pending: make(map[string]*queue),
		until:   make(map[string]time.Time),
		limit:   limit,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Push appends msg, dropping the oldest message when the key is full.
func (m *InMemory) Push(ctx context.Context, key string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.pending[key]
	if !ok {
		q = &queue{}
		m.pending[key] = q
	}
	q.msgs = append(q.msgs, msg)
	if len(q.msgs) > m.limit {
		q.msgs = q.msgs[len(q.msgs)-m.limit:]
	}
	q.pushed = m.now()
	return nil
}

// Drain removes and returns the messages of key.
func (m *InMemory) Drain(ctx context.Context, key string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.pending[key]
	if !ok {
		return nil, nil
	}
	delete(m.pending, key)
	return q.msgs, nil
}

// Allow reserves key for gap.
func (m *InMemory) Allow(ctx context.Context, key string, gap time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if until, ok := m.until[key]; ok && now.Before(until) {
		return false, nil
	}
	m.until[key] = now.Add(gap)
	return true, nil
}

// Len returns how many keys hold pending messages and how many hold a reservation.
func (m *InMemory) Len() (pending, reserved int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending), len(m.until)
}

// Sweep drops expired reservations and queues untouched for the TTL.
// It returns how many queues were dropped.
func (m *InMemory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, until := range m.until {
		if !now.Before(until) {
			delete(m.until, key)
		}
	}
	cutoff := now.Add(-m.ttl)
	dropped := 0
	for key, q := range m.pending {
		if q.pushed.Before(cutoff) {
			delete(m.pending, key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps periodically until ctx is done.
func (m *InMemory) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Redis keeps messages in a Redis list per key so that several web instances share them.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis builds a store under prefix. Undrained lists expire after ttl.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "rushweb:toast"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) listKey(key string) string     { return r.prefix + ":" + key }
func (r *Redis) throttleKey(key string) string { return r.prefix + ":throttle:" + key }

// Push appends msg with RPUSH and refreshes the list TTL.
func (r *Redis) Push(ctx context.Context, key string, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.listKey(key), raw)
		pipe.Expire(ctx, r.listKey(key), r.ttl)
		return nil
	})
	return err
}

// Drain reads and deletes the list atomically.
func (r *Redis) Drain(ctx context.Context, key string) ([]Message, error) {
	var rng *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rng = pipe.LRange(ctx, r.listKey(key), 0, -1)
		pipe.Del(ctx, r.listKey(key))
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(rng.Val()))
	for _, raw := range rng.Val() {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Allow uses SET NX with the gap as expiry.
func (r *Redis) Allow(ctx context.Context, key string, gap time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.throttleKey(key), 1, gap).Result()
}
