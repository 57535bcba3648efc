package linkcheck

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
)

// Verdict is the stored result of checking one URL.
type Verdict struct {
	URL           string    `json:"url"`
	Status        int       `json:"status"`
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
	LastChecked   time.Time `json:"last_checked"`
	FailureCount  int       `json:"failure_count,omitempty"`
	FirstFailedAt time.Time `json:"first_failed_at,omitempty"`
}

// BrokenLinkEvent is published when a check finds a dead URL.
type BrokenLinkEvent struct {
	URL           string    `json:"url"`
	Status        int       `json:"status,omitempty"`
	Error         string    `json:"error,omitempty"`
	Sources       []string  `json:"sources"` // content-relative post paths
	FailureCount  int       `json:"failure_count"`
	FirstFailedAt time.Time `json:"first_failed_at,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// store keeps verdicts between runs and carries broken-link events to
// whoever listens.
type store interface {
	Get(ctx context.Context, url string) (*Verdict, error) // nil when absent
	Put(ctx context.Context, v *Verdict) error
	PublishBroken(ctx context.Context, ev *BrokenLinkEvent) error
	Close() error
}

// memoryStore is the fallback when no NATS server is configured:
// verdicts live for the process lifetime and nothing is published.
type memoryStore struct {
	mu       sync.RWMutex
	verdicts map[string]*Verdict
}

func newMemoryStore() *memoryStore {
	return &memoryStore{verdicts: make(map[string]*Verdict)}
}

func (m *memoryStore) Get(_ context.Context, url string) (*Verdict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.verdicts[url]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *memoryStore) Put(_ context.Context, v *Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *v
	m.verdicts[v.URL] = &cp
	return nil
}

func (m *memoryStore) PublishBroken(context.Context, *BrokenLinkEvent) error { return nil }

func (m *memoryStore) Close() error { return nil }

// natsStore caches verdicts in a JetStream KV bucket and publishes
// broken-link events to a subject.
type natsStore struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	subject string
}

func newNATSStore(lc config.LinkCheckConfig) (*natsStore, error) {
	conn, err := nats.Connect(lc.NATSURL, nats.Name("blogbuilder-linkcheck"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	s := &natsStore{conn: conn, js: js, subject: lc.Subject}
	ttl := config.Duration(lc.CacheTTL, 24*time.Hour)
	if err := s.initialize(lc.KVBucket, ttl); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Link verdict cache connected", "bucket", lc.KVBucket, "subject", lc.Subject)
	return s, nil
}

// initialize sets up the KV bucket for verdicts and the stream that
// retains broken-link events. Both are idempotent.
func (s *natsStore) initialize(bucket string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := s.js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = s.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "External link verdicts for blogbuilder",
			MaxBytes:    16 * 1024 * 1024,
			History:     1,
			TTL:         ttl,
		})
		if err != nil {
			return fmt.Errorf("create KV bucket: %w", err)
		}
	}
	s.kv = kv

	_, err = s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName(s.subject),
		Subjects: []string{s.subject},
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create event stream: %w", err)
	}
	return nil
}

// streamName derives a valid stream name from the event subject.
func streamName(subject string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, subject)
}

// kvKey hashes a URL into a key the KV store accepts. URLs themselves
// contain characters that are illegal in NATS keys.
func kvKey(url string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(url)))
}

func (s *natsStore) Get(ctx context.Context, url string) (*Verdict, error) {
	entry, err := s.kv.Get(ctx, kvKey(url))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached verdict: %w", err)
	}

	var v Verdict
	if err := json.Unmarshal(entry.Value(), &v); err != nil {
		return nil, fmt.Errorf("unmarshal cached verdict: %w", err)
	}
	return &v, nil
}

func (s *natsStore) Put(ctx context.Context, v *Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	if _, err := s.kv.Put(ctx, kvKey(v.URL), data); err != nil {
		return fmt.Errorf("put verdict: %w", err)
	}
	return nil
}

func (s *natsStore) PublishBroken(ctx context.Context, ev *BrokenLinkEvent) error {
	ev.Timestamp = time.Now()

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal broken link event: %w", err)
	}

	if _, err := s.js.Publish(ctx, s.subject, data); err != nil {
		return fmt.Errorf("publish broken link event: %w", err)
	}

	slog.Debug("Published broken link event", "url", ev.URL, "status", ev.Status)
	return nil
}

func (s *natsStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
