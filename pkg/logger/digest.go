package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DigestSink receives batches of aggregated log entries.
type DigestSink interface {
	PublishDigest(ctx context.Context, topic string, entries []DigestEntry) error
}

type DigestConfig struct {
	Interval  time.Duration // flush period
	Threshold int           // flush once this many distinct entries are pending
	Topic     string
	Sink      DigestSink
}

// DigestEntry counts repeats of one (level, message, fields, caller) tuple.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Digest deduplicates warn/error entries and ships them in batches, so a class
// that keeps failing produces one record with a count instead of a flood.
type Digest struct {
	cfg     *DigestConfig
	zl      zerolog.Logger
	mu      sync.Mutex
	pending map[string]*DigestEntry
	flushes sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDigest(cfg *DigestConfig, zl zerolog.Logger) *Digest {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Digest{
		cfg:     cfg,
		zl:      zl,
		pending: make(map[string]*DigestEntry),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Digest) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := digestKey(level, message, fields, caller)

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.pending[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		d.pending[key] = &DigestEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	if len(d.pending) >= d.cfg.Threshold {
		d.flushLocked()
	}
}

// Pending returns the number of distinct entries not yet shipped.
func (d *Digest) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func digestKey(level, message string, fields map[string]interface{}, caller string) string {
	b, _ := json.Marshal(struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller})
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

func (d *Digest) loop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
		case <-d.ctx.Done():
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
			return
		}
	}
}

func (d *Digest) flushLocked() {
	if len(d.pending) == 0 || d.cfg.Sink == nil {
		return
	}
	entries := make([]DigestEntry, 0, len(d.pending))
	for _, e := range d.pending {
		entries = append(entries, *e)
	}
	d.pending = make(map[string]*DigestEntry)

	d.flushes.Add(1)
	go func() {
		defer d.flushes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := d.cfg.Sink.PublishDigest(ctx, d.cfg.Topic, entries); err != nil {
			d.zl.Error().Err(err).Int("entries", len(entries)).Msg("log digest publish failed")
		}
	}()
}

// Close flushes pending entries and waits for in-flight publishes.
func (d *Digest) Close() {
	d.cancel()
	d.wg.Wait()
	d.flushes.Wait()
}
