package testutil

import (
	"amuletbot/internal/models"
	"amuletbot/internal/providers"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// MockMetrics implements providers.MetricsProviderInterface and keeps counters in memory.
type MockMetrics struct {
	mu           sync.Mutex
	Gives        map[string]int
	Expiries     int
	ActiveTimers int
	Guilds       int
	Users        int
	CacheHits    map[string]int
	CacheMisses  map[string]int
	Requests     []string
	Persists     int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Gives:       make(map[string]int),
		CacheHits:   make(map[string]int),
		CacheMisses: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, fmt.Sprintf("%s %d", endpoint, status))
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits(namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits[namespace]++
}
func (m *MockMetrics) IncCacheMisses(namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses[namespace]++
}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persists++
}
func (m *MockMetrics) IncGives(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gives[result]++
}
func (m *MockMetrics) IncExpiries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Expiries++
}
func (m *MockMetrics) SetActiveTimers(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActiveTimers = count
}
func (m *MockMetrics) SetGuildsTotal(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Guilds = count
}
func (m *MockMetrics) SetUsersTotal(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users = count
}

// Snapshot returns the gives counter for result and the current active timers gauge.
func (m *MockMetrics) Snapshot(result string) (gives, timers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Gives[result], m.ActiveTimers
}

// MockIdentityResolver resolves usernames from Names. Unknown ids fall back to "user-<id>".
type MockIdentityResolver struct {
	mu    sync.Mutex
	Names map[string]string
	Err   error
	Calls []string
}

func (m *MockIdentityResolver) ResolveUsername(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, userID)
	if m.Err != nil {
		return "", m.Err
	}
	if name, ok := m.Names[userID]; ok {
		return name, nil
	}
	return "user-" + userID, nil
}

func (m *MockIdentityResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

type SentMessage struct {
	ChannelID string
	Message   string
}

// MockNotifier records every message; Err is returned after recording.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentMessage
	Err  error
}

func (m *MockNotifier) Notify(_ context.Context, channelID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{ChannelID: channelID, Message: message})
	return m.Err
}

func (m *MockNotifier) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

type pendingFunc struct {
	id  int
	at  time.Time
	f   func()
	off bool
}

// ManualClock is a clock whose time only moves on Advance. Callbacks registered with
// AfterFunc run synchronously inside Advance, outside the clock's lock, in due order.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	nextID  int
	pending []*pendingFunc
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p := &pendingFunc{id: c.nextID, at: c.now.Add(d), f: f}
	c.pending = append(c.pending, p)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if p.off {
			return false
		}
		p.off = true
		return true
	}
}

// Pending returns the number of callbacks neither fired nor stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.pending {
		if !p.off {
			n++
		}
	}
	return n
}

// Advance moves time forward by d and fires every callback that became due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*pendingFunc
	kept := c.pending[:0]
	for _, p := range c.pending {
		switch {
		case p.off:
		case !p.at.After(now):
			p.off = true
			due = append(due, p)
		default:
			kept = append(kept, p)
		}
	}
	c.pending = kept
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	for _, p := range due {
		p.f()
	}
}

var ErrNoBackupSource = errors.New("nothing persisted yet")

// MemoryStore implements interfaces.DocumentStoreInterface in memory. Documents are
// round-tripped through JSON so callers never share references with it.
type MemoryStore struct {
	mu        sync.Mutex
	Data      []byte
	Backups   map[string][]byte
	Writes    int
	ReadErr   error
	WriteErr  error
	BackupErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Backups: make(map[string][]byte)}
}

func (m *MemoryStore) EnsureDirs() error { return nil }

func (m *MemoryStore) Read() (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if m.Data == nil {
		return nil, nil
	}
	var doc models.Document
	if err := json.Unmarshal(m.Data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *MemoryStore) Write(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.Data = data
	m.Writes++
	return nil
}

func (m *MemoryStore) Backup(at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupErr != nil {
		return "", m.BackupErr
	}
	if m.Data == nil {
		return "", ErrNoBackupSource
	}
	name := "backup-" + at.UTC().Format(time.RFC3339Nano)
	m.Backups[name] = append([]byte(nil), m.Data...)
	return name, nil
}

// Persisted decodes the last written document.
func (m *MemoryStore) Persisted() *models.Document {
	m.mu.Lock()
	data := m.Data
	m.mu.Unlock()
	if data == nil {
		return nil
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		panic(err)
	}
	return &doc
}

func (m *MemoryStore) SetWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteErr = err
}

func (m *MemoryStore) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Writes
}
