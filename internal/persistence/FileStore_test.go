package persistence

import (
	"amuletbot/internal/models"
	"amuletbot/internal/structures"
	"amuletbot/internal/testutil"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 12, 30, 45, 123000000, time.UTC)

func storeConfig(dir string) *structures.Config {
	return &structures.Config{
		Persistence: structures.Persistence{
			FilePath:  filepath.Join(dir, "data", "db.json"),
			BackupDir: filepath.Join(dir, "data", "backups"),
		},
	}
}

func newTestStore(t *testing.T, comp *testutil.MockCompressor) (*FileStore, *structures.Config) {
	t.Helper()
	conf := storeConfig(t.TempDir())
	store := NewFileStore(conf, comp, &testutil.MockLogger{}, testutil.NewMockMetrics()).(*FileStore)
	require.NoError(t, store.EnsureDirs())
	return store, conf
}

func sampleDocument() *models.Document {
	doc := models.NewDocument(testNow)
	g := models.NewGuildRecord("g1", 60000, testNow)
	p := models.NewUserProfile("u1", "g1", "alice", testNow)
	p.Stats.AmuletHeldCount = 2
	p.Stats.CommandUses.Set("give", 3)
	g.Users.Set("u1", p)
	g.Leaderboard(models.CategoryAmuletCount).Set("u1", &models.LeaderboardEntry{UserID: "u1", Username: "alice", Score: 2, Rank: 1})
	g.GameState.Amulet.CurrentHolder = "u1"
	g.GameState.Amulet.ChannelID = "c1"
	doc.Guilds.Set("g1", g)
	doc.Guilds.Set("g0", models.NewGuildRecord("g0", 60000, testNow))
	doc.GlobalMetadata.TotalGuilds = 2
	doc.GlobalMetadata.TotalUsers = 1
	return doc
}

func tmpFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestFileStore_ReadMissingReturnsNil(t *testing.T) {
	store, _ := newTestStore(t, &testutil.MockCompressor{})

	doc, err := store.Read()
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFileStore_WriteThenRead(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})

	require.NoError(t, store.Write(sampleDocument()))

	got, err := store.Read()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"g1", "g0"}, got.Guilds.Keys())
	assert.Equal(t, 2, got.GlobalMetadata.TotalGuilds)

	g, ok := got.Guilds.Get("g1")
	require.True(t, ok)
	p, ok := g.Users.Get("u1")
	require.True(t, ok)
	assert.Equal(t, 2, p.Stats.AmuletHeldCount)
	uses, _ := p.Stats.CommandUses.Get("give")
	assert.Equal(t, 3, uses)
	assert.Equal(t, "u1", g.GameState.Amulet.CurrentHolder)
	assert.True(t, g.GameState.Amulet.LastTransferred.Equal(testNow))

	empty, ok := got.Guilds.Get("g0")
	require.True(t, ok)
	assert.Equal(t, 0, empty.Users.Len())

	assert.Empty(t, tmpFiles(t, filepath.Dir(conf.Persistence.FilePath)))
}

func TestFileStore_WritesIndentedTaggedJSON(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})
	require.NoError(t, store.Write(sampleDocument()))

	raw, err := os.ReadFile(conf.Persistence.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"guilds\": {")
	assert.Contains(t, string(raw), `"_type": "Map"`)
	assert.Contains(t, string(raw), `"amuletHeldTimeMs"`)
}

func TestFileStore_CompressFailureKeepsPreviousDocument(t *testing.T) {
	comp := &testutil.MockCompressor{}
	store, conf := newTestStore(t, comp)
	require.NoError(t, store.Write(sampleDocument()))

	comp.CompressFn = func([]byte) ([]byte, error) { return nil, errors.New("boom") }
	err := store.Write(models.NewDocument(testNow))

	var ioErr *StorageIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "compress", ioErr.Op)

	comp.CompressFn = nil
	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Guilds.Len())
	assert.Empty(t, tmpFiles(t, filepath.Dir(conf.Persistence.FilePath)))
}

func TestFileStore_RenameFailureRemovesTempFile(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})
	// A non-empty directory at the target path makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(conf.Persistence.FilePath, "blocker"), 0755))

	err := store.Write(sampleDocument())

	var ioErr *StorageIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.Empty(t, tmpFiles(t, filepath.Dir(conf.Persistence.FilePath)))
}

func TestFileStore_StaleTempFileIgnored(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})
	require.NoError(t, store.Write(sampleDocument()))

	stale := conf.Persistence.FilePath + ".tmp.1"
	require.NoError(t, os.WriteFile(stale, []byte(`{"guilds":`), 0644))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Guilds.Len())
}

func TestFileStore_ReadCorruptFile(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})
	require.NoError(t, os.WriteFile(conf.Persistence.FilePath, []byte("not json"), 0644))

	doc, err := store.Read()
	assert.Nil(t, doc)
	var ioErr *StorageIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "decode", ioErr.Op)
}

func TestFileStore_ReadRejectsUntaggedMap(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})
	require.NoError(t, os.WriteFile(conf.Persistence.FilePath, []byte(`{"guilds":{"g1":{}},"globalMetadata":{}}`), 0644))

	_, err := store.Read()
	var ioErr *StorageIOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestFileStore_ReadWithoutGuildsStartsEmpty(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})
	require.NoError(t, os.WriteFile(conf.Persistence.FilePath, []byte(`{"globalMetadata":{"version":"1.0.0"}}`), 0644))

	doc, err := store.Read()
	require.NoError(t, err)
	require.NotNil(t, doc.Guilds)
	assert.Equal(t, 0, doc.Guilds.Len())
}

func TestFileStore_BackupCopiesVerbatim(t *testing.T) {
	store, conf := newTestStore(t, &testutil.MockCompressor{})
	require.NoError(t, store.Write(sampleDocument()))

	path, err := store.Backup(testNow)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(conf.Persistence.BackupDir, "backup-2026-10-19T12-30-45-123Z.json"), path)

	want, err := os.ReadFile(conf.Persistence.FilePath)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_BackupWithoutDocumentFails(t *testing.T) {
	store, _ := newTestStore(t, &testutil.MockCompressor{})

	_, err := store.Backup(testNow)
	var ioErr *StorageIOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStore_ZstdRoundTrip(t *testing.T) {
	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	conf := storeConfig(t.TempDir())
	conf.Persistence.Compress = true
	store := NewFileStore(conf, comp, &testutil.MockLogger{}, testutil.NewMockMetrics())
	require.NoError(t, store.EnsureDirs())

	require.NoError(t, store.Write(sampleDocument()))
	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g0"}, got.Guilds.Keys())

	path, err := store.Backup(testNow)
	require.NoError(t, err)
	assert.Equal(t, "backup-2026-10-19T12-30-45-123Z.json.zst", filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	plain, err := comp.Decompress(raw)
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"_type": "Map"`)
}

func TestBackupFileName(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.FixedZone("X", 3600))
	assert.Equal(t, "backup-2026-01-02T02-04-05-006Z.json", backupFileName(at, ".json"))
}

func TestBackupExt(t *testing.T) {
	assert.Equal(t, ".json", backupExt("data/db.json", false))
	assert.Equal(t, ".json", backupExt("data/db", false))
	assert.Equal(t, ".json.zst", backupExt("data/db.json", true))
	assert.Equal(t, ".json.zst", backupExt("data/db.json.zst", true))
	assert.Equal(t, ".json.zst", backupExt("data/db", true))
}

func TestFileStore_WriteObservesDuration(t *testing.T) {
	conf := storeConfig(t.TempDir())
	metrics := testutil.NewMockMetrics()
	store := NewFileStore(conf, &testutil.MockCompressor{}, &testutil.MockLogger{}, metrics)
	require.NoError(t, store.EnsureDirs())

	require.NoError(t, store.Write(sampleDocument()))
	assert.Equal(t, 1, metrics.Persists)
}
