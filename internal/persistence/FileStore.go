package persistence

import (
	"amuletbot/internal/models"
	"amuletbot/internal/persistence/interfaces"
	"amuletbot/internal/providers"
	"amuletbot/internal/structures"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const zstExt = ".zst"

// FileStore keeps the document in a single file, replaced atomically on every write.
type FileStore struct {
	path       string
	backupDir  string
	compressor interfaces.CompressorInterface
	compressed bool
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewFileStore(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) interfaces.DocumentStoreInterface {
	return &FileStore{
		path:       conf.Persistence.FilePath,
		backupDir:  conf.Persistence.BackupDir,
		compressor: compressor,
		compressed: conf.Persistence.Compress,
		logger:     logger,
		metrics:    metrics,
	}
}

func (f *FileStore) EnsureDirs() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return ioError("mkdir", filepath.Dir(f.path), err)
	}
	if f.backupDir != "" {
		if err := os.MkdirAll(f.backupDir, 0755); err != nil {
			return ioError("mkdir", f.backupDir, err)
		}
	}
	return nil
}

func (f *FileStore) Read() (*models.Document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, ioError("read", f.path, err)
	}

	raw, err := f.compressor.Decompress(data)
	if err != nil {
		return nil, ioError("decompress", f.path, err)
	}

	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, ioError("decode", f.path, err)
	}
	if doc.Guilds == nil {
		f.logger.Warnf(providers.TypeStore, "Document %s has no guilds map, starting empty", f.path)
		doc.Guilds = models.NewOrderedMap[*models.GuildRecord]()
	}
	return &doc, nil
}

func (f *FileStore) Write(doc *models.Document) error {
	start := time.Now()
	defer func() {
		f.metrics.ObservePersistenceDuration(time.Since(start))
	}()

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ioError("encode", f.path, err)
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return ioError("compress", f.path, err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return ioError("write", f.path, err)
	}
	return nil
}

// Backup copies the current file byte for byte into the backup directory.
func (f *FileStore) Backup(at time.Time) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", ioError("read", f.path, err)
	}
	if err := os.MkdirAll(f.backupDir, 0755); err != nil {
		return "", ioError("mkdir", f.backupDir, err)
	}

	target := filepath.Join(f.backupDir, backupFileName(at, backupExt(f.path, f.compressed)))
	if err := writeAtomic(target, data); err != nil {
		return "", ioError("backup", target, err)
	}
	f.logger.Infof(providers.TypeStore, "Backup of %s written to %s", f.path, target)
	return target, nil
}

// backupExt keeps the document's extension, defaulting to .json, and marks zstd
// payloads with a trailing .zst.
func backupExt(path string, compressed bool) string {
	if compressed {
		path = strings.TrimSuffix(path, zstExt)
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".json"
	}
	if compressed {
		ext += zstExt
	}
	return ext
}

// backupFileName renders at like 2026-10-19T12-30-45-123Z.
func backupFileName(at time.Time, ext string) string {
	stamp := at.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "backup-" + stamp + ext
}

// writeAtomic writes data to a sibling temp file and renames it over path.
// The temp file is removed on any failure so path is either old or new, never partial.
func writeAtomic(path string, data []byte) error {
	tmpFile := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixMilli())

	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}
	if err = os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return err
	}
	return nil
}
