package interfaces

import (
	"amuletbot/internal/models"
	"time"
)

// DocumentStoreInterface reads and writes the whole document atomically.
// Read returns nil, nil when nothing has been stored yet.
type DocumentStoreInterface interface {
	EnsureDirs() error
	Read() (*models.Document, error)
	Write(doc *models.Document) error
	Backup(at time.Time) (string, error)
}
