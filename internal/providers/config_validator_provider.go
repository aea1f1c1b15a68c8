package providers

import (
	"amuletbot/internal/structures"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gookit/validate"
)

type CnfValidatorInterface interface {
	Validate() error
}

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) CnfValidatorInterface {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	// gookit ships its own unixPath rule, which only accepts absolute paths.
	v.AddValidator("slashPath", isSlashPath)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %w", v.Errors)
	}
	if c.conf.Cache.Enabled && c.conf.Cache.Size <= 0 {
		return fmt.Errorf("invalid configuration: cache.size must be positive when the cache is enabled")
	}
	return nil
}

// isSlashPath accepts relative or absolute slash-separated paths.
func isSlashPath(val interface{}) bool {
	s, ok := val.(string)
	if !ok || s == "" {
		return false
	}
	if strings.ContainsAny(s, "\\\x00") {
		return false
	}
	return filepath.Clean(s) != ""
}
