package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvDatabase overrides database.path.
const EnvDatabase = "CULLER_DB"

func (c *Config) normalize() error {
	if v := strings.TrimSpace(os.Getenv(EnvDatabase)); v != "" {
		c.Database.Path = v
	}

	var err error
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	if c.Library.Root, err = expandPath(c.Library.Root); err != nil {
		return fmt.Errorf("library.root: %w", err)
	}
	if c.Library.TrashDir, err = expandPath(c.Library.TrashDir); err != nil {
		return fmt.Errorf("library.trash_dir: %w", err)
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}

	exts := c.Library.Extensions[:0]
	for _, ext := range c.Library.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Library.Extensions = exts

	c.Grouping.Preset = strings.ToLower(strings.TrimSpace(c.Grouping.Preset))
	if err := c.Grouping.Tuning.Validate(); err != nil {
		return fmt.Errorf("grouping.tuning: %w", err)
	}
	c.Grouping.Tuning = c.Grouping.Tuning.Normalize()
	c.Faces.URL = strings.TrimRight(strings.TrimSpace(c.Faces.URL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
