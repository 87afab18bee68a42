// Package recorder persists the raw downlink to local files: the mission CSV and
// the payload logfile transfer.
package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/rsx/cansat-groundstation/internal/domain"
)

// CSV appends telemetry rows to the mission CSV file
type CSV struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// OpenCSV creates (or truncates) the CSV file at path and writes the header
func OpenCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	c := &CSV{path: path, file: f, w: csv.NewWriter(f)}
	if err := c.writeLocked(domain.CSVHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

// Path returns the file location
func (c *CSV) Path() string { return c.path }

// WriteTelemetry appends one decoded packet
func (c *CSV) WriteTelemetry(t *domain.Telemetry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(t.CSVRecord())
}

// WriteEcho appends a status line as a row with only CMD_ECHO filled
func (c *CSV) WriteEcho(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(domain.EchoRecord(line))
}

func (c *CSV) writeLocked(rec []string) error {
	if c.file == nil {
		return fmt.Errorf("write csv %s: file closed", c.path)
	}
	if err := c.w.Write(rec); err != nil {
		return fmt.Errorf("write csv %s: %w", c.path, err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush csv %s: %w", c.path, err)
	}
	return nil
}

// Truncate drops every recorded row and writes a fresh header
func (c *CSV) Truncate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return fmt.Errorf("truncate csv %s: file closed", c.path)
	}
	if err := c.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate csv %s: %w", c.path, err)
	}
	if _, err := c.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek csv %s: %w", c.path, err)
	}
	c.w = csv.NewWriter(c.file)
	return c.writeLocked(domain.CSVHeader)
}

// Close flushes and closes the file
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	c.w.Flush()
	err := c.file.Close()
	c.file = nil
	return err
}
