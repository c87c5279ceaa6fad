// Package datalog keeps the append-only measurement history: one CSV file per
// calendar day in the data directory, one row per completed run.
package datalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/claybath/densimeter/controller/diag"
)

const (
	filePrefix = "data_"
	fileSuffix = ".csv"

	csvHeader = "Timestamp,Density,Angle\n"
)

// Controller manages the per-day CSV files and the general file endpoints.
type Controller struct {
	dir  string
	diag *diag.Logger

	mu sync.Mutex
}

func New(dir string, d *diag.Logger) (*Controller, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("datalog: create %s: %w", dir, err)
	}
	return &Controller{dir: dir, diag: d}, nil
}

func dayFile(ts time.Time) string {
	return filePrefix + ts.Format("20060102") + fileSuffix
}

// Append writes one measurement row to the day's file, creating it on first
// use.
func (c *Controller) Append(ts time.Time, density, angle float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := dayFile(ts)
	f, err := os.OpenFile(filepath.Join(c.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("datalog: open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s,%.4f,%.2f\n", ts.Format("2006-01-02 15:04:05"), density, angle); err != nil {
		return fmt.Errorf("datalog: write %s: %w", name, err)
	}
	c.diag.Logf("Measurement data saved to %s", name)
	return nil
}

// Concat returns the full history: a header followed by every day file's rows
// in chronological order.
func (c *Controller) Concat() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.dataFiles()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			return "", fmt.Errorf("datalog: read %s: %w", name, err)
		}
		b.Write(data)
	}
	return b.String(), nil
}

// Purge removes every day file. Manual deletion is the only retention policy.
func (c *Controller) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	names, err := c.dataFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			return fmt.Errorf("datalog: remove %s: %w", name, err)
		}
		c.diag.Logf("Deleted data file: %s", name)
	}
	return nil
}

// dataFiles lists the measurement files, sorted by name; the date-stamped
// naming makes that chronological order.
func (c *Controller) dataFiles() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("datalog: list %s: %w", c.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), fileSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
