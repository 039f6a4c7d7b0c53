package capacity

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
)

// DefaultHistorySize is the number of reports kept when no size is configured.
const DefaultHistorySize = 48

// Store keeps the most recent reports, newest first.
type Store interface {
	// History returns the stored reports, newest first.
	History() []Report
	// Save records a report.
	Save(Report) error
}

// MemoryStore keeps report history in memory only.
type MemoryStore struct {
	maxCount int
	reports  []Report
	mu       sync.Mutex
}

// NewMemoryStore creates a store holding at most maxCount reports.
func NewMemoryStore(maxCount int) *MemoryStore {
	if maxCount <= 0 {
		maxCount = DefaultHistorySize
	}
	return &MemoryStore{maxCount: maxCount}
}

// History returns the stored reports, newest first.
func (s *MemoryStore) History() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneReports(s.reports)
}

// Save stores a report in memory.
func (s *MemoryStore) Save(report Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = prepend(s.reports, report, s.maxCount)
	return nil
}

// DiskStore persists report history as one JSON file per report.
type DiskStore struct {
	dir      string
	logger   *slog.Logger
	maxCount int
	entries  []diskEntry // protected by mu
	mu       sync.Mutex
}

// diskEntry is a stored report and the file it was read from or written to.
type diskEntry struct {
	report Report
	path   string
}

// NewDiskStore creates a disk-backed store. The directory is created if it
// doesn't exist and existing reports are loaded.
func NewDiskStore(dir string, maxCount int, logger *slog.Logger) (*DiskStore, error) {
	if maxCount <= 0 {
		maxCount = DefaultHistorySize
	}
	s := &DiskStore{
		dir:      dir,
		logger:   logger,
		maxCount: maxCount,
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	entries, err := s.load()
	if err != nil {
		logger.Warn("failed to load capacity history", "error", err)
	} else {
		s.entries = entries
	}
	return s, nil
}

// History returns the stored reports, newest first.
func (s *DiskStore) History() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	reports := make([]Report, len(s.entries))
	for i, e := range s.entries {
		reports[i] = e.report
	}
	return cloneReports(reports)
}

// Save writes the report to disk and drops files beyond the size limit.
func (s *DiskStore) Save(report Report) error {
	if report.At.IsZero() {
		return fmt.Errorf("cannot save report without a time")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(s.dir, fileName(report))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	// A report with the same time overwrote its file above.
	s.entries = slices.DeleteFunc(s.entries, func(e diskEntry) bool { return e.path == path })
	s.entries = append([]diskEntry{{report: report, path: path}}, s.entries...)
	s.entries = s.evict(s.entries)

	s.logger.Debug("saved capacity report", "path", path)
	return nil
}

// Reload re-reads all reports from disk.
func (s *DiskStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.load()
	if err != nil {
		return err
	}
	s.entries = entries
	return nil
}

// evict removes the files of entries beyond maxCount and returns the rest.
func (s *DiskStore) evict(entries []diskEntry) []diskEntry {
	if len(entries) <= s.maxCount {
		return entries
	}
	for _, old := range entries[s.maxCount:] {
		if err := os.Remove(old.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove old report", "file", old.path, "error", err)
		}
	}
	return entries[:s.maxCount]
}

func (s *DiskStore) load() ([]diskEntry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var entries []diskEntry
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read report file", "file", path, "error", err)
			continue
		}
		var report Report
		if err := json.Unmarshal(data, &report); err != nil {
			s.logger.Warn("failed to parse report file", "file", path, "error", err)
			continue
		}
		entries = append(entries, diskEntry{report: report, path: path})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].report.At.After(entries[j].report.At)
	})
	entries = s.evict(entries)

	s.logger.Info("loaded capacity history from disk", "count", len(entries))
	return entries, nil
}

// fileName is the report time in UTC, e.g. 2006-01-02T15-04-05.000.json.
func fileName(r Report) string {
	return r.At.UTC().Format("2006-01-02T15-04-05.000") + ".json"
}

func prepend(reports []Report, r Report, maxCount int) []Report {
	reports = append([]Report{r}, reports...)
	if len(reports) > maxCount {
		reports = reports[:maxCount]
	}
	return reports
}

func cloneReports(reports []Report) []Report {
	out := make([]Report, len(reports))
	for i, r := range reports {
		r.Activities = slices.Clone(r.Activities)
		out[i] = r
	}
	return out
}
