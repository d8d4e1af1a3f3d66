package service

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupService periodically removes stale downloads left behind by
// interrupted document handlers.
type CleanupService struct {
	cron      *cron.Cron
	dir       string
	retention time.Duration
	now       func() time.Time
}

func NewCleanupService(dir string, retention time.Duration) *CleanupService {
	return &CleanupService{
		cron:      cron.New(cron.WithSeconds()),
		dir:       dir,
		retention: retention,
		now:       time.Now,
	}
}

// ScheduleEvery registers the sweep to run at the given interval.
func (s *CleanupService) ScheduleEvery(interval time.Duration) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), func() {
		removed, err := s.Sweep()
		if err != nil {
			log.Printf("[warn] download cleanup: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("[info] download cleanup removed %d files", removed)
		}
	})
}

func (s *CleanupService) Start() {
	s.cron.Start()
}

func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep deletes regular files in the download dir older than the retention window.
func (s *CleanupService) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read download dir: %w", err)
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			log.Printf("[warn] remove %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}
