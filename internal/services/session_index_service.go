package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yargevad/filepathx"
	"go.uber.org/zap"

	"codevox/internal/models"
)

// SessionIndexService inspects the assistant's on-disk session directories
// for listing and retention cleanup. It never parses session contents.
type SessionIndexService interface {
	List(filterPrefix string) ([]models.SessionArtifact, error)
	Info(id string) (*models.SessionArtifact, error)
	Delete(id string) bool
	CleanupOlderThan(maxAgeDays int, filterPrefix string) int
}

type sessionIndexService struct {
	root   string
	logger *zap.Logger
}

func NewSessionIndexService(root string, logger *zap.Logger) SessionIndexService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionIndexService{root: root, logger: logger}
}

func (s *sessionIndexService) List(filterPrefix string) ([]models.SessionArtifact, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions dir %s: %w", s.root, err)
	}

	var artifacts []models.SessionArtifact
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if filterPrefix != "" && !strings.HasPrefix(entry.Name(), filterPrefix) {
			continue
		}
		artifact, err := s.measure(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable session",
				zap.String("id", entry.Name()), zap.Error(err))
			continue
		}
		artifacts = append(artifacts, *artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].ModifiedAt.After(artifacts[j].ModifiedAt)
	})
	return artifacts, nil
}

func (s *sessionIndexService) Info(id string) (*models.SessionArtifact, error) {
	if !validSessionID(id) {
		return nil, fmt.Errorf("%w: bad session id %q", ErrSessionNotFound, id)
	}
	info, err := os.Stat(filepath.Join(s.root, id))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.measure(id)
}

func (s *sessionIndexService) Delete(id string) bool {
	if !validSessionID(id) {
		s.logger.Warn("refusing to delete session with unsafe id", zap.String("id", id))
		return false
	}
	path := filepath.Join(s.root, id)
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return false
	}
	if err := os.RemoveAll(path); err != nil {
		s.logger.Error("session delete failed", zap.String("id", id), zap.Error(err))
		return false
	}
	s.logger.Info("session deleted", zap.String("id", id))
	return true
}

func (s *sessionIndexService) CleanupOlderThan(maxAgeDays int, filterPrefix string) int {
	if maxAgeDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	artifacts, err := s.List(filterPrefix)
	if err != nil {
		s.logger.Error("cleanup listing failed", zap.Error(err))
		return 0
	}

	removed := 0
	for _, a := range artifacts {
		if a.ModifiedAt.Before(cutoff) && s.Delete(a.ID) {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("session cleanup done",
			zap.Int("removed", removed), zap.Int("max_age_days", maxAgeDays))
	}
	return removed
}

// measure walks one session directory recursively for size and file count.
// The directory mtime stands in for last activity.
func (s *sessionIndexService) measure(id string) (*models.SessionArtifact, error) {
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	artifact := &models.SessionArtifact{
		ID:         id,
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}

	matches, err := filepathx.Glob(filepath.Join(dir, "**", "*"))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		artifact.FileCount++
		artifact.SizeBytes += fi.Size()
		if fi.ModTime().After(artifact.ModifiedAt) {
			artifact.ModifiedAt = fi.ModTime()
		}
		if fi.ModTime().Before(artifact.CreatedAt) {
			artifact.CreatedAt = fi.ModTime()
		}
	}
	return artifact, nil
}

// validSessionID rejects anything that could escape the sessions root.
func validSessionID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}
