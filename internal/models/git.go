package models

import "time"

// RepoStatus summarizes the working tree of a repository.
type RepoStatus struct {
	Branch    string
	Ahead     int
	Behind    int
	Staged    []string
	Modified  []string
	Untracked []string
}

// IsClean reports whether the working tree has no pending changes.
func (s *RepoStatus) IsClean() bool {
	return len(s.Staged) == 0 && len(s.Modified) == 0 && len(s.Untracked) == 0
}

// DiffResult is the unified diff of uncommitted changes.
type DiffResult struct {
	HasChanges   bool
	Unified      string
	FilesChanged []string
	Insertions   int
	Deletions    int
}

// CommitInfo is one entry of the commit log.
type CommitInfo struct {
	Hash    string
	Author  string
	When    time.Time
	Subject string
}
