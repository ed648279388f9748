package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"codevox/internal/models"
)

const (
	committerName  = "codevox"
	committerEmail = "codevox@localhost"
)

// GitService wraps the version-control operations the approval flow and the
// /git* commands need. All failures are returned as values.
type GitService interface {
	IsRepository(path string) bool
	Init(path string) error
	Status(path string) (*models.RepoStatus, error)
	Diff(path string) (*models.DiffResult, error)
	StageAll(path string) error
	Commit(path, message string) (string, error)
	Log(path string, n int) ([]models.CommitInfo, error)
	ResetHard(path string) error
}

type gitService struct {
	logger *zap.Logger
}

func NewGitService(logger *zap.Logger) GitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gitService{logger: logger}
}

func (g *gitService) IsRepository(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

func (g *gitService) Init(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidInput)
	}
	if _, err := git.PlainInit(path, false); err != nil {
		return fmt.Errorf("%w: init %s: %v", ErrVersionControl, path, err)
	}
	g.logger.Info("initialized repository", zap.String("path", path))
	return nil
}

func (g *gitService) Status(path string) (*models.RepoStatus, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrVersionControl, path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", ErrVersionControl, err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrVersionControl, err)
	}

	rs := &models.RepoStatus{Branch: currentBranch(repo)}
	for file, fs := range status {
		if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			rs.Staged = append(rs.Staged, file)
		}
		switch {
		case fs.Worktree == git.Untracked:
			rs.Untracked = append(rs.Untracked, file)
		case fs.Worktree != git.Unmodified:
			rs.Modified = append(rs.Modified, file)
		}
	}
	sort.Strings(rs.Staged)
	sort.Strings(rs.Modified)
	sort.Strings(rs.Untracked)

	rs.Ahead, rs.Behind = aheadBehind(repo)
	return rs, nil
}

// Diff builds a unified diff of every modified or untracked file against
// HEAD. New files diff against empty content.
func (g *gitService) Diff(path string) (*models.DiffResult, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrVersionControl, path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", ErrVersionControl, err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrVersionControl, err)
	}

	headContent := headFileContents(repo)

	var files []string
	for file, fs := range status {
		if fs.Worktree == git.Unmodified && fs.Staging == git.Unmodified {
			continue
		}
		files = append(files, file)
	}
	sort.Strings(files)

	result := &models.DiffResult{FilesChanged: files}
	if len(files) == 0 {
		return result, nil
	}
	result.HasChanges = true

	dmp := diffmatchpatch.New()
	var buf bytes.Buffer
	for _, file := range files {
		before := headContent[file]
		after := readWorktreeFile(path, file)

		buf.WriteString(fmt.Sprintf("--- a/%s\n+++ b/%s\n", file, file))
		diffs := dmp.DiffMain(before, after, true)
		dmp.DiffCleanupSemantic(diffs)
		for _, d := range diffs {
			lines := splitDiffLines(d.Text)
			for _, line := range lines {
				switch d.Type {
				case diffmatchpatch.DiffInsert:
					buf.WriteString("+" + line + "\n")
					result.Insertions++
				case diffmatchpatch.DiffDelete:
					buf.WriteString("-" + line + "\n")
					result.Deletions++
				case diffmatchpatch.DiffEqual:
					buf.WriteString(" " + line + "\n")
				}
			}
		}
	}
	result.Unified = buf.String()
	return result, nil
}

func (g *gitService) StageAll(path string) error {
	wt, err := openWorktree(path)
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("%w: stage all: %v", ErrVersionControl, err)
	}
	return nil
}

func (g *gitService) Commit(path, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: commit message cannot be empty", ErrInvalidInput)
	}
	wt, err := openWorktree(path)
	if err != nil {
		return "", err
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: commit: %v", ErrVersionControl, err)
	}

	g.logger.Info("created commit",
		zap.String("path", path),
		zap.String("hash", hash.String()[:8]))
	return hash.String(), nil
}

func (g *gitService) Log(path string, n int) ([]models.CommitInfo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrVersionControl, path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: head: %v", ErrVersionControl, err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("%w: log: %v", ErrVersionControl, err)
	}
	defer iter.Close()

	var commits []models.CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if n > 0 && len(commits) >= n {
			return fmt.Errorf("done")
		}
		subject := c.Message
		if i := strings.IndexByte(subject, '\n'); i >= 0 {
			subject = subject[:i]
		}
		commits = append(commits, models.CommitInfo{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			When:    c.Author.When,
			Subject: subject,
		})
		return nil
	})
	if err != nil && (n <= 0 || len(commits) < n) {
		return nil, fmt.Errorf("%w: log iterate: %v", ErrVersionControl, err)
	}
	return commits, nil
}

func (g *gitService) ResetHard(path string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrVersionControl, path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("%w: head: %v", ErrVersionControl, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: worktree: %v", ErrVersionControl, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: head.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("%w: reset: %v", ErrVersionControl, err)
	}
	g.logger.Warn("worktree hard reset", zap.String("path", path))
	return nil
}

func openWorktree(path string) (*git.Worktree, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrVersionControl, path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", ErrVersionControl, err)
	}
	return wt, nil
}

func currentBranch(repo *git.Repository) string {
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return head.Hash().String()[:8]
}

// aheadBehind counts commits between HEAD and its upstream tracking branch.
// Repos without a remote report zero both ways.
func aheadBehind(repo *git.Repository) (int, int) {
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return 0, 0
	}
	remoteRef, err := repo.Reference(
		plumbing.NewRemoteReferenceName("origin", head.Name().Short()), true)
	if err != nil {
		return 0, 0
	}

	ahead := countExclusive(repo, head.Hash(), remoteRef.Hash())
	behind := countExclusive(repo, remoteRef.Hash(), head.Hash())
	return ahead, behind
}

// countExclusive counts commits reachable from `from` but not from `exclude`.
func countExclusive(repo *git.Repository, from, exclude plumbing.Hash) int {
	excluded := make(map[plumbing.Hash]bool)
	if iter, err := repo.Log(&git.LogOptions{From: exclude}); err == nil {
		_ = iter.ForEach(func(c *object.Commit) error {
			excluded[c.Hash] = true
			return nil
		})
		iter.Close()
	}

	count := 0
	if iter, err := repo.Log(&git.LogOptions{From: from}); err == nil {
		_ = iter.ForEach(func(c *object.Commit) error {
			if !excluded[c.Hash] {
				count++
			}
			return nil
		})
		iter.Close()
	}
	return count
}

// headFileContents maps file path to content at HEAD. An unborn HEAD yields
// an empty map so every worktree file diffs as new.
func headFileContents(repo *git.Repository) map[string]string {
	contents := make(map[string]string)
	head, err := repo.Head()
	if err != nil {
		return contents
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return contents
	}
	tree, err := commit.Tree()
	if err != nil {
		return contents
	}
	_ = tree.Files().ForEach(func(f *object.File) error {
		if body, err := f.Contents(); err == nil {
			contents[f.Name] = body
		}
		return nil
	})
	return contents
}

func readWorktreeFile(repoPath, file string) string {
	data, err := os.ReadFile(filepath.Join(repoPath, file))
	if err != nil {
		return ""
	}
	return string(data)
}

func splitDiffLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
