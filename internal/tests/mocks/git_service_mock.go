package mocks

import (
	"codevox/internal/models"
)

// GitServiceMock implements services.GitService with overridable funcs.
type GitServiceMock struct {
	IsRepositoryFunc func(path string) bool
	InitFunc         func(path string) error
	StatusFunc       func(path string) (*models.RepoStatus, error)
	DiffFunc         func(path string) (*models.DiffResult, error)
	StageAllFunc     func(path string) error
	CommitFunc       func(path, message string) (string, error)
	LogFunc          func(path string, n int) ([]models.CommitInfo, error)
	ResetHardFunc    func(path string) error
}

func (m *GitServiceMock) IsRepository(path string) bool {
	if m.IsRepositoryFunc != nil {
		return m.IsRepositoryFunc(path)
	}
	return false
}

func (m *GitServiceMock) Init(path string) error {
	if m.InitFunc != nil {
		return m.InitFunc(path)
	}
	return nil
}

func (m *GitServiceMock) Status(path string) (*models.RepoStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(path)
	}
	return &models.RepoStatus{}, nil
}

func (m *GitServiceMock) Diff(path string) (*models.DiffResult, error) {
	if m.DiffFunc != nil {
		return m.DiffFunc(path)
	}
	return &models.DiffResult{}, nil
}

func (m *GitServiceMock) StageAll(path string) error {
	if m.StageAllFunc != nil {
		return m.StageAllFunc(path)
	}
	return nil
}

func (m *GitServiceMock) Commit(path, message string) (string, error) {
	if m.CommitFunc != nil {
		return m.CommitFunc(path, message)
	}
	return "", nil
}

func (m *GitServiceMock) Log(path string, n int) ([]models.CommitInfo, error) {
	if m.LogFunc != nil {
		return m.LogFunc(path, n)
	}
	return nil, nil
}

func (m *GitServiceMock) ResetHard(path string) error {
	if m.ResetHardFunc != nil {
		return m.ResetHardFunc(path)
	}
	return nil
}
