package testutil

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// FileSuite gives each test a fresh directory for table files.
type FileSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	dir    string
}

// SetupSuite runs before all tests in the suite
func (s *FileSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 2*time.Minute)
}

// TearDownSuite runs after all tests in the suite
func (s *FileSuite) TearDownSuite() {
	s.cancel()
}

// SetupTest creates the per-test directory.
func (s *FileSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "arbor-test-*")
	require.NoError(s.T(), err)
	s.dir = dir
}

// TearDownTest removes the per-test directory.
func (s *FileSuite) TearDownTest() {
	if s.dir != "" {
		os.RemoveAll(s.dir)
	}
}

// Context returns the suite context
func (s *FileSuite) Context() context.Context {
	return s.ctx
}

// Path returns name inside the per-test directory.
func (s *FileSuite) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteFile writes content to name inside the per-test directory and
// returns its path.
func (s *FileSuite) WriteFile(name string, content []byte) string {
	path := s.Path(name)
	require.NoError(s.T(), os.WriteFile(path, content, 0o600))
	return path
}
