package backend

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunner implements Runner for testing
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) LookPath(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *MockRunner) Run(ctx context.Context, name string, cmdArgs ...string) ([]byte, error) {
	args := m.Called(ctx, name, cmdArgs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockRunner) Start(name string, cmdArgs ...string) error {
	args := m.Called(name, cmdArgs)
	return args.Error(0)
}

func (m *MockRunner) Running(process string) bool {
	args := m.Called(process)
	return args.Bool(0)
}

func (m *MockRunner) Terminate(process string) error {
	args := m.Called(process)
	return args.Error(0)
}
