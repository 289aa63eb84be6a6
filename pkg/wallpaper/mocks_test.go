package wallpaper

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSetter implements Setter for testing
type MockSetter struct {
	mock.Mock
}

func (m *MockSetter) Set(ctx context.Context, it Item) error {
	args := m.Called(ctx, it)
	return args.Error(0)
}

// MockCanceller implements DownloadCanceller for testing
type MockCanceller struct {
	mock.Mock
}

func (m *MockCanceller) CancelAndWait(itemID string) {
	m.Called(itemID)
}

// MockVideoThumbnailer implements VideoThumbnailer for testing
type MockVideoThumbnailer struct {
	mock.Mock
}

func (m *MockVideoThumbnailer) Thumbnail(ctx context.Context, src, dst string, size int) error {
	args := m.Called(ctx, src, dst, size)
	return args.Error(0)
}
