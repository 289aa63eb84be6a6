package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeCounterConcurrent(t *testing.T) {
	sc := NewSafeCounter()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc.Increment()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, sc.Value())

	sc.Decrement()
	assert.Equal(t, 49, sc.Value())

	sc.Set(0)
	assert.Equal(t, 0, sc.Value())
}

func TestSafeFlag(t *testing.T) {
	sf := NewSafeFlag()
	assert.False(t, sf.Value())

	sf.Set(true)
	assert.True(t, sf.Value())

	sf = NewSafeFlagWithValue(true)
	assert.True(t, sf.Value())
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		name string
		id   string
		url  string
		want string
	}{
		{"jpg", "abc123", "https://w.wallhaven.cc/full/ab/wallhaven-abc123.jpg", "abc123.jpg"},
		{"png with query", "x9y8z7", "https://example.com/img.PNG?token=1", "x9y8z7.png"},
		{"no extension", "id01", "https://example.com/raw", "id01.img"},
		{"unparseable", "id02", "://bad", "id02.img"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameFromURL(tt.id, tt.url))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "video", Stem("/home/u/clips/video.mp4"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))
	assert.Equal(t, "noext", Stem("noext"))
}
