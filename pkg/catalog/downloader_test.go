package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
)

func newDownloadFixture(t *testing.T, handler http.Handler) (*Downloader, *wallpaper.ItemStore, *wallpaper.Hub, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.WallpaperDir = t.TempDir()
	cfg.Downloads.Parallel = 2

	store, err := wallpaper.OpenStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := wallpaper.NewHub()
	return NewDownloader(cfg, store, hub), store, hub, srv
}

func addOnline(t *testing.T, store *wallpaper.ItemStore, id, fullURL string) {
	t.Helper()
	_, err := store.Add(&wallpaper.Item{
		ID:      id,
		Name:    "wallhaven-" + id + ".jpg",
		Kind:    wallpaper.KindStatic,
		Source:  wallpaper.SourceOnline,
		FullURL: fullURL,
	})
	require.NoError(t, err)
}

func TestDownloadHappyPath(t *testing.T) {
	d, store, hub, srv := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))

	var statuses []wallpaper.Status
	hub.Subscribe(func(ev wallpaper.StatusEvent) {
		statuses = append(statuses, ev.Status)
	})

	addOnline(t, store, "abc123", srv.URL+"/full/wallhaven-abc123.jpg")

	path, err := d.Download(context.Background(), "abc123")
	require.NoError(t, err)
	hub.Close()

	assert.Equal(t, "abc123.jpg", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	it, _ := store.Get("abc123")
	assert.True(t, it.Downloaded)
	assert.Equal(t, path, it.LocalPath)

	assert.Equal(t, []wallpaper.Status{
		wallpaper.StatusQueued,
		wallpaper.StatusDownloading,
		wallpaper.StatusDownloaded,
	}, statuses)

	// No .part marker left behind.
	assert.NoFileExists(t, path+wallpaper.PartSuffix)
}

func TestDownloadAlreadyDownloaded(t *testing.T) {
	var hits atomic.Int32
	d, store, hub, srv := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("x"))
	}))
	defer hub.Close()

	addOnline(t, store, "abc123", srv.URL+"/full/wallhaven-abc123.jpg")
	require.NoError(t, store.MarkDownloaded("abc123", "/walls/abc123.jpg"))

	path, err := d.Download(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "/walls/abc123.jpg", path)
	assert.Zero(t, hits.Load())
}

func TestDownloadRetriesTransientFailure(t *testing.T) {
	var hits atomic.Int32
	d, store, hub, srv := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer hub.Close()

	addOnline(t, store, "abc123", srv.URL+"/full/wallhaven-abc123.jpg")

	path, err := d.Download(context.Background(), "abc123")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloadRetriesDroppedConnection(t *testing.T) {
	var hits atomic.Int32
	d, store, hub, srv := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			// Advertise a long body, send a fragment, then drop the
			// connection mid-stream.
			conn, bufrw, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			bufrw.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 1000000\r\n\r\npartial")
			require.NoError(t, bufrw.Flush())
			conn.Close()
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer hub.Close()

	addOnline(t, store, "abc123", srv.URL+"/full/wallhaven-abc123.jpg")

	path, err := d.Download(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "a mid-stream drop is transient and must be retried")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
	assert.NoFileExists(t, path+wallpaper.PartSuffix)
}

func TestDownloadGivesUpAfterRetry(t *testing.T) {
	d, store, hub, srv := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	var failed []wallpaper.StatusEvent
	hub.Subscribe(func(ev wallpaper.StatusEvent) {
		if ev.Status == wallpaper.StatusFailed {
			failed = append(failed, ev)
		}
	})

	addOnline(t, store, "abc123", srv.URL+"/full/wallhaven-abc123.jpg")

	_, err := d.Download(context.Background(), "abc123")
	hub.Close()

	assert.ErrorIs(t, err, wallpaper.ErrNetwork)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, wallpaper.ErrNetwork)

	it, _ := store.Get("abc123")
	assert.False(t, it.Downloaded)
}

func TestCancelAndWaitAbortsDownload(t *testing.T) {
	started := make(chan struct{})
	d, store, hub, srv := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done() // drip forever until the client goes away
	}))
	defer hub.Close()

	addOnline(t, store, "abc123", srv.URL+"/full/wallhaven-abc123.jpg")

	errCh := make(chan error, 1)
	go func() {
		_, err := d.Download(context.Background(), "abc123")
		errCh <- err
	}()

	<-started
	d.CancelAndWait("abc123")

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, wallpaper.ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("download did not stop after cancel")
	}

	assert.False(t, d.InFlight("abc123"))

	// Neither the final file nor a .part marker survives.
	entries, err := os.ReadDir(d.cfg.WallpaperDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCancelAndWaitNoop(t *testing.T) {
	d, _, hub, _ := newDownloadFixture(t, http.NewServeMux())
	defer hub.Close()
	d.CancelAndWait("nothing-here")
}

func TestDownloadDuplicateRejected(t *testing.T) {
	started := make(chan struct{})
	d, store, hub, srv := newDownloadFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer hub.Close()

	addOnline(t, store, "abc123", srv.URL+"/full/wallhaven-abc123.jpg")

	go d.Download(context.Background(), "abc123")
	<-started

	_, err := d.Download(context.Background(), "abc123")
	assert.Error(t, err)

	d.CancelAndWait("abc123")
}
