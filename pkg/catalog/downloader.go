package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
	"github.com/HxprLee/manpaper/util"
	"github.com/HxprLee/manpaper/util/log"
)

// retryBackoff is the pause before the single retry of a transient
// download failure.
const retryBackoff = 2 * time.Second

type inflight struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Downloader fetches wallpaper files into the wallpaper directory. It
// implements wallpaper.DownloadCanceller.
type Downloader struct {
	cfg        *config.Config
	store      *wallpaper.ItemStore
	hub        *wallpaper.Hub
	httpClient *http.Client
	sem        *semaphore.Weighted
	active     *util.SafeCounter

	mu       sync.Mutex
	inflight map[string]*inflight
}

// NewDownloader creates a Downloader honoring the configured parallelism.
func NewDownloader(cfg *config.Config, store *wallpaper.ItemStore, hub *wallpaper.Hub) *Downloader {
	parallel := cfg.Downloads.Parallel
	if parallel < 1 {
		parallel = 1
	}
	return &Downloader{
		cfg:        cfg,
		store:      store,
		hub:        hub,
		httpClient: newDownloadClient(),
		sem:        semaphore.NewWeighted(int64(parallel)),
		active:     util.NewSafeCounter(),
		inflight:   make(map[string]*inflight),
	}
}

// Download fetches the item's full file and returns its local path. An
// already-downloaded item returns its existing path untouched. The file is
// written next to a .part marker and renamed only once complete, so a
// crash never leaves a half file with a final name.
func (d *Downloader) Download(ctx context.Context, id string) (string, error) {
	it, ok := d.store.Get(id)
	if !ok {
		return "", fmt.Errorf("download: unknown item %s", id)
	}
	if it.Downloaded && it.LocalPath != "" {
		return it.LocalPath, nil
	}
	if it.FullURL == "" {
		return "", fmt.Errorf("download %s: no source URL", id)
	}

	dctx, cancel := context.WithCancel(ctx)
	fl := &inflight{cancel: cancel, done: make(chan struct{})}

	d.mu.Lock()
	if _, busy := d.inflight[id]; busy {
		d.mu.Unlock()
		cancel()
		return "", fmt.Errorf("download %s: already in progress", id)
	}
	d.inflight[id] = fl
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.inflight, id)
		d.mu.Unlock()
		cancel()
		close(fl.done)
	}()

	d.hub.Publish(wallpaper.StatusEvent{ItemID: id, Status: wallpaper.StatusQueued})

	if err := d.sem.Acquire(dctx, 1); err != nil {
		return "", d.fail(id, fmt.Errorf("download %s: %w", id, wallpaper.ErrCancelled))
	}
	defer d.sem.Release(1)

	log.Debugf("download %s starting, %d workers active", id, d.active.Increment())
	defer d.active.Decrement()

	d.hub.Publish(wallpaper.StatusEvent{ItemID: id, Status: wallpaper.StatusDownloading})

	path, err := d.fetchWithRetry(dctx, it)
	if err != nil {
		return "", d.fail(id, err)
	}

	if err := d.store.MarkDownloaded(id, path); err != nil {
		return "", d.fail(id, err)
	}
	d.hub.Publish(wallpaper.StatusEvent{ItemID: id, Status: wallpaper.StatusDownloaded})
	log.Printf("downloaded %s to %s", id, path)
	return path, nil
}

func (d *Downloader) fail(id string, err error) error {
	d.hub.Publish(wallpaper.StatusEvent{ItemID: id, Status: wallpaper.StatusFailed, Err: err})
	return err
}

// fetchWithRetry retries once on transient network failure. Cancellation
// and local I/O errors are final.
func (d *Downloader) fetchWithRetry(ctx context.Context, it wallpaper.Item) (string, error) {
	path, err := d.fetch(ctx, it)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, wallpaper.ErrNetwork) || ctx.Err() != nil {
		return "", err
	}

	log.Printf("download %s failed, retrying: %v", it.ID, err)
	select {
	case <-time.After(retryBackoff):
	case <-ctx.Done():
		return "", fmt.Errorf("download %s: %w", it.ID, wallpaper.ErrCancelled)
	}
	return d.fetch(ctx, it)
}

func (d *Downloader) fetch(ctx context.Context, it wallpaper.Item) (string, error) {
	if err := os.MkdirAll(d.cfg.WallpaperDir, 0755); err != nil {
		return "", wallpaper.WrapIO("create wallpaper directory", err)
	}

	final := filepath.Join(d.cfg.WallpaperDir, util.FilenameFromURL(it.ID, it.FullURL))
	part := final + wallpaper.PartSuffix

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, it.FullURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("download %s: %w", it.ID, wallpaper.ErrCancelled)
		}
		return "", wallpaper.WrapNetwork("download "+it.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", wallpaper.WrapNetwork("download "+it.ID,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	f, err := os.Create(part)
	if err != nil {
		return "", wallpaper.WrapIO("create download file", err)
	}

	body := &bodyReader{r: resp.Body}
	_, err = io.Copy(f, body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(part)
		if ctx.Err() != nil {
			return "", fmt.Errorf("download %s: %w", it.ID, wallpaper.ErrCancelled)
		}
		if body.failed {
			return "", wallpaper.WrapNetwork("download "+it.ID, err)
		}
		return "", wallpaper.WrapIO("write download file", err)
	}

	if err := os.Rename(part, final); err != nil {
		os.Remove(part)
		return "", wallpaper.WrapIO("finalize download file", err)
	}
	return final, nil
}

// bodyReader tells a dropped connection apart from a local write failure:
// io.Copy folds both into one error, but only read failures are transient
// and worth a retry.
type bodyReader struct {
	r      io.Reader
	failed bool
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		b.failed = true
	}
	return n, err
}

// CancelAndWait aborts an in-flight download of the item and blocks until
// its worker has released the file. A no-op when nothing is in flight.
func (d *Downloader) CancelAndWait(itemID string) {
	d.mu.Lock()
	fl, ok := d.inflight[itemID]
	d.mu.Unlock()
	if !ok {
		return
	}
	fl.cancel()
	<-fl.done
}

// InFlight reports whether the item is currently being downloaded.
func (d *Downloader) InFlight(itemID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[itemID]
	return ok
}
