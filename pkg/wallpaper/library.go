package wallpaper

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/HxprLee/manpaper/util"
	"github.com/HxprLee/manpaper/util/log"
)

// VideoThumbnailer extracts a still frame from a video or animated file.
// Implemented by the backend package on top of ffmpegthumbnailer.
type VideoThumbnailer interface {
	Thumbnail(ctx context.Context, src, dst string, size int) error
}

// Library manages the wallpaper directory: scanning it for files,
// reconciling the store against what is actually on disk, and generating
// thumbnails.
type Library struct {
	dir      string
	thumbDir string
	store    *ItemStore
	hub      *Hub
	vt       VideoThumbnailer

	thumbGroup singleflight.Group
}

// NewLibrary creates a Library over the given wallpaper directory.
// vt may be nil, in which case video thumbnails are skipped.
func NewLibrary(dir, thumbDir string, store *ItemStore, hub *Hub, vt VideoThumbnailer) *Library {
	return &Library{
		dir:      dir,
		thumbDir: thumbDir,
		store:    store,
		hub:      hub,
		vt:       vt,
	}
}

// Scan walks the wallpaper directory, registers every supported file, and
// clears the downloaded state of items whose file has disappeared. It
// returns the items currently on disk.
func (l *Library) Scan(ctx context.Context) ([]Item, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, WrapIO("create wallpaper directory", err)
	}

	onDisk := make(map[string]string) // item ID -> path
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || filepath.Ext(path) == PartSuffix {
			return nil
		}

		it := NewLocalItem(path)
		if it == nil {
			return nil
		}

		stored, err := l.store.Add(it)
		if err != nil {
			return err
		}
		onDisk[stored.ID] = path
		if !stored.Downloaded || stored.LocalPath != path {
			if err := l.store.MarkDownloaded(stored.ID, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, WrapIO("scan wallpaper directory", err)
	}

	// Items whose file vanished since the last scan lose their local state.
	for _, it := range l.store.Downloaded() {
		if _, ok := onDisk[it.ID]; ok {
			continue
		}
		if util.PathExists(it.LocalPath) {
			continue // downloaded outside the wallpaper dir
		}
		log.Printf("local file for %s is gone, clearing", it.ID)
		if err := l.store.ClearDownloaded(it.ID); err != nil {
			return nil, err
		}
		l.hub.Publish(StatusEvent{ItemID: it.ID, Status: StatusRemoved})
	}

	items := make([]Item, 0, len(onDisk))
	for id := range onDisk {
		if it, ok := l.store.Get(id); ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// EnsureThumbnail generates (or reuses) a thumbnail for a downloaded item
// and returns its path. Concurrent calls for the same item share one
// generation.
func (l *Library) EnsureThumbnail(ctx context.Context, id string) (string, error) {
	path, err, _ := l.thumbGroup.Do(id, func() (interface{}, error) {
		return l.generateThumbnail(ctx, id)
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

func (l *Library) generateThumbnail(ctx context.Context, id string) (string, error) {
	it, ok := l.store.Get(id)
	if !ok {
		return "", ErrNotDownloaded
	}
	if !it.Downloaded {
		return "", ErrNotDownloaded
	}

	dst := filepath.Join(l.thumbDir, id+".png")
	if util.PathExists(dst) {
		return dst, nil
	}

	if err := os.MkdirAll(l.thumbDir, 0755); err != nil {
		return "", WrapIO("create thumbnail directory", err)
	}

	if it.Kind == KindLive {
		if l.vt == nil {
			return "", ErrBackendNotFound
		}
		if err := l.vt.Thumbnail(ctx, it.LocalPath, dst, ThumbnailSize); err != nil {
			return "", err
		}
	} else {
		img, err := imaging.Open(it.LocalPath, imaging.AutoOrientation(true))
		if err != nil {
			return "", WrapIO("open image", err)
		}
		thumb := imaging.Fill(img, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos)
		if err := imaging.Save(thumb, dst); err != nil {
			return "", WrapIO("save thumbnail", err)
		}
	}

	if err := l.store.SetThumbPath(id, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// WarmThumbnails generates thumbnails for every downloaded item, at most
// parallel at a time. Individual failures are logged, not fatal.
func (l *Library) WarmThumbnails(ctx context.Context, parallel int) error {
	if parallel < 1 {
		parallel = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, it := range l.store.Downloaded() {
		g.Go(func() error {
			if _, err := l.EnsureThumbnail(ctx, it.ID); err != nil {
				log.Printf("thumbnail for %s failed: %v", it.ID, err)
			}
			return ctx.Err()
		})
	}
	return g.Wait()
}
