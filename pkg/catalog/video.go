package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
	"github.com/HxprLee/manpaper/util/log"
)

// VideoFetcher downloads video wallpapers with yt-dlp, capped at the
// display's resolution so mpvpaper never decodes more pixels than the
// monitor can show.
type VideoFetcher struct {
	cfg   *config.Config
	store *wallpaper.ItemStore
	hub   *wallpaper.Hub

	// run is swapped out in tests.
	run func(ctx context.Context, dl *ytdlp.Command, url string) (*ytdlp.Result, error)
}

// NewVideoFetcher creates a VideoFetcher.
func NewVideoFetcher(cfg *config.Config, store *wallpaper.ItemStore, hub *wallpaper.Hub) *VideoFetcher {
	return &VideoFetcher{
		cfg:   cfg,
		store: store,
		hub:   hub,
		run: func(ctx context.Context, dl *ytdlp.Command, url string) (*ytdlp.Result, error) {
			return dl.Run(ctx, url)
		},
	}
}

// Fetch downloads the video at url into the wallpaper directory, capped at
// maxHeight pixels, and registers it as a live item. Returns the stored
// item.
func (v *VideoFetcher) Fetch(ctx context.Context, url string, maxHeight int) (wallpaper.Item, error) {
	if maxHeight <= 0 {
		maxHeight = 1080
	}

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Format(fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", maxHeight, maxHeight)).
		MergeOutputFormat("mp4").
		Output(filepath.Join(v.cfg.WallpaperDir, "yt_%(id)s.%(ext)s"))

	dl.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			pct := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
			log.Debugf("yt-dlp %s: %.0f%%", url, pct)
		}
	})

	result, err := v.run(ctx, dl, url)
	if err != nil {
		if ctx.Err() != nil {
			return wallpaper.Item{}, fmt.Errorf("fetch video: %w", wallpaper.ErrCancelled)
		}
		return wallpaper.Item{}, wallpaper.WrapNetwork("fetch video", err)
	}

	path, title, err := downloadedInfo(result)
	if err != nil {
		return wallpaper.Item{}, err
	}

	it := wallpaper.NewLocalItem(path)
	if it == nil {
		return wallpaper.Item{}, fmt.Errorf("yt-dlp produced an unsupported file %s", path)
	}
	if title != "" {
		it.Name = title
	}
	it.PageURL = url

	stored, err := v.store.Add(it)
	if err != nil {
		return wallpaper.Item{}, err
	}
	v.hub.Publish(wallpaper.StatusEvent{ItemID: stored.ID, Status: wallpaper.StatusDownloaded})
	log.Printf("fetched video wallpaper %s", path)
	return *stored, nil
}

func downloadedInfo(result *ytdlp.Result) (path, title string, err error) {
	if result == nil {
		return "", "", fmt.Errorf("yt-dlp returned no result")
	}
	info, err := result.GetExtractedInfo()
	if err != nil {
		return "", "", fmt.Errorf("failed to read yt-dlp output info: %w", err)
	}
	if len(info) == 0 || info[0].Filename == nil {
		return "", "", fmt.Errorf("yt-dlp reported no output file")
	}
	if info[0].Title != nil {
		title = *info[0].Title
	}
	return *info[0].Filename, title, nil
}
