package wallpaper

import "time"

// Supported file extensions, lowercase with leading dot.
var (
	staticExts = map[string]bool{
		".png":  true,
		".jpeg": true,
		".jpg":  true,
		".bmp":  true,
	}

	liveExts = map[string]bool{
		".gif": true,
		".mp4": true,
		".mov": true,
		".mkv": true,
	}
)

const (
	// ThumbnailSize is the pixel width and height of generated thumbnails.
	ThumbnailSize = 256

	// storeOpenTimeout bounds how long opening the state database may
	// block on a file lock held by another process.
	storeOpenTimeout = 1 * time.Second

	// PartSuffix marks an in-progress download on disk. The downloader
	// writes under it and Scan skips it.
	PartSuffix = ".part"
)

// bbolt bucket names.
var (
	bucketItems = []byte("items")
	bucketMeta  = []byte("meta")
)
