package wallpaper

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HxprLee/manpaper/util"
)

// Kind classifies a wallpaper by how it must be rendered.
type Kind string

const (
	// KindStatic is a still image.
	KindStatic Kind = "static"
	// KindLive is an animated image or a video.
	KindLive Kind = "live"
)

// Source tells where an item came from.
type Source string

const (
	// SourceLocal is a file discovered in the wallpaper directory.
	SourceLocal Source = "local"
	// SourceOnline is a search result from the online catalog.
	SourceOnline Source = "online"
)

// Item is a single wallpaper, local or remote.
type Item struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Source Source `json:"source"`

	// Online metadata, empty for local items.
	FullURL  string `json:"full_url,omitempty"`
	ThumbURL string `json:"thumb_url,omitempty"`
	PageURL  string `json:"page_url,omitempty"`
	Purity   string `json:"purity,omitempty"`
	Category string `json:"category,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`

	// Local state.
	Downloaded bool   `json:"downloaded"`
	LocalPath  string `json:"local_path,omitempty"`
	ThumbPath  string `json:"thumb_path,omitempty"`
	// Applied is session state, never persisted.
	Applied bool `json:"-"`
}

// KindForPath classifies a file by extension. The second return value is
// false when the extension is not a supported wallpaper format.
func KindForPath(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case staticExts[ext]:
		return KindStatic, true
	case liveExts[ext]:
		return KindLive, true
	default:
		return "", false
	}
}

// IsVideo reports whether the item is a real video file, as opposed to an
// animated gif. Videos need a video-capable backend and thumbnailer.
func (it *Item) IsVideo() bool {
	if it.Kind != KindLive {
		return false
	}
	return strings.ToLower(filepath.Ext(it.pathOrURL())) != ".gif"
}

// IsGIF reports whether the item is an animated gif.
func (it *Item) IsGIF() bool {
	return it.Kind == KindLive && strings.ToLower(filepath.Ext(it.pathOrURL())) == ".gif"
}

func (it *Item) pathOrURL() string {
	if it.LocalPath != "" {
		return it.LocalPath
	}
	return it.FullURL
}

// Resolution returns the item's resolution as "WxH", or "" when unknown.
func (it *Item) Resolution() string {
	if it.Width <= 0 || it.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", it.Width, it.Height)
}

// RecodedPath returns where a display-fitted re-encode of src lives: a
// recoded/ directory beside the source, with a _recoded suffix.
func RecodedPath(src string) string {
	ext := filepath.Ext(src)
	return filepath.Join(filepath.Dir(src), "recoded", util.Stem(src)+"_recoded"+ext)
}

// NewLocalItem builds an Item for a file found in the wallpaper directory.
// The returned item is nil when the file is not a supported format.
func NewLocalItem(path string) *Item {
	kind, ok := KindForPath(path)
	if !ok {
		return nil
	}
	return &Item{
		ID:         util.Stem(path),
		Name:       filepath.Base(path),
		Kind:       kind,
		Source:     SourceLocal,
		Downloaded: true,
		LocalPath:  path,
	}
}
