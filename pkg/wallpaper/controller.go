package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/HxprLee/manpaper/util"
	"github.com/HxprLee/manpaper/util/log"
)

// Setter renders an item as the current wallpaper. Implemented by the
// backend package.
type Setter interface {
	Set(ctx context.Context, it Item) error
}

// DownloadCanceller aborts an in-flight download for an item and blocks
// until its worker has let go of the file. Implemented by the catalog
// package.
type DownloadCanceller interface {
	CancelAndWait(itemID string)
}

// Controller coordinates apply and delete across the store, the rendering
// backend, and the download pipeline.
type Controller struct {
	store     *ItemStore
	hub       *Hub
	setter    Setter
	canceller DownloadCanceller
}

// NewController wires a Controller. canceller may be nil when no download
// pipeline is running.
func NewController(store *ItemStore, hub *Hub, setter Setter, canceller DownloadCanceller) *Controller {
	return &Controller{
		store:     store,
		hub:       hub,
		setter:    setter,
		canceller: canceller,
	}
}

// Apply makes the item the current wallpaper. The item must be downloaded.
// Videos that were previously recoded for this display are applied from
// the recoded copy.
func (c *Controller) Apply(ctx context.Context, id string) error {
	it, ok := c.store.Get(id)
	if !ok {
		return fmt.Errorf("apply %s: %w", id, ErrNotDownloaded)
	}
	if !it.Downloaded || it.LocalPath == "" {
		return fmt.Errorf("apply %s: %w", id, ErrNotDownloaded)
	}
	if !util.PathExists(it.LocalPath) {
		// The file vanished since the last scan. Heal the record rather
		// than handing a dead path to the backend.
		if clearErr := c.store.ClearDownloaded(id); clearErr != nil {
			log.Printf("failed to clear stale item %s: %v", id, clearErr)
		}
		c.hub.Publish(StatusEvent{ItemID: id, Status: StatusRemoved})
		return fmt.Errorf("apply %s: %w", id, ErrNotDownloaded)
	}

	if recoded := RecodedPath(it.LocalPath); it.IsVideo() && it.LocalPath != recoded {
		if util.PathExists(recoded) {
			log.Printf("applying recoded copy of %s", id)
			it.LocalPath = recoded
		}
	}

	if err := c.setter.Set(ctx, it); err != nil {
		return err
	}

	c.store.MarkApplied(id)
	c.hub.Publish(StatusEvent{ItemID: id, Status: StatusApplied})
	log.Printf("applied wallpaper %s (%s)", id, it.LocalPath)
	return nil
}

// Delete removes the item's local file. The destructive path runs only
// with confirmed set; an unconfirmed call is a no-op that reports success,
// so callers can drive a show-confirmation flow through one entry point.
// An in-flight download for the item is cancelled and waited out first.
// The item record survives for online items so they can be downloaded
// again; a file that is already gone is an I/O failure and leaves the
// item's state untouched.
func (c *Controller) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return nil
	}

	if c.canceller != nil {
		c.canceller.CancelAndWait(id)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("delete %s: %w", id, ErrCancelled)
	}

	// Read after the cancel: an aborted download cleans up its own
	// partial state.
	it, ok := c.store.Get(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotDownloaded)
	}
	if !it.Downloaded || it.LocalPath == "" {
		return fmt.Errorf("delete %s: %w", id, ErrNotDownloaded)
	}

	if err := os.Remove(it.LocalPath); err != nil {
		return WrapIO("delete wallpaper file", err)
	}
	if rec := RecodedPath(it.LocalPath); rec != it.LocalPath {
		if err := os.Remove(rec); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("failed to remove recoded copy for %s: %v", id, err)
		}
	}
	if it.ThumbPath != "" {
		if err := os.Remove(it.ThumbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("failed to remove thumbnail for %s: %v", id, err)
		}
	}

	if err := c.store.ClearDownloaded(id); err != nil {
		return err
	}
	if it.Source == SourceLocal {
		// Nothing left to re-download, drop the record too.
		if err := c.store.Remove(id); err != nil {
			return err
		}
	}

	c.hub.Publish(StatusEvent{ItemID: id, Status: StatusRemoved})
	log.Printf("deleted wallpaper %s", id)
	return nil
}
