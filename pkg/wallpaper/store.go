package wallpaper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/HxprLee/manpaper/util/log"
)

// ItemStore is thread-safe storage for wallpaper items, backed by a bbolt
// database. All reads are served from an in-memory cache; mutations write
// through to disk.
type ItemStore struct {
	mu    sync.RWMutex
	items map[string]*Item

	db *bolt.DB
}

// OpenStore opens or creates the item database at path.
func OpenStore(path string) (*ItemStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, WrapIO("create state directory", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open item database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketItems, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	s := &ItemStore{
		items: make(map[string]*Item),
		db:    db,
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// load fills the memory cache from disk, healing items whose invariants
// were broken by a crash mid-write.
func (s *ItemStore) load() error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			var it Item
			if err := json.Unmarshal(v, &it); err != nil {
				log.Printf("skipping corrupt item record %s: %v", k, err)
				return nil
			}
			if it.Downloaded && it.LocalPath == "" {
				it.Downloaded = false
			}
			if !it.Downloaded {
				it.LocalPath = ""
				it.Applied = false
			}
			s.items[it.ID] = &it
			return nil
		})
	})
}

// Close closes the underlying database.
func (s *ItemStore) Close() error {
	return s.db.Close()
}

func (s *ItemStore) persistLocked(it *Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", it.ID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).Put([]byte(it.ID), data)
	})
}

// Add inserts an item, or refreshes the online metadata of an existing one
// without touching its local state. Adding a local item over an existing
// record leaves the record as is. Returns the stored item.
func (s *ItemStore) Add(it *Item) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[it.ID]; ok {
		// A local rediscovery (directory scan) carries no catalog
		// metadata; refreshing from it would blank the record's URLs.
		if it.Source == SourceLocal {
			return existing, nil
		}
		existing.Name = it.Name
		existing.FullURL = it.FullURL
		existing.ThumbURL = it.ThumbURL
		existing.PageURL = it.PageURL
		existing.Purity = it.Purity
		existing.Category = it.Category
		if it.Width > 0 {
			existing.Width = it.Width
			existing.Height = it.Height
		}
		return existing, s.persistLocked(existing)
	}

	cp := *it
	s.items[cp.ID] = &cp
	return &cp, s.persistLocked(&cp)
}

// Get returns a copy of the item, or false when unknown.
func (s *ItemStore) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// List returns copies of all items, sorted by ID for stable output.
func (s *ItemStore) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Downloaded returns copies of all items with a local file.
func (s *ItemStore) Downloaded() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Item
	for _, it := range s.items {
		if it.Downloaded {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes the item record entirely.
func (s *ItemStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).Delete([]byte(id))
	})
}

// MarkDownloaded records that the item's file is fully on disk.
func (s *ItemStore) MarkDownloaded(id, localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("unknown item %s", id)
	}
	it.Downloaded = true
	it.LocalPath = localPath
	return s.persistLocked(it)
}

// ClearDownloaded resets the item's local state after its file is deleted.
// The item record itself survives so it can be downloaded again.
func (s *ItemStore) ClearDownloaded(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("unknown item %s", id)
	}
	it.Downloaded = false
	it.LocalPath = ""
	it.ThumbPath = ""
	it.Applied = false
	return s.persistLocked(it)
}

// SetThumbPath records the item's generated thumbnail location.
func (s *ItemStore) SetThumbPath(id, thumbPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("unknown item %s", id)
	}
	it.ThumbPath = thumbPath
	return s.persistLocked(it)
}

// MarkApplied flags the item as the current wallpaper and clears the flag
// from whichever item held it before. Applied is session state only, so
// nothing is persisted.
func (s *ItemStore) MarkApplied(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return
	}
	for _, other := range s.items {
		other.Applied = false
	}
	it.Applied = true
}

// AppliedItem returns the currently applied item, if any.
func (s *ItemStore) AppliedItem() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.Applied {
			return *it, true
		}
	}
	return Item{}, false
}
