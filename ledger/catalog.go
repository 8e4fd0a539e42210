package ledger

import (
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/models"
	"github.com/lorekeep/lorekeep/utils"
)

// snapshot is an immutable view of the activities table. Lookups never see a
// half-reloaded catalog: Reload builds a fresh snapshot and swaps one pointer.
type snapshot struct {
	byKey map[string]models.Activity
	byID  map[uint]models.Activity
}

// Catalog serves activity definitions from an atomically swapped snapshot.
type Catalog struct {
	db   *gorm.DB
	snap atomic.Pointer[snapshot]
}

// NewCatalog creates a catalog and performs the initial load.
func NewCatalog(db *gorm.DB) (*Catalog, error) {
	c := &Catalog{db: db}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload reads the whole activities table and swaps in the new snapshot.
func (c *Catalog) Reload() error {
	var rows []models.Activity
	if err := c.db.Find(&rows).Error; err != nil {
		return err
	}
	next := &snapshot{
		byKey: make(map[string]models.Activity, len(rows)),
		byID:  make(map[uint]models.Activity, len(rows)),
	}
	for _, a := range rows {
		next.byKey[a.Key] = a
		next.byID[a.ID] = a
	}
	c.snap.Store(next)
	return nil
}

// Get returns the activity for a key, or ErrActivityNotFound.
func (c *Catalog) Get(key string) (*models.Activity, error) {
	s := c.snap.Load()
	if s == nil {
		return nil, ErrActivityNotFound
	}
	a, ok := s.byKey[key]
	if !ok {
		return nil, ErrActivityNotFound
	}
	return &a, nil
}

// ByID returns the activity for a primary key, or ErrActivityNotFound.
func (c *Catalog) ByID(id uint) (*models.Activity, error) {
	s := c.snap.Load()
	if s == nil {
		return nil, ErrActivityNotFound
	}
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrActivityNotFound
	}
	return &a, nil
}

// StartReloader launches a background goroutine that refreshes the snapshot
// periodically. It is best-effort and logs failures.
func (c *Catalog) StartReloader(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		for {
			// Sleep first: the constructor already loaded once.
			time.Sleep(interval)
			if err := c.Reload(); err != nil {
				utils.Sugar.Warnf("catalog reload failed: %v", err)
			}
		}
	}()
}
