package store

import (
	"time"

	"github.com/civiclens/civiclens/internal/profile"
	"github.com/civiclens/civiclens/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// candidateCache caches per-category candidate lists. The TTL is short:
	// a report created moments ago may be missed by a concurrent check,
	// which the detection contract tolerates.
	candidateCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		candidateCache: cache.New(cache.Config{
			DefaultTTL:      30 * time.Second,
			CleanupInterval: time.Minute,
			MaxItems:        256,
		}),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.candidateCache.Close()
	return s.driver.Close()
}
