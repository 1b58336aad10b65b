// internal/device/store.go
package device

import (
	"github.com/hashicorp/go-hclog"

	"github.com/tamzrod/faultcapture/internal/config"
	"github.com/tamzrod/faultcapture/internal/query"
	"github.com/tamzrod/faultcapture/internal/store"
)

// Store is the persistent half of a device: the medium, the reserved
// region and the query side over it. It outlives boots.
type Store struct {
	log    hclog.Logger
	medium store.Medium
	region *store.Region
	reader *query.Reader
	close  func() error
}

// OpenStore opens the configured medium and carves the fault region out of it.
func OpenStore(log hclog.Logger, c config.StoreConfig) (*Store, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("store")

	m, closeMedium, err := BuildMedium(log, c)
	if err != nil {
		return nil, err
	}
	return newStore(log, m, closeMedium, c.Base, c.Size)
}

func newStore(log hclog.Logger, m store.Medium, closeMedium func() error, base, size uint32) (*Store, error) {
	region, err := store.NewRegion(m, base, size)
	if err != nil {
		_ = closeMedium()
		return nil, err
	}

	return &Store{
		log:    log,
		medium: m,
		region: region,
		reader: query.New(region),
		close:  closeMedium,
	}, nil
}

// Medium returns the underlying medium.
func (s *Store) Medium() store.Medium { return s.medium }

// Region returns the fault region.
func (s *Store) Region() *store.Region { return s.region }

// Reader returns the fault query API over the region.
func (s *Store) Reader() *query.Reader { return s.reader }

// Clear returns the region to its freshly programmed state, as uploading
// new firmware would. Media that support it are reprogrammed as a whole.
func (s *Store) Clear() error {
	if r, ok := s.medium.(reprogrammer); ok {
		s.log.Info("reprogramming medium")
		return r.Reprogram()
	}
	s.log.Info("blanking region", "base", s.region.Base(), "size", s.region.Size())
	return s.region.Blank()
}

// Close releases the medium.
func (s *Store) Close() error {
	return s.close()
}
