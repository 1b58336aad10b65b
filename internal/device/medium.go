// internal/device/medium.go
package device

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/config"
	"github.com/tamzrod/faultcapture/internal/store"
	"github.com/tamzrod/faultcapture/internal/store/boltflash"
	"github.com/tamzrod/faultcapture/internal/store/memflash"
	"github.com/tamzrod/faultcapture/internal/store/modbusflash"
)

// reprogrammer is implemented by media that can be returned to their
// freshly programmed image in one step.
type reprogrammer interface {
	Reprogram() error
}

// geometry extracts the medium geometry from store config.
func geometry(c config.StoreConfig) store.Geometry {
	return store.Geometry{
		PageSize:   c.PageSize,
		ErasePages: c.ErasePages,
		WordSize:   c.WordSize,
	}
}

// BuildMedium opens the medium selected by c.Backend.
// The returned closer releases it; it is never nil on success.
// Assumes config has already been normalized and validated.
func BuildMedium(log hclog.Logger, c config.StoreConfig) (store.Medium, func() error, error) {
	geo := geometry(c)
	noop := func() error { return nil }

	switch c.Backend {
	case config.BackendMemory:
		f, err := memflash.New(geo, c.MediumSize)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("opened medium", "backend", c.Backend, "size", c.MediumSize)
		return f, noop, nil

	case config.BackendBolt:
		f, err := boltflash.Open(boltflash.Config{
			Path:     c.Bolt.Path,
			Size:     c.MediumSize,
			Geometry: geo,
			Timeout:  time.Duration(c.Bolt.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Debug("opened medium", "backend", c.Backend, "path", c.Bolt.Path, "size", c.MediumSize)
		return f, f.Close, nil

	case config.BackendModbus:
		f, err := modbusflash.Dial(modbusflash.Config{
			Endpoint:     c.Modbus.Endpoint,
			UnitID:       c.Modbus.UnitID,
			Timeout:      time.Duration(c.Modbus.TimeoutMs) * time.Millisecond,
			BaseRegister: c.Modbus.BaseRegister,
			Size:         c.MediumSize,
			Geometry:     geo,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Debug("opened medium", "backend", c.Backend, "endpoint", c.Modbus.Endpoint, "unit", c.Modbus.UnitID)
		return f, f.Close, nil
	}

	return nil, nil, errors.Errorf("device: unknown store backend %q", c.Backend)
}
