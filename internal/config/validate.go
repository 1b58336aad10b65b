// internal/config/validate.go
package config

import (
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/record"
	"github.com/tamzrod/faultcapture/internal/store"
	"github.com/tamzrod/faultcapture/internal/watchdog"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	// device id ends up in metric labels and logs (ASCII only)
	for i := 0; i < len(cfg.Device.ID); i++ {
		if cfg.Device.ID[i] < 0x20 || cfg.Device.ID[i] > 0x7E {
			return errors.Errorf("config: device.id %q must contain printable ASCII only", cfg.Device.ID)
		}
	}

	// ------------------------------------------------------------
	// STORE GEOMETRY
	// ------------------------------------------------------------

	s := cfg.Store
	geo := store.Geometry{PageSize: s.PageSize, ErasePages: s.ErasePages, WordSize: s.WordSize}
	if err := geo.Validate(); err != nil {
		return errors.Wrap(err, "config: store")
	}

	unit := geo.EraseSize()
	if s.Base%unit != 0 {
		return errors.Errorf("config: store.base %#x not aligned to erase unit %d", s.Base, unit)
	}
	if s.Size%unit != 0 {
		return errors.Errorf("config: store.size %d not a multiple of erase unit %d", s.Size, unit)
	}
	if s.Size < record.Size {
		return errors.Errorf("config: store.size %d smaller than a fault record (%d)", s.Size, record.Size)
	}
	if s.MediumSize < s.Base+s.Size {
		return errors.Errorf("config: store.medium_size %d does not contain region [%d,%d)", s.MediumSize, s.Base, s.Base+s.Size)
	}
	if s.MediumSize%unit != 0 {
		return errors.Errorf("config: store.medium_size %d not a multiple of erase unit %d", s.MediumSize, unit)
	}

	// ------------------------------------------------------------
	// STORE BACKEND
	// ------------------------------------------------------------

	switch s.Backend {
	case BackendMemory:
	case BackendBolt:
		if s.Bolt.Path == "" {
			return errors.New("config: store.bolt.path is required for the bolt backend")
		}
	case BackendModbus:
		if s.Modbus.Endpoint == "" {
			return errors.New("config: store.modbus.endpoint is required for the modbus backend")
		}
		if s.WordSize%2 != 0 {
			return errors.Errorf("config: store.word_size %d must be even for the modbus backend", s.WordSize)
		}
		if uint32(s.Modbus.BaseRegister)+s.MediumSize/2 > 0x10000 {
			return errors.Errorf("config: %d bytes at register %d overrun the register space", s.MediumSize, s.Modbus.BaseRegister)
		}
	default:
		return errors.Errorf("config: unknown store.backend %q", s.Backend)
	}

	// ------------------------------------------------------------
	// WATCHDOG / MEMORY
	// ------------------------------------------------------------

	if _, err := watchdog.ParseTimeout(cfg.Watchdog.TimeoutMs); err != nil {
		return errors.Wrap(err, "config")
	}
	if cfg.Memory.Limit < 0 || cfg.Memory.HighWater < 0 {
		return errors.New("config: memory limits must not be negative")
	}
	// margin = limit - heap, so a limit above high_water reads as a bad probe
	if cfg.Memory.Limit > 0 && cfg.Memory.HighWater > 0 && cfg.Memory.Limit > cfg.Memory.HighWater {
		return errors.Errorf("config: memory.limit %d exceeds memory.high_water %d", cfg.Memory.Limit, cfg.Memory.HighWater)
	}

	return nil
}
