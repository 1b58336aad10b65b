// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultBackend    = BackendMemory
	DefaultSize       = 256
	DefaultPageSize   = 64
	DefaultErasePages = 4
	DefaultWordSize   = 4
	DefaultTimeoutMs  = 1000
	DefaultWatchdogMs = 2000
	DefaultMetrics    = ":9120"
	DefaultHighWater  = 60000
)

// Normalize fills defaults for unset fields.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Device.ID == "" {
		cfg.Device.ID = "device"
	}

	// ------------------------------------------------------------
	// STORE
	// ------------------------------------------------------------

	s := &cfg.Store
	if s.Backend == "" {
		s.Backend = DefaultBackend
	}
	if s.PageSize == 0 {
		s.PageSize = DefaultPageSize
	}
	if s.ErasePages == 0 {
		s.ErasePages = DefaultErasePages
	}
	if s.WordSize == 0 {
		s.WordSize = DefaultWordSize
	}
	if s.Size == 0 {
		s.Size = DefaultSize
	}
	if s.MediumSize == 0 {
		s.MediumSize = s.Base + s.Size
	}
	if s.Bolt.TimeoutMs == 0 {
		s.Bolt.TimeoutMs = DefaultTimeoutMs
	}
	if s.Modbus.TimeoutMs == 0 {
		s.Modbus.TimeoutMs = DefaultTimeoutMs
	}
	if s.Modbus.UnitID == 0 {
		s.Modbus.UnitID = 1
	}

	// ------------------------------------------------------------
	// WATCHDOG / MEMORY / METRICS
	// ------------------------------------------------------------

	if cfg.Watchdog.TimeoutMs == 0 {
		cfg.Watchdog.TimeoutMs = DefaultWatchdogMs
	}
	if cfg.Memory.HighWater == 0 {
		cfg.Memory.HighWater = DefaultHighWater
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetrics
	}
}
