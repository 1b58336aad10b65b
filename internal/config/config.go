// internal/config/config.go
package config

// Config is the on-disk configuration of a fault-capture device.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Store    StoreConfig    `yaml:"store"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Memory   MemoryConfig   `yaml:"memory"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID string `yaml:"id"`
}

// ---- STORE ----

// Store backends.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendModbus = "modbus"
)

type StoreConfig struct {
	Backend string `yaml:"backend"`

	// Region geometry, in bytes.
	Base uint32 `yaml:"base"`
	Size uint32 `yaml:"size"`

	// Medium size in bytes; defaults to Base+Size.
	MediumSize uint32 `yaml:"medium_size"`

	PageSize   uint32 `yaml:"page_size"`
	ErasePages uint32 `yaml:"erase_pages"`
	WordSize   uint32 `yaml:"word_size"`

	Bolt   BoltConfig   `yaml:"bolt"`
	Modbus ModbusConfig `yaml:"modbus"`
}

type BoltConfig struct {
	Path      string `yaml:"path"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type ModbusConfig struct {
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	BaseRegister uint16 `yaml:"base_register"`
}

// ---- WATCHDOG ----

type WatchdogConfig struct {
	Enabled   bool `yaml:"enabled"`
	TimeoutMs int  `yaml:"timeout_ms"`
}

// ---- MEMORY ----

type MemoryConfig struct {
	// Limit is the memory budget in bytes for the margin probe. 0 disables it.
	Limit int `yaml:"limit"`
	// HighWater is the largest believable margin in bytes.
	// Unset means DefaultHighWater.
	HighWater int `yaml:"high_water"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}
