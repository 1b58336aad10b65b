// internal/store/modbusflash/client.go
package modbusflash

import (
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/pkg/errors"

	"github.com/tamzrod/faultcapture/internal/store"
)

// Modbus limits per request (FC3 read, FC16 write).
const (
	maxReadRegs  = 125
	maxWriteRegs = 123
)

// registerClient is the subset of modbus.Client the medium uses.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Config describes where the region lives on the remote device.
type Config struct {
	Endpoint     string
	UnitID       uint8
	Timeout      time.Duration
	BaseRegister uint16
	Size         uint32
	Geometry     store.Geometry
}

// Flash is a medium held in the holding registers of a remote NVRAM device.
// Two bytes per register in big-endian order. The device is byte-writable;
// erase is emulated by writing 0xFF so the image reads like flash.
// Requests are serialized because the page buffer is shared.
type Flash struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  registerClient

	geo     store.Geometry
	size    uint32
	baseReg uint16

	buf     []byte
	bufAddr uint32
	lo, hi  uint32
	loaded  bool
}

// Dial connects to cfg.Endpoint over Modbus TCP.
func Dial(cfg Config) (*Flash, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbusflash: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, errors.Wrapf(err, "modbusflash: connect %s", cfg.Endpoint)
	}

	f, err := newFlash(modbus.NewClient(h), cfg)
	if err != nil {
		h.Close()
		return nil, err
	}
	f.handler = h
	return f, nil
}

func newFlash(client registerClient, cfg Config) (*Flash, error) {
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	if cfg.Geometry.WordSize%2 != 0 {
		return nil, errors.Errorf("modbusflash: word size %d must cover whole registers", cfg.Geometry.WordSize)
	}
	if cfg.Size == 0 || cfg.Size%cfg.Geometry.EraseSize() != 0 {
		return nil, errors.Errorf("modbusflash: size %d not a multiple of erase unit %d", cfg.Size, cfg.Geometry.EraseSize())
	}
	if uint32(cfg.BaseRegister)+cfg.Size/2 > 0x10000 {
		return nil, errors.Errorf("modbusflash: %d bytes at register %d overruns the register space", cfg.Size, cfg.BaseRegister)
	}

	return &Flash{
		client:  client,
		geo:     cfg.Geometry,
		size:    cfg.Size,
		baseReg: cfg.BaseRegister,
		buf:     make([]byte, cfg.Geometry.PageSize),
	}, nil
}

// Close closes the TCP connection.
func (f *Flash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handler == nil {
		return nil
	}
	return f.handler.Close()
}

func (f *Flash) Geometry() store.Geometry { return f.geo }

func (f *Flash) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if off < 0 || off+int64(len(p)) > int64(f.size) {
		return 0, errors.Errorf("modbusflash: read [%d,%d) out of range", off, off+int64(len(p)))
	}
	if len(p) == 0 {
		return 0, nil
	}

	first := uint32(off) / 2
	last := (uint32(off) + uint32(len(p)) - 1) / 2
	skip := uint32(off) % 2

	n := 0
	for reg := first; reg <= last; {
		qty := last - reg + 1
		if qty > maxReadRegs {
			qty = maxReadRegs
		}

		raw, err := f.client.ReadHoldingRegisters(f.baseReg+uint16(reg), uint16(qty))
		if err != nil {
			return n, errors.Wrapf(err, "modbusflash: read %d registers at %d", qty, f.baseReg+uint16(reg))
		}
		if uint32(len(raw)) != qty*2 {
			return n, errors.Errorf("modbusflash: short read: got %d bytes want %d", len(raw), qty*2)
		}

		n += copy(p[n:], raw[skip:])
		skip = 0
		reg += qty
	}

	return n, nil
}

func (f *Flash) Erase(addr uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	unit := f.geo.EraseSize()
	if addr%unit != 0 || addr+unit > f.size {
		return errors.Errorf("modbusflash: bad erase address %#x", addr)
	}

	erased := make([]byte, unit)
	for i := range erased {
		erased[i] = 0xFF
	}
	return f.writeBytes(addr, erased)
}

func (f *Flash) ClearPageBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.buf {
		f.buf[i] = 0xFF
	}
	f.loaded = false
	return nil
}

func (f *Flash) LoadPageBuffer(addr uint32, words []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if addr%f.geo.WordSize != 0 || uint32(len(words))%f.geo.WordSize != 0 {
		return errors.Errorf("modbusflash: unaligned load at %#x", addr)
	}
	pageAddr := addr - addr%f.geo.PageSize
	if f.loaded && pageAddr != f.bufAddr {
		return errors.Errorf("modbusflash: load at %#x crosses staged page %#x", addr, f.bufAddr)
	}
	if addr+uint32(len(words)) > pageAddr+f.geo.PageSize || pageAddr+f.geo.PageSize > f.size {
		return errors.Errorf("modbusflash: load at %#x overruns page", addr)
	}

	start := addr - pageAddr
	end := start + uint32(len(words))
	copy(f.buf[start:], words)

	if !f.loaded {
		f.lo, f.hi = start, end
	} else {
		if start < f.lo {
			f.lo = start
		}
		if end > f.hi {
			f.hi = end
		}
	}
	f.bufAddr = pageAddr
	f.loaded = true
	return nil
}

// WritePage sends the staged span of the page buffer in as few requests as
// the protocol allows.
func (f *Flash) WritePage() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		return errors.New("modbusflash: write page with empty buffer")
	}
	if err := f.writeBytes(f.bufAddr+f.lo, f.buf[f.lo:f.hi]); err != nil {
		return err
	}
	f.loaded = false
	return nil
}

// writeBytes writes an even-length, even-aligned span. Caller holds mu.
func (f *Flash) writeBytes(addr uint32, b []byte) error {
	reg := f.baseReg + uint16(addr/2)
	for len(b) > 0 {
		qty := len(b) / 2
		if qty > maxWriteRegs {
			qty = maxWriteRegs
		}

		if _, err := f.client.WriteMultipleRegisters(reg, uint16(qty), b[:qty*2]); err != nil {
			return errors.Wrapf(err, "modbusflash: write %d registers at %d", qty, reg)
		}

		b = b[qty*2:]
		reg += uint16(qty)
	}
	return nil
}

var _ store.Medium = (*Flash)(nil)
