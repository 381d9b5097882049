// Package fake implements an in-memory SPI bus and chip select pin that together model a
// register-addressable device, for testing transfer framing without hardware.
//
// The model decodes the same wire contract the real devices do: within one chip-select-low
// window, the first transferred byte is the address byte, with its top bit distinguishing
// a read from a write. Read frames serve bytes from a per-register stream preloaded with
// SetRegisters; write frames are recorded and become the read-back stream for their
// register, so read-modify-write sequences round-trip. Every chip select transition and
// byte exchange is appended to an ordered event trace for tests to assert exact framing.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/spidev/buses"
)

// A Write is one recorded write transaction: the register addressed by its address byte
// and the data bytes that followed it.
type Write struct {
	Reg  byte
	Data []byte
}

// Bus is a fake SPI bus with a single attached device. Use NewBus to construct it and
// Pin to obtain the device's chip select line.
type Bus struct {
	mu         sync.Mutex
	regs       map[byte][]byte
	writes     []Write
	events     []string
	selected   bool
	inFrame    bool
	cur        frame
	openHandle *Handle
}

type frame struct {
	reg  byte
	read bool
	off  int
	data []byte
}

// NewBus returns a fake bus with no register contents; reads return zeros until
// SetRegisters or a write transaction fills them in.
func NewBus() *Bus {
	return &Bus{regs: map[byte][]byte{}}
}

// Pin returns the chip select line of the device attached to this bus.
func (b *Bus) Pin() buses.GPIOPin {
	return &Pin{bus: b}
}

// SetRegisters preloads the byte stream served by read transactions addressed to reg.
func (b *Bus) SetRegisters(reg byte, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[reg] = append([]byte(nil), data...)
}

// Writes returns every write transaction completed so far, in order.
func (b *Bus) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.writes...)
}

// Events returns the ordered trace of chip select transitions ("cs low"/"cs high") and
// byte exchanges ("xfer 0xab").
func (b *Bus) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

// OpenHandle implements buses.SPI.
func (b *Bus) OpenHandle(cfg buses.BusConfig) (buses.SPIHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openHandle = &Handle{bus: b}
	return b.openHandle, nil
}

// Close implements buses.SPI.
func (b *Bus) Close(ctx context.Context) error {
	return nil
}

// Handle is a fake bus handle.
type Handle struct {
	bus      *Bus
	isClosed bool
}

// TransferByte implements buses.SPIHandle, feeding the byte through the device model.
func (h *Handle) TransferByte(ctx context.Context, tx byte) (byte, error) {
	if h.isClosed {
		return 0, errors.New("can't use TransferByte() on an already closed handle")
	}
	b := h.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, fmt.Sprintf("xfer 0x%02x", tx))
	if !b.selected {
		return 0, errors.New("transfer with chip select deasserted")
	}
	if !b.inFrame {
		// Address byte; the top bit is the read discriminator.
		b.cur = frame{reg: tx &^ 0x80, read: tx&0x80 != 0}
		b.inFrame = true
		return 0, nil
	}
	if b.cur.read {
		var rx byte
		if stream := b.regs[b.cur.reg]; b.cur.off < len(stream) {
			rx = stream[b.cur.off]
		}
		b.cur.off++
		return rx, nil
	}
	b.cur.data = append(b.cur.data, tx)
	return 0, nil
}

// Close implements buses.SPIHandle.
func (h *Handle) Close() error {
	h.isClosed = true
	return nil
}

// Pin is the fake chip select line paired with a Bus.
type Pin struct {
	bus *Bus
}

// Set implements buses.GPIOPin. Driving the line low opens a frame; driving it high
// closes the frame, committing a write transaction to the register contents.
func (p *Pin) Set(ctx context.Context, high bool) error {
	b := p.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if high {
		b.events = append(b.events, "cs high")
		if b.inFrame && !b.cur.read {
			b.writes = append(b.writes, Write{Reg: b.cur.reg, Data: append([]byte(nil), b.cur.data...)})
			b.regs[b.cur.reg] = append([]byte(nil), b.cur.data...)
		}
		b.selected = false
		b.inFrame = false
		return nil
	}
	b.events = append(b.events, "cs low")
	b.selected = true
	b.inFrame = false
	return nil
}
