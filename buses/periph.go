package buses

import (
	"context"
	"fmt"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var hostInitOnce sync.Once

func initHost() {
	hostInitOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			golog.Global().Debugw("error initializing host", "error", err)
		}
	})
}

// NewSPIBus returns an SPI bus backed by the periph.io host drivers. busSelect names the
// bus the way the platform does ("0" or "1" for main/aux on a Raspberry Pi).
func NewSPIBus(busSelect string) SPI {
	initHost()
	return &periphSPI{bus: busSelect}
}

type periphSPI struct {
	mu         sync.Mutex
	bus        string
	openHandle *periphSPIHandle
}

func (ps *periphSPI) OpenHandle(cfg BusConfig) (SPIHandle, error) {
	ps.mu.Lock() // held until the handle is closed

	port, err := spireg.Open(fmt.Sprintf("SPI%s.0", ps.bus))
	if err != nil {
		ps.mu.Unlock()
		return nil, err
	}
	conn, err := port.Connect(physic.Hertz*physic.Frequency(cfg.BaudHz), spi.Mode(cfg.Mode), 8)
	if err != nil {
		ps.mu.Unlock()
		return nil, multierr.Combine(err, port.Close())
	}
	ps.openHandle = &periphSPIHandle{bus: ps, port: port, conn: conn}
	return ps.openHandle, nil
}

func (ps *periphSPI) Close(ctx context.Context) error {
	return nil
}

type periphSPIHandle struct {
	bus      *periphSPI
	port     spi.PortCloser
	conn     spi.Conn
	isClosed bool
}

func (sh *periphSPIHandle) TransferByte(ctx context.Context, tx byte) (byte, error) {
	if sh.isClosed {
		return 0, errors.New("can't use TransferByte() on an already closed SPIHandle")
	}
	rx := make([]byte, 1)
	if err := sh.conn.Tx([]byte{tx}, rx); err != nil {
		return 0, err
	}
	return rx[0], nil
}

func (sh *periphSPIHandle) Close() error {
	sh.isClosed = true
	err := sh.port.Close()
	sh.bus.mu.Unlock()
	return err
}

// NewGPIOPin looks up the named GPIO line for use as a chip select.
func NewGPIOPin(name string) (GPIOPin, error) {
	initHost()
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("no global GPIO pin found for %q", name)
	}
	return &periphPin{pin: pin}, nil
}

type periphPin struct {
	pin gpio.PinIO
}

func (pp *periphPin) Set(ctx context.Context, high bool) error {
	return pp.pin.Out(gpio.Level(high))
}
