// Package main dumps the registers of an SPI-attached device.
package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/spidev"
	"go.viam.com/spidev/buses"
)

var logger = golog.NewDevelopmentLogger("regdump")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	busSelect := fs.String("bus", "0", "SPI bus select")
	chipSelect := fs.String("cs", "", "chip select GPIO name (required)")
	baud := fs.Uint("baud", spidev.DefaultBaudHz, "bus clock rate in Hz")
	mode := fs.Uint("mode", 0, "SPI mode (0-3)")
	order := fs.String("order", "msb", "word byte order (msb or lsb)")
	reg := fs.Uint("reg", 0, "first register address")
	count := fs.Uint("count", 1, "number of registers to read")
	words := fs.Bool("words", false, "read 16-bit words instead of bytes")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *chipSelect == "" {
		return errors.New("-cs is required")
	}
	if *reg > 0x7f {
		return errors.New("register addresses are 7-bit (0-127)")
	}

	csPin, err := buses.NewGPIOPin(*chipSelect)
	if err != nil {
		return err
	}
	bus := buses.NewSPIBus(*busSelect)
	defer utils.UncheckedErrorFunc(func() error { return bus.Close(ctx) })

	dev, err := spidev.New(bus, csPin, spidev.Config{
		BaudHz:   *baud,
		Mode:     *mode,
		BitOrder: *order,
	}, logger)
	if err != nil {
		return err
	}

	if *words {
		buf := make([]uint16, *count)
		n, err := dev.ReadWords(ctx, byte(*reg), buf)
		if err != nil {
			return err
		}
		for i, w := range buf[:n] {
			fmt.Printf("0x%02x[%d]: 0x%04x\n", byte(*reg), i, w)
		}
		return nil
	}

	buf := make([]byte, *count)
	n, err := dev.ReadBytes(ctx, byte(*reg), buf)
	if err != nil {
		return err
	}
	for i, b := range buf[:n] {
		fmt.Printf("0x%02x: 0x%02x\n", byte(*reg)+byte(i), b)
	}
	return nil
}
