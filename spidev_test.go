package spidev

import (
	"context"
	"fmt"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.viam.com/spidev/fake"
)

func newTestDevice(t *testing.T, conf Config) (*Device, *fake.Bus) {
	t.Helper()
	bus := fake.NewBus()
	dev, err := New(bus, bus.Pin(), conf, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return dev, bus
}

func TestAddressByte(t *testing.T) {
	ctx := context.Background()

	t.Run("reads set the top bit for every register", func(t *testing.T) {
		for reg := 0; reg <= 0x7f; reg++ {
			dev, bus := newTestDevice(t, Config{})
			_, err := dev.ReadBytes(ctx, byte(reg), make([]byte, 1))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, bus.Events()[1], test.ShouldEqual, fmt.Sprintf("xfer 0x%02x", reg|0x80))
		}
	})

	t.Run("writes send the register unmodified", func(t *testing.T) {
		for reg := 0; reg <= 0x7f; reg++ {
			dev, bus := newTestDevice(t, Config{})
			err := dev.WriteBytes(ctx, byte(reg), []byte{0xff})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, bus.Events()[1], test.ShouldEqual, fmt.Sprintf("xfer 0x%02x", reg))
		}
	})

	t.Run("word operations use the same discriminator", func(t *testing.T) {
		dev, bus := newTestDevice(t, Config{})
		_, err := dev.ReadWords(ctx, 0x33, make([]uint16, 1))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, bus.Events()[1], test.ShouldEqual, "xfer 0xb3")

		dev, bus = newTestDevice(t, Config{})
		err = dev.WriteWords(ctx, 0x33, []uint16{0})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, bus.Events()[1], test.ShouldEqual, "xfer 0x33")
	})
}

func TestReadBytes(t *testing.T) {
	ctx := context.Background()
	dev, bus := newTestDevice(t, Config{})
	bus.SetRegisters(0x20, []byte{0xde, 0xad, 0xbe})

	buf := make([]byte, 3)
	n, err := dev.ReadBytes(ctx, 0x20, buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 3)
	test.That(t, buf, test.ShouldResemble, []byte{0xde, 0xad, 0xbe})
	test.That(t, bus.Events(), test.ShouldResemble, []string{
		"cs low", "xfer 0xa0", "xfer 0x00", "xfer 0x00", "xfer 0x00", "cs high",
	})
}

func TestWriteBytes(t *testing.T) {
	ctx := context.Background()
	dev, bus := newTestDevice(t, Config{})

	err := dev.WriteBytes(ctx, 0x1a, []byte{0x01, 0x02})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bus.Writes(), test.ShouldResemble, []fake.Write{{Reg: 0x1a, Data: []byte{0x01, 0x02}}})
	test.That(t, bus.Events(), test.ShouldResemble, []string{
		"cs low", "xfer 0x1a", "xfer 0x01", "xfer 0x02", "cs high",
	})
}

func TestZeroLengthFraming(t *testing.T) {
	ctx := context.Background()

	t.Run("read", func(t *testing.T) {
		dev, bus := newTestDevice(t, Config{})
		n, err := dev.ReadBytes(ctx, 0x42, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, n, test.ShouldEqual, 0)
		test.That(t, bus.Events(), test.ShouldResemble, []string{"cs low", "xfer 0xc2", "cs high"})
	})

	t.Run("write", func(t *testing.T) {
		dev, bus := newTestDevice(t, Config{})
		err := dev.WriteBytes(ctx, 0x42, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, bus.Events(), test.ShouldResemble, []string{"cs low", "xfer 0x42", "cs high"})
	})
}

func TestWriteWordFraming(t *testing.T) {
	ctx := context.Background()
	dev, bus := newTestDevice(t, Config{})

	err := dev.WriteWord(ctx, 0x05, 0xabcd)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bus.Events(), test.ShouldResemble, []string{
		"cs low", "xfer 0x05", "xfer 0xab", "xfer 0xcd", "cs high",
	})
	test.That(t, bus.Writes(), test.ShouldResemble, []fake.Write{{Reg: 0x05, Data: []byte{0xab, 0xcd}}})
}

func TestWordOrder(t *testing.T) {
	ctx := context.Background()

	// The write path transmits high byte first whatever the declared order.
	for _, order := range []string{"msb", "lsb"} {
		t.Run("write "+order, func(t *testing.T) {
			dev, bus := newTestDevice(t, Config{BitOrder: order})
			err := dev.WriteWord(ctx, 0x08, 0x1234)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, bus.Writes(), test.ShouldResemble, []fake.Write{{Reg: 0x08, Data: []byte{0x12, 0x34}}})
		})
	}

	// The read path's phase toggle starts on the high byte whatever the declared order.
	for _, order := range []string{"msb", "lsb"} {
		t.Run("read "+order, func(t *testing.T) {
			dev, bus := newTestDevice(t, Config{BitOrder: order})
			bus.SetRegisters(0x10, []byte{0x12, 0x34, 0x56, 0x78})
			buf := make([]uint16, 2)
			n, err := dev.ReadWords(ctx, 0x10, buf)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, n, test.ShouldEqual, 2)
			test.That(t, buf, test.ShouldResemble, []uint16{0x1234, 0x5678})
		})
	}
}

func TestSingleUnitOps(t *testing.T) {
	ctx := context.Background()
	dev, bus := newTestDevice(t, Config{})
	bus.SetRegisters(0x2c, []byte{0x5a})

	b, err := dev.ReadByte(ctx, 0x2c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldEqual, byte(0x5a))

	err = dev.WriteByte(ctx, 0x2c, 0xa5)
	test.That(t, err, test.ShouldBeNil)
	b, err = dev.ReadByte(ctx, 0x2c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldEqual, byte(0xa5))

	bus.SetRegisters(0x2d, []byte{0xbe, 0xef})
	w, err := dev.ReadWord(ctx, 0x2d)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w, test.ShouldEqual, uint16(0xbeef))

	err = dev.WriteWord(ctx, 0x2d, 0x1001)
	test.That(t, err, test.ShouldBeNil)
	w, err = dev.ReadWord(ctx, 0x2d)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w, test.ShouldEqual, uint16(0x1001))
}

func TestNew(t *testing.T) {
	bus := fake.NewBus()
	logger := golog.NewTestLogger(t)

	t.Run("rejects a bad mode", func(t *testing.T) {
		_, err := New(bus, bus.Pin(), Config{Mode: 4}, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "mode")
	})

	t.Run("rejects a bad bit order", func(t *testing.T) {
		_, err := New(bus, bus.Pin(), Config{BitOrder: "middle"}, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "bit_order")
	})

	t.Run("order is fixed at construction", func(t *testing.T) {
		dev, err := New(bus, bus.Pin(), Config{}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, dev.Order(), test.ShouldEqual, MSBFirst)

		dev, err = New(bus, bus.Pin(), Config{BitOrder: "lsb"}, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, dev.Order(), test.ShouldEqual, LSBFirst)
	})
}
