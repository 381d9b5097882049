package spidev

import (
	"testing"

	"go.viam.com/test"
)

func TestConfigValidate(t *testing.T) {
	for _, conf := range []Config{
		{},
		{BaudHz: 500000, Mode: 3, BitOrder: "msb"},
		{BitOrder: "lsb"},
	} {
		test.That(t, conf.Validate("path"), test.ShouldBeNil)
	}

	badMode := Config{Mode: 4}
	err := badMode.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "path")
	test.That(t, err.Error(), test.ShouldContainSubstring, "mode")

	badOrder := Config{BitOrder: "little"}
	err = badOrder.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bit_order")
}

func TestConfigDefaults(t *testing.T) {
	conf := Config{}
	test.That(t, conf.baudHz(), test.ShouldEqual, uint(DefaultBaudHz))
	test.That(t, conf.order(), test.ShouldEqual, MSBFirst)

	conf = Config{BaudHz: 250000, BitOrder: "lsb"}
	test.That(t, conf.baudHz(), test.ShouldEqual, uint(250000))
	test.That(t, conf.order(), test.ShouldEqual, LSBFirst)
}
