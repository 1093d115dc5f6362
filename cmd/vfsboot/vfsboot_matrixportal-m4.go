//go:build matrixportal_m4

package main

import (
	"machine"
	"time"

	"github.com/ajanata/textbuf"
	"tinygo.org/x/drivers/flash"
	"tinygo.org/x/drivers/ssd1306"

	"github.com/ajanata/vfsboot/internal/console"
	"github.com/ajanata/vfsboot/internal/led"
)

const (
	led0Pin = machine.A2
	led1Pin = machine.A3
	led2Pin = machine.A4

	// held low at power on to wipe the filesystem
	factoryResetPin = machine.PB22
)

func initLEDs() led.Set {
	for _, p := range []machine.Pin{led0Pin, led1Pin, led2Pin} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	return led.NewSet(led0Pin, led1Pin, led2Pin)
}

func factoryResetRequested() bool {
	factoryResetPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	time.Sleep(10 * time.Millisecond)
	return !factoryResetPin.Get()
}

// initDisplay puts boot progress on the OLED. The board boots without one.
func initDisplay() console.Console {
	err := machine.I2C0.Configure(machine.I2CConfig{
		SCL:       machine.I2C0_SCL_PIN,
		SDA:       machine.I2C0_SDA_PIN,
		Frequency: 3.6 * machine.MHz,
	})
	if err != nil {
		println("i2c: " + err.Error())
		return nil
	}

	dev := ssd1306.NewI2C(machine.I2C0)
	dev.Configure(ssd1306.Config{Width: 128, Height: 64, Address: 0x3D, VccState: ssd1306.SWITCHCAPVCC})
	dev.ClearBuffer()
	dev.ClearDisplay()

	buf, err := textbuf.New(&dev, textbuf.FontSize6x8)
	if err != nil {
		println("textbuf: " + err.Error())
		return nil
	}
	buf.AutoFlush = true
	return buf
}

func main() {
	time.Sleep(time.Second)
	leds := initLEDs()

	var con console.Console = console.Writer(machine.Serial)
	if disp := initDisplay(); disp != nil {
		con = console.Multi(con, disp)
	}

	dev := flash.NewQSPI(
		machine.QSPI_CS,
		machine.QSPI_SCK,
		machine.QSPI_DATA0,
		machine.QSPI_DATA1,
		machine.QSPI_DATA2,
		machine.QSPI_DATA3,
	)
	if err := dev.Configure(&flash.DeviceConfig{Identifier: flash.DefaultDeviceIdentifier}); err != nil {
		earlyPanic(leds, err)
	}

	m, err := boot(leds, dev, con, factoryResetRequested())
	if err != nil {
		earlyPanic(leds, err)
	}
	if _, ok := m.Root(); !ok {
		_ = con.Println("Running without a filesystem.")
	}

	for {
		time.Sleep(time.Hour)
	}
}
