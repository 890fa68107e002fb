package epd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Conn errors.
var (
	ErrResetPin = errors.New("epd: reset GPIO pin is invalid")
	ErrDCPin    = errors.New("epd: data/command (DC) GPIO pin is invalid")
	ErrBusyPin  = errors.New("epd: busy GPIO pin is invalid")
)

// Conn is the connection interface for communicating with hardware.
type Conn interface {
	String() string

	// Close the connection.
	Close() error

	// Reset sets the reset pin to the provided level.
	Reset(gpio.Level) error

	// Command sends a command byte with optional arguments.
	Command(byte, ...byte) error

	// Data sends data bytes.
	Data(...byte) error

	// Busy reads the level of the busy pin.
	Busy() gpio.Level
}

// SPIConfig describes the SPI bus configuration.
type SPIConfig struct {
	// Port is the SPI port name, empty selects the first available port.
	Port      string
	Frequency physic.Frequency
	Mode      spi.Mode
	BatchSize int

	// GPIO pin names, as understood by gpioreg.ByName.
	DC    string
	CS    string
	Reset string
	Busy  string
}

// DefaultSPIConfig are the default configuration values, matching the
// Waveshare e-Paper HAT wiring.
var DefaultSPIConfig = SPIConfig{
	Frequency: 4 * physic.MegaHertz,
	Mode:      spi.Mode0,
	BatchSize: 4096,
	DC:        "GPIO25",
	CS:        "GPIO8",
	Reset:     "GPIO17",
	Busy:      "GPIO24",
}

type spiConn struct {
	port      spi.PortCloser
	bus       spi.Conn
	reset     gpio.PinOut
	dc        gpio.PinOut
	dcLevel   gpio.Level
	dcValid   bool
	cs        gpio.PinOut
	busy      gpio.PinIn
	batchSize int
}

// OpenSPI initializes the host drivers, opens the SPI port and claims the
// control pins.
func OpenSPI(config *SPIConfig) (Conn, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	if config.Frequency == 0 {
		config.Frequency = DefaultSPIConfig.Frequency
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSPIConfig.BatchSize
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: host init failed: %w", err)
	}

	reset := gpioreg.ByName(config.Reset)
	if reset == nil {
		return nil, ErrResetPin
	}
	dc := gpioreg.ByName(config.DC)
	if dc == nil {
		return nil, ErrDCPin
	}
	busy := gpioreg.ByName(config.Busy)
	if busy == nil {
		return nil, ErrBusyPin
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd: busy pin: %w", err)
	}

	port, err := spireg.Open(config.Port)
	if err != nil {
		return nil, fmt.Errorf("epd: SPI open failed: %w", err)
	}
	bus, err := port.Connect(config.Frequency, config.Mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: SPI connect failed: %w", err)
	}

	c := &spiConn{
		port:      port,
		bus:       bus,
		reset:     reset,
		dc:        dc,
		busy:      busy,
		batchSize: config.BatchSize,
	}
	// Chip select is usually driven by the SPI controller itself.
	if config.CS != "" {
		if cs := gpioreg.ByName(config.CS); cs != nil {
			c.cs = cs
		}
	}
	return c, nil
}

func (c *spiConn) String() string {
	return fmt.Sprintf("SPI port %s", c.port)
}

func (c *spiConn) Close() error {
	return c.port.Close()
}

func (c *spiConn) Reset(level gpio.Level) error {
	return c.reset.Out(level)
}

func (c *spiConn) Busy() gpio.Level {
	return c.busy.Read()
}

func (c *spiConn) updateDC(level gpio.Level) error {
	if !c.dcValid || c.dcLevel != level {
		if err := c.dc.Out(level); err != nil {
			return err
		}
		c.dcLevel = level
		c.dcValid = true
	}
	return nil
}

func (c *spiConn) updateCS(level gpio.Level) error {
	if c.cs == nil {
		return nil
	}
	return c.cs.Out(level)
}

func (c *spiConn) Command(cmnd byte, data ...byte) (err error) {
	if debug {
		log.Debug().Hex("command", []byte{cmnd}).Int("data", len(data)).Msg("epd: command")
	}
	if err = c.updateCS(gpio.Low); err != nil {
		return
	}
	if err = c.updateDC(gpio.Low); err != nil {
		return
	}
	if err = c.bus.Tx([]byte{cmnd}, nil); err != nil {
		return
	}
	if len(data) > 0 {
		if err = c.updateDC(gpio.High); err != nil {
			return
		}
		if err = c.writeChunked(data); err != nil {
			return
		}
	}
	return c.updateCS(gpio.High)
}

func (c *spiConn) Data(data ...byte) (err error) {
	if len(data) == 0 {
		return
	}
	if err = c.updateDC(gpio.High); err != nil {
		return
	}
	if err = c.updateCS(gpio.Low); err != nil {
		return
	}
	if err = c.writeChunked(data); err != nil {
		return
	}
	return c.updateCS(gpio.High)
}

// writeChunked splits large writes, spidev limits the size of one transfer.
func (c *spiConn) writeChunked(data []byte) (err error) {
	if len(data) <= c.batchSize {
		return c.bus.Tx(data, nil)
	}

	if debug {
		log.Debug().Int("bytes", len(data)).Int("chunks", (len(data)+c.batchSize-1)/c.batchSize).Msg("epd: chunked write")
	}
	buffer := data
	for len(buffer) > 0 {
		n := min(len(buffer), c.batchSize)
		if err = c.bus.Tx(buffer[:n], nil); err != nil {
			return
		}
		buffer = buffer[n:]
	}
	return
}
