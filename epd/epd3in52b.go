package epd

import (
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/verseclock/pixel"
)

const (
	epd3in52bWidth  = 240
	epd3in52bHeight = 360

	epd3in52bPanelSetting     = 0x00
	epd3in52bPowerOff         = 0x02
	epd3in52bPowerOn          = 0x04
	epd3in52bDeepSleep        = 0x07
	epd3in52bDataStartBlack   = 0x10
	epd3in52bDisplayRefresh   = 0x12
	epd3in52bDataStartRed     = 0x13
	epd3in52bVCOMDataInterval = 0x50
	epd3in52bResolution       = 0x61
	epd3in52bDeepSleepCheck   = 0xA5
)

// Config is the panel configuration.
type Config struct {
	// Rotation of the drawing surface relative to the native portrait panel.
	Rotation Rotation

	ResetHoldTime  time.Duration
	ResetDelayTime time.Duration
	BusyPollTime   time.Duration

	// RefreshTimeout bounds every wait on the busy line, including the full
	// refresh after a commit.
	RefreshTimeout time.Duration

	// OnBusyStateChange is called when waiting on the panel starts and ends.
	OnBusyStateChange func(busy bool)
}

// DefaultConfig returns the configuration for a landscape mounted panel.
func DefaultConfig() Config {
	return Config{
		Rotation:       Rotate90,
		ResetHoldTime:  200 * time.Millisecond,
		ResetDelayTime: 2 * time.Millisecond,
		BusyPollTime:   10 * time.Millisecond,
		RefreshTimeout: 30 * time.Second,
	}
}

// EPD3in52B is the Waveshare 3.52" red/black/white e-paper panel.
type EPD3in52B struct {
	c      Conn
	config Config
	black  []byte
	red    []byte
	closed bool
}

// Open3in52B opens the SPI connection and creates the driver on it.
func Open3in52B(spiConfig *SPIConfig, config Config) (*EPD3in52B, error) {
	c, err := OpenSPI(spiConfig)
	if err != nil {
		return nil, err
	}
	d, err := New3in52B(c, config)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return d, nil
}

// New3in52B creates a driver on an open connection. The panel is not touched
// until Init is called.
func New3in52B(conn Conn, config Config) (*EPD3in52B, error) {
	defaults := DefaultConfig()
	if config.BusyPollTime <= 0 {
		config.BusyPollTime = defaults.BusyPollTime
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = defaults.RefreshTimeout
	}

	size := (epd3in52bWidth + 7) / 8 * epd3in52bHeight
	return &EPD3in52B{
		c:      conn,
		config: config,
		black:  make([]byte, size),
		red:    make([]byte, size),
	}, nil
}

func (d *EPD3in52B) String() string {
	bounds := d.Bounds()
	return fmt.Sprintf("EPD 3.52\" B %dx%d (%s) on %s", bounds.Dx(), bounds.Dy(), d.config.Rotation, d.c)
}

func (d *EPD3in52B) Bounds() image.Rectangle {
	return logicalBounds(epd3in52bWidth, epd3in52bHeight, d.config.Rotation)
}

func (d *EPD3in52B) Init() (err error) {
	if d.closed {
		return ErrClosed
	}
	if err = d.reset(); err != nil {
		return
	}
	if err = d.waitBusy(); err != nil {
		return
	}
	if err = d.c.Command(epd3in52bPowerOn); err != nil {
		return
	}
	if err = d.waitBusy(); err != nil {
		return
	}
	// KW-BF/KWR-AF, bidirectional scan, booster on.
	if err = d.c.Command(epd3in52bPanelSetting, 0x0F); err != nil {
		return
	}
	if err = d.c.Command(epd3in52bResolution,
		epd3in52bWidth,
		epd3in52bHeight>>8,
		epd3in52bHeight&0xff,
	); err != nil {
		return
	}
	// White border, default data interval.
	return d.c.Command(epd3in52bVCOMDataInterval, 0x77)
}

func (d *EPD3in52B) Clear() error {
	if d.closed {
		return ErrClosed
	}
	for i := range d.black {
		d.black[i] = 0xff
		d.red[i] = 0xff
	}
	return d.refresh()
}

func (d *EPD3in52B) Display(black, red *pixel.MonoImage) error {
	if d.closed {
		return ErrClosed
	}
	if err := pack(d.black, epd3in52bWidth, epd3in52bHeight, black, d.config.Rotation); err != nil {
		return fmt.Errorf("black plane: %w", err)
	}
	if err := pack(d.red, epd3in52bWidth, epd3in52bHeight, red, d.config.Rotation); err != nil {
		return fmt.Errorf("red plane: %w", err)
	}
	return d.refresh()
}

func (d *EPD3in52B) Sleep() (err error) {
	if d.closed {
		return ErrClosed
	}
	// Floating border before power off.
	if err = d.c.Command(epd3in52bVCOMDataInterval, 0xF7); err != nil {
		return
	}
	if err = d.c.Command(epd3in52bPowerOff); err != nil {
		return
	}
	if err = d.waitBusy(); err != nil {
		return
	}
	return d.c.Command(epd3in52bDeepSleep, epd3in52bDeepSleepCheck)
}

func (d *EPD3in52B) Close() error {
	if d.closed {
		return nil
	}
	err := d.Sleep()
	d.closed = true
	if cerr := d.c.Close(); err == nil {
		err = cerr
	}
	return err
}

func (d *EPD3in52B) refresh() (err error) {
	if err = d.c.Command(epd3in52bDataStartBlack, d.black...); err != nil {
		return
	}
	if err = d.c.Command(epd3in52bDataStartRed, d.red...); err != nil {
		return
	}
	if err = d.c.Command(epd3in52bDisplayRefresh); err != nil {
		return
	}
	return d.waitBusy()
}

func (d *EPD3in52B) reset() (err error) {
	if err = d.c.Reset(gpio.High); err != nil {
		return
	}
	time.Sleep(d.config.ResetHoldTime)
	if err = d.c.Reset(gpio.Low); err != nil {
		return
	}
	time.Sleep(d.config.ResetDelayTime)
	if err = d.c.Reset(gpio.High); err != nil {
		return
	}
	time.Sleep(d.config.ResetHoldTime)
	return
}

// waitBusy polls the busy line, which the controller holds low while working.
func (d *EPD3in52B) waitBusy() error {
	if d.config.OnBusyStateChange != nil {
		d.config.OnBusyStateChange(true)
		defer d.config.OnBusyStateChange(false)
	}

	start := time.Now()
	deadline := start.Add(d.config.RefreshTimeout)
	for time.Now().Before(deadline) {
		if d.c.Busy() == gpio.High {
			if debug {
				log.Debug().Dur("took", time.Since(start)).Msg("epd: idle")
			}
			return nil
		}
		time.Sleep(d.config.BusyPollTime)
	}
	return ErrBusyTimeout
}
