// Package config loads the clock configuration.
//
// Values are layered, later sources overriding earlier ones:
//   - the defaults of [Default]
//   - a YAML file, given by path or the VERSECLOCK_CONFIG environment variable
//   - VERSECLOCK_* environment variables, including those set from .env files
//
// Command line flags are applied on top by the commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone names resolve on images without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/BeatGlow/verseclock/epd"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VERSECLOCK_"

// Config is the clock configuration.
type Config struct {
	// DataDir holds the bible_verses_hourNN.json partitions.
	DataDir string `yaml:"data_dir"`

	// FontFile is a TrueType font; empty selects the embedded Go Mono.
	FontFile string `yaml:"font_file"`

	// TimeZone is an IANA zone name or "Local".
	TimeZone string `yaml:"time_zone"`

	NTPServer  string        `yaml:"ntp_server"`
	NTPTimeout time.Duration `yaml:"ntp_timeout"`

	// WiFiSSID is the network to join at startup; empty skips association.
	WiFiSSID     string        `yaml:"wifi_ssid"`
	WiFiPassword string        `yaml:"wifi_password"`
	WiFiTimeout  time.Duration `yaml:"wifi_timeout"`

	// Period is the nominal refresh cycle.
	Period time.Duration `yaml:"period"`

	// Guard delays the first aligned refresh past the minute boundary.
	Guard time.Duration `yaml:"guard"`

	// Preview names a PNG file to render to instead of the panel.
	Preview string `yaml:"preview"`

	// Framebuffer names a framebuffer device to mirror to instead of the
	// panel, used when Preview is empty.
	Framebuffer string `yaml:"framebuffer"`

	Panel PanelConfig `yaml:"panel"`

	LogLevel string `yaml:"log_level"`
}

// PanelConfig describes the panel wiring.
type PanelConfig struct {
	// Port is the SPI port, empty selects the first one.
	Port string `yaml:"port"`

	// Frequency is the SPI clock in Hz.
	Frequency int64 `yaml:"frequency"`

	DC    string `yaml:"dc"`
	CS    string `yaml:"cs"`
	Reset string `yaml:"reset"`
	Busy  string `yaml:"busy"`

	// Rotation of the drawing surface: 0, 90, 180 or 270.
	Rotation string `yaml:"rotation"`

	// RefreshTimeout bounds a panel refresh.
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir:     "./data",
		TimeZone:    "Local",
		NTPServer:   "pool.ntp.org",
		NTPTimeout:  10 * time.Second,
		WiFiTimeout: 30 * time.Second,
		Period:      time.Minute,
		Guard:       time.Second,
		Panel: PanelConfig{
			Frequency:      int64(epd.DefaultSPIConfig.Frequency / physic.Hertz),
			DC:             epd.DefaultSPIConfig.DC,
			CS:             epd.DefaultSPIConfig.CS,
			Reset:          epd.DefaultSPIConfig.Reset,
			Busy:           epd.DefaultSPIConfig.Busy,
			Rotation:       "90",
			RefreshTimeout: epd.DefaultConfig().RefreshTimeout,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from the YAML file at path, or the file named
// by VERSECLOCK_CONFIG when path is empty, and the environment. The given
// .env files (".env" when none are given) are read into the environment
// first; missing files are skipped and already set variables win.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, name := range envFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads the defaults overridden by the YAML file at path only.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironment() error {
	var errs []error

	envString("DATA_DIR", &c.DataDir)
	envString("FONT_FILE", &c.FontFile)
	envString("TZ", &c.TimeZone)
	envString("NTP_SERVER", &c.NTPServer)
	errs = append(errs, envDuration("NTP_TIMEOUT", &c.NTPTimeout))
	envString("WIFI_SSID", &c.WiFiSSID)
	envString("WIFI_PASSWORD", &c.WiFiPassword)
	errs = append(errs, envDuration("WIFI_TIMEOUT", &c.WiFiTimeout))
	errs = append(errs, envDuration("PERIOD", &c.Period))
	errs = append(errs, envDuration("GUARD", &c.Guard))
	envString("PREVIEW", &c.Preview)
	envString("FRAMEBUFFER", &c.Framebuffer)
	envString("LOG_LEVEL", &c.LogLevel)

	envString("PANEL_PORT", &c.Panel.Port)
	errs = append(errs, envInt("PANEL_FREQUENCY", &c.Panel.Frequency))
	envString("PANEL_DC", &c.Panel.DC)
	envString("PANEL_CS", &c.Panel.CS)
	envString("PANEL_RESET", &c.Panel.Reset)
	envString("PANEL_BUSY", &c.Panel.Busy)
	envString("PANEL_ROTATION", &c.Panel.Rotation)
	errs = append(errs, envDuration("PANEL_REFRESH_TIMEOUT", &c.Panel.RefreshTimeout))

	return errors.Join(errs...)
}

func envString(name string, dst *string) {
	if value, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = value
	}
}

func envDuration(name string, dst *time.Duration) error {
	value, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}

func envInt(name string, dst *int64) error {
	value, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.NTPServer == "" {
		errs = append(errs, errors.New("ntp_server is required"))
	}
	for name, d := range map[string]time.Duration{
		"ntp_timeout":           c.NTPTimeout,
		"wifi_timeout":          c.WiFiTimeout,
		"period":                c.Period,
		"panel.refresh_timeout": c.Panel.RefreshTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Guard < 0 {
		errs = append(errs, fmt.Errorf("guard must not be negative, got %s", c.Guard))
	}
	if c.Panel.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("panel.frequency must be positive, got %d", c.Panel.Frequency))
	}
	if _, ok := epd.ParseRotation(c.Panel.Rotation); !ok {
		errs = append(errs, fmt.Errorf("invalid panel.rotation: %q", c.Panel.Rotation))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone: %w", err)
	}
	return loc, nil
}

// Level resolves LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level: %w", err)
	}
	return level, nil
}

// SPI returns the bus configuration of the panel.
func (p PanelConfig) SPI() *epd.SPIConfig {
	spi := epd.DefaultSPIConfig
	spi.Port = p.Port
	spi.Frequency = physic.Frequency(p.Frequency) * physic.Hertz
	spi.DC = p.DC
	spi.CS = p.CS
	spi.Reset = p.Reset
	spi.Busy = p.Busy
	return &spi
}

// EPD returns the panel driver configuration.
func (p PanelConfig) EPD() epd.Config {
	config := epd.DefaultConfig()
	config.Rotation, _ = epd.ParseRotation(p.Rotation)
	config.RefreshTimeout = p.RefreshTimeout
	return config
}
