// Command verseclock shows the time and a bible verse for every minute of the
// day on a red/black e-paper panel.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/BeatGlow/verseclock/epd"
	"github.com/BeatGlow/verseclock/fonts"
	"github.com/BeatGlow/verseclock/framebuffer"
	"github.com/BeatGlow/verseclock/internal/clock"
	"github.com/BeatGlow/verseclock/internal/config"
	"github.com/BeatGlow/verseclock/internal/network"
	"github.com/BeatGlow/verseclock/internal/render"
	"github.com/BeatGlow/verseclock/internal/scheduler"
	"github.com/BeatGlow/verseclock/internal/timesync"
	"github.com/BeatGlow/verseclock/internal/verse"
)

// settleTime lets the panel rest after the startup clear.
const settleTime = time.Second

// Landscape size of the preview and framebuffer panels.
const (
	previewWidth  = 360
	previewHeight = 240
)

func main() {
	var (
		configFlag   = pflag.StringP("config", "c", "", "Configuration file (default: $VERSECLOCK_CONFIG)")
		dataDirFlag  = pflag.StringP("data-dir", "d", "", "Directory holding the hourly verse files")
		previewFlag  = pflag.StringP("preview", "p", "", "Render to this PNG file instead of the panel")
		fbFlag       = pflag.String("framebuffer", "", "Mirror to this framebuffer device instead of the panel")
		fontFlag     = pflag.String("font", "", "TrueType font file (default: embedded Go Mono)")
		tzFlag       = pflag.String("tz", "", "Time zone name")
		ntpFlag      = pflag.String("ntp-server", "", "NTP server")
		rotateFlag   = pflag.String("rotate", "", "Panel rotation (0, 90, 180, 270)")
		logLevelFlag = pflag.String("log-level", "", "Log level (debug, info, warn, error)")
		logJSONFlag  = pflag.Bool("log-json", false, "Log JSON instead of console output")
		onceFlag     = pflag.Bool("once", false, "Show the current minute once and exit")
	)
	pflag.Parse()

	setupLogging(*logJSONFlag)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	override := func(name string, value, dst *string) {
		if pflag.CommandLine.Changed(name) {
			*dst = *value
		}
	}
	override("data-dir", dataDirFlag, &cfg.DataDir)
	override("preview", previewFlag, &cfg.Preview)
	override("framebuffer", fbFlag, &cfg.Framebuffer)
	override("font", fontFlag, &cfg.FontFile)
	override("tz", tzFlag, &cfg.TimeZone)
	override("ntp-server", ntpFlag, &cfg.NTPServer)
	override("rotate", rotateFlag, &cfg.Panel.Rotation)
	override("log-level", logLevelFlag, &cfg.LogLevel)
	if err = cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	level, _ := cfg.Level()
	zerolog.SetGlobalLevel(level)
	location, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wifi := network.New(cfg.WiFiSSID, cfg.WiFiPassword, cfg.WiFiTimeout)
	if err = wifi.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("continuing offline")
	}

	panel, err := openPanel(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open panel")
	}
	defer closePanel(panel)
	log.Info().Stringer("panel", panel).Msg("using panel")

	if err = panel.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize panel")
	}
	if err = panel.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear panel")
	}
	time.Sleep(settleTime)

	set, err := fonts.Load(cfg.FontFile)
	if err != nil {
		log.Fatal().Err(err).Str("font", cfg.FontFile).Msg("failed to load font")
	}
	renderer, err := render.New(panel, set)
	if err != nil {
		// Nothing can be shown without frame buffers.
		log.Fatal().Err(err).Msg("halting")
	}

	var (
		c         = clock.Real()
		authority = timesync.New(c, timesync.NTPSource{Server: cfg.NTPServer, Timeout: cfg.NTPTimeout}, location, cfg.NTPTimeout)
		verses    = verse.NewStore(os.DirFS(cfg.DataDir))
		refresh   = scheduler.New(c, authority, verses, renderer, wifi, scheduler.Config{
			Period: cfg.Period,
			Guard:  cfg.Guard,
		})
	)
	log.Info().
		Str("data", cfg.DataDir).
		Stringer("location", location).
		Dur("period", cfg.Period).
		Msg("starting verse clock")

	if *onceFlag {
		refresh.Cycle(ctx)
		return
	}

	refresh.Start(ctx)
	if err = refresh.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("refresh loop stopped")
	}
	log.Info().Msg("shutting down")
}

func setupLogging(json bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if json {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
}

func openPanel(cfg *config.Config) (epd.Panel, error) {
	if cfg.Preview != "" {
		return epd.NewPreview(cfg.Preview, previewWidth, previewHeight), nil
	}
	if cfg.Framebuffer != "" {
		fb, err := framebuffer.Open(cfg.Framebuffer, previewWidth, previewHeight)
		if err != nil {
			return nil, err
		}
		return fb, nil
	}

	driverConfig := cfg.Panel.EPD()
	driverConfig.OnBusyStateChange = func(busy bool) {
		log.Debug().Bool("busy", busy).Msg("panel busy")
	}
	panel, err := epd.Open3in52B(cfg.Panel.SPI(), driverConfig)
	if err != nil {
		return nil, err
	}
	return panel, nil
}

func closePanel(panel epd.Panel) {
	if err := panel.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close panel")
	}
}
