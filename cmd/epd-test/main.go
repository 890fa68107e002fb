// Command epd-test draws a test pattern on the e-paper panel, to check the
// wiring and the orientation of both ink planes.
package main

import (
	"image"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"periph.io/x/conn/v3/physic"

	"github.com/BeatGlow/verseclock/draw"
	"github.com/BeatGlow/verseclock/epd"
	"github.com/BeatGlow/verseclock/fonts"
	"github.com/BeatGlow/verseclock/pixel"
)

func main() {
	var (
		spiPortFlag  = pflag.String("spi-port", epd.DefaultSPIConfig.Port, "SPI port (default: use first available)")
		frequencyMHz = pflag.Int("frequency", int(epd.DefaultSPIConfig.Frequency/physic.MegaHertz), "SPI clock in MHz")
		resetPinFlag = pflag.String("reset", epd.DefaultSPIConfig.Reset, "Reset GPIO pin")
		dcPinFlag    = pflag.String("dc", epd.DefaultSPIConfig.DC, "Data/Command GPIO pin (DC)")
		csPinFlag    = pflag.String("cs", epd.DefaultSPIConfig.CS, "Chip select GPIO pin")
		busyPinFlag  = pflag.String("busy", epd.DefaultSPIConfig.Busy, "Busy GPIO pin")
		rotateFlag   = pflag.String("rotate", "90", "Display rotation")
		previewFlag  = pflag.String("preview", "", "Render to this PNG file instead of the panel")
		sleepFlag    = pflag.Bool("sleep", true, "Put the panel to sleep when done")
		debugFlag    = pflag.Bool("debug", false, "Log panel traffic")
	)
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	if !*debugFlag {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	rotation, ok := epd.ParseRotation(*rotateFlag)
	if !ok {
		log.Fatal().Str("rotate", *rotateFlag).Msg("invalid rotation specified")
	}
	log.Info().Stringer("rotation", rotation).Msg("using rotation")

	var (
		output epd.Panel
		err    error
	)
	if *previewFlag != "" {
		bounds := image.Rect(0, 0, 240, 360)
		if rotation == epd.Rotate90 || rotation == epd.Rotate270 {
			bounds = image.Rect(0, 0, 360, 240)
		}
		output = epd.NewPreview(*previewFlag, bounds.Dx(), bounds.Dy())
	} else {
		config := epd.DefaultConfig()
		config.Rotation = rotation
		config.OnBusyStateChange = func(busy bool) {
			log.Debug().Bool("busy", busy).Msg("panel busy")
		}
		var panel *epd.EPD3in52B
		if panel, err = epd.Open3in52B(&epd.SPIConfig{
			Port:      *spiPortFlag,
			Frequency: physic.Frequency(*frequencyMHz) * physic.MegaHertz,
			Mode:      epd.DefaultSPIConfig.Mode,
			DC:        *dcPinFlag,
			CS:        *csPinFlag,
			Reset:     *resetPinFlag,
			Busy:      *busyPinFlag,
		}, config); err != nil {
			log.Fatal().Err(err).Msg("failed to open panel")
		}
		output = panel
	}
	defer output.Close()
	log.Info().Stringer("panel", output).Msg("using driver")

	if err = output.Init(); err != nil {
		log.Fatal().Err(err).Msg("init failed")
	}
	start := time.Now()
	if err = output.Clear(); err != nil {
		log.Fatal().Err(err).Msg("clear failed")
	}
	log.Info().Dur("took", time.Since(start)).Msg("panel cleared")

	set, err := fonts.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load fonts")
	}

	var (
		r     = output.Bounds()
		black = pixel.NewMonoImage(r.Dx(), r.Dy())
		red   = pixel.NewMonoImage(r.Dx(), r.Dy())
	)

	// Box around the edge, one pixel in from the border on the red plane.
	draw.Rectangle(black, r, pixel.On)
	draw.Rectangle(red, r.Inset(1), pixel.On)

	// Corner marker, it shows where the origin ended up after rotation.
	draw.RoundedBox(red, image.Rect(5, 5, 45, 25), 5, pixel.On)

	y := 35
	for _, size := range fonts.Sizes {
		face := set.MustFace(size)
		draw.Text(black, face, image.Pt(10, y), size.String(), pixel.On)
		y += draw.LineHeight(face)
	}
	title := set.MustFace(fonts.Font32)
	draw.Text(red, title, image.Pt(draw.CenteredX(title, "12:34", r.Dx()), r.Dy()-draw.LineHeight(title)-5), "12:34", pixel.On)

	start = time.Now()
	if err = output.Display(black, red); err != nil {
		log.Fatal().Err(err).Msg("display failed")
	}
	log.Info().Dur("took", time.Since(start)).Msg("test pattern shown")

	if *sleepFlag {
		if err = output.Sleep(); err != nil {
			log.Fatal().Err(err).Msg("sleep failed")
		}
	}
}
