package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bgrewell/eltorito-kit"
	"github.com/bgrewell/eltorito-kit/pkg/iso9660"
	"github.com/bgrewell/eltorito-kit/pkg/logging"
	"github.com/bgrewell/eltorito-kit/pkg/option"
	"github.com/bgrewell/usage"
	"github.com/theckman/yacspin"
	"golang.org/x/term"
)

var (
	version = "dev"
)

// InitializeSpinner sets up and starts a yacspin spinner on stderr, keeping
// stdout free for the payload.
func InitializeSpinner() (*yacspin.Spinner, error) {
	settings := yacspin.Config{
		Writer:            os.Stderr,
		Frequency:         100 * time.Millisecond,
		ShowCursor:        false,
		SpinnerAtEnd:      false,
		CharSet:           yacspin.CharSets[14],
		Colors:            []string{"fgHiCyan"},
		StopColors:        []string{"fgHiGreen"},
		StopFailColors:    []string{"fgHiRed"},
		StopFailCharacter: "✗",
		StopCharacter:     "✓",
	}

	spinner, err := yacspin.New(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create spinner: %w", err)
	}

	if err := spinner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start spinner: %w", err)
	}

	return spinner, nil
}

// CreateProgressCallback returns a progress callback that updates the
// spinner's message during the payload copy.
func CreateProgressCallback(spinner *yacspin.Spinner) option.ExtractionProgressCallback {
	return func(bytesTransferred int64, totalBytes int64) {
		if spinner == nil {
			return
		}
		percent := float64(bytesTransferred) / float64(totalBytes) * 100
		spinner.Message(fmt.Sprintf(" %d/%d bytes - %.2f%%", bytesTransferred, totalBytes, percent))
	}
}

func main() {

	u := usage.NewUsage()
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	showVersion := u.AddBooleanOption("V", "version", false, "Print version information", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Enable verbose (debug) diagnostics", "optional", nil)
	trace := u.AddBooleanOption("t", "trace", false, "Enable trace diagnostics", "optional", nil)
	output := u.AddStringOption("o", "output", "", "Write the boot image to <file> instead of stdout", "optional", nil)
	path := u.AddArgument(1, "iso-path", "CD/DVD image file or device to read", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Println("geteltorito v" + version)
		os.Exit(0)
	}

	if path == nil || *path == "" {
		u.PrintError(fmt.Errorf("location of the iso image <iso-path> must be provided"))
		os.Exit(1)
	}

	// Diagnostics go to stderr so stdout stays a clean payload channel.
	verbosity := logging.LEVEL_INFO
	if *verbose {
		verbosity = logging.LEVEL_DEBUG
	}
	if *trace {
		verbosity = logging.LEVEL_TRACE
	}
	useColor := term.IsTerminal(int(os.Stderr.Fd()))
	logger := logging.NewLogger(logging.NewSimpleLogger(os.Stderr, verbosity, useColor))

	// A spinner only makes sense when writing to a file on a terminal; with
	// the payload on stdout there is nothing long-running left to watch.
	var spinner *yacspin.Spinner
	if *output != "" && useColor {
		var err error
		spinner, err = InitializeSpinner()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Progress updates disabled: %v\n", err)
		}
	}

	img, err := eltorito.Open(*path,
		option.WithLogger(logger),
		option.WithExtractionProgress(CreateProgressCallback(spinner)),
	)
	if err != nil {
		fail(spinner, logger, err, "Failed to open image")
	}
	defer img.Close()

	if pvd := img.PrimaryVolumeDescriptor(); pvd != nil {
		logger.Info("Volume information",
			"volumeId", pvd.VolumeIdentifier,
			"systemId", pvd.SystemIdentifier)
	}
	logger.Info("Booting catalog starts at sector",
		"sector", img.BootRecord().BootCatalogPointer)

	var sink io.Writer = os.Stdout
	var outFile *os.File
	if *output != "" {
		outFile, err = os.Create(*output)
		if err != nil {
			fail(spinner, logger, err, "Failed to create output file")
		}
		sink = outFile
	}

	info, err := img.ExtractBootImage(sink)
	if err != nil {
		// Extraction is all-or-nothing; a failed run leaves no output file
		// behind.
		if outFile != nil {
			outFile.Close()
			os.Remove(*output)
		}
		fail(spinner, logger, err, "Failed to extract boot image")
	}

	if outFile != nil {
		if err = outFile.Close(); err != nil {
			os.Remove(*output)
			fail(spinner, logger, err, "Failed to finish writing output file")
		}
	}

	reportImage(logger, info)

	if spinner != nil {
		spinner.StopMessage(fmt.Sprintf(" Boot image written to %s (%d bytes)", *output, info.Length))
		spinner.Stop()
	} else if outFile != nil {
		logger.Info("Boot image written", "file", *output)
	} else {
		logger.Info("Boot image written to stdout")
	}
}

func reportImage(logger *logging.Logger, info *iso9660.BootImageInfo) {
	logger.Info("Default boot image",
		"manufacturer", info.Manufacturer,
		"platform", info.Platform.String(),
		"mediaType", info.Emulation.String(),
		"startSector", info.StartSector,
		"length", info.Length)
}

func fail(spinner *yacspin.Spinner, logger *logging.Logger, err error, msg string) {
	if spinner != nil {
		spinner.StopFailMessage(" " + msg)
		spinner.StopFail()
	}
	logger.Error(err, msg)
	os.Exit(1)
}
