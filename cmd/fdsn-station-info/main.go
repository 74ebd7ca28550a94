package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	stationclient "github.com/flyrok/fdsn-station-info/pkg/client"
	"github.com/flyrok/fdsn-station-info/pkg/report"
	"github.com/urfave/cli/v3"
)

const appName = "fdsn-station-info"

// version is replaced at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var (
	errFetch  = errors.New("station request failed")
	errOutput = errors.New("writing output failed")
)

// Flag names. The flags themselves are built per command so that repeated
// runs in one process do not share parsed state.
const (
	beginFlag   = "begin"
	endFlag     = "end"
	netFlag     = "net"
	stationFlag = "station"
	locFlag     = "loc"
	chanFlag    = "chan"
	respFlag    = "resp"
	lonFlag     = "lon"
	latFlag     = "lat"
	radminFlag  = "radmin"
	radmaxFlag  = "radmax"
	outputFlag  = "output"
	verboseFlag = "verbose"
	baseURLFlag = "url"
	timeoutFlag = "timeout"
)

func commandFlags(verbosity *int) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     beginFlag,
			Aliases:  []string{"b"},
			Usage:    "start time in iso-format e.g. 2019-01-01T00:00 or 2019001T00:00; only stations operating between begin and end are returned",
			Required: true,
		},
		&cli.StringFlag{
			Name:     endFlag,
			Aliases:  []string{"e"},
			Usage:    "end time in iso-format e.g. 2019-01-02T00:00",
			Required: true,
		},
		&cli.StringFlag{
			Name:    netFlag,
			Aliases: []string{"n"},
			Usage:   "network codes, comma separated (e.g. \"IU,II\")",
		},
		&cli.StringFlag{
			Name:    stationFlag,
			Aliases: []string{"s"},
			Usage:   "station codes, comma separated (e.g. \"ANMO,PFO\"); defaults to all",
		},
		&cli.StringFlag{
			Name:    locFlag,
			Aliases: []string{"l"},
			Usage:   "location codes, comma separated; \"--\" selects the empty code; defaults to all",
		},
		&cli.StringFlag{
			Name:    chanFlag,
			Aliases: []string{"c"},
			Usage:   "channel codes, wildcards allowed (e.g. \"BH?,HH?,*H*\"); defaults to all",
		},
		&cli.BoolFlag{
			Name:    respFlag,
			Aliases: []string{"r"},
			Usage:   "include instrument response in the StationXML file",
		},
		&cli.FloatFlag{
			Name:  lonFlag,
			Usage: "center longitude for the search radius and distance column, decimal degrees",
		},
		&cli.FloatFlag{
			Name:  latFlag,
			Usage: "center latitude for the search radius and distance column, decimal degrees",
		},
		&cli.FloatFlag{
			Name:  radminFlag,
			Usage: "minimum search radius in km (>0)",
		},
		&cli.FloatFlag{
			Name:  radmaxFlag,
			Usage: "maximum search radius in km (>radmin)",
		},
		&cli.StringFlag{
			Name:    outputFlag,
			Aliases: []string{"o"},
			Usage:   "CSV output file; the StationXML copy uses the same name with a .staxml suffix",
			Value:   "sta_info.csv",
		},
		&cli.BoolFlag{
			Name:    verboseFlag,
			Aliases: []string{"v"},
			Usage:   "increase log verbosity (-v, -vv)",
			Config:  cli.BoolConfig{Count: verbosity},
		},
		&cli.StringFlag{
			Name:    baseURLFlag,
			Aliases: []string{"u"},
			Usage:   "FDSN web service base URL",
			Value:   stationclient.DefaultBaseURL,
		},
		&cli.DurationFlag{
			Name:    timeoutFlag,
			Aliases: []string{"t"},
			Usage:   "HTTP client timeout (e.g. 30s, 4m)",
			Value:   stationclient.DefaultTimeout,
		},
	}
}

func init() {
	// -v is taken by --verbose.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}
}

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newCommand(stdout, stderr)
	err := cmd.Run(ctx, args)
	if err == nil {
		return exitOK
	}

	code := exitCode(err)
	// Failures after validation were already logged by the action.
	if code == exitUsage {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", appName)
	}
	return code
}

// exitCode is exitFailure once a request was attempted and exitUsage for
// anything rejected before that, including flag parsing errors.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFetch), errors.Is(err, errOutput):
		return exitFailure
	default:
		return exitUsage
	}
}

func newCommand(stdout, stderr io.Writer) *cli.Command {
	var verbosity int
	return &cli.Command{
		Name:    appName,
		Usage:   "Grab station metadata from an FDSN station service",
		Version: version,
		Description: `Grab station metadata from an FDSN server (IRIS by default) for stations that
are 1) within a search radius of a given lat,lon and 2) operating during a
particular time frame. Two files are written: a CSV summary with one row per
channel and a StationXML file with the full inventory.`,
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Flags:                  commandFlags(&verbosity),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return stationInfoAction(ctx, cmd, verbosity, stderr)
		},
	}
}

func stationInfoAction(ctx context.Context, cmd *cli.Command, verbosity int, stderr io.Writer) error {
	if cmd.Args().Len() != 0 {
		return usagef("no arguments expected, got %q", cmd.Args().Slice())
	}

	crit, err := criteriaFromCommand(cmd, verbosity)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, crit.Verbosity)
	logger.Info("command line arguments", "criteria", crit)

	client, err := stationclient.NewClient(cmd.String(baseURLFlag),
		stationclient.WithTimeout(cmd.Duration(timeoutFlag)),
		stationclient.WithUserAgent(appName+"/"+version),
		stationclient.WithLogger(logger),
	)
	if err != nil {
		return usagef("--url: %v", err)
	}

	inv, err := dispatch(ctx, client, crit, logger)
	if err != nil {
		logger.Error("get_stations failed", "err", err)
		return fmt.Errorf("%w: %w", errFetch, err)
	}

	if _, err := report.NewWriter(logger).Write(inv, crit.Output, crit.Reference()); err != nil {
		logger.Error("writing output failed", "err", err)
		return fmt.Errorf("%w: %w", errOutput, err)
	}
	return nil
}
