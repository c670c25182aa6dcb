package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/LeoCommon/locsim/pkg/gpx"
	"github.com/LeoCommon/locsim/pkg/location"
	"github.com/LeoCommon/locsim/pkg/log"
	"go.uber.org/zap"
)

var errUsage = errors.New("either -point or at least one waypoint is required")

// waypointList collects repeated -wpt flags in order
type waypointList []location.Waypoint

func (l *waypointList) String() string {
	return fmt.Sprintf("%d waypoints", len(*l))
}

func (l *waypointList) Set(s string) error {
	wp, err := location.ParseWaypoint(s)
	if err != nil {
		return err
	}
	*l = append(*l, wp)
	return nil
}

// run renders the requested document and writes it to -out, "-" writes to stdout
func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gpxgen", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: gpxgen [flags] [--] [lat,lon[,name] ...]\n")
		fmt.Fprintf(fs.Output(), "waypoints with a negative first value need -wpt or a preceding --\n")
		fs.PrintDefaults()
	}

	out := fs.String("out", "-", "output file, - for stdout")
	name := fs.String("name", "", "name of the point or track")
	point := fs.String("point", "", "single point as lat,lon")
	stamp := fs.Bool("stamp", false, "add the current time to the metadata")
	debug := fs.Bool("debug", false, "true if the debug logging should be enabled")

	var wps waypointList
	fs.Var(&wps, "wpt", "route waypoint as lat,lon[,name], repeatable")

	if err := fs.Parse(args); err != nil {
		return err
	}

	log.Init(*debug)

	opts := []gpx.Option{}
	if *name != "" {
		opts = append(opts, gpx.WithName(*name))
	}
	if *stamp {
		opts = append(opts, gpx.WithTime(time.Now()))
	}

	var (
		doc *gpx.Document
		err error
	)

	// -wpt flags come first, trailing arguments are appended in order
	for _, arg := range fs.Args() {
		if perr := wps.Set(arg); perr != nil {
			return perr
		}
	}

	switch {
	case *point != "" && len(wps) > 0:
		return errors.New("-point and waypoints are mutually exclusive")
	case *point != "":
		c, perr := location.ParseCoordinate(*point)
		if perr != nil {
			return perr
		}
		doc, err = gpx.RenderSinglePoint(c, *name, opts...)
	case len(wps) > 0:
		doc, err = gpx.RenderRoute(wps, opts...)
	default:
		fs.Usage()
		return errUsage
	}

	if err != nil {
		return err
	}

	if *out == "-" {
		data, err := doc.Marshal()
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	if err := gpx.WriteFile(*out, doc); err != nil {
		return err
	}

	log.Info("track written", zap.String("path", *out))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "gpxgen: %s\n", err)
		os.Exit(1)
	}
}
