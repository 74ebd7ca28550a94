package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/flyrok/fdsn-station-info/pkg/client"
	"github.com/flyrok/fdsn-station-info/pkg/geo"
	"github.com/flyrok/fdsn-station-info/pkg/report"
	"github.com/urfave/cli/v3"
)

// usageError marks input rejected before any request is made.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// criteria is the validated form of the command line.
type criteria struct {
	Begin    time.Time
	End      time.Time
	Network  string
	Station  string
	Location string
	Channel  string
	Response bool

	Lat *float64
	Lon *float64
	// Radii in kilometers.
	RadMin *float64
	RadMax *float64

	Output    string
	Verbosity int
}

func criteriaFromCommand(cmd *cli.Command, verbosity int) (criteria, error) {
	c := criteria{
		Network:   strings.TrimSpace(cmd.String(netFlag)),
		Station:   strings.TrimSpace(cmd.String(stationFlag)),
		Location:  strings.TrimSpace(cmd.String(locFlag)),
		Channel:   strings.TrimSpace(cmd.String(chanFlag)),
		Response:  cmd.Bool(respFlag),
		Lat:       optionalFloat(cmd, latFlag),
		Lon:       optionalFloat(cmd, lonFlag),
		RadMin:    optionalFloat(cmd, radminFlag),
		RadMax:    optionalFloat(cmd, radmaxFlag),
		Output:    cmd.String(outputFlag),
		Verbosity: verbosity,
	}

	if err := c.validate(); err != nil {
		return criteria{}, err
	}

	var err error
	if c.Begin, err = parseTime(cmd.String(beginFlag)); err != nil {
		return criteria{}, usagef("--begin: %v", err)
	}
	if c.End, err = parseTime(cmd.String(endFlag)); err != nil {
		return criteria{}, usagef("--end: %v", err)
	}
	return c, nil
}

func optionalFloat(cmd *cli.Command, name string) *float64 {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.Float(name)
	return &v
}

// validate applies the cross-field presence rules.
func (c criteria) validate() error {
	switch {
	case c.Lat != nil && c.Lon == nil:
		return usagef("--lat requires --lon")
	case c.Lon != nil && c.Lat == nil:
		return usagef("--lon requires --lat")
	case c.RadMax != nil && (c.Lat == nil || c.Lon == nil):
		return usagef("--radmax requires --lon, --lat")
	case c.RadMin != nil && c.RadMax == nil:
		return usagef("--radmin requires --radmax")
	case c.RadMax == nil && c.Network == "" && c.Station == "":
		return usagef("not setting --radmax requires setting either --net or --station")
	case c.Output == "":
		return usagef("--output cannot be empty")
	case strings.EqualFold(filepath.Ext(c.Output), report.StationXMLExt):
		return usagef("--output cannot end in %s", report.StationXMLExt)
	}
	return nil
}

// Reference returns the point distances are measured from, or nil when none
// was given.
func (c criteria) Reference() *geo.Point {
	if c.Lat == nil || c.Lon == nil {
		return nil
	}
	return &geo.Point{Lat: *c.Lat, Lon: *c.Lon}
}

// Level is the detail level to request.
func (c criteria) Level() client.Level {
	if c.Response {
		return client.LevelResponse
	}
	return client.LevelChannel
}

// StationQuery maps the criteria to a single fdsnws-station request. A radius
// is only sent when --radmax was given; radii are converted to degrees.
func (c criteria) StationQuery() client.StationQuery {
	q := client.StationQuery{
		StartTime: c.Begin,
		EndTime:   c.End,
		Network:   c.Network,
		Station:   c.Station,
		Location:  c.Location,
		Channel:   c.Channel,
		Level:     c.Level(),
	}
	if c.RadMax != nil {
		q.Radius = &client.RadialFilter{
			Latitude:  *c.Lat,
			Longitude: *c.Lon,
			MaxRadius: geo.KmToDegrees(*c.RadMax),
		}
		if c.RadMin != nil {
			minDeg := geo.KmToDegrees(*c.RadMin)
			q.Radius.MinRadius = &minDeg
		}
	}
	return q
}

// LogValue lists the parameters the way they will be sent.
func (c criteria) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("begin", c.Begin.Format(client.TimeFormat)),
		slog.String("end", c.End.Format(client.TimeFormat)),
		slog.String("net", c.Network),
		slog.String("station", c.Station),
		slog.String("loc", c.Location),
		slog.String("chan", c.Channel),
	}
	if c.Lat != nil && c.Lon != nil {
		attrs = append(attrs, slog.Float64("lat", *c.Lat), slog.Float64("lon", *c.Lon))
	}
	if c.RadMin != nil {
		attrs = append(attrs, slog.Float64("radmin_deg", geo.KmToDegrees(*c.RadMin)))
	}
	if c.RadMax != nil {
		attrs = append(attrs, slog.Float64("radmax_deg", geo.KmToDegrees(*c.RadMax)))
	}
	attrs = append(attrs,
		slog.String("level", string(c.Level())),
		slog.String("output", c.Output),
	)
	return slog.GroupValue(attrs...)
}

// timeLayouts are tried in order. Ordinal dates ("2019001T00:00") are kept
// for compatibility with scripts written against the older tool.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"20060102T150405.999999999",
	"20060102T1504",
	"20060102",
	"2006002T15:04:05.999999999",
	"2006002T15:04:05",
	"2006002T15:04",
	"2006002",
}

// parseTime accepts ISO-8601-like timestamps, with a space or T between date
// and time, in extended or compact form. Values without a zone are UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (e.g. 2019-01-01T00:00 or 2019001T00:00)", s)
}
