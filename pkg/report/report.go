// Package report flattens a station inventory into one row per channel and
// writes the CSV summary next to the StationXML document.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flyrok/fdsn-station-info/pkg/geo"
	"github.com/flyrok/fdsn-station-info/pkg/stationxml"
)

// StationXMLExt is the extension given to the StationXML copy of the
// inventory.
const StationXMLExt = ".staxml"

// Header labels the CSV columns.
var Header = []string{
	"N", "sta", "loc", "chan", "lat", "lon", "elev", "dist (km)",
	"depth", "sampr", "hang", "vang", "sensor",
}

// Row is the flattened view of one channel. Azimuth, Dip and SampleRate are
// nil when the service did not report them.
type Row struct {
	Network    string
	Station    string
	Location   string
	Channel    string
	Latitude   float64
	Longitude  float64
	Elevation  float64
	DistanceKm float64
	Depth      float64
	SampleRate *float64
	Azimuth    *float64
	Dip        *float64
	Sensor     string
}

// Record renders the row with the fixed precision of each column.
func (r Row) Record() []string {
	return []string{
		r.Network,
		r.Station,
		r.Location,
		r.Channel,
		formatFixed(r.Latitude, 6),
		formatFixed(r.Longitude, 6),
		formatFixed(r.Elevation, 1),
		formatFixed(r.DistanceKm, 3),
		formatFixed(r.Depth, 1),
		formatOptional(r.SampleRate, 4),
		formatOptional(r.Azimuth, 1),
		formatOptional(r.Dip, 1),
		r.Sensor,
	}
}

// Rows flattens inv in network → station → channel order. Distances are
// measured from ref; when ref is nil the first channel becomes the reference,
// so its own distance is 0 and later rows are relative to it.
func Rows(inv *stationxml.Inventory, ref *geo.Point) []Row {
	rows := make([]Row, 0, inv.ChannelCount())
	if inv == nil {
		return rows
	}

	for _, net := range inv.Networks {
		for _, sta := range net.Stations {
			for _, ch := range sta.Channels {
				pos := geo.Point{Lat: ch.Latitude, Lon: ch.Longitude}
				if ref == nil {
					first := pos
					ref = &first
				}
				rows = append(rows, Row{
					Network:    net.Code,
					Station:    sta.Code,
					Location:   ch.LocationCode,
					Channel:    ch.Code,
					Latitude:   ch.Latitude,
					Longitude:  ch.Longitude,
					Elevation:  ch.Elevation,
					DistanceKm: ref.DistanceTo(pos),
					Depth:      ch.Depth,
					SampleRate: ch.SampleRate,
					Azimuth:    ch.Azimuth,
					Dip:        ch.Dip,
					Sensor:     ch.SensorDescription(),
				})
			}
		}
	}
	return rows
}

// WriteCSV writes the header followed by one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// StationXMLPath derives the StationXML file name from the CSV path by
// replacing its extension, e.g. "out/sta_info.csv" → "out/sta_info.staxml".
func StationXMLPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + StationXMLExt
}

// Writer produces both output files for an inventory.
type Writer struct {
	logger *slog.Logger
}

// NewWriter returns a Writer that logs to logger, or slog.Default() if nil.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write saves inv as StationXML beside csvPath and then writes the CSV summary
// to csvPath. Both files are overwritten. It returns the rows written.
func (w *Writer) Write(inv *stationxml.Inventory, csvPath string, ref *geo.Point) ([]Row, error) {
	if inv == nil {
		return nil, fmt.Errorf("no inventory to write")
	}

	xmlPath := StationXMLPath(csvPath)
	if filepath.Clean(xmlPath) == filepath.Clean(csvPath) {
		return nil, fmt.Errorf("csv path %s would overwrite the stationxml file", csvPath)
	}
	w.logger.Info("saving stationxml", "path", xmlPath)
	if err := inv.WriteFile(xmlPath); err != nil {
		return nil, err
	}

	if ref == nil {
		w.logger.Warn("no reference point given, distances are relative to the first channel")
	}
	rows := Rows(inv, ref)
	for _, r := range rows {
		w.logger.Debug("channel", "row", strings.Join(r.Record(), ", "))
	}

	if err := writeCSVFile(csvPath, rows); err != nil {
		return nil, err
	}
	w.logger.Info("saving csv", "path", csvPath, "rows", len(rows))
	return rows, nil
}

func writeCSVFile(path string, rows []Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := WriteCSV(f, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatFixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return formatFixed(*v, prec)
}
