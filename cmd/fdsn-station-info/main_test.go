package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/flyrok/fdsn-station-info/pkg/geo"
	"github.com/flyrok/fdsn-station-info/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ianmoXML = `<?xml version="1.0" encoding="UTF-8"?>
<FDSNStationXML xmlns="http://www.fdsn.org/xml/station/1" schemaVersion="1.1">
  <Source>IRIS-DMC</Source>
  <Created>2020-01-03T17:05:21.0000</Created>
  <Network code="IU">
    <Station code="ANMO">
      <Latitude>34.945981</Latitude>
      <Longitude>-106.457133</Longitude>
      <Elevation>1671.0</Elevation>
      <Site><Name>Albuquerque, New Mexico, USA</Name></Site>
      <Channel code="BHZ" locationCode="00">
        <Latitude>34.945981</Latitude>
        <Longitude>-106.457133</Longitude>
        <Elevation>1632.7</Elevation>
        <Depth>188.0</Depth>
        <Azimuth>0.0</Azimuth>
        <Dip>-90.0</Dip>
        <SampleRate>40.0</SampleRate>
        <Sensor><Description>Streckeisen STS-6A VBB Seismometer</Description></Sensor>
      </Channel>
    </Station>
    <Station code="TUC">
      <Latitude>32.3098</Latitude>
      <Longitude>-110.7847</Longitude>
      <Elevation>906.0</Elevation>
      <Site><Name>Tucson, Arizona, USA</Name></Site>
      <Channel code="BHZ" locationCode="00">
        <Latitude>32.3098</Latitude>
        <Longitude>-110.7847</Longitude>
        <Elevation>870.0</Elevation>
        <Depth>36.0</Depth>
        <Azimuth>0.0</Azimuth>
        <Dip>-90.0</Dip>
        <SampleRate>40.0</SampleRate>
        <Sensor><Description>Streckeisen STS-1VBB w/E300</Description></Sensor>
      </Channel>
      <Channel code="BH1" locationCode="00">
        <Latitude>32.3098</Latitude>
        <Longitude>-110.7847</Longitude>
        <Elevation>870.0</Elevation>
        <Depth>36.0</Depth>
        <Azimuth>45.0</Azimuth>
        <Dip>0.0</Dip>
        <SampleRate>40.0</SampleRate>
        <Sensor><Description>Streckeisen STS-1VBB w/E300</Description></Sensor>
      </Channel>
    </Station>
  </Network>
</FDSNStationXML>
`

type stationServer struct {
	*httptest.Server
	requests []*http.Request
}

func newStationServer(t *testing.T, handler http.HandlerFunc) *stationServer {
	t.Helper()
	s := &stationServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests = append(s.requests, r.Clone(context.Background()))
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func serveXML(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, body)
	}
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{appName}, args...), &stdout, &stderr)
	return code, stderr.String()
}

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRun_Unconstrained(t *testing.T) {
	server := newStationServer(t, serveXML(ianmoXML))
	out := filepath.Join(t.TempDir(), "iu.csv")

	code, stderr := runCLI(t,
		"--url", server.URL,
		"-b", "2020-01-01T00:00", "-e", "2020-01-02T00:00",
		"-n", "IU", "-o", out,
	)
	require.Equal(t, exitOK, code, stderr)

	require.Len(t, server.requests, 1)
	q := server.requests[0].URL.Query()
	assert.Equal(t, "/fdsnws/station/1/query", server.requests[0].URL.Path)
	assert.Equal(t, "2020-01-01T00:00:00", q.Get("starttime"))
	assert.Equal(t, "2020-01-02T00:00:00", q.Get("endtime"))
	assert.Equal(t, "IU", q.Get("network"))
	assert.Equal(t, "channel", q.Get("level"))
	for _, key := range []string{"latitude", "longitude", "minradius", "maxradius", "station", "channel"} {
		assert.False(t, q.Has(key), "unexpected parameter %s", key)
	}
	assert.Contains(t, server.requests[0].Header.Get("User-Agent"), appName)

	records := readRecords(t, out)
	require.Len(t, records, 4)
	assert.Equal(t, report.Header, records[0])
	assert.Equal(t, []string{"IU", "ANMO", "00", "BHZ"}, records[1][:4])
	assert.Equal(t, []string{"IU", "TUC", "00", "BHZ"}, records[2][:4])
	assert.Equal(t, []string{"IU", "TUC", "00", "BH1"}, records[3][:4])

	// Without --lat/--lon distances are relative to the first channel.
	anmo := geo.Point{Lat: 34.945981, Lon: -106.457133}
	tuc := geo.Point{Lat: 32.3098, Lon: -110.7847}
	assert.Equal(t, "0.000", records[1][7])
	assert.Equal(t, fmt.Sprintf("%.3f", anmo.DistanceTo(tuc)), records[2][7])

	staxml, err := os.ReadFile(report.StationXMLPath(out))
	require.NoError(t, err)
	assert.Equal(t, ianmoXML, string(staxml))
}

func TestRun_RadiusConstrained(t *testing.T) {
	server := newStationServer(t, serveXML(ianmoXML))
	out := filepath.Join(t.TempDir(), "ring.csv")

	code, stderr := runCLI(t,
		"--url", server.URL,
		"-b", "2019001T00:00", "-e", "2019002T00:00",
		"--lat", "32.3098", "--lon=-110.7847",
		"--radmin", "111.195", "--radmax", "222.39",
		"-l", "00", "-r", "-vv", "-o", out,
	)
	require.Equal(t, exitOK, code, stderr)

	require.Len(t, server.requests, 1)
	q := server.requests[0].URL.Query()
	assert.Equal(t, "2019-01-01T00:00:00", q.Get("starttime"))
	assert.Equal(t, "32.3098", q.Get("latitude"))
	assert.Equal(t, "-110.7847", q.Get("longitude"))
	assert.Equal(t, "1", q.Get("minradius"))
	assert.Equal(t, "2", q.Get("maxradius"))
	assert.Equal(t, "response", q.Get("level"))
	assert.Equal(t, "00", q.Get("location"))

	records := readRecords(t, out)
	require.Len(t, records, 4)
	// Distances are measured from the given point.
	assert.Equal(t, "0.000", records[2][7])
	assert.NotEqual(t, "0.000", records[1][7])

	// -vv logs parameters and rows.
	assert.Contains(t, stderr, "command line arguments")
	assert.Contains(t, stderr, "radius constrained")
	assert.Contains(t, stderr, "IU, TUC, 00, BH1")
	assert.Contains(t, stderr, "sending request")
}

func TestRun_ValidationFailsBeforeRequest(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "lat without lon",
			args:    []string{"-b", "2020-01-01", "-e", "2020-01-02", "-n", "IU", "--lat", "35"},
			wantErr: "--lat requires --lon",
		},
		{
			name:    "no net, station or radmax",
			args:    []string{"-b", "2020-01-01", "-e", "2020-01-02", "-c", "BHZ"},
			wantErr: "requires setting either --net or --station",
		},
		{
			name:    "radmax without point",
			args:    []string{"-b", "2020-01-01", "-e", "2020-01-02", "--radmax", "100"},
			wantErr: "--radmax requires --lon, --lat",
		},
		{
			name:    "output named like the stationxml copy",
			args:    []string{"-b", "2020-01-01", "-e", "2020-01-02", "-n", "IU", "-o", "sta_info.staxml"},
			wantErr: "--output cannot end in .staxml",
		},
		{
			name:    "missing begin",
			args:    []string{"-e", "2020-01-02", "-n", "IU"},
			wantErr: "begin",
		},
		{
			name:    "unknown flag",
			args:    []string{"-b", "2020-01-01", "-e", "2020-01-02", "-n", "IU", "--depth", "3"},
			wantErr: "depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newStationServer(t, serveXML(ianmoXML))
			out := filepath.Join(t.TempDir(), "sta_info.csv")

			code, stderr := runCLI(t, append([]string{"--url", server.URL, "-o", out}, tt.args...)...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, tt.wantErr)
			assert.Empty(t, server.requests)

			_, err := os.Stat(out)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestRun_RequestFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "no data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			wantErr: "no data available",
		},
		{
			name: "service rejects request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "Error 400: Bad Request", http.StatusBadRequest)
			},
			wantErr: "Error 400: Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newStationServer(t, tt.handler)
			dir := t.TempDir()
			out := filepath.Join(dir, "sta_info.csv")

			code, stderr := runCLI(t, "--url", server.URL, "-b", "2020-01-01", "-e", "2020-01-02", "-n", "IU", "-o", out)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, stderr, "ERR")
			assert.Contains(t, stderr, "get_stations failed")
			assert.Contains(t, stderr, tt.wantErr)
			assert.NotContains(t, stderr, "--help")
			assert.Len(t, server.requests, 1)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRun_OutputFailure(t *testing.T) {
	server := newStationServer(t, serveXML(ianmoXML))
	out := filepath.Join(t.TempDir(), "missing", "sta_info.csv")

	code, stderr := runCLI(t, "--url", server.URL, "-b", "2020-01-01", "-e", "2020-01-02", "-n", "IU", "-o", out)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "ERR")
	assert.Contains(t, stderr, "writing output failed")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitUsage, exitCode(usagef("--lat requires --lon")))
	assert.Equal(t, exitUsage, exitCode(errors.New("flag provided but not defined: -x")))
	assert.Equal(t, exitFailure, exitCode(fmt.Errorf("%w: %w", errFetch, errors.New("timeout"))))
	assert.Equal(t, exitFailure, exitCode(fmt.Errorf("%w: %w", errOutput, os.ErrPermission)))
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, levelFor(0))
	assert.Equal(t, slog.LevelInfo, levelFor(1))
	assert.Equal(t, slog.LevelDebug, levelFor(2))
	assert.Equal(t, slog.LevelDebug, levelFor(5))
}
