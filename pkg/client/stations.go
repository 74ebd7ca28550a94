package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flyrok/fdsn-station-info/pkg/stationxml"
)

// Level selects how much of the metadata hierarchy the service returns.
type Level string

const (
	LevelChannel  Level = "channel"
	LevelResponse Level = "response"
)

// TimeFormat is the layout used for starttime/endtime parameters.
const TimeFormat = "2006-01-02T15:04:05.999999"

const stationQueryPath = "fdsnws/station/1/query"

// maxErrorBody caps how much of an error document is kept in an APIError.
const maxErrorBody = 4 << 10

// RadialFilter restricts results to a ring around a point. Radii are in
// decimal degrees of arc. MinRadius is optional.
type RadialFilter struct {
	Latitude  float64
	Longitude float64
	MinRadius *float64
	MaxRadius float64
}

// StationQuery holds the constraints of an fdsnws-station request. Code
// fields take comma separated lists and may contain the * and ? wildcards.
type StationQuery struct {
	StartTime time.Time
	EndTime   time.Time
	Network   string
	Station   string
	Location  string
	Channel   string
	Level     Level

	// Radius switches the request to radius-constrained mode when non-nil.
	Radius *RadialFilter
}

// Values converts the query to URL parameters.
func (q StationQuery) Values() url.Values {
	values := url.Values{}

	if !q.StartTime.IsZero() {
		values.Set("starttime", q.StartTime.UTC().Format(TimeFormat))
	}
	if !q.EndTime.IsZero() {
		values.Set("endtime", q.EndTime.UTC().Format(TimeFormat))
	}
	if q.Network != "" {
		values.Set("network", q.Network)
	}
	if q.Station != "" {
		values.Set("station", q.Station)
	}
	if q.Location != "" {
		values.Set("location", q.Location)
	}
	if q.Channel != "" {
		values.Set("channel", q.Channel)
	}

	if r := q.Radius; r != nil {
		values.Set("latitude", formatFloat(r.Latitude))
		values.Set("longitude", formatFloat(r.Longitude))
		if r.MinRadius != nil {
			values.Set("minradius", formatFloat(*r.MinRadius))
		}
		values.Set("maxradius", formatFloat(r.MaxRadius))
	}

	level := q.Level
	if level == "" {
		level = LevelChannel
	}
	values.Set("level", string(level))
	values.Set("format", "xml")

	return values
}

// StationURL returns the full request URL for q.
func (c *Client) StationURL(q StationQuery) string {
	u := c.baseURL.JoinPath(stationQueryPath)
	u.RawQuery = q.Values().Encode()
	return u.String()
}

// GetStations issues a single fdsnws-station request and decodes the
// StationXML answer. ErrNoData is returned when nothing matched.
func (c *Client) GetStations(ctx context.Context, q StationQuery) (*stationxml.Inventory, error) {
	if !q.StartTime.IsZero() && !q.EndTime.IsZero() && q.EndTime.Before(q.StartTime) {
		return nil, fmt.Errorf("end time %s is before start time %s",
			q.EndTime.Format(TimeFormat), q.StartTime.Format(TimeFormat))
	}

	u := c.StationURL(q)

	resp, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		inv, err := stationxml.Read(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error decoding response from %s: %w", u, err)
		}
		return inv, nil
	case http.StatusNoContent:
		return nil, ErrNoData
	default:
		return nil, newAPIError(resp, u)
	}
}

func newAPIError(resp *http.Response, u string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, URL: u}
	if err != nil {
		return apiErr
	}
	// FDSN error documents are multi-line plain text.
	apiErr.Detail = strings.Join(strings.Fields(string(body)), " ")
	return apiErr
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
