// Package stationxml provides types for the FDSN StationXML 1.x document
// returned by FDSN station web services.
//
// Only the fields needed to summarise channels are modelled. The document is
// decoded into a network → station → channel hierarchy whose order matches
// the source document, and the original bytes are kept so the inventory can
// be written back out without loss (including response stages, comments and
// any elements the model does not know about).
//
// Example usage:
//
//	inv, err := stationxml.Parse(body)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(inv.ChannelCount())
package stationxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Namespace is the XML namespace of StationXML 1.x documents.
const Namespace = "http://www.fdsn.org/xml/station/1"

// Inventory is the root FDSNStationXML element.
type Inventory struct {
	XMLName       xml.Name  `xml:"FDSNStationXML"`
	Xmlns         string    `xml:"xmlns,attr,omitempty"`
	SchemaVersion string    `xml:"schemaVersion,attr,omitempty"`
	Source        string    `xml:"Source"`
	Sender        string    `xml:"Sender,omitempty"`
	Module        string    `xml:"Module,omitempty"`
	ModuleURI     string    `xml:"ModuleURI,omitempty"`
	Created       string    `xml:"Created"`
	Networks      []Network `xml:"Network"`

	// Raw holds the document exactly as it was read. It is empty for
	// inventories built in code.
	Raw []byte `xml:"-"`
}

// Network groups stations operated under one network code.
type Network struct {
	Code        string    `xml:"code,attr"`
	StartDate   string    `xml:"startDate,attr,omitempty"`
	EndDate     string    `xml:"endDate,attr,omitempty"`
	Description string    `xml:"Description,omitempty"`
	Stations    []Station `xml:"Station"`
}

// Station is a single site within a network.
type Station struct {
	Code      string    `xml:"code,attr"`
	StartDate string    `xml:"startDate,attr,omitempty"`
	EndDate   string    `xml:"endDate,attr,omitempty"`
	Latitude  float64   `xml:"Latitude"`
	Longitude float64   `xml:"Longitude"`
	Elevation float64   `xml:"Elevation"`
	Site      Site      `xml:"Site"`
	Channels  []Channel `xml:"Channel"`
}

// Site describes where a station is installed.
type Site struct {
	Name string `xml:"Name"`
}

// Channel describes one sensor component. Azimuth, Dip and SampleRate are
// optional in StationXML and are nil when absent.
type Channel struct {
	Code         string    `xml:"code,attr"`
	LocationCode string    `xml:"locationCode,attr"`
	StartDate    string    `xml:"startDate,attr,omitempty"`
	EndDate      string    `xml:"endDate,attr,omitempty"`
	Latitude     float64   `xml:"Latitude"`
	Longitude    float64   `xml:"Longitude"`
	Elevation    float64   `xml:"Elevation"`
	Depth        float64   `xml:"Depth"`
	Azimuth      *float64  `xml:"Azimuth,omitempty"`
	Dip          *float64  `xml:"Dip,omitempty"`
	SampleRate   *float64  `xml:"SampleRate,omitempty"`
	Sensor       *Sensor   `xml:"Sensor,omitempty"`
	Response     *Response `xml:"Response,omitempty"`
}

// Sensor is the equipment description attached to a channel.
type Sensor struct {
	Type         string `xml:"Type,omitempty"`
	Description  string `xml:"Description,omitempty"`
	Manufacturer string `xml:"Manufacturer,omitempty"`
	Model        string `xml:"Model,omitempty"`
}

// Response keeps the instrument response element verbatim. It is only
// present when the inventory was requested at response level.
type Response struct {
	InnerXML string `xml:",innerxml"`
}

// SensorDescription returns the channel's sensor description, or "" when the
// channel has no sensor element.
func (c Channel) SensorDescription() string {
	if c.Sensor == nil {
		return ""
	}
	return c.Sensor.Description
}

// Parse decodes a StationXML document and keeps a copy of the input bytes.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := xml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("decode stationxml: %w", err)
	}
	inv.Raw = bytes.Clone(data)
	return &inv, nil
}

// Read decodes a StationXML document from r.
func Read(r io.Reader) (*Inventory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stationxml: %w", err)
	}
	return Parse(data)
}

// ChannelCount returns the number of channels across all networks and
// stations.
func (inv *Inventory) ChannelCount() int {
	if inv == nil {
		return 0
	}
	var n int
	for _, net := range inv.Networks {
		for _, sta := range net.Stations {
			n += len(sta.Channels)
		}
	}
	return n
}

// WriteTo writes the inventory as StationXML. The original document is
// written unchanged when available; otherwise the model is encoded.
func (inv *Inventory) WriteTo(w io.Writer) (int64, error) {
	data := inv.Raw
	if len(data) == 0 {
		var err error
		data, err = inv.encode()
		if err != nil {
			return 0, err
		}
	}
	n, err := w.Write(data)
	return int64(n), err
}

// WriteFile writes the inventory to path, replacing any existing file.
func (inv *Inventory) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if _, err := inv.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (inv *Inventory) encode() ([]byte, error) {
	doc := *inv
	if doc.Xmlns == "" {
		doc.Xmlns = Namespace
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode stationxml: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
