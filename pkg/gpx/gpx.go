// Package gpx renders coordinates into GPX 1.1 track files and reads them back.
//
// Rendering is side-effect free: a Document is built per call and only
// WriteFile touches storage.
package gpx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/LeoCommon/locsim/pkg/file"
	"github.com/LeoCommon/locsim/pkg/location"
)

const (
	Version        = "1.1"
	Namespace      = "http://www.topografix.com/GPX/1/1"
	DefaultCreator = "locsim"
)

var ErrNoPoints = errors.New("document contains no points")

// Document is the in-memory GPX tree
type Document struct {
	XMLName   xml.Name  `xml:"gpx"`
	Version   string    `xml:"version,attr"`
	Creator   string    `xml:"creator,attr"`
	Namespace string    `xml:"xmlns,attr,omitempty"`
	Metadata  *Metadata `xml:"metadata,omitempty"`
	Waypoints []Point   `xml:"wpt"`
	Tracks    []Track   `xml:"trk"`
}

type Metadata struct {
	Name string     `xml:"name,omitempty"`
	Time *time.Time `xml:"time,omitempty"`
}

// Point is used for both <wpt> and <trkpt> elements
type Point struct {
	Lat  Degrees `xml:"lat,attr"`
	Lon  Degrees `xml:"lon,attr"`
	Name string  `xml:"name,omitempty"`
}

// Degrees is written in plain decimal notation, GPX declares lat/lon as
// xsd:decimal which has no exponent form
type Degrees float64

func (d Degrees) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: strconv.FormatFloat(float64(d), 'f', -1, 64)}, nil
}

func (d *Degrees) UnmarshalXMLAttr(attr xml.Attr) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 64)
	if err != nil {
		return fmt.Errorf("attribute %s could not be interpreted as float64: %w", attr.Name.Local, err)
	}
	*d = Degrees(v)
	return nil
}

type Track struct {
	Name     string    `xml:"name,omitempty"`
	Segments []Segment `xml:"trkseg"`
}

type Segment struct {
	Points []Point `xml:"trkpt"`
}

type options struct {
	creator string
	name    string
	time    *time.Time
}

type Option func(*options)

// WithCreator overrides the creator attribute of the root element
func WithCreator(creator string) Option {
	return func(o *options) {
		o.creator = creator
	}
}

// WithName sets the metadata name and, for routes, the track name
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithTime adds a metadata timestamp. Without it the output only depends on
// the input coordinates.
func WithTime(t time.Time) Option {
	return func(o *options) {
		utc := t.UTC()
		o.time = &utc
	}
}

func newDocument(opts []Option) (*Document, options) {
	o := options{creator: DefaultCreator}
	for _, opt := range opts {
		opt(&o)
	}

	doc := &Document{
		Version:   Version,
		Creator:   o.creator,
		Namespace: Namespace,
	}

	if o.name != "" || o.time != nil {
		doc.Metadata = &Metadata{Name: o.name, Time: o.time}
	}

	return doc, o
}

func pointOf(c location.Coordinate, name string) Point {
	return Point{Lat: Degrees(c.Latitude), Lon: Degrees(c.Longitude), Name: name}
}

// RenderSinglePoint builds a document with exactly one named waypoint
func RenderSinglePoint(c location.Coordinate, name string, opts ...Option) (*Document, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	doc, _ := newDocument(opts)
	doc.Waypoints = []Point{pointOf(c, name)}
	return doc, nil
}

// RenderRoute builds a document with one <wpt> per named waypoint and one
// <trkpt> per waypoint inside a single track segment. Input order is kept,
// it is the playback order when the file is imported again.
func RenderRoute(wps []location.Waypoint, opts ...Option) (*Document, error) {
	if len(wps) == 0 {
		return nil, location.ErrEmptyRoute
	}

	// Validate everything before building anything
	if err := location.ValidateAll(location.Coordinates(wps)); err != nil {
		return nil, err
	}

	doc, o := newDocument(opts)

	seg := Segment{Points: make([]Point, 0, len(wps))}
	for _, wp := range wps {
		if wp.Name != "" {
			doc.Waypoints = append(doc.Waypoints, pointOf(wp.Coordinate, wp.Name))
		}
		seg.Points = append(seg.Points, pointOf(wp.Coordinate, ""))
	}

	doc.Tracks = []Track{{Name: o.name, Segments: []Segment{seg}}}
	return doc, nil
}

// Marshal serializes the document including the XML declaration
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("gpx encode: %w", err)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Parse reads a GPX document, unknown elements are ignored
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{}
	if err := xml.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("gpx decode: %w", err)
	}

	return doc, nil
}

// Points returns the playback sequence of the document: all track points in
// document order, or the waypoints if the document has no track.
// Every coordinate is validated.
func (d *Document) Points() ([]location.Coordinate, error) {
	var pts []Point
	for _, trk := range d.Tracks {
		for _, seg := range trk.Segments {
			pts = append(pts, seg.Points...)
		}
	}

	if len(pts) == 0 {
		pts = d.Waypoints
	}

	if len(pts) == 0 {
		return nil, ErrNoPoints
	}

	cs := make([]location.Coordinate, len(pts))
	for i, p := range pts {
		cs[i] = location.Coordinate{Latitude: float64(p.Lat), Longitude: float64(p.Lon)}
	}

	if err := location.ValidateAll(cs); err != nil {
		return nil, err
	}

	return cs, nil
}

// WriteFile marshals the document and writes it to path, creating parent
// directories as needed
func WriteFile(path string, d *Document) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	return file.WriteTo(path, string(data))
}

// ReadFile parses the GPX document stored at path
func ReadFile(path string) (*Document, error) {
	f, err := file.Open(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	return Parse(f)
}
