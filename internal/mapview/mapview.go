package mapview

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/2beens/phonetracker/internal/lookup"
)

const (
	StaticZoom   = 8
	TrackingZoom = 12
	Width        = 700
	Height       = 500

	trackingMarkerRadius = 10
	trackingMarkerColor  = "red"

	// DOM id of the map container; live frames redraw this same map
	ContainerID = "phone-map"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Marker struct {
	Position LatLng `json:"position"`
	Tooltip  string `json:"tooltip,omitempty"`
}

type CircleMarker struct {
	Position  LatLng `json:"position"`
	Radius    int    `json:"radius"`
	Color     string `json:"color"`
	Fill      bool   `json:"fill"`
	FillColor string `json:"fill_color"`
}

// Map is a leaflet map description; it is rendered to an HTML fragment for
// the page, or sent as JSON to redraw an already rendered map in place.
type Map struct {
	ContainerID string         `json:"container_id"`
	Center      LatLng         `json:"center"`
	Zoom        int            `json:"zoom"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Markers     []Marker       `json:"markers"`
	Circles     []CircleMarker `json:"circles"`
}

var fragmentTemplate = template.Must(template.New("map").Parse(
	`{{define "container"}}<div id="{{.ContainerID}}" class="map" style="width: {{.Width}}px; height: {{.Height}}px;"></div>
{{end}}{{template "container" .}}<script>renderMap({{.}});</script>
`))

// Static is the map of a lookup result: a single pin on the resolved location.
func Static(result *lookup.Result) (*Map, bool) {
	if !result.HasLocation() {
		return nil, false
	}

	center := LatLng{Lat: result.Location.Latitude, Lng: result.Location.Longitude}
	return &Map{
		ContainerID: ContainerID,
		Center:      center,
		Zoom:        StaticZoom,
		Width:       Width,
		Height:      Height,
		Markers: []Marker{
			{
				Position: center,
				Tooltip:  fmt.Sprintf("%s - %s", result.CountryOrUnknown(), result.CarrierOrUnknown()),
			},
		},
		Circles: []CircleMarker{},
	}, true
}

// Frame is one step of the simulated live tracking: a red circle at pos.
func Frame(pos LatLng) *Map {
	return &Map{
		ContainerID: ContainerID,
		Center:      pos,
		Zoom:        TrackingZoom,
		Width:       Width,
		Height:      Height,
		Markers:     []Marker{},
		Circles: []CircleMarker{
			{
				Position:  pos,
				Radius:    trackingMarkerRadius,
				Color:     trackingMarkerColor,
				Fill:      true,
				FillColor: trackingMarkerColor,
			},
		},
	}
}

func (m *Map) Render() (template.HTML, error) {
	return m.execute("map")
}

// RenderContainer renders only the sized map container, without drawing it.
func (m *Map) RenderContainer() (template.HTML, error) {
	return m.execute("container")
}

func (m *Map) execute(name string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := fragmentTemplate.ExecuteTemplate(&buf, name, m); err != nil {
		return "", fmt.Errorf("execute map template %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
