package tracker

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/2beens/phonetracker/internal/lookup"
	"github.com/2beens/phonetracker/internal/mapview"

	"github.com/dustin/go-humanize"
)

const (
	MsgSuccess          = "Number details found!"
	MsgLocationNotFound = "Could not find geographical location for this number."
)

//go:embed templates/page.html
var pageTemplateSrc string

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateSrc))

type bannerKind string

const (
	bannerSuccess bannerKind = "success"
	bannerError   bannerKind = "error"
)

type banner struct {
	Kind bannerKind
	Text string
}

type pageData struct {
	Input           string
	LiveChecked     bool
	LiveTracking    bool
	Banner          *banner
	Result          *lookup.Result
	LocationWarning string
	Map             template.HTML
	LookedUpAgo     string
}

func newPageData(input string, liveTracking bool, b *banner, result *lookup.Result) (*pageData, error) {
	data := &pageData{
		Input:       input,
		LiveChecked: liveTracking,
		Banner:      b,
		Result:      result,
	}
	if result == nil {
		return data, nil
	}

	data.LookedUpAgo = humanize.Time(result.LookedUpAt)

	m, ok := mapview.Static(result)
	if !ok {
		data.LocationWarning = MsgLocationNotFound
		return data, nil
	}

	// live frames draw into an empty container
	render := m.Render
	if liveTracking {
		render = m.RenderContainer
	}
	mapHTML, err := render()
	if err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}
	data.Map = mapHTML
	data.LiveTracking = liveTracking

	return data, nil
}

func renderPage(data *pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute page template: %w", err)
	}
	return buf.Bytes(), nil
}
