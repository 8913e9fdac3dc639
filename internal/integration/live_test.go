package integration

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2beens/phonetracker/internal/tracking"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLiveTracking() {
	t := s.T()
	s.resetTrackLimit()
	browser := s.newBrowser()

	resp, err := browser.PostForm(s.serverEndpoint+"/track", url.Values{
		"phone_number":  {"+12025550172"},
		"live_tracking": {"true"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, s.readBody(resp), "/track/live")

	dialer := websocket.Dialer{
		Jar:              browser.Jar,
		HandshakeTimeout: 5 * time.Second,
	}
	wsURL := "ws" + strings.TrimPrefix(s.serverEndpoint, "http") + "/track/live"
	conn, _, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	for step := 1; step <= trackingSteps; step++ {
		var frame tracking.Frame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, step, frame.Step)
		assert.InDelta(t, 39.7837304, frame.Position.Lat, float64(step)*0.0005+1e-9)
		assert.InDelta(t, -100.445882, frame.Position.Lng, float64(step)*0.0005+1e-9)
	}

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
}
