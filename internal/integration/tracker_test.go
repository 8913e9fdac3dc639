package integration

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/2beens/phonetracker/internal/lookup"
	"github.com/2beens/phonetracker/internal/tracker"

	"github.com/go-redis/redis_rate/v9"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) resetTrackLimit() {
	// requests from 127.0.0.1 are all keyed as localhost
	err := redis_rate.NewLimiter(s.redisClient).Reset(context.Background(), "track:localhost")
	require.NoError(s.T(), err)
}

func (s *IntegrationTestSuite) readBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return string(body)
}

func (s *IntegrationTestSuite) TestTrackFlow() {
	t := s.T()
	s.resetTrackLimit()
	browser := s.newBrowser()

	resp, err := browser.Get(s.serverEndpoint + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, s.readBody(resp), `id="phone-map"`)

	resp, err = browser.PostForm(s.serverEndpoint+"/track", url.Values{
		"phone_number": {"+12025550172"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := s.readBody(resp)
	assert.Contains(t, page, tracker.MsgSuccess)
	assert.Contains(t, page, `id="phone-map"`)
	assert.Contains(t, page, "39.7837304")

	resp, err = browser.Get(s.serverEndpoint + "/api/result")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res lookup.Result
	require.NoError(t, jsoniter.UnmarshalFromString(s.readBody(resp), &res))
	assert.Equal(t, "+12025550172", res.PhoneNumber)
	require.NotNil(t, res.Location)
	assert.Equal(t, 39.7837304, res.Location.Latitude)

	resp, err = browser.PostForm(s.serverEndpoint+"/track", url.Values{
		"phone_number": {"notanumber"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, s.readBody(resp), "Error parsing number: ")

	resp, err = browser.Get(s.serverEndpoint + "/api/result")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = s.readBody(resp)
}

func (s *IntegrationTestSuite) TestTrackRateLimited() {
	t := s.T()
	s.resetTrackLimit()
	defer s.resetTrackLimit()
	browser := s.newBrowser()

	statuses := map[int]int{}
	for i := 0; i < trackLimitPerMin+1; i++ {
		resp, err := browser.Post(
			s.serverEndpoint+"/api/track",
			"application/json",
			strings.NewReader(`{"phone_number": "+12025550172"}`),
		)
		require.NoError(t, err)
		_ = s.readBody(resp)
		statuses[resp.StatusCode]++
	}

	assert.Equal(t, trackLimitPerMin, statuses[http.StatusOK])
	assert.Equal(t, 1, statuses[http.StatusTooManyRequests])

	// reading the result is never limited
	resp, err := browser.Get(s.serverEndpoint + "/api/result")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = s.readBody(resp)
}

func (s *IntegrationTestSuite) TestHealthAndMetrics() {
	t := s.T()

	resp, err := http.Get(s.serverEndpoint + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, s.readBody(resp), `"redis":"ok"`)

	resp, err = http.Get(s.serverEndpoint + "/version")
	require.NoError(t, err)
	assert.Equal(t, "test-version-info", s.readBody(resp))

	resp, err = http.Get(s.metricsEndpoint)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	metricsPage := s.readBody(resp)
	assert.Contains(t, metricsPage, "phonetracker_main_life_signal 1")
	assert.Contains(t, metricsPage, "phonetracker_main_request")
}
