package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrack/patchhub/common/config"
	"github.com/buildtrack/patchhub/common/logger"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
	auth   string
}

func newTestJenkins(t *testing.T, status int) (*JenkinsClient, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			body:   string(body),
			auth:   r.Header.Get("Authorization"),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	client, err := NewJenkinsClient(config.JenkinsConfig{
		URL:   server.URL,
		User:  "builder",
		Token: "secret",
	}, logger.New("error", "text"))
	require.NoError(t, err)

	return client, &requests
}

func TestCreateJob(t *testing.T) {
	client, requests := newTestJenkins(t, http.StatusOK)

	status, err := client.CreateJob(context.Background(), "ACME-5.3.3.2-SP3", "<project/>")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/createItem", req.path)
	assert.Equal(t, "name=ACME-5.3.3.2-SP3", req.query)
	assert.Equal(t, "<project/>", req.body)
	assert.NotEmpty(t, req.auth, "basic auth must be sent when a user is configured")
}

func TestRunJob(t *testing.T) {
	client, requests := newTestJenkins(t, http.StatusCreated)

	status, err := client.RunJob(context.Background(), "ACME-5.3.3.2-SP3")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "/job/ACME-5.3.3.2-SP3/build", (*requests)[0].path)
}

func TestDeleteJobReturnsStatusNotError(t *testing.T) {
	client, requests := newTestJenkins(t, http.StatusNotFound)

	status, err := client.DeleteJob(context.Background(), "GONE-JOB")
	require.NoError(t, err, "HTTP status codes are answers, not errors")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "/job/GONE-JOB/doDelete", (*requests)[0].path)
}

func TestRequestFailure(t *testing.T) {
	client, err := NewJenkinsClient(config.JenkinsConfig{
		URL: "http://127.0.0.1:1",
	}, logger.New("error", "text"))
	require.NoError(t, err)

	_, err = client.RunJob(context.Background(), "ANY")
	require.Error(t, err)
}
