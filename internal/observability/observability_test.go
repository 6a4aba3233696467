package observability_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channelbox/internal/mocks"
	"channelbox/internal/observability"
)

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/groups/room1", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", observability.IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", observability.IPFromRequest(req))
}

func TestBuildHeaders(t *testing.T) {
	assert.Empty(t, observability.BuildHeaders("", ""))
	assert.Equal(t, map[string]string{"x-request-id": "r", "trace_id": "t"}, observability.BuildHeaders("r", "t"))
}

func TestPublishEvent(t *testing.T) {
	t.Cleanup(func() { observability.SetPublisher(nil) })

	require.NoError(t, observability.PublishEvent(context.Background(), "k", "v", nil))

	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, observability.WSEventsRoutingKey, mock.Anything, mock.Anything).
		Return(errors.New("nack")).Once()
	observability.SetPublisher(publisher)

	err := observability.PublishEvent(context.Background(), observability.WSEventsRoutingKey, observability.EventEnvelope{EventName: "ws_connect"}, nil)
	require.Error(t, err)
	publisher.AssertExpectations(t)
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := observability.SetupTracing(context.Background(), "", "channelbox", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
