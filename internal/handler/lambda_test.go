package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/skserve/internal/model"
	"github.com/ekisa-team/skserve/internal/model/modeltest"
)

func TestHandleAPIGateway(t *testing.T) {
	var logs bytes.Buffer
	h := New(
		model.NewCache(&modeltest.FakeLoader{Model: modeltest.NewFakeModel("0", "1")}),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
	)

	event := events.APIGatewayProxyRequest{
		Body: `{"input": [[0, 0]]}`,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "c6af9ac6-7b61-11e6-9a41-93e8deadbeef",
		},
	}

	resp, err := h.HandleAPIGateway(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"prediction":[0]}`, resp.Body)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.False(t, resp.IsBase64Encoded)
	assert.Contains(t, logs.String(), "c6af9ac6-7b61-11e6-9a41-93e8deadbeef")
}

func TestHandleAPIGateway_Base64Body(t *testing.T) {
	h := New(model.NewCache(&modeltest.FakeLoader{Model: modeltest.NewFakeModel("0")}))

	resp, err := h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"input": [[1]]}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
}

func TestHandleAPIGateway_ErrorsAreResponses(t *testing.T) {
	h := New(model.NewCache(&modeltest.FakeLoader{Model: modeltest.NewFakeModel("0")}))

	resp, err := h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{Body: `{"bad": "request"}`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleAPIGateway_InvalidBase64Body(t *testing.T) {
	h := New(model.NewCache(&modeltest.FakeLoader{Model: modeltest.NewFakeModel("0")}))

	resp, err := h.HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		Body:            "eyJpbnB1dCI6IFtbMV1dfQ=!",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body, "invalid base64 body")
}
