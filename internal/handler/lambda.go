package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// HandleAPIGateway adapts Handle to the API Gateway proxy integration.
func (h *Handler) HandleAPIGateway(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.Handle(ctx, Request{
		Body:            event.Body,
		IsBase64Encoded: event.IsBase64Encoded,
		RequestID:       event.RequestContext.RequestID,
	})

	return events.APIGatewayProxyResponse{
		StatusCode:      resp.StatusCode,
		Headers:         map[string]string{"Content-Type": "application/json"},
		Body:            resp.Body,
		IsBase64Encoded: resp.IsBase64Encoded,
	}, nil
}
