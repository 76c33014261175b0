package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/zombor/receipt-processor/internal/receipt"
	"github.com/zombor/receipt-processor/internal/scanning"
)

type processor interface {
	ProcessDocument(ctx context.Context, ref scanning.DocumentRef) receipt.Result
}

// Response is returned to the Lambda runtime for every invocation
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type handler struct {
	service processor
}

func newHandler(service processor) *handler {
	return &handler{service: service}
}

// Handle processes the first record of an S3 event. A notification failure
// still reports success since the receipt was stored.
func (h *handler) Handle(ctx context.Context, evt events.S3Event) (Response, error) {
	ref, err := scanning.RefFromS3Event(evt)
	if err != nil {
		slog.Error("Error processing receipt", "error", err)
		return errorResponse(err), nil
	}

	result := h.service.ProcessDocument(ctx, ref)
	if !result.Succeeded() {
		return errorResponse(result.Err), nil
	}
	return jsonResponse(http.StatusOK, "Receipt processed successfully"), nil
}

func errorResponse(err error) Response {
	return jsonResponse(http.StatusInternalServerError, fmt.Sprintf("Error processing receipt: %v", err))
}

func jsonResponse(code int, message string) Response {
	body, err := json.Marshal(message)
	if err != nil {
		body = []byte(`""`)
	}
	return Response{StatusCode: code, Body: string(body)}
}
