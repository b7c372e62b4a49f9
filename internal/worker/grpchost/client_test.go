// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package grpchost

import (
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"seedfast/credrelay/internal/worker"
)

func TestRequestStructShape(t *testing.T) {
	msg, err := requestStruct(worker.Request{
		Type:      worker.TypeProcess,
		Data:      map[string]any{"clientId": "id-1", "environment": "development"},
		RequestID: 7,
	})
	if err != nil {
		t.Fatalf("requestStruct() error = %v", err)
	}

	m := msg.AsMap()
	if m["type"] != "process" {
		t.Errorf("type = %v, want process", m["type"])
	}
	if m["requestId"] != float64(7) {
		t.Errorf("requestId = %v, want 7", m["requestId"])
	}
	data, ok := m["data"].(map[string]any)
	if !ok || data["clientId"] != "id-1" {
		t.Errorf("data = %v, want clientId id-1", m["data"])
	}
}

func TestRequestStructOmitsAbsentFields(t *testing.T) {
	msg, err := requestStruct(worker.Request{Type: worker.TypeInitialize})
	if err != nil {
		t.Fatalf("requestStruct() error = %v", err)
	}
	m := msg.AsMap()
	if _, present := m["requestId"]; present {
		t.Error("requestId present on an initialize envelope")
	}
	if _, present := m["data"]; present {
		t.Error("data present without payload")
	}
}

func TestResponseFromStruct(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{
		"type":      "error",
		"error":     "Temporary failure",
		"requestId": 7,
		"context":   map[string]any{"operation": "process"},
	})
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}

	resp := responseFromStruct(msg)
	if resp.Type != worker.TypeError || resp.Error != "Temporary failure" {
		t.Errorf("response = %+v, want the error envelope", resp)
	}
	if resp.RequestID != 7 || !resp.Correlated() {
		t.Errorf("RequestID = %d, want correlated id 7", resp.RequestID)
	}
	if resp.Context["operation"] != "process" {
		t.Errorf("Context = %v, want operation process", resp.Context)
	}
}

func TestResponseFromStructUncorrelated(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{
		"type":   "realtime-update",
		"result": map[string]any{"id": "u-1", "message": "working"},
	})
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}

	resp := responseFromStruct(msg)
	if resp.Type != worker.TypeRealtimeUpdate || resp.Correlated() {
		t.Errorf("response = %+v, want uncorrelated realtime-update", resp)
	}
	if resp.Result["id"] != "u-1" {
		t.Errorf("Result = %v, want id u-1", resp.Result)
	}
}
