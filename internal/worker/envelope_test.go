// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"encoding/json"
	"testing"
)

func TestRequestWireShape(t *testing.T) {
	data, err := json.Marshal(Request{
		Type:      TypeProcess,
		Data:      map[string]any{"clientId": "id-1"},
		RequestID: 7,
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"type":"process","data":{"clientId":"id-1"},"requestId":7}`
	if string(data) != want {
		t.Errorf("request JSON = %s, want %s", data, want)
	}

	// initialize carries neither data nor id
	data, err = json.Marshal(Request{Type: TypeInitialize})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"type":"initialize"}` {
		t.Errorf("initialize JSON = %s, want bare type", data)
	}
}

func TestResponseWireShape(t *testing.T) {
	var resp Response
	raw := `{"type":"error","error":"Temporary failure","requestId":7,"context":{"operation":"process"}}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Type != TypeError || resp.Error != "Temporary failure" || resp.RequestID != 7 {
		t.Errorf("response = %+v", resp)
	}
	if !resp.Correlated() {
		t.Error("Correlated() = false for requestId 7")
	}

	var update Response
	if err := json.Unmarshal([]byte(`{"type":"realtime-update","result":{"id":"u-1"}}`), &update); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if update.Correlated() {
		t.Error("Correlated() = true for an uncorrelated update")
	}
}

func TestResultTypeMapping(t *testing.T) {
	tests := []struct {
		op   MessageType
		want MessageType
	}{
		{TypeProcess, TypeResult},
		{TypeCertifyToken, TypeCertifyResult},
		{TypeHealthCheck, TypeHealthResult},
		{TypeClearCache, TypeCacheCleared},
		{MessageType("bogus"), TypeError},
	}
	for _, tt := range tests {
		if got := ResultType(tt.op); got != tt.want {
			t.Errorf("ResultType(%s) = %s, want %s", tt.op, got, tt.want)
		}
	}
}
