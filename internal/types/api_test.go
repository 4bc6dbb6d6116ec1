package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

// TestRequestJSONFieldNames verifies the wire names clients depend on.
func TestRequestJSONFieldNames(t *testing.T) {
	req := Request{
		Cmd:                    CmdScrollTo,
		Session:                "s1",
		Selector:               "#list",
		X:                      floatPtr(0),
		Y:                      floatPtr(100),
		Duration:               floatPtr(600),
		Easing:                 &Easing{Name: "ease-out"},
		InterruptOnPointerDown: new(bool),
		Wait:                   true,
		MaxTimeout:             5000,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	jsonStr := string(data)

	for _, field := range []string{
		`"cmd"`, `"session"`, `"selector"`, `"x"`, `"y"`, `"duration"`,
		`"easing":"ease-out"`, `"interruptOnPointerDown"`, `"wait"`, `"maxTimeout"`,
	} {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("Expected field %s not found in JSON: %s", field, jsonStr)
		}
	}
	if strings.Contains(jsonStr, `"dx"`) {
		t.Errorf("Unexpected dx field in JSON: %s", jsonStr)
	}
}

func TestEasingUnmarshal(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantName   string
		wantPoints int
		wantErr    bool
	}{
		{"keyword", `"ease-in"`, "ease-in", 0, false},
		{"points", `[0.1, 0.2, 0.3, 0.4]`, "", 4, false},
		{"short points decode", `[0.1]`, "", 1, false},
		{"object rejected", `{"name":"ease"}`, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Easing
			err := json.Unmarshal([]byte(tt.input), &e)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if e.Name != tt.wantName || len(e.Points) != tt.wantPoints {
				t.Errorf("Got %+v, want name %q with %d points", e, tt.wantName, tt.wantPoints)
			}
		})
	}
}

func TestEasingMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(Easing{Points: []float64{0, 0, 0.58, 1}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != "[0,0,0.58,1]" {
		t.Errorf("Expected point array, got %s", data)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"missing cmd", Request{}, "cmd is required"},
		{"unknown cmd", Request{Cmd: "request.get"}, "Unknown command"},
		{"valid list", Request{Cmd: CmdSessionsList}, ""},
		{"valid create", Request{Cmd: CmdSessionsCreate, URL: "https://example.com"}, ""},
		{"bad scheme", Request{Cmd: CmdSessionsCreate, URL: "file:///etc/passwd"}, "url scheme"},
		{"valid scroll", Request{Cmd: CmdScrollTo, Session: "s", Y: floatPtr(10)}, ""},
		{"dx on scroll.to", Request{Cmd: CmdScrollTo, Session: "s", DX: floatPtr(10)}, "dx/dy"},
		{"x on scroll.by", Request{Cmd: CmdScrollBy, Session: "s", X: floatPtr(10)}, "x/y"},
		{"huge coordinate", Request{Cmd: CmdScrollTo, Session: "s", Y: floatPtr(1e12)}, "finite number"},
		{"negative duration", Request{Cmd: CmdScrollTo, Session: "s", Duration: floatPtr(-1)}, "duration cannot be negative"},
		{"long duration", Request{Cmd: CmdScrollTo, Session: "s", Duration: floatPtr(MaxDurationMs + 1)}, "duration exceeds"},
		{"negative timeout", Request{Cmd: CmdScrollTo, Session: "s", MaxTimeout: -1}, "maxTimeout cannot be negative"},
		{"long selector", Request{Cmd: CmdScrollTo, Session: "s", Selector: strings.Repeat("a", MaxSelectorLength+1)}, "selector exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScrollResultNullInterruption(t *testing.T) {
	data, err := json.Marshal(ScrollResult{Distance: 1000})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"interruptedBy":null`) {
		t.Errorf("Expected interruptedBy null, got %s", data)
	}
}

func TestContainerErrorUnwrap(t *testing.T) {
	err := NewContainerNotFoundError("#missing")
	if !errors.Is(err, ErrContainerNotFound) {
		t.Error("Expected ContainerError to unwrap to ErrContainerNotFound")
	}
	if !strings.Contains(err.Error(), "#missing") {
		t.Errorf("Expected selector in message, got %q", err.Error())
	}
}

func TestPoolErrorUnwrap(t *testing.T) {
	err := NewPoolAcquireError("timeout", ErrBrowserPoolTimeout)
	if !errors.Is(err, ErrBrowserPoolTimeout) {
		t.Error("Expected PoolError to unwrap to ErrBrowserPoolTimeout")
	}
}
