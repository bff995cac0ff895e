package cmd

import (
	"encoding/json"
	"testing"

	"github.com/batonworks/baton/internal/errors"
)

func TestEncodeStepOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json object passes through", `{"findings": 3}`, `{"findings": 3}`},
		{"json array passes through", `[1, 2]`, `[1, 2]`},
		{"plain text becomes a json string", "draft complete", `"draft complete"`},
		{"almost-json becomes a json string", `{"unterminated`, `"{\"unterminated"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(encodeStepOutput(tt.in))
			if got != tt.want {
				t.Errorf("encodeStepOutput(%q) = %s, want %s", tt.in, got, tt.want)
			}
			if !json.Valid([]byte(got)) {
				t.Errorf("encodeStepOutput(%q) produced invalid JSON", tt.in)
			}
		})
	}
}

func TestErrorEnvelopeKind(t *testing.T) {
	err := errors.NewValidationError("query is required").WithField("query")

	body := errorBody{
		Kind:    string(errors.KindOf(err)),
		Message: err.Error(),
	}
	if body.Kind != "validation" {
		t.Errorf("kind = %q, want validation", body.Kind)
	}

	data, mErr := json.Marshal(errorEnvelope{Error: body})
	if mErr != nil {
		t.Fatalf("marshal: %v", mErr)
	}
	var decoded struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Error.Kind != "validation" {
		t.Errorf("decoded kind = %q, want validation", decoded.Error.Kind)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"init", "next", "complete", "fail", "status", "list",
		"resume", "pause", "abort", "delete", "checkpoints",
		"rollback", "clean", "daemon", "logs",
	}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q is not registered", name)
		}
	}
}
