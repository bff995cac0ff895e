package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/batonworks/baton/internal/daemon"
	"github.com/batonworks/baton/internal/errors"
)

// emit prints v as an indented JSON object on stdout. Commands emit
// exactly one object per invocation so output is script-friendly.
func emit(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	fmt.Println(string(data))
	return nil
}

// emitRaw re-indents an already-encoded JSON value and prints it.
func emitRaw(raw json.RawMessage) error {
	if len(raw) == 0 {
		return emit(map[string]string{"status": "ok"})
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return errors.Wrap(err, "daemon returned malformed result")
	}
	fmt.Println(buf.String())
	return nil
}

// errorEnvelope is the stderr shape of a failed command.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeErrorEnvelope prints err as a JSON envelope on stderr.
func writeErrorEnvelope(err error) {
	body := errorBody{
		Kind:    string(errors.KindOf(err)),
		Message: err.Error(),
	}
	// Daemon-reported errors already carry their kind on the wire.
	var remote *daemon.RemoteError
	if errors.As(err, &remote) {
		body.Kind = remote.Kind()
	}

	data, mErr := json.MarshalIndent(errorEnvelope{Error: body}, "", "  ")
	if mErr != nil {
		fmt.Fprintf(os.Stderr, `{"error":{"kind":"internal","message":%q}}`+"\n", err.Error())
		return
	}
	fmt.Fprintln(os.Stderr, string(data))
}
