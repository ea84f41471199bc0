package bridge_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/JaimeStill/agrogestion/pkg/bridge"
)

func TestEnvelopeMarshal(t *testing.T) {
	tests := []struct {
		name string
		env  any
		want string
	}{
		{"success", bridge.Ok(map[string]bool{"exists": true}), `{"success":true,"data":{"exists":true}}`},
		{"failure", bridge.Fail[int]("Report not found"), `{"success":false,"error":"Report not found"}`},
		{"success with nil data", bridge.Ok[*int](nil), `{"success":true,"data":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.env)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestEnvelopeResult(t *testing.T) {
	if v, err := bridge.Ok(42).Result(); err != nil || v != 42 {
		t.Errorf("Ok.Result() = %v, %v", v, err)
	}

	_, err := bridge.Fail[int]("container missing").Result()
	var remote *bridge.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Fail.Result() error = %T, want *RemoteError", err)
	}
	if remote.Error() != "container missing" {
		t.Errorf("message: got %q", remote.Error())
	}

	_, err = bridge.Fail[int]("").Result()
	if err == nil || err.Error() != "remote operation failed" {
		t.Errorf("empty failure message: got %v", err)
	}
}

func TestDecode(t *testing.T) {
	var raw bridge.Envelope[json.RawMessage]
	if err := json.Unmarshal([]byte(`{"success":true,"data":{"id":"doc-123","size":4}}`), &raw); err != nil {
		t.Fatal(err)
	}

	env, err := bridge.Decode[echoArgs](raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !env.Success || env.Data.ID != "doc-123" {
		t.Errorf("decoded: got %+v", env)
	}

	failed, err := bridge.Decode[echoArgs](bridge.Fail[json.RawMessage]("nope"))
	if err != nil || failed.Success || failed.Error != "nope" {
		t.Errorf("failed decode: got %+v, %v", failed, err)
	}

	bad := bridge.Ok(json.RawMessage(`"not an object"`))
	if _, err := bridge.Decode[echoArgs](bad); err == nil {
		t.Error("expected decode error for mismatched data")
	}
}

func TestByteSequence(t *testing.T) {
	seq := bridge.ByteSequence{37, 80, 68, 70, 0, 255}

	data, err := json.Marshal(seq)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[37,80,68,70,0,255]" {
		t.Errorf("marshal: got %s", data)
	}

	var back bridge.ByteSequence
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if string(back.Bytes()) != string(seq) {
		t.Errorf("round trip: got %v", back)
	}

	if data, _ := json.Marshal(bridge.ByteSequence{}); string(data) != "[]" {
		t.Errorf("empty: got %s", data)
	}

	var null bridge.ByteSequence = bridge.ByteSequence{1}
	if err := json.Unmarshal([]byte("null"), &null); err != nil || null != nil {
		t.Errorf("null: got %v, %v", null, err)
	}

	for _, bad := range []string{"[256]", "[-1]", `"JVBERg=="`} {
		var b bridge.ByteSequence
		if err := json.Unmarshal([]byte(bad), &b); err == nil {
			t.Errorf("Unmarshal(%s) expected error", bad)
		}
	}
}
