package protocol

import (
	"errors"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	req := BuildRequest{
		RecipePath: "/etc/kilnd/app.yaml",
		Resource:   "app",
		Output:     "/var/lib/kilnd/out",
		Root:       "/srv/app",
		Platforms:  []string{"linux/amd64"},
		Verify:     true,
	}

	data, err := Encode(CmdBuild, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env, raw, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Command != CmdBuild {
		t.Errorf("command = %q, want %q", env.Command, CmdBuild)
	}

	decoded, err := DecodePayload[BuildRequest](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.RecipePath != req.RecipePath {
		t.Errorf("recipe path = %q, want %q", decoded.RecipePath, req.RecipePath)
	}
	if decoded.Resource != req.Resource {
		t.Errorf("resource = %q, want %q", decoded.Resource, req.Resource)
	}
	if !decoded.Verify {
		t.Error("verify flag lost in transit")
	}
	if len(decoded.Platforms) != 1 || decoded.Platforms[0] != "linux/amd64" {
		t.Errorf("platforms = %v, want [linux/amd64]", decoded.Platforms)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	data, err := Encode(CmdStatus, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env, raw, err := Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Command != CmdStatus {
		t.Errorf("command = %q, want %q", env.Command, CmdStatus)
	}
	if len(raw) != 0 {
		t.Errorf("payload = %q, want empty", raw)
	}
}

func TestDecodeInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"garbage", "not json"},
		{"missing command", `{"payload":{}}`},
		{"empty object", `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tc.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	res, err := DecodePayload[StatusResult](nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Running {
		t.Error("expected zero value for empty payload")
	}
}

func TestDecodePayloadInvalid(t *testing.T) {
	_, err := DecodePayload[BuildRequest]([]byte(`{"recipe_path":5}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode", err)
	}
}
