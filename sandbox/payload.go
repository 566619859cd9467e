package sandbox

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PayloadEnv is the environment variable carrying the encoded run from the
// launcher to the child stub. Its presence is what ChildInit keys on.
const PayloadEnv = "SAFERUN_CHILD_PAYLOAD"

// InstallFailedExit is the stub's exit code when enforcement cannot be
// installed. It sits below the 128+signal band; the launcher maps it to a
// policy-installation failure. The target never runs in that case.
const InstallFailedExit = 125

// StubErrorPrefix marks stderr lines written by the stub itself. The
// launcher requires it alongside InstallFailedExit before classifying an
// exit as an installation failure, so a target that happens to exit 125 is
// reported as an ordinary exit.
const StubErrorPrefix = "saferun: "

// Payload is the run handed to the child stub: the sanitized target plus
// the enforcement spec to install before exec.
type Payload struct {
	Program    string   `json:"program"`
	Argv       []string `json:"argv,omitempty"`
	Env        []string `json:"env,omitempty"`
	WorkingDir string   `json:"working_dir,omitempty"`
	Spec       Spec     `json:"spec"`
}

// EncodePayload serializes a payload for transport in an environment
// variable.
func EncodePayload(p *Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding child payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePayload is the inverse of EncodePayload.
func DecodePayload(s string) (*Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding child payload: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding child payload: %w", err)
	}
	if p.Program == "" {
		return nil, fmt.Errorf("child payload has no program")
	}
	return &p, nil
}
