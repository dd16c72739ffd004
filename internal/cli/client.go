package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/emberhq/kilnd/internal/paths"
	"github.com/emberhq/kilnd/internal/protocol"
)

// Returns the socket path to dial, honoring the --socket override.
func socketPath() string {
	if RootCmd.Socket != "" {
		return RootCmd.Socket
	}
	return paths.Socket()
}

// Performs a single request-response exchange with the daemon.
//
// One connection carries exactly one exchange: the request is written as a
// newline-delimited JSON envelope and the connection is read until the
// response line arrives.
func roundTrip(socket string, cmd protocol.Command, payload any) (protocol.Envelope, json.RawMessage, error) {
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: is the daemon running? %w", ErrDaemonUnreachable, err)
	}
	defer conn.Close()

	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		return protocol.Envelope{}, nil, err
	}
	data = append(data, byte(10))

	if _, err := conn.Write(data); err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: %w", ErrDaemonUnreachable, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes(byte(10))
	if err != nil {
		return protocol.Envelope{}, nil, fmt.Errorf("%w: %w", ErrDaemonUnreachable, err)
	}

	return decodeResponse(line)
}

// Decodes a response line, converting daemon-side errors into client errors.
func decodeResponse(line []byte) (protocol.Envelope, json.RawMessage, error) {
	env, raw, err := protocol.Decode(line)
	if err != nil {
		return protocol.Envelope{}, nil, err
	}

	if env.Command == protocol.CmdError {
		res, err := protocol.DecodePayload[protocol.ErrorResult](raw)
		if err != nil {
			return protocol.Envelope{}, nil, err
		}
		return protocol.Envelope{}, nil, fmt.Errorf("%w: %s", ErrCommandFailed, res.Message)
	}

	return env, raw, nil
}

// Sends a command and decodes the expected OK payload into T.
func call[T any](cmd protocol.Command, payload any) (*T, error) {
	env, raw, err := roundTrip(socketPath(), cmd, payload)
	if err != nil {
		return nil, err
	}
	if env.Command != protocol.CmdOK {
		return nil, fmt.Errorf("%w: unexpected response %q", ErrCommandFailed, env.Command)
	}
	return protocol.DecodePayload[T](raw)
}
