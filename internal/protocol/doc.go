// Package protocol defines the wire format between the CLI and the daemon.
//
// Messages are newline-delimited JSON envelopes carrying a command
// discriminator and a command-specific payload. Each connection holds a
// single request-response exchange. The payload stays raw until the
// command has been dispatched, then is decoded into its typed request or
// result.
package protocol
