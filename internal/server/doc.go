// Package server implements the kilnd daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from the kilnd CLI. Each connection carries a single request-response
// exchange: the client sends a newline-delimited JSON envelope, the
// server dispatches the command, and writes the result back before
// closing the connection.
//
// Supported commands are building recipes, auditing exported archives,
// querying daemon status, and initiating shutdown. Build commands are
// delegated to the build package, which in turn uses the runtime package
// for container operations against containerd. Every build is recorded
// in the ledger with the digest of the recipe it ran from and the digest
// of the archive it produced.
//
// Example usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
