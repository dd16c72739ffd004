package cli

import "errors"

var (
	ErrDaemonUnreachable = errors.New("cannot reach daemon")
	ErrCommandFailed     = errors.New("command failed")
	ErrAuditFailed       = errors.New("image failed verification")
)
