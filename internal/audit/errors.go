package audit

import "errors"

var (
	ErrAudit         = errors.New("audit failed")
	ErrMalformedOCI  = errors.New("malformed image archive")
	ErrNoExportStage = errors.New("recipe has no exported stage")
)
