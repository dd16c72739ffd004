package build

import "errors"

var (
	ErrBuild               = errors.New("build failed")
	ErrFileSystemOperation = errors.New("file system operation failed")
	ErrCopy                = errors.New("copy failed")
	ErrCommandFailed       = errors.New("command failed")
	ErrLock                = errors.New("build lock unavailable")
	ErrBaseDigest          = errors.New("base archive digest mismatch")
)
