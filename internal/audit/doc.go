// Package audit statically verifies an exported image archive against the
// recipe that produced it.
//
// The archive is unpacked and inspected without starting a container. The
// checks cover the runtime contract of the image: no build tooling in the
// filesystem, pruned patterns absent, the recipe's PATH prefix ahead of the
// system default, and an entrypoint that binds all interfaces on the
// declared port.
package audit
