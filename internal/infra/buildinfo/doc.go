// Package buildinfo exposes the version of the running binary.
//
// Release builds set the values through ldflags:
//
//	go build -ldflags "-X github.com/testwebinoue-debug/sept3/internal/infra/buildinfo.Version=v1.2.0"
//
// Values left unset fall back to what the Go toolchain recorded in the
// binary (module version, VCS revision and time).
package buildinfo
