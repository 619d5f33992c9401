// Package buildinfo exposes build-time information injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/sessbox-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When a value is not injected it falls back to what the Go toolchain
// embedded in the binary (module version, VCS revision and time).
package buildinfo
