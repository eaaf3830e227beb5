//go:build !linux || !cgo

// Command fbpreload has no meaning outside a cgo-enabled Linux build:
// LD_PRELOAD, dlsym(RTLD_NEXT, ...), and /proc/self/maps are all
// Linux/glibc-specific. This stub keeps `go build ./...` working
// elsewhere without shipping a library that would panic on load anyway.
package main

func main() {}
