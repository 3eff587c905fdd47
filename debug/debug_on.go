//go:build debug

package debug

// DEBUG enables internal assertions and bytecode dumps.
// Use -tags=debug in the Go build.
const DEBUG = true
