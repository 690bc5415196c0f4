package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain runs before all tests in the config package.
// Config tests mutate process environment, so they refuse to run against production settings.
func TestMain(m *testing.M) {
	env := os.Getenv("GO_ENV")
	if env == "production" {
		fmt.Fprintf(os.Stderr, "\nSAFETY CHECK FAILED: refusing to run config tests with GO_ENV=%q\n"+
			"Run them with GO_ENV=test go test ./...\n\n", env)
		os.Exit(1)
	}
	if env == "" {
		os.Setenv("GO_ENV", "test")
	}

	os.Exit(m.Run())
}
