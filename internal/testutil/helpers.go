// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"os"
	"testing"

	"grimm.is/rulestage/internal/brand"
)

// RouterEnv names the variable pointing live tests at a real router API.
var RouterEnv = brand.ConfigEnvPrefix + "_TEST_ROUTER"

// RequireRouter skips the test unless RULESTAGE_TEST_ROUTER is set and
// returns its value. Live tests only read; they never create or delete.
func RequireRouter(t *testing.T) string {
	t.Helper()
	url := os.Getenv(RouterEnv)
	if url == "" {
		t.Skipf("Skipping test: requires %s", RouterEnv)
	}
	return url
}
