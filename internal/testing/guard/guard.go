// Package guard switches test mode on for packages that cannot import the
// root testing helpers without an import cycle, such as internal/app.
package guard

import (
	"os"
	"sync"
)

// testModeEnv mirrors app.TestModeEnv.
const testModeEnv = "TENANTDESK_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(testModeEnv) == "" {
			_ = os.Setenv(testModeEnv, "1")
		}
	})
}
