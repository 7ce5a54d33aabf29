package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"github.com/tenantdesk/tenantdesk/internal/app"
)

// DefaultJWTSecret signs tokens in tests that load configuration from the environment.
const DefaultJWTSecret = "test-secret-test-secret-test-secret"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(app.TestModeEnv, "1")
		if os.Getenv("JWT_SECRET") == "" {
			_ = os.Setenv("JWT_SECRET", DefaultJWTSecret)
		}
		app.RefreshTestMode()
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
