// Package testing is imported for its side effects by test binaries. It
// switches the process into test mode and supplies the secrets LoadConfig
// requires, unless the caller's environment already sets them.
package testing

import "os"

var testEnv = map[string]string{
	"SESSION_SECRET": "test-session-secret",
	"CSRF_SECRET":    "test-csrf-secret",
	"JWT_SECRET":     "test-jwt-secret-0123456789abcdef0123",
	"LOG_LEVEL":      "warn",
}

func init() {
	_ = os.Setenv("ECOLY_TEST_MODE", "1")
	for key, value := range testEnv {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}
