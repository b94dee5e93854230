package app

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv switches binaries into test mode when set to "1".
const TestModeEnv = "ECOLY_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(TestModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}

// SkipStartup logs and reports true when binary must not start in test mode.
func SkipStartup(logger *slog.Logger, binary string) bool {
	if !InTestMode() {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("test mode detected, skipping startup", slog.String("binary", binary))
	return true
}
