package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const testModeEnv = "GSTBOOKS_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(testModeEnv)))
	testModeFlag.Store(v == "1" || v == "true")
}

// InTestMode reports whether the process must not dial Redis or enqueue
// tasks. Posting then runs without the distributed lock and deferred
// payments are only logged.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
