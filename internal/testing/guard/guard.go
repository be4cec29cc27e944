// Package guard switches the process into test mode when imported, so code
// paths that would dial Redis or enqueue tasks stay local.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("GSTBOOKS_TEST_MODE") == "" {
			_ = os.Setenv("GSTBOOKS_TEST_MODE", "1")
		}
	})
}
