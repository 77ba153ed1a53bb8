// Package guard forces test mode for packages that blank-import it,
// keeping handler tests from starting real runtime side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("BEACON_TEST_MODE") == "" {
			_ = os.Setenv("BEACON_TEST_MODE", "1")
		}
	})
}
