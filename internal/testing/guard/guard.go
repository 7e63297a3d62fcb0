// Package guard switches the binaries into test mode when blank-imported from a
// test, so their main functions return before dialing PostgreSQL, MySQL or Redis.
package guard

import (
	"os"
	"sync"
)

// Env is the variable read by app.InTestMode.
const Env = "EVENTFIN_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(Env) == "" {
			_ = os.Setenv(Env, "1")
		}
	})
}
