package state

import (
	"runtime"
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		Jobs:  runtime.NumCPU(),
	}
}
