package helpers

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// GoroutineSnapshot captures the state of goroutines at a point in time
type GoroutineSnapshot struct {
	Count     int
	Timestamp time.Time
}

// TakeGoroutineSnapshot captures current goroutine count
func TakeGoroutineSnapshot() *GoroutineSnapshot {
	return &GoroutineSnapshot{
		Count:     runtime.NumGoroutine(),
		Timestamp: time.Now(),
	}
}

// WaitForGoroutineCleanup waits for goroutines to clean up, retrying with GC
func WaitForGoroutineCleanup(maxWait time.Duration, targetCount int, tolerance int) (int, error) {
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		current := runtime.NumGoroutine()
		if current-targetCount <= tolerance {
			return current, nil
		}

		// Force GC and wait
		runtime.GC()
		time.Sleep(50 * time.Millisecond)
	}

	final := runtime.NumGoroutine()
	return final, fmt.Errorf("goroutines did not clean up within %v: expected %d±%d, got %d",
		maxWait, targetCount, tolerance, final)
}

// DeadlockDetector helps detect potential deadlocks in concurrent operations
type DeadlockDetector struct {
	timeout time.Duration
}

// NewDeadlockDetector creates a new deadlock detector
func NewDeadlockDetector(timeout time.Duration) *DeadlockDetector {
	return &DeadlockDetector{timeout: timeout}
}

// Run executes the function with deadlock detection
func (dd *DeadlockDetector) Run(fn func() error) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- fn()
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(dd.timeout):
		return fmt.Errorf("operation timed out after %v (possible deadlock)", dd.timeout)
	}
}

// CoordinatedStart releases numOps goroutines at the same moment and
// collects the errors they return.
func CoordinatedStart(numOps int, opFunc func(id int) error) []error {
	start := make(chan struct{})
	errs := make(chan error, numOps)
	var ready, wg sync.WaitGroup

	ready.Add(numOps)
	wg.Add(numOps)
	for i := 0; i < numOps; i++ {
		go func(id int) {
			defer wg.Done()
			ready.Done()
			<-start
			if err := opFunc(id); err != nil {
				errs <- err
			}
		}(i)
	}

	ready.Wait()
	close(start)
	wg.Wait()
	close(errs)

	var errList []error
	for err := range errs {
		errList = append(errList, err)
	}
	return errList
}
