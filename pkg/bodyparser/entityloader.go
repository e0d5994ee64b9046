package bodyparser

import "sync"

// The external entity loader is a process-wide setting. XML decoding holds it
// disabled for the duration of a parse; holders are counted so overlapping
// decodes on different goroutines release in any order and the base setting
// is observed again once the last one is done.
var entityLoader = struct {
	mu       sync.Mutex
	enabled  bool
	disabled int
}{enabled: true}

// EntityLoaderEnabled reports whether external entities and DTDs may be loaded
func EntityLoaderEnabled() bool {
	entityLoader.mu.Lock()
	defer entityLoader.mu.Unlock()
	return entityLoader.enabled && entityLoader.disabled == 0
}

// SetEntityLoaderEnabled sets the base entity loader setting and returns the previous one
func SetEntityLoaderEnabled(enabled bool) bool {
	entityLoader.mu.Lock()
	defer entityLoader.mu.Unlock()
	previous := entityLoader.enabled
	entityLoader.enabled = enabled
	return previous
}

// disableEntityLoader disables the entity loader until the returned func is called.
// Calling the release func more than once has no further effect.
func disableEntityLoader() (restore func()) {
	entityLoader.mu.Lock()
	entityLoader.disabled++
	entityLoader.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entityLoader.mu.Lock()
			entityLoader.disabled--
			entityLoader.mu.Unlock()
		})
	}
}
