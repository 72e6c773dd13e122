// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about task execution and store operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTaskHooks(&myTaskHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Tasks().OnChunkStart(ctx, objectID, chunk)
//	// ... skeletonize ...
//	observability.Tasks().OnChunkComplete(ctx, objectID, chunk, nodeCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Task Hooks
// =============================================================================

// TaskHooks receives events from the skeletonization pipeline.
type TaskHooks interface {
	// Chunk events
	OnChunkStart(ctx context.Context, objectID uint64, chunk [3]int)
	OnChunkComplete(ctx context.Context, objectID uint64, chunk [3]int, nodeCount int, duration time.Duration, err error)

	// Merge events
	OnMergeStart(ctx context.Context, objectID uint64, fragments int)
	OnMergeComplete(ctx context.Context, objectID uint64, nodeCount, components int, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from store operations.
type StoreHooks interface {
	// OnStoreGet records a read, with whether the key was present.
	OnStoreGet(ctx context.Context, key string, found bool)

	// OnStoreSet records a write.
	OnStoreSet(ctx context.Context, key string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTaskHooks is a no-op implementation of TaskHooks.
type NoopTaskHooks struct{}

func (NoopTaskHooks) OnChunkStart(context.Context, uint64, [3]int) {}
func (NoopTaskHooks) OnChunkComplete(context.Context, uint64, [3]int, int, time.Duration, error) {
}
func (NoopTaskHooks) OnMergeStart(context.Context, uint64, int)                           {}
func (NoopTaskHooks) OnMergeComplete(context.Context, uint64, int, int, time.Duration, error) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreGet(context.Context, string, bool) {}
func (NoopStoreHooks) OnStoreSet(context.Context, string, int)  {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	taskHooks  TaskHooks  = NoopTaskHooks{}
	storeHooks StoreHooks = NoopStoreHooks{}
	hooksMu    sync.RWMutex
)

// SetTaskHooks registers custom task hooks.
// This should be called once at application startup before any task runs.
func SetTaskHooks(h TaskHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		taskHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Tasks returns the registered task hooks.
func Tasks() TaskHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return taskHooks
}

// Stores returns the registered store hooks.
func Stores() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	taskHooks = NoopTaskHooks{}
	storeHooks = NoopStoreHooks{}
}
