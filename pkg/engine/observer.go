package engine

import (
	"time"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// Observer receives analysis counters. Implementations must be safe for
// concurrent use; the engine calls them from worker goroutines.
type Observer interface {
	FileAnalyzed()
	ParseFailure()
	ClassifierFault(layer event.Layer)
	EventsEmitted(layer event.Layer, count int)
	AIRetry()
	AIFailure()
	CommitAnalyzed(duration time.Duration)
}

// noopObserver is the default when no observer is wired.
type noopObserver struct{}

func (noopObserver) FileAnalyzed()                   {}
func (noopObserver) ParseFailure()                   {}
func (noopObserver) ClassifierFault(event.Layer)     {}
func (noopObserver) EventsEmitted(event.Layer, int)  {}
func (noopObserver) AIRetry()                        {}
func (noopObserver) AIFailure()                      {}
func (noopObserver) CommitAnalyzed(time.Duration)    {}
