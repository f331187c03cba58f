// Package ai defines the advisory classifier contract and its OpenAI-backed
// implementation. Advisory events are best-effort: every failure here is
// recoverable and deterministic analysis never waits on it.
package ai

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// Classification failures. Both are recoverable: the caller omits the file's
// advisory events and moves on.
var (
	// ErrUnavailable marks transport-level failures talking to the remote
	// service.
	ErrUnavailable = errors.New("advisory classifier unavailable")

	// ErrInvalidResponse marks a reply that is not valid JSON or does not
	// satisfy the advisory event schema.
	ErrInvalidResponse = errors.New("invalid advisory response")
)

// Classifier produces advisory events for one file's revision pair. It is
// stateless: implementations hold configuration, never per-call state.
type Classifier interface {
	Classify(ctx context.Context, beforeText, afterText []byte, path string) ([]event.Event, error)
}
