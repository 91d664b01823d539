// Package replay runs the rep engine over recorded or synthetic landmark
// streams, either in process or against a running server.
package replay

import (
	"io"
	"time"

	"github.com/okian/repcoach/internal/domain/model"
)

// Config holds configuration for one replay.
type Config struct {
	Input     string         // JSON-lines recording; empty selects Synthetic
	Synthetic string         // squat or press
	Reps      int            // synthetic repetitions to generate
	Exercise  model.Exercise // descriptor the session is opened with
	BaseURL   string         // when set, frames are posted to this server
	Timeout   time.Duration  // HTTP request timeout
	Verbose   bool           // print every frame, not only changes
	Out       io.Writer      // progress output
}

// Stats summarizes a replay.
type Stats struct {
	Frames      int
	Reacquired  int
	Transitions int
	Reps        int
	Completed   bool
	Duplicates  int
	Duration    time.Duration
}
