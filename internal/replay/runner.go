package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/repcoach/internal/adapters/mq/worker"
	"github.com/okian/repcoach/internal/domain/completion"
	"github.com/okian/repcoach/internal/domain/feedback"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/rules"
	"github.com/okian/repcoach/internal/domain/session"
	"github.com/okian/repcoach/pkg/logger"
)

// Frames returns the configured frame source.
func Frames(cfg *Config) (pose.Source, error) {
	if cfg.Input != "" {
		return OpenJSONL(cfg.Input)
	}
	frames, err := Synthetic(cfg.Synthetic, cfg.Reps)
	if err != nil {
		return nil, err
	}
	return pose.NewSliceSource(frames), nil
}

// Run replays src through an in-process session and prints rep counts and
// feedback changes to cfg.Out.
func Run(ctx context.Context, cfg *Config, src pose.Source, reg *rules.Registry) (Stats, error) {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	if reg == nil {
		reg = rules.NewRegistry()
	}
	rule, err := reg.Resolve(cfg.Exercise)
	if errors.Is(err, rules.ErrUnrecognizedExercise) {
		fmt.Fprintf(out, "exercise %q not recognized, feedback only\n", cfg.Exercise.Name)
	} else if err != nil {
		return Stats{}, err
	}

	var done *completion.Event
	sess, err := session.New("replay", cfg.Exercise, rule,
		session.WithLogger(logger.Nop()),
		session.WithCompletionHandler(func(_ context.Context, ev completion.Event) {
			done = &ev
		}),
	)
	if err != nil {
		return Stats{}, err
	}
	defer sess.Close()

	var (
		stats Stats
		last  feedback.Category
	)
	start := time.Now()
	hook := func(_ context.Context, f pose.Frame, step session.Step) {
		stats.Frames++
		if !step.Measured {
			stats.Reacquired++
		}
		if step.Transition {
			stats.Transitions++
		}
		changed := step.Feedback.Category != last
		last = step.Feedback.Category
		if cfg.Verbose || changed || step.Counted {
			fmt.Fprintf(out, "frame %-5d %-10s reps %d/%d  %s\n",
				f.Seq, step.Phase, step.RepCount, step.TargetReps, step.Feedback.Message)
		}
	}

	r := worker.NewRunner(src, sess, worker.WithName("replay"), worker.WithStepHook(hook))
	r.Run(ctx)
	if c, ok := src.(io.Closer); ok {
		_ = c.Close()
	}

	snap := sess.Snapshot()
	stats.Reps = snap.RepCount
	stats.Completed = snap.Completed
	stats.Duration = time.Since(start)
	if done != nil {
		fmt.Fprintf(out, "completed %s: %d/%d reps\n", done.ExerciseID, done.RepCount, done.TargetReps)
	}
	if err := r.Err(); err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}

// Summary prints stats.
func Summary(w io.Writer, s Stats) {
	fmt.Fprintf(w, `summary:
   frames:      %d
   reacquired:  %d
   transitions: %d
   duplicates:  %d
   reps:        %d
   completed:   %t
   duration:    %s
`, s.Frames, s.Reacquired, s.Transitions, s.Duplicates, s.Reps, s.Completed, s.Duration.Round(time.Millisecond))
}
