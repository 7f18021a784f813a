package cmdjob

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"tickd/internal/config"
	"tickd/internal/sched"
	logx "tickd/pkg/logx"
)

const defaultTimeout = 5 * time.Minute

// Register turns config-defined command jobs into engine registrations.
//
// The engine's job model stays payload-free; this layer owns everything
// about what a "command job" means (argv, timeout, workdir, output logging).
func Register(eng *sched.Engine, defs []config.JobConfig, log logx.Logger) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	for _, d := range defs {
		timeout, err := config.ParseDurationOrDefault("jobs."+d.Name+".timeout", d.Timeout, defaultTimeout)
		if err != nil {
			return err
		}
		work := newWork(d, timeout, log)

		if s := strings.TrimSpace(d.StartAt); s != "" {
			startAt, perr := time.Parse(time.RFC3339, s)
			if perr != nil {
				return fmt.Errorf("jobs.%s.start_at: %w", d.Name, perr)
			}
			err = eng.AddJobAt(d.Name, work, d.Repeat, startAt.UTC(), d.IntervalMinutes)
		} else {
			err = eng.AddJob(d.Name, work, d.Repeat, d.DelayMinutes, d.IntervalMinutes)
		}
		if err != nil {
			return fmt.Errorf("register job %s: %w", d.Name, err)
		}
	}
	return nil
}

func newWork(d config.JobConfig, timeout time.Duration, log logx.Logger) func() error {
	name := d.Name
	argv := append([]string(nil), d.Command...)
	workdir := d.Workdir

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = workdir

		start := time.Now()
		out, err := cmd.CombinedOutput()
		took := time.Since(start)

		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("command timed out after %s: %s", timeout, tail(out, 512))
			}
			return fmt.Errorf("command failed: %w: %s", err, tail(out, 512))
		}
		log.Debug("command completed",
			logx.String("job", name),
			logx.Duration("took", took),
			logx.String("output", tail(out, 512)),
		)
		return nil
	}
}

// tail returns the last maxN bytes of output, trimmed, for compact logs.
func tail(out []byte, maxN int) string {
	s := strings.TrimSpace(string(out))
	if len(s) <= maxN {
		return s
	}
	return "..." + s[len(s)-maxN:]
}
