// Package executor runs scenarios of page actions, synchronizing on page
// readiness after every navigation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/v0xg/pagewait/internal/artifact"
	"github.com/v0xg/pagewait/internal/driver"
	"github.com/v0xg/pagewait/internal/ready"
)

// Options configures execution behavior
type Options struct {
	Waiter      *ready.Waiter // nil uses ready defaults
	Timeout     time.Duration // bounds navigate, click, fill and waitFor steps, 0 uses the waiter timeout
	ArtifactDir string        // write a screenshot here when a step fails
	Artifact    artifact.Options
	Logger      logrus.FieldLogger
}

// StepResult records the outcome of one step
type StepResult struct {
	Index    int
	Action   Action
	Duration time.Duration
	Err      error
}

// Result holds the outcome of a scenario run
type Result struct {
	Scenario string
	Steps    []StepResult
	Failed   int    // index of the failing step, -1 if all passed
	Artifact string // screenshot written on failure, if any
}

// OK reports whether every step passed
func (r *Result) OK() bool { return r.Failed < 0 }

// Elapsed sums the step durations
func (r *Result) Elapsed() time.Duration {
	var d time.Duration
	for _, s := range r.Steps {
		d += s.Duration
	}
	return d
}

// StepError is returned by Run for the first failing step
type StepError struct {
	Index  int
	Action Action
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run executes the scenario steps in order and stops at the first failure.
// The returned Result is always non-nil.
func Run(ctx context.Context, page driver.Page, sc *Scenario, opts Options) (*Result, error) {
	if opts.Waiter == nil {
		opts.Waiter = ready.New(ready.Options{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Waiter.Options().Timeout
	}

	result := &Result{Scenario: sc.Name, Failed: -1}
	if page == nil {
		return result, ready.ErrNilFrame
	}

	log := opts.Logger.WithField("scenario", sc.Name)
	for i, action := range sc.Steps {
		stepLog := log.WithFields(logrus.Fields{
			"step":   i + 1,
			"action": action.Type,
		})
		stepLog.Debugf("[%d/%d] %s", i+1, len(sc.Steps), action)

		start := time.Now()
		err := execute(ctx, page, sc, action, opts)
		step := StepResult{Index: i, Action: action, Duration: time.Since(start), Err: err}
		result.Steps = append(result.Steps, step)

		if err != nil {
			stepLog.WithError(err).Warn("step failed")
			result.Failed = i
			if opts.ArtifactDir != "" {
				result.Artifact = saveFailure(ctx, page, sc, i, action, opts, stepLog)
			}
			return result, &StepError{Index: i, Action: action, Err: err}
		}
		stepLog.WithField("duration", step.Duration).Debug("step done")
	}
	return result, nil
}

func execute(ctx context.Context, page driver.Page, sc *Scenario, action Action, opts Options) error {
	w := opts.Waiter
	switch action.Type {
	case ActionNavigate:
		target, err := sc.Resolve(action.URL)
		if err != nil {
			return err
		}
		if err := bounded(ctx, opts.Timeout, func(ctx context.Context) error {
			return page.Navigate(ctx, target)
		}); err != nil {
			return err
		}
		return w.WaitForPageJsLoad(ctx, page)
	case ActionClick:
		if err := bounded(ctx, opts.Timeout, func(ctx context.Context) error {
			return page.Click(ctx, action.Selector)
		}); err != nil {
			return err
		}
		if action.Ready {
			return w.WaitForPageJsLoad(ctx, page)
		}
		return nil
	case ActionFill:
		return bounded(ctx, opts.Timeout, func(ctx context.Context) error {
			return page.Fill(ctx, action.Selector, action.Text)
		})
	case ActionWaitReady:
		return w.WaitForPageJsLoad(ctx, page)
	case ActionOpenModal:
		return w.ClickAndWaitForModal(ctx, page, action.Modal)
	case ActionWaitModal:
		_, err := w.WaitForAnyModal(ctx, page)
		return err
	case ActionDismissModal:
		return w.DismissModal(ctx, page)
	case ActionWaitFor:
		state := action.State
		if state == "" {
			state = driver.StateVisible
		}
		_, err := page.WaitForSelector(ctx, action.Selector, driver.WaitOptions{
			State:   state,
			Timeout: opts.Timeout,
		})
		return err
	case ActionWait:
		t := time.NewTimer(action.wait())
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

// bounded runs a single driver action under timeout d. Readiness waits are
// not run through it; the waiter bounds those itself.
func bounded(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := driver.WithTimeout(ctx, d)
	defer cancel()
	return driver.TimeoutOrErr(ctx, fn(ctx))
}

func saveFailure(ctx context.Context, page driver.Page, sc *Scenario, i int, action Action, opts Options, log logrus.FieldLogger) string {
	// The run context may be what failed; the capture gets its own budget.
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	data, err := page.Screenshot(shotCtx)
	if err != nil {
		if errors.Is(err, driver.ErrUnsupported) {
			log.Debug("driver cannot capture screenshots")
		} else {
			log.WithError(err).Warn("capture failure screenshot")
		}
		return ""
	}
	name := fmt.Sprintf("%s-step%d-%s", sc.Name, i+1, action.Type)
	path, err := artifact.SaveScreenshot(data, opts.ArtifactDir, name, opts.Artifact)
	if err != nil {
		log.WithError(err).Warn("save failure screenshot")
		return ""
	}
	log.WithField("path", path).Info("failure screenshot saved")
	return path
}
