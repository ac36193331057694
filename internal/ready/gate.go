package ready

import (
	"context"
	"time"

	"github.com/v0xg/pagewait/internal/driver"
)

// WaitForPageJsLoad blocks until the page behind f is ready for interaction:
// the load event fired, every tracked script present now is marked loaded,
// and every readiness flag is set on <body>. Call it after any action that
// loads a new page. The steps run strictly in that order.
func (w *Waiter) WaitForPageJsLoad(ctx context.Context, f driver.Frame) error {
	if driver.IsNil(f) {
		return ErrNilFrame
	}
	start := time.Now()

	if err := w.waitLoad(ctx, f); err != nil {
		return err
	}
	if err := w.WaitForScripts(ctx, f); err != nil {
		return err
	}
	for _, flag := range w.opts.Flags {
		if err := w.WaitForFlag(ctx, f, flag); err != nil {
			return err
		}
	}

	w.log.WithField("elapsed", time.Since(start)).Debug("page ready")
	return nil
}

func (w *Waiter) waitLoad(ctx context.Context, f driver.Frame) error {
	ctx, cancel := driver.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	err := f.WaitForLoadState(ctx, driver.LoadStateLoad)
	return wrap("wait for load", "load event", "", w.opts.Timeout, driver.TimeoutOrErr(ctx, err))
}

// FlagSelector matches <body> once flag is set
func FlagSelector(flag Flag) string {
	return "body[" + string(flag) + `="true"]`
}

// WaitForFlag waits for a single readiness flag on <body>.
func (w *Waiter) WaitForFlag(ctx context.Context, f driver.Frame, flag Flag) error {
	if driver.IsNil(f) {
		return ErrNilFrame
	}
	sel := FlagSelector(flag)
	w.log.WithField("selector", sel).Debug("waiting for readiness flag")

	ctx, cancel := driver.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	_, err := f.WaitForSelector(ctx, sel, driver.WaitOptions{
		State:   driver.StateAttached,
		Timeout: w.opts.Timeout,
	})
	return wrap("wait for flag", sel, "", w.opts.Timeout, err)
}
