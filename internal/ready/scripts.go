package ready

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/v0xg/pagewait/internal/driver"
)

// Script describes one tracked script element. HasSrc is false for inline
// scripts.
type Script struct {
	Src    string
	HasSrc bool
}

func (s Script) String() string {
	if !s.HasSrc {
		return "<inline>"
	}
	return s.Src
}

// Scripts returns the tracked scripts currently in the document, in document
// order.
func (w *Waiter) Scripts(ctx context.Context, f driver.Frame) ([]Script, error) {
	if driver.IsNil(f) {
		return nil, ErrNilFrame
	}

	sel := "script[" + w.opts.ScriptAttr + "]"
	els, err := f.QueryAll(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}

	scripts := make([]Script, 0, len(els))
	for _, el := range els {
		src, ok, err := el.Attribute(ctx, "src")
		if err != nil {
			return nil, fmt.Errorf("read script src: %w", err)
		}
		scripts = append(scripts, Script{Src: src, HasSrc: ok})
	}
	return scripts, nil
}

// loadedSelector matches the scripts sharing s's src once they are loaded.
func (w *Waiter) loadedSelector(s Script) string {
	loaded := "[" + w.opts.ScriptAttr + `="true"]`
	if !s.HasSrc {
		return "script" + loaded + ":not([src])"
	}
	return "script[src=" + quote(s.Src) + "]" + loaded
}

// WaitForScripts waits until every tracked script present at call time is
// marked loaded. One wait is issued per script element and all of them run
// concurrently; the first failure cancels the others.
//
// Scripts sharing a src (or all lacking one) cannot be told apart by
// selector. For such a group of k elements the i-th wait holds once at least
// i+1 elements of the group are loaded, so the group completes exactly when
// all k are loaded, in any order.
func (w *Waiter) WaitForScripts(ctx context.Context, f driver.Frame) error {
	scripts, err := w.Scripts(ctx, f)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		return nil
	}

	groups := make(map[Script]int, len(scripts))
	for _, s := range scripts {
		groups[s]++
	}

	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[Script]int, len(groups))
	for _, s := range scripts {
		s, idx, size := s, seen[s], groups[s]
		seen[s]++
		g.Go(func() error {
			if size == 1 {
				return w.waitScript(gctx, f, s)
			}
			return w.waitScriptInGroup(gctx, f, s, idx+1)
		})
	}
	return g.Wait()
}

func (w *Waiter) waitScript(ctx context.Context, f driver.Frame, s Script) error {
	sel := w.loadedSelector(s)
	log := w.log.WithFields(logrus.Fields{"selector": sel, "src": s.String()})
	log.Debug("waiting for script")

	ctx, cancel := driver.WithTimeout(ctx, w.opts.ScriptTimeout)
	defer cancel()

	el, err := f.WaitForSelector(ctx, sel, driver.WaitOptions{
		State:   driver.StateAttached,
		Strict:  true,
		Timeout: w.opts.ScriptTimeout,
	})
	if err != nil {
		return wrap("wait for script", sel, s.String(), w.opts.ScriptTimeout, err)
	}
	if el == nil {
		return &InvariantError{
			Op:     "wait for script",
			Detail: fmt.Sprintf("loading not completed for script with src=%s: wait resolved without an element", s),
		}
	}
	log.Debug("script loaded")
	return nil
}

func (w *Waiter) waitScriptInGroup(ctx context.Context, f driver.Frame, s Script, want int) error {
	sel := w.loadedSelector(s)
	log := w.log.WithFields(logrus.Fields{"selector": sel, "src": s.String(), "want": want})
	log.Debug("waiting for shared-src script")

	ctx, cancel := driver.WithTimeout(ctx, w.opts.ScriptTimeout)
	defer cancel()

	err := driver.Poll(ctx, w.opts.PollInterval, func(ctx context.Context) (bool, error) {
		els, err := f.QueryAll(ctx, sel)
		if err != nil {
			return false, err
		}
		return len(els) >= want, nil
	})
	if err != nil {
		return wrap("wait for script", fmt.Sprintf("%d x %s", want, sel), s.String(), w.opts.ScriptTimeout, err)
	}
	log.Debug("script loaded")
	return nil
}
