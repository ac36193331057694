// Package cdpframe adapts a chromedp tab to driver.Page.
//
// chromedp carries its target in a context. The Frame keeps the tab context
// and derives one per call that also honors the caller's deadline and
// cancellation.
package cdpframe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/v0xg/pagewait/internal/driver"
)

// Frame wraps a chromedp tab context
type Frame struct {
	tab      context.Context
	interval time.Duration
}

var _ driver.Page = (*Frame)(nil)

// New wraps tab, a context returned by chromedp.NewContext.
func New(tab context.Context) *Frame {
	if tab == nil {
		return nil
	}
	return &Frame{tab: tab, interval: driver.DefaultPollInterval}
}

// run executes actions on the tab bounded by ctx.
func (f *Frame) run(ctx context.Context, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(f.tab, deadline)
	} else {
		runCtx, cancel = context.WithCancel(f.tab)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return driver.TimeoutOrErr(ctx, fmt.Errorf("%w: %w", ctx.Err(), err))
	}
	if errors.Is(err, chromedp.ErrPollingTimeout) {
		return fmt.Errorf("%w: %w", driver.ErrTimeout, err)
	}
	return driver.TimeoutOrErr(runCtx, err)
}

func (f *Frame) WaitForLoadState(ctx context.Context, state driver.LoadState) error {
	expr := `document.readyState === 'complete'`
	if state == driver.LoadStateDOMContentLoaded {
		expr = `document.readyState !== 'loading'`
	}
	return f.run(ctx, chromedp.Poll(expr, nil,
		chromedp.WithPollingInterval(f.interval),
		chromedp.WithPollingTimeout(0),
	))
}

func (f *Frame) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := f.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	return nodes, nil
}

func (f *Frame) QueryAll(ctx context.Context, selector string) ([]driver.Element, error) {
	nodes, err := f.nodes(ctx, selector)
	if err != nil {
		return nil, err
	}
	els := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{n: n})
	}
	return els, nil
}

const isVisible = `e => e.getClientRects().length > 0 && getComputedStyle(e).visibility !== 'hidden'`

// predicates evaluated in the page for each state; %s is the JSON-quoted selector
var predicates = map[driver.ElementState]string{
	driver.StateAttached: `document.querySelectorAll(%s).length > 0`,
	driver.StateDetached: `document.querySelectorAll(%s).length === 0`,
	driver.StateVisible:  `Array.from(document.querySelectorAll(%s)).some(` + isVisible + `)`,
	driver.StateHidden:   `!Array.from(document.querySelectorAll(%s)).some(` + isVisible + `)`,
}

// firstVisible evaluates to the index of the first visible match, or -1
const firstVisible = `Array.from(document.querySelectorAll(%s)).findIndex(` + isVisible + `)`

// pick returns nodes[idx], or nil when idx is out of range
func pick(nodes []*cdp.Node, idx int) *cdp.Node {
	if idx < 0 || idx >= len(nodes) {
		return nil
	}
	return nodes[idx]
}

func (f *Frame) WaitForSelector(ctx context.Context, selector string, opts driver.WaitOptions) (driver.Element, error) {
	ctx, cancel := driver.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	state := opts.State
	if state == "" {
		state = driver.StateVisible
	}
	pred, ok := predicates[state]
	if !ok {
		return nil, fmt.Errorf("unknown element state: %s", state)
	}
	quoted, err := json.Marshal(selector)
	if err != nil {
		return nil, err
	}

	if err := f.run(ctx, chromedp.Poll(fmt.Sprintf(pred, quoted), nil,
		chromedp.WithPollingInterval(f.interval),
		chromedp.WithPollingTimeout(0),
	)); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", selector, err)
	}
	if !state.ReturnsElement() {
		return nil, nil
	}

	// Resolve without waiting; the predicate above already held.
	var nodes []*cdp.Node
	idx := 0
	actions := []chromedp.Action{
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0), chromedp.NodeReady),
	}
	if state == driver.StateVisible {
		actions = append(actions, chromedp.Evaluate(fmt.Sprintf(firstVisible, quoted), &idx))
	}
	if err := f.run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", selector, err)
	}
	if opts.Strict && len(nodes) > 1 {
		return nil, fmt.Errorf("%w: %q resolved to %d elements", driver.ErrStrictMode, selector, len(nodes))
	}
	n := pick(nodes, idx)
	if n == nil {
		return nil, nil
	}
	return &element{n: n}, nil
}

func (f *Frame) Click(ctx context.Context, selector string) error {
	if err := f.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (f *Frame) Navigate(ctx context.Context, url string) error {
	if err := f.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (f *Frame) Fill(ctx context.Context, selector, text string) error {
	if err := f.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (f *Frame) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := f.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab
func (f *Frame) Close() error {
	return chromedp.Cancel(f.tab)
}

// element reads attributes from the node snapshot chromedp keeps in sync with
// DOM events.
type element struct {
	n *cdp.Node
}

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.n.Attribute(name)
	return v, ok, nil
}
