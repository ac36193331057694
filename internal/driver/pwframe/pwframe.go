// Package pwframe adapts playwright-go to driver.Page.
//
// playwright-go has no context support. Each call derives its playwright
// timeout from the context deadline; a context without a deadline waits
// without a timeout.
package pwframe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/v0xg/pagewait/internal/driver"
)

// Frame wraps a playwright frame
type Frame struct {
	frame playwright.Frame
}

var _ driver.Frame = (*Frame)(nil)

// New wraps frame. A nil frame yields a nil *Frame.
func New(frame playwright.Frame) *Frame {
	if frame == nil {
		return nil
	}
	return &Frame{frame: frame}
}

// Page wraps a playwright page; its frame methods act on the main frame.
type Page struct {
	*Frame
	page playwright.Page
}

var _ driver.Page = (*Page)(nil)

// NewPage wraps page. A nil page yields a nil *Page.
func NewPage(page playwright.Page) *Page {
	if page == nil {
		return nil
	}
	return &Page{Frame: New(page.MainFrame()), page: page}
}

// timeout converts the ctx deadline to playwright milliseconds. Zero means
// no timeout to playwright.
func timeout(ctx context.Context, d time.Duration) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, driver.TimeoutOrErr(ctx, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if d <= 0 || left < d {
			d = left
		}
		if d <= 0 {
			return nil, fmt.Errorf("%w: %w", driver.ErrTimeout, context.DeadlineExceeded)
		}
	}
	if d <= 0 {
		return playwright.Float(0), nil
	}
	return playwright.Float(float64(d.Milliseconds())), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", driver.ErrTimeout, err)
	}
	return err
}

func isStrictViolation(err error) bool {
	return strings.Contains(err.Error(), "strict mode violation")
}

func loadState(state driver.LoadState) *playwright.LoadState {
	switch state {
	case driver.LoadStateDOMContentLoaded:
		return playwright.LoadStateDomcontentloaded
	case driver.LoadStateNetworkIdle:
		return playwright.LoadStateNetworkidle
	default:
		return playwright.LoadStateLoad
	}
}

func selectorState(state driver.ElementState) *playwright.WaitForSelectorState {
	switch state {
	case driver.StateAttached:
		return playwright.WaitForSelectorStateAttached
	case driver.StateDetached:
		return playwright.WaitForSelectorStateDetached
	case driver.StateHidden:
		return playwright.WaitForSelectorStateHidden
	default:
		return playwright.WaitForSelectorStateVisible
	}
}

func (f *Frame) WaitForLoadState(ctx context.Context, state driver.LoadState) error {
	ms, err := timeout(ctx, 0)
	if err != nil {
		return err
	}
	return mapErr(f.frame.WaitForLoadState(playwright.FrameWaitForLoadStateOptions{
		State:   loadState(state),
		Timeout: ms,
	}))
}

func (f *Frame) QueryAll(ctx context.Context, selector string) ([]driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, driver.TimeoutOrErr(ctx, err)
	}
	handles, err := f.frame.Locator(selector).ElementHandles()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, mapErr(err))
	}
	els := make([]driver.Element, 0, len(handles))
	for _, h := range handles {
		els = append(els, &element{h: h})
	}
	return els, nil
}

func (f *Frame) WaitForSelector(ctx context.Context, selector string, opts driver.WaitOptions) (driver.Element, error) {
	ms, err := timeout(ctx, opts.Timeout)
	if err != nil {
		return nil, err
	}
	h, err := f.frame.WaitForSelector(selector, playwright.FrameWaitForSelectorOptions{
		State:   selectorState(opts.State),
		Strict:  playwright.Bool(opts.Strict),
		Timeout: ms,
	})
	if err != nil {
		if isStrictViolation(err) {
			return nil, fmt.Errorf("%w: %w", driver.ErrStrictMode, err)
		}
		return nil, fmt.Errorf("wait for %s: %w", selector, mapErr(err))
	}
	if h == nil {
		return nil, nil
	}
	return &element{h: h}, nil
}

func (f *Frame) Click(ctx context.Context, selector string) error {
	ms, err := timeout(ctx, 0)
	if err != nil {
		return err
	}
	if err := f.frame.Click(selector, playwright.FrameClickOptions{Timeout: ms}); err != nil {
		return fmt.Errorf("click %s: %w", selector, mapErr(err))
	}
	return nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	ms, err := timeout(ctx, 0)
	if err != nil {
		return err
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{Timeout: ms}); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, mapErr(err))
	}
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, text string) error {
	ms, err := timeout(ctx, 0)
	if err != nil {
		return err
	}
	if err := p.page.Fill(selector, text, playwright.PageFillOptions{Timeout: ms}); err != nil {
		return fmt.Errorf("fill %s: %w", selector, mapErr(err))
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	ms, err := timeout(ctx, 0)
	if err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: ms,
	})
}

func (p *Page) Close() error {
	return p.page.Close()
}

type element struct {
	h playwright.ElementHandle
}

// Attribute goes through evaluate because ElementHandle.GetAttribute reports
// a missing attribute as an empty string.
func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, driver.TimeoutOrErr(ctx, err)
	}
	v, err := e.h.Evaluate(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, fmt.Errorf("attribute %s: %w", name, mapErr(err))
	}
	s, ok := v.(string)
	if !ok {
		return "", false, nil
	}
	return s, true, nil
}
