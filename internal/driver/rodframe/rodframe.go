// Package rodframe adapts a go-rod page to driver.Page.
package rodframe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/pagewait/internal/driver"
)

// Frame wraps a rod page. Frames inside a page are rod pages too
// (see rod.Element.Frame), so the same type serves both.
type Frame struct {
	page     *rod.Page
	interval time.Duration
}

var _ driver.Page = (*Frame)(nil)

// New wraps page. A nil page yields a nil *Frame.
func New(page *rod.Page) *Frame {
	if page == nil {
		return nil
	}
	return &Frame{page: page, interval: driver.DefaultPollInterval}
}

// Page returns the underlying rod page
func (f *Frame) Page() *rod.Page {
	return f.page
}

func (f *Frame) WaitForLoadState(ctx context.Context, state driver.LoadState) error {
	p := f.page.Context(ctx)
	var err error
	switch state {
	case driver.LoadStateNetworkIdle:
		if err = p.WaitLoad(); err == nil {
			// Don't hang on persistent connections
			p.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
		}
	case driver.LoadStateDOMContentLoaded:
		err = driver.Poll(ctx, f.interval, func(context.Context) (bool, error) {
			res, err := p.Eval(`() => document.readyState !== 'loading'`)
			if err != nil {
				return false, err
			}
			return res.Value.Bool(), nil
		})
	default:
		err = p.WaitLoad()
	}
	return driver.TimeoutOrErr(ctx, err)
}

func (f *Frame) QueryAll(ctx context.Context, selector string) ([]driver.Element, error) {
	els, err := f.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, driver.TimeoutOrErr(ctx, fmt.Errorf("query %s: %w", selector, err))
	}
	return wrapAll(els), nil
}

func (f *Frame) WaitForSelector(ctx context.Context, selector string, opts driver.WaitOptions) (driver.Element, error) {
	ctx, cancel := driver.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	state := opts.State
	if state == "" {
		state = driver.StateVisible
	}

	var found *rod.Element
	err := driver.Poll(ctx, f.interval, func(ctx context.Context) (bool, error) {
		els, err := f.page.Context(ctx).Elements(selector)
		if err != nil {
			return false, err
		}
		if opts.Strict && len(els) > 1 {
			return false, fmt.Errorf("%w: %q resolved to %d elements", driver.ErrStrictMode, selector, len(els))
		}
		switch state {
		case driver.StateAttached:
			if len(els) > 0 {
				found = els[0]
				return true, nil
			}
			return false, nil
		case driver.StateDetached:
			return len(els) == 0, nil
		case driver.StateVisible, driver.StateHidden:
			for _, el := range els {
				vis, err := el.Visible()
				if err != nil {
					// Detached between query and check
					continue
				}
				if vis {
					found = el
					break
				}
			}
			if state == driver.StateVisible {
				return found != nil, nil
			}
			ok := found == nil
			found = nil
			return ok, nil
		default:
			return false, fmt.Errorf("unknown element state: %s", state)
		}
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}
	return &element{el: found}, nil
}

func (f *Frame) Click(ctx context.Context, selector string) error {
	el, err := f.page.Context(ctx).Element(selector)
	if err != nil {
		return driver.TimeoutOrErr(ctx, fmt.Errorf("element not found: %s: %w", selector, err))
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return driver.TimeoutOrErr(ctx, fmt.Errorf("click %s: %w", selector, err))
	}
	return nil
}

func (f *Frame) Navigate(ctx context.Context, url string) error {
	if err := f.page.Context(ctx).Navigate(url); err != nil {
		return driver.TimeoutOrErr(ctx, fmt.Errorf("navigate to %s: %w", url, err))
	}
	return nil
}

func (f *Frame) Fill(ctx context.Context, selector, text string) error {
	el, err := f.page.Context(ctx).Element(selector)
	if err != nil {
		return driver.TimeoutOrErr(ctx, fmt.Errorf("element not found: %s: %w", selector, err))
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text in %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (f *Frame) Screenshot(ctx context.Context) ([]byte, error) {
	return f.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (f *Frame) Close() error {
	return f.page.Close()
}

func wrapAll(els rod.Elements) []driver.Element {
	out := make([]driver.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out
}

type element struct {
	el *rod.Element
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, driver.TimeoutOrErr(ctx, fmt.Errorf("attribute %s: %w", name, err))
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}
