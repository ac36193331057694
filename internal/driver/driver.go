// Package driver defines the small set of browser capabilities the readiness
// waiter needs, so it can run over any automation library.
package driver

import (
	"context"
	"errors"
	"reflect"
	"time"
)

var (
	// ErrTimeout is wrapped by every backend when a bounded wait expires.
	ErrTimeout = errors.New("timeout")
	// ErrStrictMode is returned when a strict wait matches more than one element.
	ErrStrictMode = errors.New("strict mode violation")
	// ErrUnsupported is returned by backends that cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by driver")
)

// LoadState names a page lifecycle state
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// ElementState is the condition WaitForSelector waits for
type ElementState string

const (
	StateAttached ElementState = "attached"
	StateDetached ElementState = "detached"
	StateVisible  ElementState = "visible"
	StateHidden   ElementState = "hidden"
)

// WaitOptions configures WaitForSelector
type WaitOptions struct {
	State   ElementState // defaults to StateVisible
	Strict  bool         // fail with ErrStrictMode if more than one element matches
	Timeout time.Duration
}

// Element is a live handle to a DOM element
type Element interface {
	// Attribute returns the attribute value and whether it is present at all.
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Frame is a navigable document context: a page or one of its frames.
type Frame interface {
	WaitForLoadState(ctx context.Context, state LoadState) error
	// QueryAll returns the elements currently matching selector without waiting.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// WaitForSelector blocks until selector reaches opts.State. The returned
	// element is nil for StateDetached and StateHidden.
	WaitForSelector(ctx context.Context, selector string, opts WaitOptions) (Element, error)
	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error
}

// Page is a top level Frame that can also be driven by a scenario
type Page interface {
	Frame
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, text string) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// WithTimeout bounds ctx by d when d is positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// ReturnsElement reports whether a wait for state yields an element handle.
func (s ElementState) ReturnsElement() bool {
	return s == StateAttached || s == StateVisible || s == ""
}

// IsNil reports whether f is nil, including typed nil pointers stored in
// the interface.
func IsNil(f Frame) bool {
	if f == nil {
		return true
	}
	v := reflect.ValueOf(f)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
