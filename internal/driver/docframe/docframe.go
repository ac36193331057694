// Package docframe is a driver backend over a parsed HTML document. It runs
// no JavaScript: the document changes only through Navigate, Mutate and click
// handlers. It serves static inspection of served pages and deterministic
// tests of code written against driver.Frame.
package docframe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/v0xg/pagewait/internal/driver"
)

// Frame is safe for concurrent use
type Frame struct {
	mu       sync.Mutex
	doc      *goquery.Document
	url      *url.URL
	loaded   bool
	changed  chan struct{}
	handlers []clickHandler
	calls    []string

	client *http.Client
}

type clickHandler struct {
	sel cascadia.Selector
	fn  func(doc *goquery.Document)
}

var _ driver.Page = (*Frame)(nil)

// New wraps doc. The frame starts in the loaded state.
func New(doc *goquery.Document) *Frame {
	return &Frame{
		doc:     doc,
		url:     doc.Url,
		loaded:  true,
		changed: make(chan struct{}),
		client:  http.DefaultClient,
	}
}

// Parse builds a loaded frame from markup
func Parse(markup string) (*Frame, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return New(doc), nil
}

// Load fetches rawURL with client and returns a loaded frame for the response.
func Load(ctx context.Context, client *http.Client, rawURL string) (*Frame, error) {
	f, err := Parse("<html><head></head><body></body></html>")
	if err != nil {
		return nil, err
	}
	if client != nil {
		f.client = client
	}
	if err := f.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	return f, nil
}

// URL returns the address of the current document, if it was fetched.
func (f *Frame) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.url == nil {
		return ""
	}
	return f.url.String()
}

// Unload puts the frame back before its load event, as during a navigation.
func (f *Frame) Unload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	f.notifyLocked()
}

// FireLoad marks the load lifecycle state as reached.
func (f *Frame) FireLoad() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = true
	f.notifyLocked()
}

// Mutate runs fn against the document and wakes every pending wait.
func (f *Frame) Mutate(fn func(doc *goquery.Document)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.doc)
	f.notifyLocked()
}

// OnClick registers fn to run, under the frame lock, whenever a clicked
// element matches selector. fn must not call back into the frame; schedule
// deferred changes with Mutate from another goroutine instead.
func (f *Frame) OnClick(selector string, fn func(doc *goquery.Document)) error {
	sel, err := compile(selector)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, clickHandler{sel: sel, fn: fn})
	return nil
}

// Calls returns the driver operations issued so far, oldest first.
func (f *Frame) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// HTML renders the current document
func (f *Frame) HTML() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return goquery.OuterHtml(f.doc.Selection)
}

func (f *Frame) WaitForLoadState(ctx context.Context, state driver.LoadState) error {
	f.record("WaitForLoadState", string(state))
	return f.await(ctx, func(*goquery.Document) (bool, error) {
		return f.loaded, nil
	})
}

func (f *Frame) QueryAll(ctx context.Context, selector string) ([]driver.Element, error) {
	f.record("QueryAll", selector)
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	nodes := f.doc.FindMatcher(sel).Nodes
	els := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &element{f: f, n: n})
	}
	return els, nil
}

func (f *Frame) WaitForSelector(ctx context.Context, selector string, opts driver.WaitOptions) (driver.Element, error) {
	f.record("WaitForSelector", selector)
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	state := opts.State
	if state == "" {
		state = driver.StateVisible
	}

	ctx, cancel := driver.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var found *html.Node
	err = f.await(ctx, func(doc *goquery.Document) (bool, error) {
		nodes := doc.FindMatcher(sel).Nodes
		if opts.Strict && len(nodes) > 1 {
			return false, fmt.Errorf("%w: %q resolved to %d elements", driver.ErrStrictMode, selector, len(nodes))
		}
		switch state {
		case driver.StateAttached:
			if len(nodes) > 0 {
				found = nodes[0]
				return true, nil
			}
		case driver.StateVisible:
			for _, n := range nodes {
				if visible(n) {
					found = n
					return true, nil
				}
			}
		case driver.StateHidden:
			for _, n := range nodes {
				if visible(n) {
					return false, nil
				}
			}
			return true, nil
		case driver.StateDetached:
			return len(nodes) == 0, nil
		default:
			return false, fmt.Errorf("unknown element state: %s", state)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}
	return &element{f: f, n: found}, nil
}

func (f *Frame) Click(ctx context.Context, selector string) error {
	f.record("Click", selector)
	sel, err := compile(selector)
	if err != nil {
		return err
	}

	return f.await(ctx, func(doc *goquery.Document) (bool, error) {
		nodes := doc.FindMatcher(sel).Nodes
		if len(nodes) == 0 {
			return false, nil
		}
		target := nodes[0]
		for _, h := range f.handlers {
			if h.sel.Match(target) {
				h.fn(doc)
			}
		}
		f.notifyLocked()
		return true, nil
	})
}

// Navigate fetches rawURL, resolved against the current document address,
// and replaces the document with the response body.
func (f *Frame) Navigate(ctx context.Context, rawURL string) error {
	f.record("Navigate", rawURL)

	f.mu.Lock()
	target, err := f.resolveLocked(rawURL)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	f.Unload()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return driver.TimeoutOrErr(ctx, fmt.Errorf("navigate to %s: %w", target, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("navigate to %s: unexpected status %s", target, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", target, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}
	doc.Url = resp.Request.URL

	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = doc
	f.url = resp.Request.URL
	f.loaded = true
	f.notifyLocked()
	return nil
}

// Fill sets the value attribute of the first element matching selector.
func (f *Frame) Fill(ctx context.Context, selector, text string) error {
	f.record("Fill", selector)
	sel, err := compile(selector)
	if err != nil {
		return err
	}
	return f.await(ctx, func(doc *goquery.Document) (bool, error) {
		s := doc.FindMatcher(sel).First()
		if s.Length() == 0 {
			return false, nil
		}
		s.SetAttr("value", text)
		f.notifyLocked()
		return true, nil
	})
}

func (f *Frame) Screenshot(context.Context) ([]byte, error) {
	return nil, fmt.Errorf("screenshot: %w", driver.ErrUnsupported)
}

func (f *Frame) Close() error {
	return nil
}

// await re-checks cond after every document change until it holds, fails, or
// ctx is done. cond runs with f.mu held.
func (f *Frame) await(ctx context.Context, cond func(doc *goquery.Document) (bool, error)) error {
	for {
		f.mu.Lock()
		ok, err := cond(f.doc)
		changed := f.changed
		f.mu.Unlock()

		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return driver.TimeoutOrErr(ctx, ctx.Err())
		case <-changed:
		}
	}
}

func (f *Frame) notifyLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *Frame) record(op, arg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+arg)
}

func (f *Frame) resolveLocked(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if f.url != nil {
		u = f.url.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("cannot navigate to relative url %q without a base document", rawURL)
	}
	return u, nil
}

func compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

// visible approximates rendering without layout: an element is hidden when
// it or an ancestor has the hidden attribute or an inline display:none.
func visible(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		for _, a := range p.Attr {
			switch a.Key {
			case "hidden":
				return false
			case "style":
				style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
				if strings.Contains(style, "display:none") {
					return false
				}
			}
		}
	}
	return true
}

type element struct {
	f *Frame
	n *html.Node
}

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	e.f.mu.Lock()
	defer e.f.mu.Unlock()
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}
