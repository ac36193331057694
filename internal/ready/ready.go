// Package ready blocks a browser-driving caller until a dynamically enhanced
// page is safe to interact with.
//
// The application under test attaches its event handlers after the load
// event. It marks each tracked script with data-has-loaded="true" once the
// script ran, and sets readiness flags on <body> when its main and modal
// initialization finished. WaitForPageJsLoad waits for all of them; the modal
// helpers synchronize with overlays toggled by a CSS class.
package ready

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/v0xg/pagewait/internal/driver"
)

// Defaults applied by New for zero Options fields
const (
	DefaultScriptTimeout = 2 * time.Second
	DefaultTimeout       = 30 * time.Second
	DefaultPollInterval  = 50 * time.Millisecond
)

// Flag is a body attribute set to "true" by the application's own startup code
type Flag string

const (
	FlagMainLoaded  Flag = "data-load-main"
	FlagModalLoaded Flag = "data-load-modal"
)

// Options configures a Waiter
type Options struct {
	// ScriptTimeout bounds the wait for each tracked script.
	ScriptTimeout time.Duration
	// Timeout bounds every other wait.
	Timeout time.Duration
	// PollInterval paces the count waits used for scripts sharing a src.
	PollInterval time.Duration

	// Flags are awaited in order on <body>. Nil means the main and modal flags.
	Flags []Flag

	ScriptAttr    string // marker attribute on tracked scripts, "data-has-loaded"
	ModalClass    string // generic modal marker class, "cf-modal"
	HiddenClass   string // hidden-state class, "hidden"
	CloseSelector string // close control inside a modal, ".cf-modal-close"
	TriggerSuffix string // appended to a modal id to get its trigger id, "-button"

	Logger logrus.FieldLogger
}

// Waiter holds no page state; one Waiter may serve many frames concurrently.
type Waiter struct {
	opts Options
	log  logrus.FieldLogger
}

// New returns a Waiter with defaults filled in for zero fields of opts.
func New(opts Options) *Waiter {
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = DefaultScriptTimeout
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Flags == nil {
		opts.Flags = []Flag{FlagMainLoaded, FlagModalLoaded}
	}
	if opts.ScriptAttr == "" {
		opts.ScriptAttr = "data-has-loaded"
	}
	if opts.ModalClass == "" {
		opts.ModalClass = "cf-modal"
	}
	if opts.HiddenClass == "" {
		opts.HiddenClass = "hidden"
	}
	if opts.CloseSelector == "" {
		opts.CloseSelector = ".cf-modal-close"
	}
	if opts.TriggerSuffix == "" {
		opts.TriggerSuffix = "-button"
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Waiter{opts: opts, log: log}
}

// Options returns the effective options
func (w *Waiter) Options() Options {
	return w.opts
}

var defaultWaiter = New(Options{})

// WaitForPageJsLoad runs the readiness gate with default options.
func WaitForPageJsLoad(ctx context.Context, f driver.Frame) error {
	return defaultWaiter.WaitForPageJsLoad(ctx, f)
}

// ClickAndWaitForModal opens a modal with default options.
func ClickAndWaitForModal(ctx context.Context, f driver.Frame, modalID string) error {
	return defaultWaiter.ClickAndWaitForModal(ctx, f, modalID)
}

// WaitForAnyModal waits for any modal with default options.
func WaitForAnyModal(ctx context.Context, f driver.Frame) (driver.Element, error) {
	return defaultWaiter.WaitForAnyModal(ctx, f)
}

// DismissModal closes the open modal with default options.
func DismissModal(ctx context.Context, f driver.Frame) error {
	return defaultWaiter.DismissModal(ctx, f)
}
