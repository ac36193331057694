package ready

import (
	"context"
	"fmt"

	"github.com/v0xg/pagewait/internal/driver"
)

// VisibleModalSelector matches any modal not carrying the hidden class
func (w *Waiter) VisibleModalSelector() string {
	return "." + w.opts.ModalClass + notClass(w.opts.HiddenClass)
}

// ClickAndWaitForModal clicks the trigger of the modal with id modalID (the
// element with id modalID + "-button") and waits for the modal to lose its
// hidden class. modalID has no leading '#'.
func (w *Waiter) ClickAndWaitForModal(ctx context.Context, f driver.Frame, modalID string) error {
	if driver.IsNil(f) {
		return ErrNilFrame
	}
	if modalID == "" {
		return ErrEmptyModalID
	}

	ctx, cancel := driver.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	trigger := byID(modalID + w.opts.TriggerSuffix)
	if err := f.Click(ctx, trigger); err != nil {
		return wrap("open modal", trigger, "", w.opts.Timeout, driver.TimeoutOrErr(ctx, err))
	}

	sel := byID(modalID) + notClass(w.opts.HiddenClass)
	el, err := f.WaitForSelector(ctx, sel, driver.WaitOptions{State: driver.StateVisible, Timeout: w.opts.Timeout})
	if err != nil {
		return wrap("open modal", sel, "", w.opts.Timeout, err)
	}
	if el == nil {
		return &InvariantError{Op: "open modal", Detail: fmt.Sprintf("modal %s shown without an element", modalID)}
	}
	w.log.WithField("modal", modalID).Debug("modal visible")
	return nil
}

// WaitForAnyModal waits for any modal to be displayed and returns it. Use it
// when the triggering action does not tell which modal will open.
func (w *Waiter) WaitForAnyModal(ctx context.Context, f driver.Frame) (driver.Element, error) {
	if driver.IsNil(f) {
		return nil, ErrNilFrame
	}

	ctx, cancel := driver.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	sel := w.VisibleModalSelector()
	el, err := f.WaitForSelector(ctx, sel, driver.WaitOptions{State: driver.StateVisible, Timeout: w.opts.Timeout})
	if err != nil {
		return nil, wrap("wait for modal", sel, "", w.opts.Timeout, err)
	}
	if el == nil {
		return nil, &InvariantError{Op: "wait for modal", Detail: "modal shown without an element"}
	}
	return el, nil
}

// DismissModal clicks the close control of the one visible modal and waits
// for that modal to be hidden again. Zero or several visible modals are a
// test authoring error.
func (w *Waiter) DismissModal(ctx context.Context, f driver.Frame) error {
	if driver.IsNil(f) {
		return ErrNilFrame
	}

	ctx, cancel := driver.WithTimeout(ctx, w.opts.Timeout)
	defer cancel()

	visible := w.VisibleModalSelector()
	modals, err := f.QueryAll(ctx, visible)
	if err != nil {
		return fmt.Errorf("dismiss modal: query %s: %w", visible, err)
	}
	switch {
	case len(modals) == 0:
		return ErrNoVisibleModal
	case len(modals) > 1:
		return fmt.Errorf("%w: %d match %s", ErrMultipleVisibleModals, len(modals), visible)
	}

	id, hasID, err := modals[0].Attribute(ctx, "id")
	if err != nil {
		return fmt.Errorf("dismiss modal: read id: %w", err)
	}

	closer := visible + " " + w.opts.CloseSelector
	if err := f.Click(ctx, closer); err != nil {
		return wrap("dismiss modal", closer, "", w.opts.Timeout, driver.TimeoutOrErr(ctx, err))
	}
	if !hasID || id == "" {
		return nil
	}

	sel := byID(id) + notClass(w.opts.HiddenClass)
	if _, err := f.WaitForSelector(ctx, sel, driver.WaitOptions{State: driver.StateDetached, Timeout: w.opts.Timeout}); err != nil {
		return wrap("dismiss modal", sel, "", w.opts.Timeout, err)
	}
	w.log.WithField("modal", id).Debug("modal hidden")
	return nil
}
