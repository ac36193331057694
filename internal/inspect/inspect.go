// Package inspect reports the readiness markers of a page without waiting.
package inspect

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/v0xg/pagewait/internal/driver"
	"github.com/v0xg/pagewait/internal/ready"
)

// Inspect reads the tracked scripts, readiness flags and modals of f as
// configured on w. A nil w uses the ready defaults.
func Inspect(ctx context.Context, f driver.Frame, w *ready.Waiter) (*PageReport, error) {
	if driver.IsNil(f) {
		return nil, ready.ErrNilFrame
	}
	if w == nil {
		w = ready.New(ready.Options{})
	}
	opts := w.Options()
	report := &PageReport{}

	els, err := f.QueryAll(ctx, "script["+opts.ScriptAttr+"]")
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	for _, el := range els {
		src, hasSrc, err := el.Attribute(ctx, "src")
		if err != nil {
			return nil, fmt.Errorf("read script src: %w", err)
		}
		marker, _, err := el.Attribute(ctx, opts.ScriptAttr)
		if err != nil {
			return nil, fmt.Errorf("read script marker: %w", err)
		}
		report.Scripts = append(report.Scripts, ScriptInfo{
			Src:    src,
			Inline: !hasSrc,
			Loaded: marker == "true",
		})
	}

	for _, flag := range opts.Flags {
		set, err := f.QueryAll(ctx, ready.FlagSelector(flag))
		if err != nil {
			return nil, fmt.Errorf("query flag %s: %w", flag, err)
		}
		report.Flags = append(report.Flags, FlagInfo{Name: string(flag), Set: len(set) > 0})
	}

	modals, err := f.QueryAll(ctx, "."+opts.ModalClass)
	if err != nil {
		return nil, fmt.Errorf("query modals: %w", err)
	}
	for _, el := range modals {
		id, _, err := el.Attribute(ctx, "id")
		if err != nil {
			return nil, fmt.Errorf("read modal id: %w", err)
		}
		class, _, err := el.Attribute(ctx, "class")
		if err != nil {
			return nil, fmt.Errorf("read modal class: %w", err)
		}
		report.Modals = append(report.Modals, ModalInfo{
			ID:      id,
			Visible: !slices.Contains(strings.Fields(class), opts.HiddenClass),
		})
	}

	return report, nil
}
