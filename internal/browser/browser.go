// Package browser starts a browser with one of the supported drivers and
// hands back a driver.Page for it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/playwright-community/playwright-go"

	"github.com/v0xg/pagewait/internal/driver"
	"github.com/v0xg/pagewait/internal/driver/cdpframe"
	"github.com/v0xg/pagewait/internal/driver/pwframe"
	"github.com/v0xg/pagewait/internal/driver/rodframe"
)

// Supported driver names
const (
	DriverRod        = "rod"
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Drivers lists the supported driver names, default first
var Drivers = []string{DriverRod, DriverChromedp, DriverPlaywright}

// Supported reports whether name is a known driver
func Supported(name string) bool {
	for _, d := range Drivers {
		if d == name {
			return true
		}
	}
	return false
}

// Options configures the launched browser
type Options struct {
	Driver     string
	Width      int
	Height     int
	Headless   bool
	ProfileDir string        // Chrome/Chromium profile directory for authenticated sessions
	Timeout    time.Duration // bounds browser start-up
}

// Session owns a running browser and its page
type Session struct {
	Driver string
	Page   driver.Page

	closers []func() error
}

// Close cleans up browser resources, page first
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Session) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Available reports whether a local Chrome/Chromium binary can be found.
func Available() bool {
	_, ok := launcher.LookPath()
	return ok
}

// Open launches a browser with the driver named in opts
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Driver == "" {
		opts.Driver = DriverRod
	}
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	s := &Session{Driver: opts.Driver}
	var err error
	switch opts.Driver {
	case DriverRod:
		err = s.openRod(ctx, opts)
	case DriverChromedp:
		err = s.openChromedp(ctx, opts)
	case DriverPlaywright:
		err = s.openPlaywright(opts)
	default:
		return nil, fmt.Errorf("unknown driver: %s (supported: %v)", opts.Driver, Drivers)
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start %s browser: %w", opts.Driver, err)
	}
	return s, nil
}

func (s *Session) openRod(ctx context.Context, opts Options) error {
	path, _ := launcher.LookPath()
	l := launcher.New().Context(ctx).Bin(path).Headless(opts.Headless)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return err
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return err
	}
	s.onClose(b.Close)

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return err
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return err
	}

	f := rodframe.New(page)
	s.onClose(f.Close)
	s.Page = f
	return nil
}

func (s *Session) openChromedp(ctx context.Context, opts Options) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	// The browser outlives ctx, which only bounds start-up.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	s.onClose(func() error { cancelAlloc(); return nil })

	tab, cancelTab := chromedp.NewContext(allocCtx)
	s.onClose(func() error { cancelTab(); return nil })

	f := cdpframe.New(tab)
	if err := f.Navigate(ctx, "about:blank"); err != nil {
		return err
	}
	s.Page = f
	return nil
}

func (s *Session) openPlaywright(opts Options) error {
	pw, err := playwright.Run()
	if err != nil {
		return err
	}
	s.onClose(pw.Stop)

	viewport := &playwright.Size{Width: opts.Width, Height: opts.Height}
	var page playwright.Page
	if opts.ProfileDir != "" {
		bctx, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: viewport,
		})
		if err != nil {
			return err
		}
		s.onClose(func() error { return bctx.Close() })
		if page, err = bctx.NewPage(); err != nil {
			return err
		}
	} else {
		b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			return err
		}
		s.onClose(func() error { return b.Close() })
		if page, err = b.NewPage(playwright.BrowserNewPageOptions{Viewport: viewport}); err != nil {
			return err
		}
	}

	p := pwframe.NewPage(page)
	s.onClose(p.Close)
	s.Page = p
	return nil
}
