package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/v0xg/pagewait/internal/artifact"
	"github.com/v0xg/pagewait/internal/browser"
	"github.com/v0xg/pagewait/internal/config"
	"github.com/v0xg/pagewait/internal/driver"
	"github.com/v0xg/pagewait/internal/driver/docframe"
	"github.com/v0xg/pagewait/internal/executor"
	"github.com/v0xg/pagewait/internal/inspect"
	"github.com/v0xg/pagewait/internal/ready"
)

var (
	cfg    config.Config
	flags  config.Config
	static bool
	log    = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pagewait",
		Short: "Wait for web pages to become ready for interaction",
		Long: `pagewait drives a browser and blocks until a page has fired its load event,
every tracked <script data-has-loaded> has reported in, and the readiness
flags on <body> are set.

Example:
  pagewait wait "https://myapp.test/editor"
  pagewait run scenarios/publish.yaml --driver chromedp`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.Driver, "driver", browser.DriverRod, fmt.Sprintf("Browser driver: %v", browser.Drivers))
	pf.BoolVar(&flags.Headless, "headless", true, "Run the browser headless")
	pf.IntVar(&flags.Width, "width", 1280, "Viewport width")
	pf.IntVar(&flags.Height, "height", 720, "Viewport height")
	pf.StringVar(&flags.ProfileDir, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	pf.DurationVar(&flags.Timeout, "timeout", ready.DefaultTimeout, "Bound for the load event, readiness flags and modal waits")
	pf.DurationVar(&flags.ScriptTimeout, "script-timeout", ready.DefaultScriptTimeout, "Bound for each tracked script")
	pf.StringVar(&flags.ArtifactDir, "artifacts", "", "Write a screenshot here when a step fails")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Show detailed progress")

	waitCmd := &cobra.Command{
		Use:   "wait <url>",
		Short: "Open url and wait until it is ready",
		Args:  cobra.ExactArgs(1),
		RunE:  runWait,
	}

	runCmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario of actions, waiting for readiness after navigations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Print the readiness markers of a page as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().BoolVar(&static, "static", false, "Fetch the page over HTTP without a browser")

	rootCmd.AddCommand(waitCmd, runCmd, inspectCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads .env and the environment, then applies the flags the user
// set explicitly.
func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(); err != nil {
		return err
	}

	pf := cmd.Flags()
	if pf.Changed("driver") {
		cfg.Driver = flags.Driver
	}
	if pf.Changed("headless") {
		cfg.Headless = flags.Headless
	}
	if pf.Changed("width") {
		cfg.Width = flags.Width
	}
	if pf.Changed("height") {
		cfg.Height = flags.Height
	}
	if pf.Changed("profile") {
		cfg.ProfileDir = flags.ProfileDir
	}
	if pf.Changed("timeout") {
		cfg.Timeout = flags.Timeout
	}
	if pf.Changed("script-timeout") {
		cfg.ScriptTimeout = flags.ScriptTimeout
	}
	if pf.Changed("artifacts") {
		cfg.ArtifactDir = flags.ArtifactDir
	}
	if pf.Changed("verbose") {
		cfg.Verbose = flags.Verbose
	}

	log.SetLevel(logrus.WarnLevel)
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return cfg.Validate()
}

func newWaiter() *ready.Waiter {
	return ready.New(ready.Options{
		ScriptTimeout: cfg.ScriptTimeout,
		Timeout:       cfg.Timeout,
		PollInterval:  cfg.PollInterval,
		Logger:        log,
	})
}

func openBrowser(ctx context.Context) (*browser.Session, error) {
	fmt.Printf("→ Launching %s browser... ", cfg.Driver)
	s, err := browser.Open(ctx, cfg.BrowserOptions())
	if err != nil {
		fmt.Println("failed")
		return nil, err
	}
	fmt.Println("done")
	return s, nil
}

func runWait(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	url := args[0]

	s, err := openBrowser(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("→ Loading %s... ", url)
	start := time.Now()
	navCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	err = s.Page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("navigate failed: %w", err)
	}
	if err := newWaiter().WaitForPageJsLoad(ctx, s.Page); err != nil {
		fmt.Println("failed")
		saveShot(ctx, s.Page, "wait")
		return fmt.Errorf("page not ready: %w", err)
	}
	fmt.Println("done")

	fmt.Printf("✓ Ready in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sc, err := executor.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logSteps(sc)

	s, err := openBrowser(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("→ Running %s (%d steps)... ", sc.Name, len(sc.Steps))
	result, err := executor.Run(ctx, s.Page, sc, executor.Options{
		Waiter:      newWaiter(),
		Timeout:     cfg.Timeout,
		ArtifactDir: cfg.ArtifactDir,
		Logger:      log,
	})
	if err != nil {
		fmt.Println("failed")
		if result.Artifact != "" {
			fmt.Printf("  screenshot: %s\n", result.Artifact)
		}
		return err
	}
	fmt.Println("done")

	for _, step := range result.Steps {
		fmt.Printf("  [%d] %s (%s)\n", step.Index+1, step.Action, step.Duration.Round(time.Millisecond))
	}
	fmt.Printf("✓ %s passed in %s\n", sc.Name, result.Elapsed().Round(time.Millisecond))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	url := args[0]

	var page driver.Frame
	if static {
		f, err := docframe.Load(ctx, &http.Client{Timeout: cfg.Timeout}, url)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		page = f
	} else {
		s, err := openBrowser(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		navCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := s.Page.Navigate(navCtx, url); err != nil {
			return fmt.Errorf("navigate failed: %w", err)
		}
		if err := s.Page.WaitForLoadState(navCtx, driver.LoadStateLoad); err != nil {
			return fmt.Errorf("load failed: %w", err)
		}
		page = s.Page
	}

	report, err := inspect.Inspect(ctx, page, newWaiter())
	if err != nil {
		return err
	}
	report.URL = url

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.Ready() {
		return errors.New("page is not ready")
	}
	return nil
}

// logSteps prints the scenario steps when verbose
func logSteps(sc *executor.Scenario) {
	if !cfg.Verbose {
		return
	}
	for i, step := range sc.Steps {
		fmt.Printf("  [%d] %s\n", i+1, step)
	}
}

func saveShot(ctx context.Context, page driver.Page, name string) {
	if cfg.ArtifactDir == "" {
		return
	}
	data, err := page.Screenshot(ctx)
	if err != nil {
		log.WithError(err).Warn("capture screenshot")
		return
	}
	path, err := artifact.SaveScreenshot(data, cfg.ArtifactDir, name, artifact.Options{})
	if err != nil {
		log.WithError(err).Warn("save screenshot")
		return
	}
	fmt.Printf("  screenshot: %s\n", path)
}
