package portal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultNote is typed into the order note field before uploading.
const DefaultNote = "Kindly match the website mockup designs exactly and ensure perfect alignment"

// ErrNotConfigured is returned when portal credentials are missing.
var ErrNotConfigured = errors.New("portal credentials not set")

// Config configures an Uploader.
type Config struct {
	URL      string
	Username string
	Password string
	Headless bool
	Timeout  time.Duration
	Note     string
	// DebugDir receives a screenshot and the page HTML when an upload fails. Empty disables it.
	DebugDir string
	Logger   *zap.Logger
}

// Result is the outcome of an upload.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	FinalURL string  `json:"finalUrl,omitempty"`
	Title    string  `json:"title,omitempty"`
}

// Uploader drives the supplier portal with a headless Chrome.
type Uploader struct {
	cfg    Config
	logger *zap.Logger

	// poll is the interval between outcome checks after submitting.
	poll time.Duration
	// settle is how long to wait for the portal to accept the file before submitting.
	settle time.Duration
}

// New creates an Uploader.
func New(cfg Config) *Uploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Note == "" {
		cfg.Note = DefaultNote
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "portal")),
		poll:   time.Second,
		settle: 5 * time.Second,
	}
}

// Configured reports whether credentials and URL are set.
func (u *Uploader) Configured() bool {
	return u.cfg.URL != "" && u.cfg.Username != "" && u.cfg.Password != ""
}

// Upload logs in if needed, attaches the CSV at path, and submits the order.
// A missing success banner is not an error; the returned outcome is then PENDING.
func (u *Uploader) Upload(ctx context.Context, path string) (*Result, error) {
	if !u.Configured() {
		return nil, ErrNotConfigured
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload file: %w", err)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", u.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1280, 800),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, u.cfg.Timeout)
	defer cancel()

	result, err := u.run(browserCtx, abs)
	if err != nil {
		u.saveDebug(browserCtx)
		return nil, err
	}
	return result, nil
}

func (u *Uploader) run(ctx context.Context, path string) (*Result, error) {
	u.logger.Info("navigating to portal", zap.String("url", u.cfg.URL))
	state, err := u.inspect(ctx, chromedp.Navigate(u.cfg.URL), chromedp.WaitReady("body"))
	if err != nil {
		return nil, fmt.Errorf("failed to open portal: %w", err)
	}

	if state.LoginForm {
		u.logger.Info("login form detected")
		loginCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := chromedp.Run(loginCtx,
			chromedp.SendKeys(usernameSelector, u.cfg.Username, chromedp.ByQuery),
			chromedp.SendKeys(passwordSelector, u.cfg.Password, chromedp.ByQuery),
			chromedp.Click(submitSelector, chromedp.ByQuery),
			chromedp.WaitVisible(uploadHeader, chromedp.ByQuery),
		)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("portal login failed: %w", err)
		}
		if state, err = u.inspect(ctx); err != nil {
			return nil, err
		}
	}

	if state.NoteField {
		if err := chromedp.Run(ctx, chromedp.SendKeys(noteSelector, u.cfg.Note, chromedp.ByQuery)); err != nil {
			u.logger.Warn("failed to enter note", zap.Error(err))
		}
	}

	if !state.FileInput {
		return nil, errors.New("could not find file input on the upload page")
	}
	u.logger.Info("attaching file", zap.String("path", path))
	if err := chromedp.Run(ctx,
		chromedp.SetUploadFiles(fileInputSelector, []string{path}, chromedp.ByQuery),
		chromedp.Sleep(u.settle),
	); err != nil {
		return nil, fmt.Errorf("failed to attach file: %w", err)
	}

	var submit chromedp.Action
	switch {
	case state.SubmitButton:
		submit = chromedp.Click(submitSelector, chromedp.ByQuery)
	case state.UploadOrderButton:
		submit = chromedp.Click(uploadOrderXPath, chromedp.BySearch)
	default:
		return nil, errors.New("submit button not found")
	}
	if err := chromedp.Run(ctx, submit); err != nil {
		return nil, fmt.Errorf("failed to submit upload: %w", err)
	}

	outcome, err := u.awaitOutcome(ctx, 15*time.Second)
	if err != nil {
		return nil, err
	}
	if outcome.Status == OutcomeError {
		return nil, fmt.Errorf("portal rejected upload: %s", outcome.Message)
	}

	result := &Result{Outcome: outcome}
	if err := chromedp.Run(ctx, chromedp.Location(&result.FinalURL), chromedp.Title(&result.Title)); err != nil {
		u.logger.Warn("failed to read final page", zap.Error(err))
	}
	u.logger.Info("upload finished",
		zap.String("outcome", string(outcome.Status)),
		zap.String("url", result.FinalURL),
	)
	return result, nil
}

// inspect runs the actions and parses the resulting page.
func (u *Uploader) inspect(ctx context.Context, actions ...chromedp.Action) (PageState, error) {
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(ctx, actions...); err != nil {
		return PageState{}, err
	}
	return InspectPage(html)
}

// awaitOutcome polls the page for a result toast until wait elapses.
func (u *Uploader) awaitOutcome(ctx context.Context, wait time.Duration) (Outcome, error) {
	deadline := time.Now().Add(wait)
	for {
		var html string
		if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
			return Outcome{}, fmt.Errorf("failed to read result page: %w", err)
		}
		outcome, err := ParseOutcome(html)
		if err != nil {
			return Outcome{}, err
		}
		if outcome.Status != OutcomePending || time.Now().After(deadline) {
			return outcome, nil
		}
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(u.poll):
		}
	}
}

// saveDebug writes a screenshot and the page HTML for a failed upload.
func (u *Uploader) saveDebug(ctx context.Context) {
	if u.cfg.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(u.cfg.DebugDir, 0o755); err != nil {
		u.logger.Warn("failed to create debug directory", zap.Error(err))
		return
	}

	debugCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var screenshot []byte
	var html string
	if err := chromedp.Run(debugCtx,
		chromedp.FullScreenshot(&screenshot, 80),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		u.logger.Warn("failed to capture debug snapshot", zap.Error(err))
		return
	}

	stamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	png := filepath.Join(u.cfg.DebugDir, "error_state_"+stamp+".png")
	page := filepath.Join(u.cfg.DebugDir, "error_state_"+stamp+".html")
	_ = os.WriteFile(png, screenshot, 0o644)
	_ = os.WriteFile(page, []byte(html), 0o644)
	u.logger.Info("saved debug snapshot", zap.String("screenshot", png), zap.String("html", page))
}
