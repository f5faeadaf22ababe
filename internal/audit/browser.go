package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// BrowserBackend drives a local headless Chrome for navigation and
// screenshots, then shells out to the Lighthouse CLI for category scores.
// Lighthouse launches its own Chrome so the two never share a debug port.
type BrowserBackend struct {
	chromePath     string
	lighthousePath string
}

func NewBrowserBackend(chromePath, lighthousePath string) *BrowserBackend {
	if lighthousePath == "" {
		lighthousePath = "lighthouse"
	}
	return &BrowserBackend{chromePath: chromePath, lighthousePath: lighthousePath}
}

func (b *BrowserBackend) Name() string { return config.BackendBrowser }

// Acquire launches a browser bound to ctx.
func (b *BrowserBackend) Acquire(ctx context.Context) (Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.WindowSize(1350, 940),
	)
	if b.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(b.chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: start chrome: %v", ErrAcquisition, err)
	}

	return &browserSession{
		backend: b,
		ctx:     browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

type browserSession struct {
	backend *BrowserBackend
	ctx     context.Context
	cancel  context.CancelFunc
}

// bind derives an action context from the browser context that also honours
// the caller's deadline.
func (s *browserSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(s.ctx, dl)
	}
	return context.WithCancel(s.ctx)
}

func (s *browserSession) Navigate(ctx context.Context, url string) error {
	actx, cancel := s.bind(ctx)
	defer cancel()

	err := chromedp.Run(actx, navigateUntilIdle(url))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
	default:
		return fmt.Errorf("%w: navigate %s: %v", ErrAcquisition, url, err)
	}
}

// navigateUntilIdle loads url and waits for the networkIdle lifecycle event
// of the new document.
func navigateUntilIdle(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		w := newIdleWatch()
		lctx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(lctx, w.observe)

		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enable lifecycle events: %w", err)
		}
		_, loader, errText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return errors.New(errText)
		}
		return w.wait(ctx, loader)
	})
}

// idleWatch records which loaders have reached networkIdle.
type idleWatch struct {
	mu     sync.Mutex
	idle   map[cdp.LoaderID]bool
	notify chan struct{}
}

func newIdleWatch() *idleWatch {
	return &idleWatch{idle: make(map[cdp.LoaderID]bool), notify: make(chan struct{}, 1)}
}

func (w *idleWatch) observe(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != "networkIdle" {
		return
	}
	w.mu.Lock()
	w.idle[e.LoaderID] = true
	w.mu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *idleWatch) seen(loader cdp.LoaderID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.idle[loader]
}

func (w *idleWatch) wait(ctx context.Context, loader cdp.LoaderID) error {
	for !w.seen(loader) {
		select {
		case <-w.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *browserSession) Screenshot(ctx context.Context) ([]byte, error) {
	actx, cancel := s.bind(ctx)
	defer cancel()

	var buf []byte
	// Quality 100 makes chromedp capture PNG.
	if err := chromedp.Run(actx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *browserSession) Audit(ctx context.Context, url string) (models.Scores, error) {
	return runLighthouse(ctx, s.backend.lighthousePath, s.backend.chromePath, url)
}

func (s *browserSession) Close() error {
	s.cancel()
	return nil
}

// runLighthouse executes the Lighthouse CLI and parses its JSON report
// from stdout.
func runLighthouse(ctx context.Context, bin, chromePath, url string) (models.Scores, error) {
	cmd := exec.CommandContext(ctx, bin, url,
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--only-categories=performance,accessibility,best-practices,seo",
		"--chrome-flags=--headless=new --no-sandbox",
	)
	if chromePath != "" {
		cmd.Env = append(os.Environ(), "CHROME_PATH="+chromePath)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return models.Scores{}, fmt.Errorf("run lighthouse: %w: %s", err, msg)
	}

	report, err := decodeLighthouse(stdout.Bytes())
	if err != nil {
		return models.Scores{}, err
	}
	return report.scores()
}

var _ Backend = (*BrowserBackend)(nil)
