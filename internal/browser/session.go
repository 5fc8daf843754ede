// File: internal/browser/session.go
//
// Package browser is the native recording engine: a chromedp driven session
// that performs actions against a live page and writes each performed action
// through the recorder in the command vocabulary the code synthesis pipeline
// consumes.
package browser

import (
	"context"
	"fmt"
	"time"

	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/browser/dom"
	"github.com/sankalpgunturi/stagehand/internal/config"
	"github.com/sankalpgunturi/stagehand/internal/recorder"
)

// Session drives one browser tab and records every performed action. All
// steps recorded by a session share its request id.
type Session struct {
	log       *zap.Logger
	cfg       config.BrowserConfig
	recorder  *recorder.Recorder
	requestID string

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc

	currentURL        string
	previousSelectors []string
}

// NewSession launches a browser and opens one tab. The recorder may be nil,
// in which case the session still drives the page but records nothing.
func NewSession(ctx context.Context, cfg config.BrowserConfig, rec *recorder.Recorder, requestID string, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{
		log:         logger.Named("browser_session"),
		cfg:         cfg,
		recorder:    rec,
		requestID:   requestID,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
	}

	// Start the browser process eagerly so a broken environment fails here,
	// not on the first action.
	startCtx, cancel := context.WithTimeout(tabCtx, cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s.log.Info("Recording session started", zap.String("requestId", requestID), zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

// Navigate loads the target page. Navigation itself is not a recorded step;
// the synthesis pipeline derives the navigation URL from the first recorded
// action.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.actionContext(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Location(&s.currentURL),
	); err != nil {
		return fmt.Errorf("failed to navigate to %q: %w", url, err)
	}
	s.log.Debug("Navigated", zap.String("url", s.currentURL))
	return nil
}

// Click clicks the element addressed by the xpath selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.ScrollIntoView(selector, chromedp.BySearch),
		chromedp.Click(selector, chromedp.BySearch),
	)
	return s.record(ctx, "click", nil, selector, err)
}

// Fill replaces the value of the element addressed by the xpath selector.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.SetValue(selector, value, chromedp.BySearch),
	)
	return s.record(ctx, "fill", []string{value}, selector, err)
}

// Press focuses the element addressed by the selector and dispatches a key
// event to the page keyboard.
func (s *Session) Press(ctx context.Context, selector, key string) error {
	var actions []chromedp.Action
	if selector != "" {
		actions = append(actions, chromedp.Focus(selector, chromedp.BySearch))
	}
	actions = append(actions, chromedp.KeyEvent(key))
	err := s.run(ctx, actions...)
	return s.record(ctx, "press", []string{key}, selector, err)
}

// Type sends the text to the element addressed by the selector, key by key.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.SendKeys(selector, text, chromedp.BySearch),
	)
	return s.record(ctx, "type", []string{text}, selector, err)
}

// ScrollIntoView scrolls the element addressed by the selector into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	err := s.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.BySearch),
	)
	return s.record(ctx, "scrollIntoView", nil, selector, err)
}

// run executes chromedp actions against the session tab under the action timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := s.actionContext(ctx, s.cfg.ActionTimeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// actionContext derives a deadline bound context from the session tab that
// is also cancelled when the caller's context is.
func (s *Session) actionContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancelTimeout := context.WithTimeout(s.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancelTimeout)
	return runCtx, func() {
		stop()
		cancelTimeout()
	}
}

// record writes the performed action through the recorder. The recorded
// xpath is canonicalized against a DOM snapshot so replay does not depend on
// how the caller phrased the selector; when canonicalization fails the raw
// selector is recorded as-is. actionErr marks the step incomplete rather
// than suppressing the record: partial steps are data, not failures.
func (s *Session) record(ctx context.Context, method string, args []string, selector string, actionErr error) error {
	if s.recorder == nil {
		return actionErr
	}

	canonical := selector
	if pageHTML, err := s.snapshotHTML(ctx); err == nil {
		if resolved, err := dom.CanonicalXPath(pageHTML, selector); err == nil {
			canonical = resolved
		}
	}

	rec := schemas.ActionRecord{
		ActionEntry: schemas.ActionEntry{
			URL: s.currentURL,
			PlaywrightCommand: schemas.PlaywrightCommand{
				Method: method,
				Args:   args,
			},
			Action:            fmt.Sprintf("%s %s", method, canonical),
			Xpaths:            []string{canonical},
			PreviousSelectors: append([]string(nil), s.previousSelectors...),
			Completed:         actionErr == nil,
		},
		RequestID: s.requestID,
	}
	if err := s.recorder.AddActionStep(rec); err != nil {
		s.log.Warn("Failed to record action step", zap.String("method", method), zap.Error(err))
		if actionErr == nil {
			return err
		}
	}
	s.previousSelectors = append(s.previousSelectors, canonical)

	if actionErr != nil {
		return fmt.Errorf("%s on %q failed: %w", method, selector, actionErr)
	}
	return nil
}

// snapshotHTML captures the full document HTML over CDP.
func (s *Session) snapshotHTML(ctx context.Context) (string, error) {
	var pageHTML string
	err := s.run(ctx, chromedp.ActionFunc(func(cdpCtx context.Context) error {
		root, err := cdpdom.GetDocument().Do(cdpCtx)
		if err != nil {
			return err
		}
		pageHTML, err = cdpdom.GetOuterHTML().WithNodeID(root.NodeID).Do(cdpCtx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("failed to snapshot page HTML: %w", err)
	}
	return pageHTML, nil
}
