package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"places_scraper/internal/domain"
	"places_scraper/internal/shared"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

type Options struct {
	Headless  bool
	UserAgent string
	// Language is sent as Accept-Language so listing labels match the parsers.
	Language string
	// Settle is the pause after each navigation before the page is read.
	Settle time.Duration
}

// Session drives one Chrome tab through chromedp.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	settle      time.Duration
}

var _ domain.Session = (*Session)(nil)

// NewSession launches the browser. A launch failure is returned as is; the
// caller treats it as fatal.
func NewSession(parent context.Context, o Options) (*Session, error) {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Settle == 0 {
		o.Settle = time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(o.UserAgent),
		chromedp.WindowSize(1440, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(f string, a ...any) { log.Debug().Str("component", "chromedp").Msgf(f, a...) }),
		chromedp.WithErrorf(func(f string, a ...any) { log.Debug().Str("component", "chromedp").Msgf(f, a...) }),
	)
	// first Run starts the browser
	if err := chromedp.Run(ctx, startupActions(o)...); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return &Session{ctx: ctx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, settle: o.Settle}, nil
}

func startupActions(o Options) []chromedp.Action {
	if o.Language == "" {
		return nil
	}
	return []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": o.Language}),
	}
}

// run executes actions on the tab, aborting when either ctx or the tab ends.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url, waits for the page to settle and dismisses the cookie
// consent dialog if one is shown.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if !shared.SleepCtx(ctx, s.settle) {
		return ctx.Err()
	}
	var clicked bool
	if err := s.run(ctx, 5*time.Second, chromedp.Evaluate(consentScript, &clicked)); err != nil {
		log.Debug().Err(err).Msg("consent check failed")
	} else if clicked {
		log.Debug().Str("url", url).Msg("consent dialog dismissed")
		shared.SleepCtx(ctx, s.settle)
	}
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *Session) Eval(ctx context.Context, script string, out any) error {
	return s.run(ctx, 0, chromedp.Evaluate(script, out))
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: wait for %s: %v", domain.ErrInteraction, selector, err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: click %s: %v", domain.ErrInteraction, selector, err)
	}
	return nil
}

func (s *Session) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
