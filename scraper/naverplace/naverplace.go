package naverplace

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"restaurant-scraper/models"
	"restaurant-scraper/utils"
)

const (
	// frameSelector is the iframe holding the actual place document on a
	// Naver map page; everything outside it is chrome around the listing.
	frameSelector = "#entryIframe"
	// titleSelector carries the place name inside the frame.
	titleSelector = ".GHAhO"

	acceptLanguage = "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7"

	launchTimeout     = 30 * time.Second
	navigationTimeout = 60 * time.Second
	frameWaitTimeout  = 10 * time.Second
	bodyWaitTimeout   = 10 * time.Second
	titleWaitTimeout  = 5 * time.Second

	// networkidle2-style quiescence: at most idleMaxInflight requests in
	// flight, sustained for idleWindow.
	idleMaxInflight = 2
	idleWindow      = 500 * time.Millisecond
)

// extractScript runs inside the listing frame document and snapshots the
// fixed selector table into a flat record. Selectors are Naver's
// obfuscated class names; a selector that matches nothing yields "".
// Business hours span multiple visual lines, so newline runs collapse to
// single spaces.
const extractScript = `
	(function() {
		var text = function(sel) {
			var el = document.querySelector(sel);
			return el ? el.innerText : '';
		};

		var img = document.querySelector('.fNygA img');

		return {
			name:           text('.GHAhO'),
			category:       text('.lnJFt'),
			visitorReviews: text('a[href*="review/visitor"]'),
			blogReviews:    text('a[href*="review/ugc"]'),
			description:    text('.XtBbS'),
			address:        text('.LDgIH'),
			businessHours:  text('.A_cdD').replace(/[\n\r]+/g, ' '),
			phone:          text('.xlx7Q'),
			imageUrl:       img ? img.src : ''
		};
	})()
`

// Scraper drives one browser sandbox per Scrape call through the Naver
// place pipeline: navigate, locate the listing frame, extract fields.
type Scraper struct {
	prov   Provisioner
	logger *utils.Logger
}

// New creates a ready-to-use place Scraper.
func New(prov Provisioner, logger *utils.Logger) *Scraper {
	return &Scraper{prov: prov, logger: logger}
}

// Scrape renders the listing page at targetURL in a fresh sandbox and
// returns the raw extracted fields. The sandbox is torn down before
// Scrape returns, on every path.
func (s *Scraper) Scrape(ctx context.Context, targetURL string) (*models.RawExtraction, error) {
	allocCtx, cancelAlloc, err := s.prov.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	// First Run starts the Chrome process; bound it so a wedged launch
	// fails instead of hanging.
	launchCtx, cancelLaunch := context.WithTimeout(browserCtx, launchTimeout)
	defer cancelLaunch()
	err = chromedp.Run(launchCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	s.logger.Debug("[naverplace] Navigating to %s", targetURL)

	navCtx, cancelNav := context.WithTimeout(browserCtx, navigationTimeout)
	defer cancelNav()
	err = chromedp.Run(navCtx,
		chromedp.Navigate(targetURL),
		waitNetworkIdle(idleMaxInflight, idleWindow),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: page did not settle: %v", ErrNavigationTimeout, err)
	}

	frameURL, err := s.resolveListingFrame(browserCtx, targetURL)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("[naverplace] Listing frame resolved: %s", frameURL)

	raw, err := s.extractFromFrame(browserCtx, frameURL)
	if err != nil {
		return nil, err
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("%w: title element %s resolved empty", ErrEmptyListing, titleSelector)
	}

	return raw, nil
}

// resolveListingFrame waits for the listing iframe element and returns
// the absolute URL of its content document.
func (s *Scraper) resolveListingFrame(browserCtx context.Context, targetURL string) (string, error) {
	frameCtx, cancelFrame := context.WithTimeout(browserCtx, frameWaitTimeout)
	defer cancelFrame()
	if err := chromedp.Run(frameCtx, chromedp.WaitReady(frameSelector)); err != nil {
		return "", fmt.Errorf("%w: %s not found within %s — not a Naver map place page, check the URL",
			ErrNavigationTimeout, frameSelector, frameWaitTimeout)
	}

	var src string
	var ok bool
	if err := chromedp.Run(frameCtx, chromedp.AttributeValue(frameSelector, "src", &src, &ok)); err != nil || !ok || src == "" {
		return "", fmt.Errorf("%w: %s has no resolvable content document", ErrFrameUnavailable, frameSelector)
	}

	base, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: frame src %q: %v", ErrFrameUnavailable, src, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// extractFromFrame opens the frame document directly and runs the
// read-only extraction script against it.
func (s *Scraper) extractFromFrame(browserCtx context.Context, frameURL string) (*models.RawExtraction, error) {
	navCtx, cancelNav := context.WithTimeout(browserCtx, navigationTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(frameURL)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
	}

	bodyCtx, cancelBody := context.WithTimeout(browserCtx, bodyWaitTimeout)
	defer cancelBody()
	if err := chromedp.Run(bodyCtx, chromedp.WaitReady("body")); err != nil {
		return nil, fmt.Errorf("%w: frame body never appeared: %v", ErrFrameUnavailable, err)
	}

	// Soft readiness signal only: a slow render is not a wrong page.
	titleCtx, cancelTitle := context.WithTimeout(browserCtx, titleWaitTimeout)
	defer cancelTitle()
	if err := chromedp.Run(titleCtx, chromedp.WaitVisible(titleSelector)); err != nil {
		s.logger.Debug("[naverplace] Title element %s not visible yet, extracting anyway", titleSelector)
	}

	var raw models.RawExtraction
	evalCtx, cancelEval := context.WithTimeout(browserCtx, bodyWaitTimeout)
	defer cancelEval()
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(extractScript, &raw)); err != nil {
		return nil, fmt.Errorf("%w: extraction script: %v", ErrFrameUnavailable, err)
	}

	return &raw, nil
}

// waitNetworkIdle blocks until at most maxInflight network requests have
// been in flight continuously for window, or the context deadline hits.
// Equivalent to puppeteer's networkidle2 wait policy.
func waitNetworkIdle(maxInflight int, window time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		idle := make(chan struct{}, 1)

		var (
			mu       sync.Mutex
			inflight = make(map[network.RequestID]struct{})
			timer    *time.Timer
		)

		arm := func() {
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(window, func() {
				select {
				case idle <- struct{}{}:
				default:
				}
			})
		}

		mu.Lock()
		arm()
		mu.Unlock()

		listenCtx, cancelListen := context.WithCancel(ctx)
		defer cancelListen()

		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			mu.Lock()
			defer mu.Unlock()

			switch e := ev.(type) {
			case *network.EventRequestWillBeSent:
				inflight[e.RequestID] = struct{}{}
			case *network.EventLoadingFinished:
				delete(inflight, e.RequestID)
			case *network.EventLoadingFailed:
				delete(inflight, e.RequestID)
			default:
				return
			}

			if len(inflight) <= maxInflight {
				arm()
			} else if timer != nil {
				timer.Stop()
			}
		})

		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
