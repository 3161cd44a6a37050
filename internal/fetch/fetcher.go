package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/bidcraft/bidcraft/internal/domain"
)

// Defaults for headless page loads. Listing pages render their content
// client-side, so a settle delay after body-ready is required before the
// markup is worth parsing.
const (
	DefaultFetchTimeout = 60 * time.Second
	DefaultSettleDelay  = 3 * time.Second

	userAgent = "BidcraftBot/1.0 (+https://bidcraft.dev)"
)

// PageFetcher loads a URL and returns its rendered markup.
type PageFetcher interface {
	Page(ctx context.Context, url string) (string, error)
}

// BrowserFetcher renders pages in a headless browser. Each fetch runs in
// its own browser context, so concurrent fetches do not share state.
type BrowserFetcher struct {
	timeout time.Duration
	settle  time.Duration
}

func NewBrowserFetcher() *BrowserFetcher {
	return &BrowserFetcher{
		timeout: DefaultFetchTimeout,
		settle:  DefaultSettleDelay,
	}
}

func NewBrowserFetcherWithTimeouts(timeout, settle time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if settle < 0 {
		settle = DefaultSettleDelay
	}
	return &BrowserFetcher{timeout: timeout, settle: settle}
}

// Page navigates to url, waits for the page to render, and returns the
// full markup. Failures surface as FETCH_ERROR.
func (f *BrowserFetcher) Page(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "url is required")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var markup string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settle),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeFetch, "failed to fetch page", err)
	}
	return markup, nil
}
