package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

// stealthJS hides the usual automation fingerprints before any page script runs
const stealthJS = `
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5], configurable: true });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'], configurable: true });
`

// pageMetricsJS collects navigation timing, paint timing and layout signals in
// a single round trip once the page has settled.
const pageMetricsJS = `(() => {
	const nav = performance.getEntriesByType('navigation')[0] || {};
	const paint = performance.getEntriesByType('paint').find(e => e.name === 'first-contentful-paint');
	let baseFontPx = 0;
	if (document.body) {
		baseFontPx = parseFloat(getComputedStyle(document.body).fontSize) || 0;
	}
	const candidates = ['ga', 'gtag', 'dataLayer', 'fbq', 'hj', 'clarity', 'Shopify', 'Wix',
		'Squarespace', 'hbspt', '_hsq', '_learnq', 'Stripe', 'paypal', 'Square', 'jQuery', 'wp'];
	const globals = candidates.filter(name => typeof window[name] !== 'undefined');
	return {
		load_time_ms: Math.round(nav.loadEventEnd || 0),
		dom_content_loaded_ms: Math.round(nav.domContentLoadedEventEnd || 0),
		first_paint_ms: paint ? Math.round(paint.startTime) : -1,
		status_code: nav.responseStatus || 0,
		base_font_px: baseFontPx,
		viewport_width: window.innerWidth,
		globals: globals
	};
})()`

// visibleTextJS walks text nodes in document order and keeps those whose
// parent element actually renders (offsetHeight > 0), joined by single spaces.
const visibleTextJS = `(() => {
	if (!document.body) return '';
	const parts = [];
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT, null);
	let node;
	while ((node = walker.nextNode())) {
		const text = node.textContent.trim();
		if (!text) continue;
		const parent = node.parentElement;
		if (!parent || parent.offsetHeight === 0) continue;
		parts.push(text.replace(/\s+/g, ' '));
	}
	return parts.join(' ');
})()`

type pageMetricsResult struct {
	LoadTimeMs         float64  `json:"load_time_ms"`
	DOMContentLoadedMs float64  `json:"dom_content_loaded_ms"`
	FirstPaintMs       float64  `json:"first_paint_ms"`
	StatusCode         int      `json:"status_code"`
	BaseFontPx         float64  `json:"base_font_px"`
	ViewportWidth      int      `json:"viewport_width"`
	Globals            []string `json:"globals"`
}

// Renderer loads pages through the shared browser pool. Each Render call
// borrows a browser, opens a fresh tab on it and tears the tab down when
// done; the tabs channel caps how many tabs run at once.
type Renderer struct {
	pool      *Pool
	config    *common.BrowserConfig
	logger    arbor.ILogger
	tabs      chan struct{}
	closeOnce sync.Once
}

// NewRenderer wires a renderer onto an initialized browser pool
func NewRenderer(pool *Pool, config *common.BrowserConfig, logger arbor.ILogger) *Renderer {
	maxTabs := config.PoolSize
	if maxTabs < 1 {
		maxTabs = 1
	}

	return &Renderer{
		pool:   pool,
		config: config,
		logger: logger,
		tabs:   make(chan struct{}, maxTabs),
	}
}

// Render navigates to the URL in a new tab, waits for JavaScript to settle and
// captures the rendered document along with timing and layout metrics.
func (r *Renderer) Render(ctx context.Context, pageURL string) (*models.RenderedPage, error) {
	select {
	case r.tabs <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.tabs }()

	browserCtx, release, err := r.pool.GetBrowser()
	if err != nil {
		return nil, fmt.Errorf("failed to get browser from pool: %w", err)
	}
	defer release()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	// Propagate caller cancellation into the tab
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	deadline := r.config.NavigationTimeout + r.config.SettleWait + 10*time.Second
	runCtx, runCancel := context.WithTimeout(tabCtx, deadline)
	defer runCancel()

	var (
		statusMu  sync.Mutex
		docStatus int64
	)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			// First document response is the main frame; iframes arrive later
			if e.Type == network.ResourceTypeDocument {
				statusMu.Lock()
				if docStatus == 0 {
					docStatus = e.Response.Status
				}
				statusMu.Unlock()
			}
		case *network.EventLoadingFailed:
			r.logger.Trace().
				Str("request_id", e.RequestID.String()).
				Str("error_text", e.ErrorText).
				Msg("Network request failed during render")
		}
	})

	var (
		htmlContent string
		finalURL    string
		title       string
		visibleText string
		metrics     pageMetricsResult
	)

	err = chromedp.Run(runCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthJS).Do(ctx)
			return err
		}),
		chromedp.EmulateViewport(int64(r.config.WindowWidth), int64(r.config.WindowHeight)),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(r.config.SettleWait), // Wait for JavaScript to render
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &htmlContent),
		chromedp.Evaluate(visibleTextJS, &visibleText),
		chromedp.Evaluate(pageMetricsJS, &metrics),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Error().Err(err).Str("url", pageURL).Msg("ChromeDP navigation failed")
		return nil, fmt.Errorf("chromedp navigation failed: %w", err)
	}
	if htmlContent == "" {
		r.logger.Warn().Str("url", pageURL).Msg("ChromeDP returned empty HTML content")
		return nil, fmt.Errorf("empty HTML content returned")
	}

	statusMu.Lock()
	statusCode := int(docStatus)
	statusMu.Unlock()
	if statusCode == 0 {
		statusCode = metrics.StatusCode
	}
	if statusCode == 0 {
		statusCode = 200
	}

	if finalURL == "" {
		finalURL = pageURL
	}

	markdown := ""
	mdConverter := md.NewConverter(finalURL, true, nil)
	if converted, convErr := mdConverter.ConvertString(htmlContent); convErr != nil {
		r.logger.Warn().Err(convErr).Str("url", pageURL).Msg("HTML to markdown conversion failed")
	} else {
		markdown = converted
	}

	r.logger.Debug().
		Str("url", pageURL).
		Int("status", statusCode).
		Int("html_bytes", len(htmlContent)).
		Int("load_time_ms", int(metrics.LoadTimeMs)).
		Msg("Page rendered")

	return &models.RenderedPage{
		URL:         pageURL,
		FinalURL:    finalURL,
		Title:       title,
		HTML:        htmlContent,
		VisibleText: visibleText,
		Markdown:    markdown,
		StatusCode:  statusCode,
		Metrics: models.PageMetrics{
			LoadTimeMs:         metrics.LoadTimeMs,
			DOMContentLoadedMs: metrics.DOMContentLoadedMs,
			FirstPaintMs:       metrics.FirstPaintMs,
			BaseFontPx:         metrics.BaseFontPx,
			ViewportWidth:      metrics.ViewportWidth,
			DetectedGlobals:    metrics.Globals,
		},
		RenderedAt: time.Now(),
	}, nil
}

// Close shuts down the underlying browser pool
func (r *Renderer) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.pool.Shutdown()
	})
	return err
}

var _ interfaces.PageRenderer = (*Renderer)(nil)
