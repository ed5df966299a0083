// -----------------------------------------------------------------------
// Browser Pool - shared headless Chrome instances with round-robin handout
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
)

// Pool manages headless Chrome instances shared across analyses. Callers
// receive a browser context and open their own tab on it, so concurrent
// renders spread across instances without stepping on each other.
type Pool struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	config           *common.BrowserConfig
	currentIndex     int
	logger           arbor.ILogger
	initialized      bool
}

// NewPool creates an uninitialized browser pool
func NewPool(config *common.BrowserConfig, logger arbor.ILogger) *Pool {
	return &Pool{
		config: config,
		logger: logger,
	}
}

// Init starts the configured number of Chrome instances, probing each with an
// about:blank navigation. Initialization succeeds as long as at least one
// instance starts; partial pools are logged and used as-is.
func (p *Pool) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}

	size := p.config.PoolSize
	if size <= 0 {
		size = 1
	}
	if size > 20 {
		p.logger.Warn().
			Int("pool_size", size).
			Msg("Large browser pool size detected - this may consume significant memory")
	}

	p.browsers = make([]context.Context, 0, size)
	p.browserCancels = make([]context.CancelFunc, 0, size)
	p.allocatorCancels = make([]context.CancelFunc, 0, size)
	p.currentIndex = 0

	p.logger.Info().
		Int("pool_size", size).
		Bool("headless", p.config.Headless).
		Str("user_agent", p.config.UserAgent).
		Msg("Initializing browser pool")

	successCount := 0
	var lastErr error
	for i := 0; i < size; i++ {
		if err := p.createInstance(i); err != nil {
			lastErr = err
			p.logger.Warn().
				Err(err).
				Int("browser_index", i).
				Int("successful_instances", successCount).
				Msg("Failed to create browser instance")

			if successCount == 0 && i == size-1 {
				p.cleanupInstances()
				return fmt.Errorf("failed to create any browser instances, last error: %w", lastErr)
			}
			continue
		}
		successCount++
	}

	if successCount == 0 {
		p.cleanupInstances()
		return fmt.Errorf("failed to create any browser instances, last error: %w", lastErr)
	}
	if successCount < size {
		p.logger.Warn().
			Int("requested", size).
			Int("created", successCount).
			Msg("Created fewer browser instances than requested")
	}

	p.initialized = true
	p.logger.Info().
		Int("browsers_created", len(p.browsers)).
		Msg("Browser pool initialized")

	return nil
}

// createInstance starts one Chrome process and verifies it responds.
// Must be called with the mutex held.
func (p *Pool) createInstance(index int) error {
	startTime := time.Now()

	allocatorOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		// Stealth options to avoid bot detection
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(p.config.WindowWidth, p.config.WindowHeight),
		chromedp.UserAgent(p.config.UserAgent),
	}
	if p.config.Headless {
		allocatorOpts = append(allocatorOpts, chromedp.Headless)
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(
		context.Background(),
		allocatorOpts...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testTimeout := 30 * time.Second
	if p.config.NavigationTimeout > 0 {
		testTimeout = p.config.NavigationTimeout
	}
	testCtx, testCancel := context.WithTimeout(browserCtx, testTimeout)
	defer testCancel()

	// Startup probe
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser instance failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)

	p.logger.Debug().
		Int("browser_index", index).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance created")

	return nil
}

// GetBrowser returns a browser context chosen round-robin plus a release
// func the caller must invoke when its tab is done.
func (p *Pool) GetBrowser() (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, nil, fmt.Errorf("browser pool not initialized")
	}
	if len(p.browsers) == 0 {
		return nil, nil, fmt.Errorf("no browser instances available")
	}

	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)

	browserCtx := p.browsers[index]
	releaseFunc := func() {
		p.logger.Trace().
			Int("browser_index", index).
			Msg("Browser context released")
	}

	return browserCtx, releaseFunc, nil
}

// Shutdown cancels every browser and allocator context, guarded by a timeout
// so a wedged Chrome process cannot hang application shutdown.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		p.logger.Debug().Msg("Browser pool already shut down or never initialized")
		return nil
	}

	browserCount := len(p.browsers)
	startTime := time.Now()

	done := make(chan struct{})
	go func() {
		p.cleanupInstances()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		p.logger.Warn().
			Int("browser_count", browserCount).
			Msg("Browser pool shutdown timed out, forcing cleanup")
		p.cleanupInstances()
	}

	p.initialized = false
	p.logger.Info().
		Int("browsers_shutdown", browserCount).
		Dur("shutdown_time", time.Since(startTime)).
		Msg("Browser pool shut down")

	return nil
}

// cleanupInstances cancels all contexts. Must be called with the mutex held.
func (p *Pool) cleanupInstances() {
	for _, cancel := range p.browserCancels {
		if cancel != nil {
			cancel()
		}
	}
	for _, cancel := range p.allocatorCancels {
		if cancel != nil {
			cancel()
		}
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
}

// Stats reports pool state for the status endpoint
func (p *Pool) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	return map[string]interface{}{
		"pool_size":        p.config.PoolSize,
		"active_instances": len(p.browsers),
		"initialized":      p.initialized,
	}
}

// IsInitialized returns whether Init has completed successfully
func (p *Pool) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}
