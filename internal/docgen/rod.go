package docgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"verihub/internal/config"
	"verihub/internal/logging"
)

// RodRenderer rasterizes document pages through a headless Chromium
// controlled over the DevTools protocol. One browser serves all renders;
// each render gets its own page.
type RodRenderer struct {
	cfg config.BrowserConfig

	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
}

// NewRodRenderer builds a renderer from browser settings. Call Start before
// the first Render.
func NewRodRenderer(cfg config.BrowserConfig) *RodRenderer {
	return &RodRenderer{cfg: cfg}
}

// Start launches Chromium and connects. Idempotent.
func (r *RodRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return nil
	}

	launch := launcher.New().Headless(r.cfg.Headless)
	if r.cfg.Bin != "" {
		launch = launch.Bin(r.cfg.Bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	r.browser = browser
	r.controlURL = controlURL
	logging.Renderer("browser connected headless=%v", r.cfg.Headless)
	return nil
}

// Shutdown closes the browser. Safe to call when never started.
func (r *RodRenderer) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	r.controlURL = ""
	return err
}

// Render loads the page content at the document viewport and captures a
// full-page PNG at 2x scale. The short settle delay lets fonts and layout
// finish before capture.
func (r *RodRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	r.mu.Lock()
	browser := r.browser
	r.mu.Unlock()
	if browser == nil {
		return nil, fmt.Errorf("renderer not started")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.ViewportWidth,
		Height:            r.cfg.ViewportHeight,
		DeviceScaleFactor: 2,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}

	settle := time.Duration(r.cfg.RenderDelayMs) * time.Millisecond
	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return data, nil
}
