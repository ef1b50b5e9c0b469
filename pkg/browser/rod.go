package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/jmylchreest/siteatlas/internal/logger"
)

// Rod drives a single Chrome page through go-rod.
type Rod struct {
	config   Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewRod launches a browser and opens a blank page. ctx is only checked
// before launch; the session lives until Close.
func NewRod(ctx context.Context, cfg Config) (*Rod, error) {
	cfg.applyDefaults()

	bin := cfg.ChromePath
	if bin == "" {
		bin = FindChromePath()
	}
	if bin == "" {
		return nil, ErrNoBrowser
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().
		Bin(bin).
		Headless(cfg.Headless).
		NoSandbox(true).
		Leakless(false)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	r := &Rod{config: cfg, launcher: l}

	r.browser = rod.New().ControlURL(controlURL)
	if err := r.browser.Connect(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	r.page, err = r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := r.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
		logger.Warn("failed to set user agent", "error", err)
	}
	if err := r.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.WindowWidth,
		Height:            cfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		logger.Warn("failed to set viewport", "error", err)
	}

	logger.Debug("rod browser started", "path", bin, "headless", cfg.Headless)
	return r, nil
}

// Navigate implements Browser.
func (r *Rod) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

// Location implements Browser.
func (r *Rod) Location(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return info.URL, nil
}

// HTML implements Browser.
func (r *Rod) HTML(ctx context.Context) (string, error) {
	html, err := r.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page markup: %w", err)
	}
	return html, nil
}

// Elements implements Browser.
func (r *Rod) Elements(ctx context.Context, tag string) ([]Element, error) {
	els, err := r.page.Context(ctx).Elements(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s elements: %w", tag, err)
	}

	elements := make([]Element, 0, len(els))
	for _, el := range els {
		elements = append(elements, &rodElement{el: el})
	}
	return elements, nil
}

// Close implements Browser.
func (r *Rod) Close() error {
	var errs []error
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

// Type implements Browser.
func (r *Rod) Type() string {
	return string(ModeRod)
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Eval(ctx context.Context, fn string, res any) error {
	obj, err := e.el.Context(ctx).Eval(fn)
	if err != nil {
		var notFound *rod.ObjectNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w: %v", ErrElementDetached, err)
		}
		return err
	}
	if res == nil || obj == nil {
		return nil
	}
	return obj.Value.Unmarshal(res)
}
