package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/siteatlas/internal/logger"
)

// Chrome drives a single headless Chrome tab through chromedp.
type Chrome struct {
	config      Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc
}

// NewChrome launches Chrome and opens the tab every call will run in.
// ctx only bounds the launch; the session lives until Close.
func NewChrome(ctx context.Context, cfg Config) (*Chrome, error) {
	cfg.applyDefaults()

	var opts []chromedp.ExecAllocatorOption
	if cfg.Stealth {
		opts = append(chromedp.DefaultExecAllocatorOptions[:], StealthExecAllocatorOptions(cfg)...)
	} else {
		opts = append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		)
	}

	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = FindChromePath()
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	opts = append(opts, chromedp.UserAgent(cfg.UserAgent))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	b := &Chrome{
		config:      cfg,
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
	}

	// The first Run on the tab context starts the browser; it must not run on
	// a derived context or the browser would die with it.
	var startup []chromedp.Action
	if cfg.Stealth {
		startup = append(startup, InjectStealthScript())
	}
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx, startup...) }()

	select {
	case err := <-started:
		if err != nil {
			_ = b.Close()
			if chromePath == "" {
				return nil, fmt.Errorf("%w: %v", ErrNoBrowser, err)
			}
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-ctx.Done():
		_ = b.Close()
		return nil, ctx.Err()
	}

	logger.Debug("chrome browser started",
		"path", chromePath,
		"headless", cfg.Headless,
		"stealth", cfg.Stealth)

	return b, nil
}

// run executes actions on the tab, bounded by ctx's cancellation and deadline.
func (b *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate implements Browser.
func (b *Chrome) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}
	return nil
}

// Location implements Browser.
func (b *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	if err := b.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// HTML implements Browser.
func (b *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page markup: %w", err)
	}
	return html, nil
}

// Elements implements Browser.
func (b *Chrome) Elements(ctx context.Context, tag string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := b.run(ctx, chromedp.Nodes(tag, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to query %s elements: %w", tag, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{browser: b, node: n})
	}
	return elements, nil
}

// Close implements Browser.
func (b *Chrome) Close() error {
	if b.cancelTab != nil {
		b.cancelTab()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	return nil
}

// Type implements Browser.
func (b *Chrome) Type() string {
	return string(ModeChrome)
}

type chromeElement struct {
	browser *Chrome
	node    *cdp.Node
}

func (e *chromeElement) Eval(ctx context.Context, fn string, res any) error {
	return e.browser.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrElementDetached, err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		result, exception, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return exception
		}
		if res == nil || result == nil || len(result.Value) == 0 {
			return nil
		}
		return json.Unmarshal(result.Value, res)
	}))
}
