package crawler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmylchreest/siteatlas/internal/logger"
	"github.com/jmylchreest/siteatlas/pkg/browser"
	"github.com/jmylchreest/siteatlas/pkg/sitemap"
)

// buttonTag is the element type inspected for script-driven navigation.
const buttonTag = "button"

// Discover presses every distinct button on the page currently rendered by
// b and records where each one navigates. Only targets whose host is in
// domains are returned; disallowed targets are dropped rather than reported
// as ignored.
//
// Buttons are identified by a hash of their markup. A button is pressed at
// most once per call even when the DOM is rebuilt, and buttons that appear
// after a press are picked up on the next enumeration. When a press
// navigates away the page is reloaded from its original location before
// continuing.
//
// A failing element is logged and skipped. The returned error is only
// non-nil when the page itself is unusable: its location cannot be read,
// it cannot be restored after a navigation, or ctx is done. The map
// collected so far is returned alongside it.
func Discover(ctx context.Context, b browser.Browser, domains sitemap.Domains, settle time.Duration) (sitemap.SiteMap, error) {
	base, err := b.Location(ctx)
	if err != nil {
		return sitemap.SiteMap{}, fmt.Errorf("failed to read base location: %w", err)
	}

	seen := make(map[string]struct{})
	var targets []string

	finish := func(err error) (sitemap.SiteMap, error) {
		all := sitemap.Partition(targets, domains)
		for _, u := range all.Ignored() {
			logger.Debug("dropping disallowed interactive target", "url", u, "page", base)
		}
		logger.Debug("interactive discovery complete",
			"url", base,
			"pressed", len(seen),
			"targets", all.AllowedLen())
		return all.WithoutIgnored(), err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		button, fingerprint, err := nextUnseen(ctx, b, seen)
		if err != nil {
			return finish(fmt.Errorf("failed to enumerate buttons: %w", err))
		}
		if button == nil {
			return finish(nil)
		}

		// Recorded before pressing so a failing button is never retried.
		seen[fingerprint] = struct{}{}

		if err := press(ctx, button); err != nil {
			logger.Info("could not press button", "url", base, "error", err)
			continue
		}

		if err := sleep(ctx, settle); err != nil {
			return finish(err)
		}

		loc, err := b.Location(ctx)
		if err != nil {
			// The press may have navigated away; restore the page so the
			// next enumeration sees its buttons and not another page's.
			logger.Info("could not read location after press", "url", base, "error", err)
			if err := b.Navigate(ctx, base); err != nil {
				return finish(fmt.Errorf("failed to return to %s: %w", base, err))
			}
			continue
		}
		if loc == base {
			continue
		}

		logger.Debug("button navigated", "from", base, "to", loc)
		targets = append(targets, loc)
		if err := b.Navigate(ctx, base); err != nil {
			return finish(fmt.Errorf("failed to return to %s: %w", base, err))
		}
	}
}

// nextUnseen returns the first button whose fingerprint is not in seen, or
// nil when every button has been handled. Buttons that cannot be
// fingerprinted are skipped.
func nextUnseen(ctx context.Context, b browser.Browser, seen map[string]struct{}) (browser.Element, string, error) {
	buttons, err := b.Elements(ctx, buttonTag)
	if err != nil {
		return nil, "", err
	}

	for _, button := range buttons {
		fingerprint, err := fingerprint(ctx, button)
		if err != nil {
			logger.Debug("could not fingerprint button", "error", err)
			continue
		}
		if _, ok := seen[fingerprint]; !ok {
			return button, fingerprint, nil
		}
	}
	return nil, "", nil
}

// fingerprint hashes the element's serialized markup.
func fingerprint(ctx context.Context, el browser.Element) (string, error) {
	var markup string
	if err := el.Eval(ctx, browser.ScriptOuterHTML, &markup); err != nil {
		return "", err
	}
	sum := md5.Sum([]byte(markup))
	return hex.EncodeToString(sum[:]), nil
}

func press(ctx context.Context, el browser.Element) error {
	if err := el.Eval(ctx, browser.ScriptScrollIntoView, nil); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	if err := el.Eval(ctx, browser.ScriptMouseDown, nil); err != nil {
		return fmt.Errorf("mousedown: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
