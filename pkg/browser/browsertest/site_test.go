package browsertest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jmylchreest/siteatlas/pkg/browser"
)

func TestSite_NavigateAndPress(t *testing.T) {
	ctx := context.Background()
	s := NewSite().
		Add("http://a/", Page{
			HTML: "<a href='/b'>b</a>",
			Buttons: []Button{{
				Markup: "<button>go</button>",
				Target: "http://a/c",
				Inject: []Button{{Markup: "<button>new</button>"}},
			}},
		}).
		Add("http://a/c", Page{HTML: "c"})

	if err := s.Navigate(ctx, "http://a/"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	els, _ := s.Elements(ctx, "button")
	if len(els) != 1 {
		t.Fatalf("expected 1 button, got %d", len(els))
	}

	var markup string
	if err := els[0].Eval(ctx, browser.ScriptOuterHTML, &markup); err != nil || markup != "<button>go</button>" {
		t.Errorf("outerHTML = %q, %v", markup, err)
	}

	if err := els[0].Eval(ctx, browser.ScriptMouseDown, nil); err != nil {
		t.Fatalf("mousedown error = %v", err)
	}
	if loc, _ := s.Location(ctx); loc != "http://a/c" {
		t.Errorf("Location() = %q, want http://a/c", loc)
	}

	// The handle belongs to the previous document.
	if err := els[0].Eval(ctx, browser.ScriptOuterHTML, &markup); !errors.Is(err, browser.ErrElementDetached) {
		t.Errorf("stale handle error = %v, want ErrElementDetached", err)
	}

	_ = s.Navigate(ctx, "http://a/")
	els, _ = s.Elements(ctx, "button")
	if len(els) != 2 {
		t.Errorf("expected injected button after return, got %d buttons", len(els))
	}

	if got := s.Navigations(); !slices.Equal(got, []string{"http://a/", "http://a/"}) {
		t.Errorf("Navigations() = %v", got)
	}
	if got := s.Presses(); !slices.Equal(got, []string{"<button>go</button>"}) {
		t.Errorf("Presses() = %v", got)
	}
}

func TestSite_NavigationFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := NewSite().Add("http://a/", Page{}).FailNavigation("http://a/", boom)

	if err := s.Navigate(ctx, "http://a/"); !errors.Is(err, browser.ErrNavigation) {
		t.Errorf("Navigate() error = %v, want ErrNavigation", err)
	}
	if err := s.Navigate(ctx, "http://missing/"); !errors.Is(err, browser.ErrNavigation) {
		t.Errorf("Navigate(missing) error = %v, want ErrNavigation", err)
	}
}

func TestSite_FailingButton(t *testing.T) {
	ctx := context.Background()
	s := NewSite().Add("http://a/", Page{Buttons: []Button{{Markup: "<button>x</button>", Fail: true}}})
	_ = s.Navigate(ctx, "http://a/")

	els, _ := s.Elements(ctx, "button")
	if err := els[0].Eval(ctx, browser.ScriptMouseDown, nil); !errors.Is(err, browser.ErrElementDetached) {
		t.Errorf("error = %v, want ErrElementDetached", err)
	}
}

func TestSite_FailPress(t *testing.T) {
	ctx := context.Background()
	s := NewSite().Add("http://a/", Page{Buttons: []Button{{Markup: "<button>x</button>", FailPress: true}}})
	_ = s.Navigate(ctx, "http://a/")

	els, _ := s.Elements(ctx, "button")
	var markup string
	if err := els[0].Eval(ctx, browser.ScriptOuterHTML, &markup); err != nil || markup != "<button>x</button>" {
		t.Errorf("OuterHTML = %q, %v", markup, err)
	}
	if err := els[0].Eval(ctx, browser.ScriptScrollIntoView, nil); !errors.Is(err, browser.ErrElementDetached) {
		t.Errorf("scroll error = %v, want ErrElementDetached", err)
	}
	if got := s.Attempts(); !slices.Equal(got, []string{"<button>x</button>"}) {
		t.Errorf("Attempts() = %v", got)
	}
}

func TestSite_LoseLocation(t *testing.T) {
	ctx := context.Background()
	s := NewSite().
		Add("http://a/", Page{Buttons: []Button{{Markup: "<button>x</button>", Target: "http://b/", LoseLocation: true}}}).
		Add("http://b/", Page{})
	_ = s.Navigate(ctx, "http://a/")

	els, _ := s.Elements(ctx, "button")
	_ = els[0].Eval(ctx, browser.ScriptMouseDown, nil)

	if _, err := s.Location(ctx); err == nil {
		t.Error("first Location() after the press should fail")
	}
	if loc, err := s.Location(ctx); err != nil || loc != "http://b/" {
		t.Errorf("Location() = %q, %v", loc, err)
	}
}

func TestSite_UnknownScript(t *testing.T) {
	ctx := context.Background()
	s := NewSite().Add("http://a/", Page{Buttons: []Button{{Markup: "<button>x</button>"}}})
	_ = s.Navigate(ctx, "http://a/")

	els, _ := s.Elements(ctx, "button")
	if err := els[0].Eval(ctx, "function() { return 1; }", nil); !errors.Is(err, browser.ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}
