package browser

import (
	"os/exec"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/jmylchreest/siteatlas/internal/logger"
)

// Common Chrome/Chromium binary names and install locations.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
}

var darwinChromePaths = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

var windowsChromePaths = []string{
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath searches PATH and the usual install locations for a
// Chrome/Chromium binary, then falls back to rod's launcher lookup (which
// also knows about browsers rod downloaded earlier). It returns "" when
// nothing is found.
func FindChromePath() string {
	candidates := chromeBinaryNames
	switch runtime.GOOS {
	case "darwin":
		candidates = append(darwinChromePaths, candidates...)
	case "windows":
		candidates = append(windowsChromePaths, candidates...)
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}

	if path, ok := launcher.LookPath(); ok {
		logger.Debug("found Chrome binary via launcher", "path", path)
		return path
	}

	logger.Warn("no Chrome binary found - chrome and rod browser modes will not work")
	return ""
}
