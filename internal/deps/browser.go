package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// browserCandidates mirrors the names chromedp's default allocator searches
// on Linux, so the check reports the binary the scrapers will launch.
var browserCandidates = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
}

// CheckBrowser reports the Chrome or Chromium binary used by the scraping
// adapters. An explicit execPath is checked as given.
func CheckBrowser(execPath string) Status {
	result := Status{
		Name:        "Chromium",
		Description: "Required by the goout and ticketportal adapters",
	}

	if path := strings.TrimSpace(execPath); path != "" {
		result.Command = path
		info, err := os.Stat(path)
		if err != nil {
			if resolved, lookErr := exec.LookPath(path); lookErr == nil {
				result.Command = resolved
				result.Available = true
				return result
			}
			result.Detail = fmt.Sprintf("exec_path %q not found", path)
			return result
		}
		if !isExecutable(path, info) {
			result.Detail = fmt.Sprintf("exec_path %q is not executable", path)
			return result
		}
		result.Available = true
		return result
	}

	for _, name := range browserCandidates {
		if resolved, err := exec.LookPath(name); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
	}
	result.Command = browserCandidates[2]
	result.Detail = "no chrome or chromium binary found on PATH"
	return result
}

func isExecutable(path string, info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
