package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/stupside/reelpull/internal/app"
)

// ErrBrowserUnavailable is returned when no usable Chrome binary exists and
// provisioning is disabled or failed.
var ErrBrowserUnavailable = errors.New("browser unavailable")

// executableTypes are the binary formats accepted as a browser.
var executableTypes = []string{
	"application/x-elf",
	"application/x-mach-binary",
	"application/vnd.microsoft.portable-executable",
	"text/x-shellscript",
}

// resolveBrowser finds the Chrome binary for a session: the configured
// path, then one installed on the system, then a provisioned download.
func resolveBrowser(ctx context.Context, cfg app.BrowserConfig) (string, error) {
	if cfg.ChromePath != "" {
		if err := checkExecutable(cfg.ChromePath); err != nil {
			return "", fmt.Errorf("%w: configured chrome_path: %w", ErrBrowserUnavailable, err)
		}
		return cfg.ChromePath, nil
	}

	if path, ok := launcher.LookPath(); ok {
		err := checkExecutable(path)
		if err == nil {
			return path, nil
		}
		slog.DebugContext(ctx, "ignoring system browser", "path", path, "error", err)
	}

	if cfg.SkipProvision {
		return "", fmt.Errorf("%w: no system browser found and provisioning is disabled", ErrBrowserUnavailable)
	}

	slog.InfoContext(ctx, "provisioning browser")
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("%w: provisioning: %w", ErrBrowserUnavailable, err)
	}
	if err := checkExecutable(path); err != nil {
		return "", fmt.Errorf("%w: provisioned binary: %w", ErrBrowserUnavailable, err)
	}
	return path, nil
}

// checkExecutable verifies path is an executable file of a known binary
// format.
func checkExecutable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detecting %s: %w", path, err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		for _, want := range executableTypes {
			if m.Is(want) {
				return nil
			}
		}
	}
	return fmt.Errorf("%s is %s, not a browser binary", path, mtype.String())
}
