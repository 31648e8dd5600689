package naverplace

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"
)

// Provisioner acquires a disposable browser allocator. Implementations
// differ only in how the Chrome binary is resolved; the returned context
// is handed to chromedp.NewContext and the cancel func tears the
// allocator down.
type Provisioner interface {
	Allocate(ctx context.Context) (context.Context, context.CancelFunc, error)
}

func baseOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("lang", "ko-KR"),
		chromedp.WindowSize(1280, 720),
	)
}

// LocalProvisioner assumes a preinstalled Chrome/Chromium; chromedp finds
// it on PATH unless Bin pins an explicit binary.
type LocalProvisioner struct {
	Bin string
}

func (p *LocalProvisioner) Allocate(ctx context.Context) (context.Context, context.CancelFunc, error) {
	opts := baseOptions()
	if p.Bin != "" {
		opts = append(opts, chromedp.ExecPath(p.Bin))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return allocCtx, cancel, nil
}

// HostedProvisioner targets constrained hosting: it resolves a platform
// browser binary at launch time and runs Chrome without sandboxing.
type HostedProvisioner struct {
	Bin string
}

func (p *HostedProvisioner) Allocate(ctx context.Context) (context.Context, context.CancelFunc, error) {
	bin := p.Bin
	if bin == "" {
		bin = resolveChromeBinary()
	}
	if bin == "" {
		return nil, nil, fmt.Errorf("no chrome binary found on this host")
	}

	opts := append(baseOptions(),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.ExecPath(bin),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return allocCtx, cancel, nil
}

// resolveChromeBinary locates a Chrome/Chromium binary on the host.
func resolveChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
