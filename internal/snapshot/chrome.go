package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// ChromeRenderer drives a headless Chrome, one browser process per Render.
type ChromeRenderer struct {
	Width    int
	Height   int
	ExecPath string
	Log      *slog.Logger
}

func (r *ChromeRenderer) Render(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(r.Width, r.Height),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer func() {
		if err := chromedp.Cancel(browserCtx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			r.logger().Warn("close browser", "error", err.Error())
		}
		cancelBrowser()
	}()

	arm, idle := networkAlmostIdle(browserCtx)

	var img []byte
	err := chromedp.Run(browserCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(int64(r.Width), int64(r.Height)),
		arm,
		chromedp.Navigate(url),
		idle,
		chromedp.FullScreenshot(&img, 100),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "render %s", url)
	}
	return img, nil
}

func (r *ChromeRenderer) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// networkAlmostIdle waits for Chrome's networkAlmostIdle lifecycle event
// (at most two open connections for 500ms) of the top-level navigation
// started after arm ran. Events from child frames are ignored. The wait is
// bounded by the context deadline.
func networkAlmostIdle(ctx context.Context) (arm, wait chromedp.Action) {
	var armed, committed atomic.Bool
	var mainFrame atomic.Value
	var once sync.Once
	done := make(chan struct{})

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || !armed.Load() {
			return
		}
		if id, _ := mainFrame.Load().(cdp.FrameID); e.FrameID != id {
			return
		}
		switch e.Name {
		case "init":
			committed.Store(true)
		case "networkAlmostIdle":
			if committed.Load() {
				once.Do(func() { close(done) })
			}
		}
	})

	arm = chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return errors.Wrap(err, "frame tree")
		}
		mainFrame.Store(tree.Frame.ID)
		armed.Store(true)
		return nil
	})
	wait = chromedp.ActionFunc(func(ctx context.Context) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait for network idle")
		}
	})
	return arm, wait
}
