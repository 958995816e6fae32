package invoice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromedpRenderer prints HTML to PDF through headless Chrome
type ChromedpRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewChromedpRenderer connects to remoteURL when set, otherwise launches a local browser
func NewChromedpRenderer(remoteURL string, logger *zap.Logger) *ChromedpRenderer {
	r := &ChromedpRenderer{logger: logger.Named("invoice")}
	if remoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), remoteURL)
		return r
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

func (r *ChromedpRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	browserCtx, cancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer cancel()

	// propagate the caller's deadline to the browser tab
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27). // A4
				WithPaperHeight(11.69).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pdf rendering cancelled: %w", ctx.Err())
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, fmt.Errorf("pdf rendering failed: %w", err)
	}
	if len(pdf) == 0 {
		return nil, errors.New("generated pdf is empty")
	}
	return pdf, nil
}

func (r *ChromedpRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocCancel != nil {
		r.allocCancel()
		r.allocCancel = nil
	}
}
