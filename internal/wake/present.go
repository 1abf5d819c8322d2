package wake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"papercal/internal/capture"
	"papercal/internal/convert"
	appLog "papercal/internal/log"
	"papercal/internal/render"
)

// Panel accepts packed black/red planes. *epd.Driver implements it.
type Panel interface {
	Show(black, red []byte) error
}

// PanelPresenter screenshots the /calendar page, stores the PNG as preview
// and, when a panel is attached, converts and displays it.
type PanelPresenter struct {
	CaptureURL  string
	PreviewPath string
	// Panel is nil for the "none" display driver.
	Panel Panel
	// Capture defaults to capture.CalendarPNG.
	Capture func(ctx context.Context, opts capture.Options) ([]byte, error)
}

func (p *PanelPresenter) Present(ctx context.Context, _ render.MonthView) error {
	shoot := p.Capture
	if shoot == nil {
		shoot = capture.CalendarPNG
	}
	png, err := shoot(ctx, capture.Options{
		URL:    p.CaptureURL,
		Width:  convert.EPDWidth,
		Height: convert.EPDHeight,
	})
	if err != nil {
		return err
	}

	if p.PreviewPath != "" {
		if err := writePreview(p.PreviewPath, png); err != nil {
			return err
		}
		appLog.Info("preview written", "path", p.PreviewPath, "bytes", len(png))
	}
	if p.Panel == nil {
		return nil
	}

	img, err := convert.DecodePNG(png)
	if err != nil {
		return err
	}
	black, red, err := convert.PackNRGBA(img)
	if err != nil {
		return err
	}
	return p.Panel.Show(black, red)
}

func writePreview(path string, png []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("wake: preview dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, png, 0o644); err != nil {
		return fmt.Errorf("wake: write preview: %w", err)
	}
	return os.Rename(tmp, path)
}

// TerminalPresenter prints the month grid to W.
type TerminalPresenter struct {
	W io.Writer
}

func (t TerminalPresenter) Present(_ context.Context, v render.MonthView) error {
	return render.WritePreview(t.W, v)
}
