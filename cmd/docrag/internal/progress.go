package internal

import (
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// IngestProgress 在终端中为每个来源显示嵌入进度条。
type IngestProgress struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

// NewIngestProgress 仅在 stderr 为终端时启用进度条。
func NewIngestProgress() *IngestProgress {
	return &IngestProgress{enabled: term.IsTerminal(int(os.Stderr.Fd()))}
}

// Enabled reports whether a bar is drawn.
func (p *IngestProgress) Enabled() bool {
	return p.enabled
}

func (p *IngestProgress) Start(source string, total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.Finish()
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(filepath.Base(source)),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *IngestProgress) Set(done int) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Set(done)
}

func (p *IngestProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}
