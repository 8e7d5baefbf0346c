// Package tui is the terminal frontend: it draws each frame with tcell and
// collects command lines from a prompt under it.
package tui

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/tileworld/internal/input"
	"github.com/l1jgo/tileworld/internal/render"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
)

const prompt = "> "

// Frontend implements input.Source and render.Sink on one tcell screen.
// Enter submits the prompt line, Backspace edits it, Esc or Ctrl-C ends
// input.
type Frontend struct {
	screen tcell.Screen
	source *input.ChanSource

	mu    sync.Mutex
	frame render.Frame
	edit  []rune

	closeOnce sync.Once
	done      chan struct{}
	log       *zap.Logger
}

// New wraps an initialized screen.
func New(screen tcell.Screen, log *zap.Logger) *Frontend {
	return &Frontend{
		screen: screen,
		source: input.NewChanSource(16),
		done:   make(chan struct{}),
		log:    log,
	}
}

// NewTerminal opens and initializes the process terminal.
func NewTerminal(log *zap.Logger) (*Frontend, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return New(screen, log), nil
}

// Start launches the event goroutine. It runs until Close.
func (f *Frontend) Start(ctx context.Context) {
	f.draw()
	go f.eventLoop(ctx)
}

func (f *Frontend) eventLoop(ctx context.Context) {
	defer close(f.done)
	for {
		ev := f.screen.PollEvent()
		if ev == nil {
			return // screen finalized
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			f.screen.Sync()
			f.draw()
		case *tcell.EventKey:
			f.handleKey(ctx, ev)
		}
	}
}

func (f *Frontend) handleKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		f.source.Close()
		return
	case tcell.KeyEnter:
		f.mu.Lock()
		line := string(f.edit)
		f.edit = f.edit[:0]
		f.mu.Unlock()
		if !f.source.Push(ctx, line) {
			f.log.Debug("input closed, line dropped", zap.String("line", line))
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		f.mu.Lock()
		if n := len(f.edit); n > 0 {
			f.edit = f.edit[:n-1]
		}
		f.mu.Unlock()
	case tcell.KeyRune:
		f.mu.Lock()
		f.edit = append(f.edit, ev.Rune())
		f.mu.Unlock()
	default:
		return
	}
	f.draw()
}

// ReadLine implements input.Source.
func (f *Frontend) ReadLine(ctx context.Context) (string, error) {
	return f.source.ReadLine(ctx)
}

// Present implements render.Sink.
func (f *Frontend) Present(fr render.Frame) error {
	f.mu.Lock()
	f.frame = fr
	f.mu.Unlock()
	f.draw()
	return nil
}

// Close ends input and restores the terminal.
func (f *Frontend) Close() error {
	f.closeOnce.Do(func() {
		f.source.Close()
		f.screen.Fini()
	})
	return nil
}

// Done is closed when the event goroutine has exited.
func (f *Frontend) Done() <-chan struct{} {
	return f.done
}

// Line returns the text currently typed at the prompt.
func (f *Frontend) Line() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.edit)
}

func (f *Frontend) draw() {
	f.mu.Lock()
	rows := f.frame.Rows
	line := prompt + string(f.edit)
	f.mu.Unlock()

	f.screen.Clear()
	style := tcell.StyleDefault
	for y, row := range rows {
		f.drawText(0, y, row, style)
	}
	py := len(rows)
	if py > 0 {
		py++
	}
	end := f.drawText(0, py, line, style.Bold(true))
	f.screen.ShowCursor(end, py)
	f.screen.Show()
}

// drawText writes s starting at column x and returns the column after it.
func (f *Frontend) drawText(x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		x += f.putGlyph(x, y, r, style)
	}
	return x
}

// putGlyph draws one glyph and returns the columns it occupies. A wide
// glyph gets its second column filled to avoid artifacts.
func (f *Frontend) putGlyph(x, y int, r rune, style tcell.Style) int {
	f.screen.SetContent(x, y, r, nil, style)
	w := runewidth.RuneWidth(r)
	if w == 2 {
		f.screen.SetContent(x+1, y, ' ', nil, style)
		return 2
	}
	return 1
}
