package windowsync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/logging"
)

// Window is a pop-out's side of the protocol.
type Window struct {
	role      Role
	opener    Handle
	inbox     *ChannelHandle
	navigator Navigator
	logger    *zerolog.Logger

	mu        sync.Mutex
	pdf       Handle
	readyOnce sync.Once
	announced bool
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithNavigator sets the viewer that NAVIGATE_TO_PAGE drives.
func WithNavigator(nav Navigator) WindowOption {
	return func(w *Window) {
		w.navigator = nav
	}
}

// WithPDFHandle gives the window a direct handle to the PDF window.
func WithPDFHandle(h Handle) WindowOption {
	return func(w *Window) {
		w.pdf = h
	}
}

// WithInboxSize sets the inbox buffer.
func WithInboxSize(size int) WindowOption {
	return func(w *Window) {
		w.inbox = NewChannelHandle(size)
	}
}

// WithWindowLogger sets the window logger.
func WithWindowLogger(logger *zerolog.Logger) WindowOption {
	return func(w *Window) {
		w.logger = logger
	}
}

// NewWindow creates a window playing role, opened by opener.
func NewWindow(role Role, opener Handle, opts ...WindowOption) *Window {
	w := &Window{role: role, opener: opener}
	for _, opt := range opts {
		opt(w)
	}
	if w.inbox == nil {
		w.inbox = NewChannelHandle(constants.WindowInboxSize)
	}
	l := logging.OrNop(w.logger).With().Str("role", string(role)).Logger()
	w.logger = &l
	return w
}

// Role returns the window's role.
func (w *Window) Role() Role { return w.role }

// Inbox is the handle other windows use to reach this one.
func (w *Window) Inbox() *ChannelHandle { return w.inbox }

// SetPDFHandle replaces the direct handle to the PDF window.
func (w *Window) SetPDFHandle(h Handle) {
	w.mu.Lock()
	w.pdf = h
	w.mu.Unlock()
}

// Announce sends READY to the opener. Only the first call sends; it
// reports whether the opener accepted the message.
func (w *Window) Announce() bool {
	w.readyOnce.Do(func() {
		if w.opener == nil || w.opener.Closed() {
			w.logger.Debug().Err(errors.ErrUndeliveredMessage).Msg("No opener to announce to")
			return
		}
		w.announced = w.opener.Send(Ready(w.role))
	})
	return w.announced
}

// CitationClicked routes a citation jump: straight to the PDF window when
// this window holds a live handle to it, else through the relay.
func (w *Window) CitationClicked(page int) {
	msg := NavigateToPage(page)
	if msg.Validate() != nil {
		w.logger.Debug().Int("page", page).Msg("Ignoring citation with invalid page")
		return
	}
	w.mu.Lock()
	pdf := w.pdf
	if pdf != nil && pdf.Closed() {
		w.pdf, pdf = nil, nil
	}
	w.mu.Unlock()

	if pdf != nil {
		if !pdf.Send(msg) {
			w.logger.Debug().Err(errors.ErrUndeliveredMessage).Int("page", page).Msg("Message dropped")
		}
		return
	}
	if w.opener == nil || !w.opener.Send(NavigatePDF(page)) {
		w.logger.Debug().Err(errors.ErrUndeliveredMessage).Int("page", page).Msg("Message dropped")
	}
}

// Run announces the window and processes its inbox until ctx is done or
// the window is closed. All navigation happens on this goroutine.
func (w *Window) Run(ctx context.Context) error {
	w.Announce()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-w.inbox.C():
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Window) handle(ctx context.Context, msg Message) {
	switch msg.Type {
	case TypeNavigateToPage:
		if w.navigator == nil {
			w.logger.Debug().Int("page", msg.Page).Msg("No viewer for navigation")
			return
		}
		if err := w.navigator.NavigateTo(ctx, msg.Page); err != nil && !errors.IsStale(err) {
			w.logger.Warn().Err(err).Int("page", msg.Page).Msg("Navigation failed")
		}
	default:
		w.logger.Debug().Str("message", msg.String()).Msg("Ignoring message")
	}
}

// Close closes the inbox; the relay invalidates the handle on next use.
func (w *Window) Close() {
	w.inbox.Close()
}
