package windowsync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/logging"
)

// Relay is the main window's side of the protocol. It learns which handle
// plays which role from READY messages and forwards PDF navigation to the
// registered PDF window, falling back to the main pane's own viewer.
type Relay struct {
	mu       sync.Mutex
	handles  map[Role]Handle
	fallback Navigator
	inbox    chan envelope
	done     chan struct{}
	stopOnce sync.Once
	logger   *zerolog.Logger
}

type envelope struct {
	from Handle
	msg  Message
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithFallback sets the main pane's embedded viewer, used when no PDF
// pop-out is registered.
func WithFallback(nav Navigator) RelayOption {
	return func(r *Relay) {
		r.fallback = nav
	}
}

// WithRelayLogger sets the relay logger.
func WithRelayLogger(logger *zerolog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithRelayInbox sets the buffer size of the queue behind Connect.
func WithRelayInbox(size int) RelayOption {
	return func(r *Relay) {
		r.inbox = make(chan envelope, max(size, 1))
	}
}

// NewRelay creates an empty relay.
func NewRelay(opts ...RelayOption) *Relay {
	r := &Relay{
		handles: make(map[Role]Handle),
		inbox:   make(chan envelope, constants.WindowInboxSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Register binds role to h, replacing any earlier handle.
func (r *Relay) Register(role Role, h Handle) {
	r.mu.Lock()
	r.handles[role] = h
	r.mu.Unlock()
	r.logger.Debug().Str("role", string(role)).Msg("Window registered")
}

// Unregister drops role only if it is still bound to h. A window that
// closes after being replaced does not evict its successor.
func (r *Relay) Unregister(role Role, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.handles[role]; ok && cur == h {
		delete(r.handles, role)
	}
}

// Lookup returns the live handle for role. Closed handles are invalidated.
func (r *Relay) Lookup(role Role) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[role]
	if !ok {
		return nil, false
	}
	if h.Closed() {
		delete(r.handles, role)
		r.logger.Debug().Str("role", string(role)).Msg("Invalidated closed window handle")
		return nil, false
	}
	return h, true
}

// Roles returns the roles with live handles.
func (r *Relay) Roles() []Role {
	var roles []Role
	for _, role := range []Role{RolePDF, RoleSpreadsheet, RoleMain} {
		if _, ok := r.Lookup(role); ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// Dispatch handles one inbound message from the window behind from.
// Undeliverable messages are dropped; only invalid messages return an error.
func (r *Relay) Dispatch(ctx context.Context, from Handle, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	switch msg.Type {
	case TypeReady:
		if from == nil {
			return errors.NewValidationError("from", nil, "READY needs a sender handle")
		}
		r.Register(msg.Role, from)
	case TypeNavigatePDF:
		r.NavigatePDF(ctx, msg.Page)
	case TypeNavigateToPage:
		// Addressed to the main pane itself.
		r.navigateFallback(ctx, msg.Page)
	}
	return nil
}

// NavigatePDF jumps the PDF viewer to page: the pop-out when one is
// registered, otherwise the main pane's viewer.
func (r *Relay) NavigatePDF(ctx context.Context, page int) {
	if h, ok := r.Lookup(RolePDF); ok {
		if h.Send(NavigateToPage(page)) {
			return
		}
		r.dropped(RolePDF, NavigateToPage(page))
		if h.Closed() {
			r.Unregister(RolePDF, h)
		}
		return
	}
	r.navigateFallback(ctx, page)
}

func (r *Relay) navigateFallback(ctx context.Context, page int) {
	if r.fallback != nil {
		if err := r.fallback.NavigateTo(ctx, page); err != nil && !errors.IsStale(err) {
			r.logger.Warn().Err(err).Int("page", page).Msg("Main pane navigation failed")
		}
		return
	}
	if h, ok := r.Lookup(RoleMain); ok {
		if !h.Send(NavigateToPage(page)) {
			r.dropped(RoleMain, NavigateToPage(page))
		}
		return
	}
	r.dropped(RolePDF, NavigateToPage(page))
}

func (r *Relay) dropped(role Role, msg Message) {
	r.logger.Debug().
		Err(errors.ErrUndeliveredMessage).
		Str("role", string(role)).
		Str("message", msg.String()).
		Msg("Message dropped")
}

// Connect returns a handle that queues messages from the window behind from
// for Run. Use it as a pop-out's opener.
func (r *Relay) Connect(from Handle) Handle {
	return &relayPort{relay: r, from: from}
}

// Run processes queued messages until ctx is done or Stop is called.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.Stop()
			return ctx.Err()
		case <-r.done:
			return nil
		case env := <-r.inbox:
			if err := r.Dispatch(ctx, env.from, env.msg); err != nil {
				r.logger.Debug().Err(err).Msg("Rejected window message")
			}
		}
	}
}

// Stop ends Run. Ports report closed afterwards.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

func (r *Relay) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

type relayPort struct {
	relay *Relay
	from  Handle
}

func (p *relayPort) Send(msg Message) bool {
	if p.relay.stopped() {
		return false
	}
	select {
	case p.relay.inbox <- envelope{from: p.from, msg: msg}:
		return true
	default:
		return false
	}
}

func (p *relayPort) Closed() bool {
	return p.relay.stopped()
}
