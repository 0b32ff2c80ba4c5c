package overlay

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/logging"
)

// PageRenderer renders a page and reports its size.
type PageRenderer interface {
	RenderPage(ctx context.Context, page int) (PageSize, error)
}

// PageLoader materializes more pages of the document. It returns the total
// number of pages loaded after the call.
type PageLoader interface {
	LoadMorePages(ctx context.Context, n int) (int, error)
}

// Scroller moves the viewport to a page.
type Scroller interface {
	ScrollTo(page int)
}

// Highlight is the active overlay of a viewer.
type Highlight struct {
	BBox BBox `json:"bbox" yaml:"bbox"`
	Rect Rect `json:"rect" yaml:"rect"`
}

// Viewer tracks loaded pages, the scroll position and the active highlight.
//
// Requests supersede each other: when a later Highlight or NavigateTo
// starts before an earlier one finishes, the earlier result is dropped.
type Viewer struct {
	renderer PageRenderer
	loader   PageLoader
	scroller Scroller
	logger   *zerolog.Logger
	batch    int

	mu         sync.Mutex
	loaded     int
	page       int
	highlight  *Highlight
	generation uint64
}

// ViewerOption configures a Viewer.
type ViewerOption func(*Viewer)

// WithLoadedPages sets how many pages are already materialized.
func WithLoadedPages(n int) ViewerOption {
	return func(v *Viewer) {
		v.loaded = max(n, 0)
	}
}

// WithBatch sets how many pages each LoadMorePages call requests.
func WithBatch(n int) ViewerOption {
	return func(v *Viewer) {
		if n > 0 {
			v.batch = n
		}
	}
}

// WithLogger sets the viewer logger.
func WithLogger(logger *zerolog.Logger) ViewerOption {
	return func(v *Viewer) {
		v.logger = logging.OrNop(logger)
	}
}

// NewViewer creates a viewer. scroller may be nil.
func NewViewer(renderer PageRenderer, loader PageLoader, scroller Scroller, opts ...ViewerOption) *Viewer {
	v := &Viewer{
		renderer: renderer,
		loader:   loader,
		scroller: scroller,
		logger:   logging.OrNop(nil),
		batch:    constants.DefaultPageBatch,
		page:     1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Highlight shows bbox, loading and scrolling to its page first. The
// highlight stays until ClickHighlight. A request overtaken by a newer one
// returns an error matching errors.ErrStale and changes nothing.
func (v *Viewer) Highlight(ctx context.Context, bbox BBox) (Highlight, error) {
	if err := bbox.Validate(); err != nil {
		return Highlight{}, err
	}
	gen := v.begin()

	size, err := v.prepare(ctx, bbox.Page)
	if err != nil {
		return Highlight{}, err
	}
	rect, err := Normalize(bbox, size)
	if err != nil {
		return Highlight{}, err
	}

	h := Highlight{BBox: bbox, Rect: rect}
	if err := v.apply(gen, bbox.Page, &h); err != nil {
		return Highlight{}, err
	}
	return h, nil
}

// NavigateTo scrolls to page without touching the highlight.
func (v *Viewer) NavigateTo(ctx context.Context, page int) error {
	if page < 1 {
		return errors.NewValidationError("page", page, "must be at least 1")
	}
	gen := v.begin()
	if _, err := v.prepare(ctx, page); err != nil {
		return err
	}
	return v.apply(gen, page, nil)
}

// ClickHighlight acknowledges and clears the highlight. It reports whether
// a highlight was showing.
func (v *Viewer) ClickHighlight() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	had := v.highlight != nil
	v.highlight = nil
	return had
}

// Current returns the active highlight.
func (v *Viewer) Current() (Highlight, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.highlight == nil {
		return Highlight{}, false
	}
	return *v.highlight, true
}

// Page returns the page the viewer is scrolled to.
func (v *Viewer) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// LoadedPages returns how many pages are materialized.
func (v *Viewer) LoadedPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *Viewer) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	return v.generation
}

// prepare loads pages until page is materialized, then renders it.
func (v *Viewer) prepare(ctx context.Context, page int) (PageSize, error) {
	for {
		if err := ctx.Err(); err != nil {
			return PageSize{}, errors.WrapResource("load", "page", "", errors.ErrCanceled)
		}
		v.mu.Lock()
		loaded := v.loaded
		v.mu.Unlock()
		if loaded >= page {
			break
		}

		total, err := v.loader.LoadMorePages(ctx, v.batch)
		if err != nil {
			if ctx.Err() != nil {
				return PageSize{}, errors.WrapResource("load", "page", "", errors.ErrCanceled)
			}
			return PageSize{}, err
		}

		v.mu.Lock()
		grew := total > v.loaded
		if grew {
			v.loaded = total
		}
		v.mu.Unlock()
		if !grew && total < page {
			return PageSize{}, errors.NewNotFoundError("page", strconv.Itoa(page))
		}
	}

	return v.renderer.RenderPage(ctx, page)
}

// apply commits a finished request unless a newer one has started.
func (v *Viewer) apply(gen uint64, page int, h *Highlight) error {
	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		v.logger.Debug().Int("page", page).Err(errors.ErrStale).Msg("Discarding superseded page request")
		return errors.WrapResource("navigate", "page", strconv.Itoa(page), errors.ErrStale)
	}
	v.page = page
	if h != nil {
		v.highlight = h
	}
	v.mu.Unlock()

	if v.scroller != nil {
		v.scroller.ScrollTo(page)
	}
	return nil
}
