// Package paginator provides a clamped cursor over a fixed sequence and a
// small state machine that drives an interactive pick-one prompt over it.
package paginator

// Navigation option values reserved in rendered selection lists.
const (
	NavLeft  = "page-left"
	NavRight = "page-right"
)

// Page is one window of the sequence. HasLeft and HasRight report whether a
// previous or next page exists, i.e. whether navigation affordances apply.
type Page[T any] struct {
	Items     []T
	Index     int // zero-based
	PageCount int
	HasLeft   bool
	HasRight  bool
}

// Paginator tracks the current page of a fixed sequence. It only moves a
// cursor; turning a Page into UI is the caller's job.
type Paginator[T any] struct {
	items []T
	size  int
	index int
}

// New returns a paginator positioned on the first page. A non-positive size
// puts everything on one page.
func New[T any](items []T, size int) *Paginator[T] {
	if size <= 0 {
		size = len(items)
		if size == 0 {
			size = 1
		}
	}
	return &Paginator[T]{items: items, size: size}
}

// PageCount is the number of pages; an empty sequence has one empty page.
func (p *Paginator[T]) PageCount() int {
	n := (len(p.items) + p.size - 1) / p.size
	if n == 0 {
		return 1
	}
	return n
}

// Len returns the sequence length.
func (p *Paginator[T]) Len() int { return len(p.items) }

// CurrentPage returns the page under the cursor.
func (p *Paginator[T]) CurrentPage() Page[T] {
	start := p.index * p.size
	end := start + p.size
	if end > len(p.items) {
		end = len(p.items)
	}
	if start > end {
		start = end
	}
	last := p.PageCount() - 1
	return Page[T]{
		Items:     p.items[start:end],
		Index:     p.index,
		PageCount: last + 1,
		HasLeft:   p.index > 0,
		HasRight:  p.index < last,
	}
}

// NextPage advances one page. On the last page it is a no-op.
func (p *Paginator[T]) NextPage() Page[T] {
	if p.index < p.PageCount()-1 {
		p.index++
	}
	return p.CurrentPage()
}

// PreviousPage moves back one page. On the first page it is a no-op.
func (p *Paginator[T]) PreviousPage() Page[T] {
	if p.index > 0 {
		p.index--
	}
	return p.CurrentPage()
}

// Reset rewinds to the first page.
func (p *Paginator[T]) Reset() Page[T] {
	p.index = 0
	return p.CurrentPage()
}
