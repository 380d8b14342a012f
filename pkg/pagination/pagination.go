package pagination

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// New returns normalized params: page below 1 becomes 1, per-page below 1
// becomes DefaultPerPage, and per-page above MaxPerPage is capped.
func New(page, perPage int) Params {
	p := Params{Page: page, PerPage: perPage}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset is the zero-based index of the first item on the page. It
// overflows for page numbers near the int limit; use Bounds to slice.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Bounds returns the half-open range [start, end) of the page within a
// collection of total items. Pages past the end yield an empty range.
func (p Params) Bounds(total int) (start, end int) {
	if total <= 0 || p.Page < 1 || p.PerPage < 1 {
		return 0, 0
	}
	// Compare before multiplying so huge page numbers cannot overflow.
	if p.Page-1 > total/p.PerPage {
		return total, total
	}
	start = min(p.Offset(), total)
	end = start + min(p.PerPage, total-start)
	return start, end
}

// TotalPages returns the number of pages needed to hold total items.
func (p Params) TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}

// HasNext reports whether another page follows this one.
func (p Params) HasNext(total int) bool {
	return p.Page < p.TotalPages(total)
}

// Page slices items to the window described by p.
func Page[T any](items []T, p Params) []T {
	start, end := p.Bounds(len(items))
	return items[start:end]
}
