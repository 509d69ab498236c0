package repository

// DefaultPageSize is the number of rows per page for paginated listings.
const DefaultPageSize = 10

// Page selects one window of an ordered result set. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// NewPage normalizes a requested page; anything below 1 becomes the first page.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
