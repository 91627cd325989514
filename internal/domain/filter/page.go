package filter

// DefaultPageSize is the number of rows per page.
const DefaultPageSize = 10

// Page is one slice of a filtered view. Number is 1-indexed.
type Page struct {
	Number     int
	Size       int
	TotalRows  int
	TotalPages int
	Start      int // inclusive offset into the filtered view
	End        int // exclusive offset
}

// Paginate computes page n of total rows, clamping n into range.
// An empty view still has one (empty) page.
func Paginate(total, n, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	start := (n - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Page{Number: n, Size: size, TotalRows: total, TotalPages: pages, Start: start, End: end}
}
