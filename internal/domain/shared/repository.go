package shared

// Page is a simple offset pagination request
type Page struct {
	Number int
	Size   int
}

// DefaultPage returns the first page with 20 items
func DefaultPage() Page {
	return Page{Number: 1, Size: 20}
}

// Offset returns the number of records to skip
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit()
}

// Limit returns the page size clamped to [1, 100]
func (p Page) Limit() int {
	switch {
	case p.Size < 1:
		return 20
	case p.Size > 100:
		return 100
	}
	return p.Size
}
