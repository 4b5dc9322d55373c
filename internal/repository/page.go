package repository

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page selects a 1-based page of results.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page into sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}
