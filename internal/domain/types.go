package domain

// Role names carried in the JWT.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleOwner     = "owner"
	RoleExecutive = "executive"
)

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total,omitempty"`
}

// Offset returns the SQL offset, clamping page and size to sane bounds.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Normalize applies defaults: page 1, size 10, max size 100.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller may use admin review operations.
func (r RequestContext) IsAdmin() bool {
	return r.Role == RoleAdmin || r.Role == RoleOwner
}
