package dto

import "github.com/prohmpiriya/storefront/internal/domain"

// PageQuery binds ?page= and ?size=
type PageQuery struct {
	Page int `form:"page" binding:"omitempty,min=0"`
	Size int `form:"size" binding:"omitempty,min=1"`
}

// ToPage clamps the query into a domain page
func (q PageQuery) ToPage() domain.Page {
	return domain.NewPage(q.Page, q.Size)
}
