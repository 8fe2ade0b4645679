package handler

import (
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/pkg/response"
)

func pageMeta(p domain.Page, total int64) response.PageMeta {
	return response.PageMeta{Page: p.Number, Size: p.Size, Total: total}
}
