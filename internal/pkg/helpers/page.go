package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/saffron/internal/app/models/dto"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a 1-based page of a listing. The zero value is the first default-sized page.
type Page struct {
	Number int
	Size   int
}

// Normalized clamps out-of-range values to the defaults
func (p Page) Normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		p.Size = DefaultPageSize
	}
	return p
}

func (p Page) Offset() uint64 {
	p = p.Normalized()
	return uint64((p.Number - 1) * p.Size)
}

func (p Page) Limit() uint64 {
	return uint64(p.Normalized().Size)
}

// Window returns the [start, end) slice bounds of this page over total items
func (p Page) Window(total int) (start, end int) {
	start = min(int(p.Offset()), total)
	end = min(start+int(p.Limit()), total)
	return start, end
}

// Info describes this page of a listing with total items
func (p Page) Info(total int64) dto.PaginationInfo {
	p = p.Normalized()
	pages := 1
	if total > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return dto.PaginationInfo{
		CurrentPage: p.Number,
		TotalPages:  pages,
		PageSize:    p.Size,
		TotalItems:  total,
	}
}

// PageFromQuery reads ?page= and ?size=; malformed values fall back to the defaults
func PageFromQuery(c *gin.Context) Page {
	number, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return Page{Number: number, Size: size}.Normalized()
}

// ParseIDParam reads a positive int64 path parameter
func ParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
