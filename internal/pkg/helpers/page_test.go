package helpers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	tests := []struct {
		name   string
		page   Page
		offset uint64
		limit  uint64
	}{
		{"zero value", Page{}, 0, DefaultPageSize},
		{"second page", Page{Number: 2, Size: 10}, 10, 10},
		{"oversized", Page{Number: 3, Size: MaxPageSize + 1}, 2 * DefaultPageSize, DefaultPageSize},
		{"negative number", Page{Number: -4, Size: 5}, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offset, tt.page.Offset())
			assert.Equal(t, tt.limit, tt.page.Limit())
		})
	}
}

func TestPage_WindowAndInfo(t *testing.T) {
	p := Page{Number: 2, Size: 2}

	start, end := p.Window(3)
	assert.Equal(t, 2, start)
	assert.Equal(t, 3, end)

	start, end = Page{Number: 5, Size: 2}.Window(3)
	assert.Equal(t, start, end)

	info := p.Info(3)
	assert.Equal(t, 2, info.CurrentPage)
	assert.Equal(t, 2, info.TotalPages)
	assert.EqualValues(t, 3, info.TotalItems)

	assert.Equal(t, 1, Page{}.Info(0).TotalPages)
}

func TestPageFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/courses?page=3&size=abc", nil)

	assert.Equal(t, Page{Number: 3, Size: DefaultPageSize}, PageFromQuery(c))
}
