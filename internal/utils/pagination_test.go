package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/taskpilot/internal/constants"
)

func paramsFor(query string) PaginationParams {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/tasks?"+query, nil)
	return GetPaginationParams(c)
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  PaginationParams
	}{
		{"", PaginationParams{Page: 1}},
		{"page=2&limit=10", PaginationParams{Page: 2, Limit: 10, Offset: 10}},
		{"page=3", PaginationParams{Page: 3, Limit: constants.DefaultPageSize, Offset: 2 * constants.DefaultPageSize}},
		{"limit=1000", PaginationParams{Page: 1, Limit: constants.DefaultPageSize}},
		{"page=-1&limit=5", PaginationParams{Page: 1, Limit: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, paramsFor(tt.query))
		})
	}
}
