package rest

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListPaymentsQuery holds parsed pagination parameters
type ListPaymentsQuery struct {
	Limit  int
	Offset uint64
}

// ParseListPaymentsQuery parses and validates pagination query parameters
func ParseListPaymentsQuery(c *gin.Context) (*ListPaymentsQuery, error) {
	query := &ListPaymentsQuery{Limit: defaultListLimit}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid limit: %q", raw)
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		query.Limit = limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid offset: %q", raw)
		}
		query.Offset = offset
	}

	return query, nil
}
