package query

import (
	"github.com/ajitpratap0/cpandas/pkg/errors"
)

const (
	// MaxQueryLength is the maximum allowed query string length (1MB)
	MaxQueryLength = 1024 * 1024

	// MaxExpressionDepth is the maximum nesting depth for expressions
	MaxExpressionDepth = 100
)

// ValidateQuery rejects oversized query input
func ValidateQuery(src string) error {
	if len(src) > MaxQueryLength {
		return errors.Newf(errors.CodeInvalid, "query too long: %d bytes (max %d)", len(src), MaxQueryLength)
	}
	return nil
}

// depthCounter tracks expression nesting depth
type depthCounter struct {
	depth    int
	maxDepth int
}

func newDepthCounter() *depthCounter {
	return &depthCounter{maxDepth: MaxExpressionDepth}
}

// enter increments depth and returns error if limit exceeded
func (c *depthCounter) enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return errors.Newf(errors.CodeInvalid, "expression nesting too deep: %d (max %d)", c.depth, c.maxDepth)
	}
	return nil
}

// exit decrements depth
func (c *depthCounter) exit() {
	c.depth--
}
