package mapper

import (
	"strings"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Coverage counts non-empty canonical values over a batch. It is an
// observability signal only.
type Coverage struct {
	Source   jobs.Source
	Total    int
	nonEmpty map[string]int
}

// NewCoverage returns an empty Coverage for src.
func NewCoverage(src jobs.Source) *Coverage {
	return &Coverage{Source: src, nonEmpty: make(map[string]int, len(jobs.Columns))}
}

// Add accounts for one mapped record.
func (c *Coverage) Add(rec jobs.Record) {
	c.Total++
	for _, col := range jobs.Columns {
		if strings.TrimSpace(rec.Field(col)) != "" {
			c.nonEmpty[col]++
		}
	}
}

// Count returns how many records had a non-empty value for field.
func (c *Coverage) Count(field string) int {
	return c.nonEmpty[field]
}

// Ratio returns the non-empty fraction for field, or 0 for an empty batch.
func (c *Coverage) Ratio(field string) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.nonEmpty[field]) / float64(c.Total)
}

// Ratios returns the fraction for every canonical column.
func (c *Coverage) Ratios() map[string]float64 {
	out := make(map[string]float64, len(jobs.Columns))
	for _, col := range jobs.Columns {
		out[col] = c.Ratio(col)
	}
	return out
}
