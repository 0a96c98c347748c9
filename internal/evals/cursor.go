package evals

import (
	"fmt"
	"strconv"
	"strings"
)

// statValue is one number scraped off an evaluation page. Whether the site
// printed it as a plain count or as a percentage/decimal matters: the page
// layout is positional, and the only way to tell a full instructor-question
// block from a blank one is whether the value at a known offset is a count
// or a percentage.
type statValue struct {
	Value float64
	// Decimal marks values parsed from a percentage or a decimal literal.
	Decimal bool
}

// parseStat parses one cell: "24%" becomes 0.24, "3.41" stays decimal, and
// anything else must be an integer count.
func parseStat(s string) (statValue, error) {
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		n, err := strconv.Atoi(pct)
		if err != nil {
			return statValue{}, fmt.Errorf("unparseable percentage %q", s)
		}
		return statValue{Value: float64(n) / 100, Decimal: true}, nil
	}
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return statValue{}, fmt.Errorf("unparseable decimal %q", s)
		}
		return statValue{Value: f, Decimal: true}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return statValue{}, fmt.Errorf("unparseable count %q", s)
	}
	return statValue{Value: float64(n)}, nil
}

// cursor consumes the page's flat run of numbers front to back. Every
// question group takes a fixed number of values, so running short mid-group
// or having values left over both mean the page layout changed.
type cursor struct {
	values []statValue
}

func (c *cursor) take(n int) ([]statValue, error) {
	if len(c.values) < n {
		return nil, fmt.Errorf("statistics run out: want %d more values, have %d", n, len(c.values))
	}
	taken := c.values[:n]
	c.values = c.values[n:]
	return taken, nil
}

func (c *cursor) takeOne() (statValue, error) {
	taken, err := c.take(1)
	if err != nil {
		return statValue{}, err
	}
	return taken[0], nil
}

// peek looks ahead without consuming.
func (c *cursor) peek(i int) (statValue, error) {
	if i >= len(c.values) {
		return statValue{}, fmt.Errorf("statistics run out: peek at %d of %d", i, len(c.values))
	}
	return c.values[i], nil
}

func (c *cursor) remaining() int {
	return len(c.values)
}

func counts(values []statValue) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v.Value)
	}
	return out
}
