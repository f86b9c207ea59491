package nodes

import (
	"fmt"
	"strconv"
	"strings"
)

// attrReader collects the first parse error while reading attributes.
type attrReader struct {
	attrs map[string]string
	err   error
}

func (r *attrReader) text(key string, dst *string) {
	if v, ok := r.attrs[key]; ok {
		*dst = v
	}
}

func (r *attrReader) number(key string, dst *float64) {
	v, ok := r.attrs[key]
	if !ok || r.err != nil {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.err = fmt.Errorf("attribute %s: %w", key, err)
		return
	}
	*dst = f
}

func (r *attrReader) integer(key string, dst *int) {
	v, ok := r.attrs[key]
	if !ok || r.err != nil {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.err = fmt.Errorf("attribute %s: %w", key, err)
		return
	}
	*dst = n
}

func (r *attrReader) flag(key string, dst *bool) {
	v, ok := r.attrs[key]
	if !ok || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.err = fmt.Errorf("attribute %s: %w", key, err)
		return
	}
	*dst = b
}

// vector reads a space separated vector of exactly len(dst) values.
func (r *attrReader) vector(key string, dst []float64) {
	v, ok := r.attrs[key]
	if !ok || r.err != nil {
		return
	}
	fields := strings.Fields(v)
	if len(fields) != len(dst) {
		r.err = fmt.Errorf("attribute %s: want %d values, got %d", key, len(dst), len(fields))
		return
	}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			r.err = fmt.Errorf("attribute %s[%d]: %w", key, i, err)
			return
		}
		vals[i] = x
	}
	copy(dst, vals)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}
