// Package histio reads and writes histograms as JSON documents.
package histio

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"qacompare/domain/core"
	"qacompare/domain/histogram"
)

// Parse decodes the histogram found at path inside doc. An empty path means
// the whole document. The result is validated.
func Parse(doc []byte, path string) (*histogram.Histogram, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: document is not valid JSON", core.ErrInvalidHistogram)
	}

	node := gjson.ParseBytes(doc)
	if path != "" {
		node = gjson.GetBytes(doc, path)
	}
	if !node.Exists() {
		return nil, fmt.Errorf("%w: path '%s' not found", core.ErrMissingHistogram, path)
	}
	if !node.IsObject() {
		return nil, fmt.Errorf("%w: path '%s' is not an object", core.ErrInvalidHistogram, path)
	}

	h := &histogram.Histogram{
		Name:  node.Get("name").String(),
		Title: node.Get("title").String(),
	}
	if h.Name == "" {
		h.Name = path
	}

	axes := node.Get("axes")
	if !axes.IsArray() {
		return nil, core.NewInvalidHistogramError(h.Name, "axes must be an array")
	}
	for i, axis := range axes.Array() {
		edges, err := floats(axis.Get("edges"))
		if err != nil {
			return nil, core.NewInvalidHistogramError(h.Name, fmt.Sprintf("axis %d edges: %v", i, err))
		}
		h.Axes = append(h.Axes, histogram.Axis{Edges: edges})
	}

	contents, err := floats(node.Get("contents"))
	if err != nil {
		return nil, core.NewInvalidHistogramError(h.Name, fmt.Sprintf("contents: %v", err))
	}
	h.Contents = contents

	if errs := node.Get("errors"); errs.Exists() && errs.Type != gjson.Null {
		if h.Errors, err = floats(errs); err != nil {
			return nil, core.NewInvalidHistogramError(h.Name, fmt.Sprintf("errors: %v", err))
		}
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// ReadFile parses the histogram at path inside the JSON file name.
func ReadFile(name, path string) (*histogram.Histogram, error) {
	doc, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	h, err := Parse(doc, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return h, nil
}

func floats(r gjson.Result) ([]float64, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("expected an array of numbers")
	}
	items := r.Array()
	out := make([]float64, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, fmt.Errorf("element %d is %s, not a number", i, item.Type)
		}
		out[i] = item.Float()
	}
	return out, nil
}
