package histio

import (
	"encoding/json"
	"fmt"
	"os"

	"qacompare/domain/histogram"
)

// Marshal encodes h in the document shape Parse reads.
func Marshal(h *histogram.Histogram) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(h, "", "  ")
}

// Write stores h as a JSON document at name.
func Write(name string, h *histogram.Histogram) error {
	data, err := Marshal(h)
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
