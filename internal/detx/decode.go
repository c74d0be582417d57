package detx

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Decode reads a DETX document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode detx: %w", err)
	}
	return &doc, nil
}
