package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// marshalValues converts formatted values to JSON TEXT for storage.
// Map keys are sorted by encoding/json, so equal maps give equal text.
func marshalValues(values map[string]string) (string, error) {
	if values == nil {
		values = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalValues parses JSON TEXT produced by marshalValues.
func unmarshalValues(data string) (map[string]string, error) {
	values := map[string]string{}
	if data == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	return values, nil
}

// compressIR packs IR text into an lz4 frame.
func compressIR(text string) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := io.WriteString(zw, text); err != nil {
		return nil, fmt.Errorf("compress ir: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress ir: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressIR unpacks an lz4 frame written by compressIR.
func decompressIR(data []byte) (string, error) {
	text, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return "", fmt.Errorf("decompress ir: %w", err)
	}
	return string(text), nil
}
