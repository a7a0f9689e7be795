package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	json "github.com/json-iterator/go"

	"github.com/sencha/orion-core/api/schemas"
)

// Transcript encodings as stored in runs.transcript_encoding.
const (
	encodingJSON   = "json"
	encodingBrotli = "br"
)

func encodeTranscript(entries []schemas.TranscriptEntry, compress bool) ([]byte, string, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, "", fmt.Errorf("marshal transcript: %w", err)
	}
	if !compress {
		return raw, encodingJSON, nil
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, "", fmt.Errorf("compress transcript: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("compress transcript: %w", err)
	}
	return buf.Bytes(), encodingBrotli, nil
}

func decodeTranscript(blob []byte, encoding string) ([]schemas.TranscriptEntry, error) {
	switch encoding {
	case encodingBrotli:
		raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(blob)))
		if err != nil {
			return nil, fmt.Errorf("decompress transcript: %w", err)
		}
		blob = raw
	case encodingJSON:
	default:
		return nil, fmt.Errorf("unknown transcript encoding %q", encoding)
	}

	var entries []schemas.TranscriptEntry
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return entries, nil
}
