package archive

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sencha/orion-core/api/schemas"
)

func TestTranscriptRoundTripCompressed(t *testing.T) {
	entries := sampleRun().Transcript

	blob, encoding, err := encodeTranscript(entries, true)
	require.NoError(t, err)
	assert.Equal(t, encodingBrotli, encoding)

	plain, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.NotEqual(t, plain, blob, "compressed blob must not be plain JSON")

	got, err := decodeTranscript(blob, encoding)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestTranscriptRoundTripPlain(t *testing.T) {
	entries := sampleRun().Transcript

	blob, encoding, err := encodeTranscript(entries, false)
	require.NoError(t, err)
	assert.Equal(t, encodingJSON, encoding)

	// Uncompressed transcripts are directly inspectable JSON.
	var direct []schemas.TranscriptEntry
	require.NoError(t, json.Unmarshal(blob, &direct))
	assert.Equal(t, entries, direct)

	got, err := decodeTranscript(blob, encoding)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestTranscriptRoundTripEmpty(t *testing.T) {
	for _, compress := range []bool{true, false} {
		blob, encoding, err := encodeTranscript(nil, compress)
		require.NoError(t, err)

		got, err := decodeTranscript(blob, encoding)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestDecodeTranscriptUnknownEncoding(t *testing.T) {
	_, err := decodeTranscript([]byte("[]"), "gzip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown transcript encoding "gzip"`)
}

func TestDecodeTranscriptTruncatedBrotli(t *testing.T) {
	blob, _, err := encodeTranscript(sampleRun().Transcript, true)
	require.NoError(t, err)

	_, err = decodeTranscript(blob[:len(blob)/2], encodingBrotli)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decompress transcript")
}

func TestDecodeTranscriptBadJSON(t *testing.T) {
	_, err := decodeTranscript([]byte(`{"seq":`), encodingJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal transcript")
}

// FuzzDecodeTranscript feeds arbitrary blobs and encoding labels through the
// decoder: it must error or decode, never panic.
func FuzzDecodeTranscript(f *testing.F) {
	seed, _, err := encodeTranscript(sampleRun().Transcript, true)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed, encodingBrotli)
	f.Add([]byte("null"), encodingJSON)
	f.Add([]byte(`[{"seq":1,"kind":"event"}]`), encodingJSON)
	f.Add([]byte{0x1b, 0x00, 0x00}, encodingBrotli)
	f.Add([]byte(nil), "zstd")

	f.Fuzz(func(t *testing.T, blob []byte, encoding string) {
		entries, err := decodeTranscript(blob, encoding)
		if err != nil {
			require.Nil(t, entries, "a failed decode must not return entries")
		}
	})
}

// FuzzTranscriptRoundTrip generates arbitrary transcripts and checks the
// encoder and decoder agree on both encodings. Entry text may be rewritten
// by JSON's UTF-8 scrubbing, so the check is on count and sequence numbers.
func FuzzTranscriptRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		var batch struct {
			Entries []schemas.TranscriptEntry
		}
		if err := fuzzConsumer.GenerateStruct(&batch); err != nil {
			return
		}

		for _, compress := range []bool{true, false} {
			blob, encoding, err := encodeTranscript(batch.Entries, compress)
			require.NoError(t, err)

			got, err := decodeTranscript(blob, encoding)
			require.NoError(t, err)
			require.Len(t, got, len(batch.Entries))
			for i := range got {
				require.Equal(t, batch.Entries[i].Seq, got[i].Seq)
			}
		}
	})
}
