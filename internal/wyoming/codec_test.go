package wyoming_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fernwood-iot/satellite/internal/wyoming"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := wyoming.NewWriter(&buf)

	in := wyoming.NewAudioChunk(wyoming.AudioFormat{Rate: 16000, Width: 2, Channels: 1}, 1234, []byte{1, 2, 3, 4})
	require.NoError(t, w.Write(in))

	r := wyoming.NewReader(&buf)
	out, err := r.Read()
	require.NoError(t, err)

	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.Payload, out.Payload)
	assert.EqualValues(t, 16000, wyoming.AudioFormatOf(out).Rate)
	assert.EqualValues(t, 1234, wyoming.TimestampMsOf(out))
}

func TestReaderReturnsClosedOnCleanEOF(t *testing.T) {
	r := wyoming.NewReader(bytes.NewReader(nil))
	_, err := r.Read()
	assert.ErrorIs(t, err, wyoming.ErrClosed)
}

func TestReaderNoPayload(t *testing.T) {
	r := wyoming.NewReader(bytes.NewReader([]byte(`{"type":"ping","data":{"text":"hi"}}` + "\n")))
	ev, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "ping", ev.Type)
	assert.Equal(t, "hi", wyoming.StringField(ev, "text"))
	assert.Nil(t, ev.Payload)
}

// TestRoundTripProperty checks that any event built from an arbitrary type
// string, flat string->string data map, and payload survives a
// Writer/Reader round trip without loss, matching spec.md §8's codec
// round-trip property.
func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		typ := rapid.StringMatching(`[a-z][a-z-]{0,19}`).Draw(rt, "type")
		key := rapid.StringMatching(`[a-z][a-z_]{0,9}`).Draw(rt, "key")
		val := rapid.String().Draw(rt, "val")
		payload := rapid.SliceOf(rapid.Byte()).Draw(rt, "payload")

		in := wyoming.Event{
			Type:    typ,
			Data:    map[string]any{key: val},
			Payload: payload,
		}
		if len(payload) == 0 {
			in.Payload = nil
		}

		var buf bytes.Buffer
		require.NoError(rt, wyoming.NewWriter(&buf).Write(in))

		out, err := wyoming.NewReader(&buf).Read()
		require.NoError(rt, err)

		assert.Equal(rt, in.Type, out.Type)
		assert.Equal(rt, val, wyoming.StringField(out, key))
		assert.Equal(rt, in.Payload, out.Payload)
	})
}

func TestReaderMergesDataLengthIntoData(t *testing.T) {
	// data_length names a second JSON object, sent right after the header
	// line, whose fields merge into data - distinct from payload_length's
	// raw binary payload.
	extra := `{"name":"ok_nabu"}`
	header := `{"type":"detection","data":{"timestamp":1},"data_length":` + intLen(extra) + `}` + "\n"
	r := wyoming.NewReader(bytes.NewReader([]byte(header + extra)))

	ev, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "detection", ev.Type)
	assert.EqualValues(t, 1, ev.Data["timestamp"])
	assert.Equal(t, "ok_nabu", wyoming.StringField(ev, "name"))
	assert.Nil(t, ev.Payload)
}

func TestReaderReadsDataLengthBeforePayload(t *testing.T) {
	extra := `{"name":"ok_nabu"}`
	payload := []byte{1, 2, 3, 4}
	header := `{"type":"detection","data_length":` + intLen(extra) + `,"payload_length":` + intLen(string(payload)) + `}` + "\n"
	r := wyoming.NewReader(bytes.NewReader(append([]byte(header+extra), payload...)))

	ev, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "ok_nabu", wyoming.StringField(ev, "name"))
	assert.Equal(t, payload, ev.Payload)
}

func intLen(s string) string {
	return strconv.Itoa(len(s))
}

func TestReaderSurvivesMidStreamEOFOnHeader(t *testing.T) {
	// A truncated header (no trailing newline, no data) should still
	// decode if it is valid JSON on its own - ReadString returns the
	// partial line plus io.EOF, which Read must treat as the last event.
	r := wyoming.NewReader(bytes.NewReader([]byte(`{"type":"ping"}`)))
	ev, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "ping", ev.Type)

	_, err = r.Read()
	assert.ErrorIs(t, err, wyoming.ErrClosed)
}
