// Package json wraps goccy/go-json with a buffer pool and a streaming
// encoder for line-delimited or array output.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for encoding/json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for encoding/json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return gojson.Valid(data)
}

// StreamingEncoder writes values one at a time, either one per line or as
// the elements of a single JSON array.
type StreamingEncoder struct {
	writer  io.Writer
	buf     *bytes.Buffer
	encoder *gojson.Encoder
	count   int
	isArray bool
}

// NewStreamingEncoder creates a new streaming encoder
func NewStreamingEncoder(w io.Writer, isArray bool) *StreamingEncoder {
	buf := GetBuffer()
	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &StreamingEncoder{
		writer:  w,
		buf:     buf,
		encoder: enc,
		isArray: isArray,
	}
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	se.buf.Reset()
	if se.isArray {
		if se.count == 0 {
			se.buf.WriteByte('[')
		} else {
			se.buf.WriteByte(',')
		}
	}
	if err := se.encoder.Encode(v); err != nil {
		return err
	}
	se.count++
	_, err := se.writer.Write(se.buf.Bytes())
	return err
}

// Count returns the number of values encoded.
func (se *StreamingEncoder) Count() int {
	return se.count
}

// Close finalizes the encoding. It does not close the underlying writer.
func (se *StreamingEncoder) Close() error {
	var err error
	if se.isArray {
		if se.count == 0 {
			_, err = io.WriteString(se.writer, "[]\n")
		} else {
			_, err = io.WriteString(se.writer, "]\n")
		}
	}
	if se.buf != nil {
		PutBuffer(se.buf)
		se.buf = nil
	}
	return err
}
