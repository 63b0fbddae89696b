package kastore

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

func TestEncodeDecode(t *testing.T) {
	s := New()
	require.NoError(t, Put(s, "nodes/time", []float64{0, 1.5, math.Inf(1)}))
	require.NoError(t, Put(s, "nodes/flags", []uint32{1, 0, 7}))
	require.NoError(t, Put(s, "edges/parent", []int32{-1, 2}))
	require.NoError(t, Put(s, "empty", []uint8{}))
	require.NoError(t, PutString(s, "format/name", "tskit.trees"))

	var buf bytes.Buffer
	n, err := s.Encode(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, s.EncodedSize(), buf.Len())
	assert.Zero(t, buf.Len()%8)

	out, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, s.Keys(), out.Keys())

	times, err := Get[float64](out, "nodes/time")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1.5, math.Inf(1)}, times)

	flags, err := Get[uint32](out, "nodes/flags")
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 0, 7}, flags)

	parents, err := Get[int32](out, "edges/parent")
	require.NoError(t, err)
	assert.Equal(t, []int32{-1, 2}, parents)

	empty, err := Get[uint8](out, "empty")
	require.NoError(t, err)
	assert.Empty(t, empty)

	name, err := GetBytes(out, "format/name")
	require.NoError(t, err)
	assert.Equal(t, "tskit.trees", string(name))
}

func TestHeaderLayout(t *testing.T) {
	s := New()
	require.NoError(t, Put(s, "b", []int64{42}))
	require.NoError(t, Put(s, "a", []int8{1, 2, 3}))

	var buf bytes.Buffer
	_, err := s.Encode(&buf)
	require.NoError(t, err)
	data := buf.Bytes()

	assert.Equal(t, Magic, data[:8])
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[8:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, uint64(len(data)), binary.LittleEndian.Uint64(data[16:]))

	// first descriptor is key "a"
	d := data[64:]
	assert.Equal(t, byte(Int8), d[0])
	keyStart := binary.LittleEndian.Uint64(d[8:])
	assert.Equal(t, uint64(64+2*64), keyStart)
	assert.Equal(t, "a", string(data[keyStart:keyStart+1]))
	arrayStart := binary.LittleEndian.Uint64(d[24:])
	assert.Zero(t, arrayStart%8)
}

func TestPutErrors(t *testing.T) {
	s := New()
	require.NoError(t, Put(s, "x", []int32{1}))

	err := Put(s, "x", []int32{2})
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateKey))

	err = Put(s, "", []int32{2})
	assert.True(t, errors.IsType(err, errors.ErrorTypeParameter))
}

func TestGetErrors(t *testing.T) {
	s := New()
	require.NoError(t, Put(s, "x", []int32{1}))

	_, err := Get[int32](s, "missing")
	assert.True(t, errors.IsCode(err, errors.CodeKeyNotFound))

	_, err = Get[float64](s, "x")
	assert.True(t, errors.IsCode(err, errors.CodeBadType))

	_, err = GetBytes(s, "x")
	assert.True(t, errors.IsCode(err, errors.CodeBadType))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	s := New()
	require.NoError(t, Put(s, "x", []float64{1, 2}))
	var buf bytes.Buffer
	_, err := s.Encode(&buf)
	require.NoError(t, err)
	good := buf.Bytes()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:10] }},
		{"bad magic", func(b []byte) []byte { b[1] = 'X'; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-8] }},
		{"bad type", func(b []byte) []byte { b[64] = 99; return b }},
		{"new version", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[8:], 2); return b }},
		{"old version", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[8:], 0); return b }},
		{"key start wraps", func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[64+8:], math.MaxUint64)
			binary.LittleEndian.PutUint64(b[64+16:], 1)
			return b
		}},
		{"key length wraps", func(b []byte) []byte { binary.LittleEndian.PutUint64(b[64+16:], math.MaxUint64); return b }},
		{"array start wraps", func(b []byte) []byte { binary.LittleEndian.PutUint64(b[64+24:], math.MaxUint64-7); return b }},
		{"array bytes wrap", func(b []byte) []byte { binary.LittleEndian.PutUint64(b[64+32:], 1<<61); return b }},
		{"array past end", func(b []byte) []byte { binary.LittleEndian.PutUint64(b[64+32:], 3); return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), good...)
			_, err := Decode(tt.mutate(data))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeFormat), err.Error())
		})
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, Int8, TypeOf[int8]())
	assert.Equal(t, Uint8, TypeOf[uint8]())
	assert.Equal(t, Int32, TypeOf[int32]())
	assert.Equal(t, Uint32, TypeOf[uint32]())
	assert.Equal(t, Int64, TypeOf[int64]())
	assert.Equal(t, Uint64, TypeOf[uint64]())
	assert.Equal(t, Float32, TypeOf[float32]())
	assert.Equal(t, Float64, TypeOf[float64]())
	assert.Equal(t, 8, Float64.Size())
	assert.Equal(t, "uint32", Uint32.String())
}
