// Package kastore implements a small key-array container: a flat file of
// named, typed, 8-byte aligned little-endian arrays.
//
// # Layout
//
// A file starts with a 64 byte header (magic, version, item count, file
// size), followed by one 64 byte descriptor per item, the concatenated keys
// and finally the arrays. Items are written in key order.
package kastore

import (
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

const (
	// VersionMajor is the container version written by Encode
	VersionMajor = 1
	// VersionMinor is the container minor version written by Encode
	VersionMinor = 0

	headerSize     = 64
	descriptorSize = 64
	arrayAlign     = 8
)

// Magic is the 8 byte signature at the start of every container.
var Magic = []byte("\x89KAS\r\n\x1a\n")

// Type identifies the element type of an array.
type Type uint8

const (
	Int8 Type = iota
	Uint8
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	numTypes
)

var typeSizes = [numTypes]int{1, 1, 4, 4, 8, 8, 4, 8}

var typeNames = [numTypes]string{"int8", "uint8", "int32", "uint32", "int64", "uint64", "float32", "float64"}

// Size returns the width of one element in bytes.
func (t Type) Size() int {
	if t >= numTypes {
		return 0
	}
	return typeSizes[t]
}

func (t Type) String() string {
	if t >= numTypes {
		return "unknown"
	}
	return typeNames[t]
}

// Element is the set of Go types that can be stored.
type Element interface {
	int8 | uint8 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// TypeOf returns the container type for T.
func TypeOf[T Element]() Type {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	panic("kastore: unreachable element type")
}

type item struct {
	key  string
	typ  Type
	n    int
	data []byte
}

// Store is an in-memory set of keyed arrays.
type Store struct {
	items map[string]*item
}

// New returns an empty store.
func New() *Store {
	return &Store{items: make(map[string]*item)}
}

// Len returns the number of stored arrays.
func (s *Store) Len() int {
	return len(s.items)
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Contains reports whether key is present.
func (s *Store) Contains(key string) bool {
	_, ok := s.items[key]
	return ok
}

// Info returns the type and element count of the array stored under key.
func (s *Store) Info(key string) (Type, int, error) {
	it, ok := s.items[key]
	if !ok {
		return 0, 0, errors.Coded(errors.CodeKeyNotFound).WithDetail("key", key)
	}
	return it.typ, it.n, nil
}

// Put stores a copy of values under key.
func Put[T Element](s *Store, key string, values []T) error {
	if key == "" {
		return errors.New(errors.ErrorTypeParameter, "empty key")
	}
	if _, ok := s.items[key]; ok {
		return errors.Coded(errors.CodeDuplicateKey).WithDetail("key", key)
	}
	typ := TypeOf[T]()
	data := make([]byte, len(values)*typ.Size())
	encodeValues(data, typ, values)
	s.items[key] = &item{key: key, typ: typ, n: len(values), data: data}
	return nil
}

// PutString stores a string as an int8 array.
func PutString(s *Store, key string, value string) error {
	b := []byte(value)
	v := make([]int8, len(b))
	for i, c := range b {
		v[i] = int8(c)
	}
	return Put(s, key, v)
}

// Get decodes the array stored under key. The stored type must match T.
func Get[T Element](s *Store, key string) ([]T, error) {
	it, ok := s.items[key]
	if !ok {
		return nil, errors.Coded(errors.CodeKeyNotFound).WithDetail("key", key)
	}
	typ := TypeOf[T]()
	if it.typ != typ {
		return nil, errors.Coded(errors.CodeBadType).
			WithDetail("key", key).
			WithDetail("stored", it.typ.String()).
			WithDetail("requested", typ.String())
	}
	out := make([]T, it.n)
	decodeValues(out, typ, it.data)
	return out, nil
}

// GetBytes returns the raw bytes of an int8 or uint8 array.
func GetBytes(s *Store, key string) ([]byte, error) {
	it, ok := s.items[key]
	if !ok {
		return nil, errors.Coded(errors.CodeKeyNotFound).WithDetail("key", key)
	}
	if it.typ != Int8 && it.typ != Uint8 {
		return nil, errors.Coded(errors.CodeBadType).WithDetail("key", key)
	}
	out := make([]byte, len(it.data))
	copy(out, it.data)
	return out, nil
}

func encodeValues[T Element](dst []byte, typ Type, values []T) {
	le := binary.LittleEndian
	switch typ {
	case Int8, Uint8:
		for i, v := range values {
			dst[i] = byte(v)
		}
	case Int32, Uint32:
		for i, v := range values {
			le.PutUint32(dst[4*i:], uint32(v))
		}
	case Int64, Uint64:
		for i, v := range values {
			le.PutUint64(dst[8*i:], uint64(v))
		}
	case Float32:
		for i, v := range values {
			le.PutUint32(dst[4*i:], math.Float32bits(float32(v)))
		}
	case Float64:
		for i, v := range values {
			le.PutUint64(dst[8*i:], math.Float64bits(float64(v)))
		}
	}
}

func decodeValues[T Element](dst []T, typ Type, src []byte) {
	le := binary.LittleEndian
	switch typ {
	case Int8:
		for i := range dst {
			dst[i] = T(int8(src[i]))
		}
	case Uint8:
		for i := range dst {
			dst[i] = T(src[i])
		}
	case Int32:
		for i := range dst {
			dst[i] = T(int32(le.Uint32(src[4*i:])))
		}
	case Uint32:
		for i := range dst {
			dst[i] = T(le.Uint32(src[4*i:]))
		}
	case Int64:
		for i := range dst {
			dst[i] = T(int64(le.Uint64(src[8*i:])))
		}
	case Uint64:
		for i := range dst {
			dst[i] = T(le.Uint64(src[8*i:]))
		}
	case Float32:
		for i := range dst {
			dst[i] = T(math.Float32frombits(le.Uint32(src[4*i:])))
		}
	case Float64:
		for i := range dst {
			dst[i] = T(math.Float64frombits(le.Uint64(src[8*i:])))
		}
	}
}

func align(n int) int {
	if r := n % arrayAlign; r != 0 {
		return n + arrayAlign - r
	}
	return n
}

// EncodedSize returns the number of bytes Encode will write.
func (s *Store) EncodedSize() int {
	offset := headerSize + descriptorSize*len(s.items)
	for _, it := range s.items {
		offset += len(it.key)
	}
	offset = align(offset)
	for _, key := range s.Keys() {
		offset = align(offset + len(s.items[key].data))
	}
	return offset
}

// Encode writes the container to w.
func (s *Store) Encode(w io.Writer) (int64, error) {
	keys := s.Keys()
	fileSize := s.EncodedSize()
	buf := make([]byte, fileSize)
	le := binary.LittleEndian

	copy(buf, Magic)
	le.PutUint16(buf[8:], VersionMajor)
	le.PutUint16(buf[10:], VersionMinor)
	le.PutUint32(buf[12:], uint32(len(keys)))
	le.PutUint64(buf[16:], uint64(fileSize))

	keyOffset := headerSize + descriptorSize*len(keys)
	for _, k := range keys {
		keyOffset += len(k)
	}
	arrayOffset := align(keyOffset)
	keyOffset = headerSize + descriptorSize*len(keys)

	for i, k := range keys {
		it := s.items[k]
		d := buf[headerSize+descriptorSize*i:]
		d[0] = byte(it.typ)
		le.PutUint64(d[8:], uint64(keyOffset))
		le.PutUint64(d[16:], uint64(len(k)))
		le.PutUint64(d[24:], uint64(arrayOffset))
		le.PutUint64(d[32:], uint64(it.n))
		copy(buf[keyOffset:], k)
		copy(buf[arrayOffset:], it.data)
		keyOffset += len(k)
		arrayOffset = align(arrayOffset + len(it.data))
	}

	n, err := w.Write(buf)
	if err != nil {
		return int64(n), errors.Wrap(err, errors.ErrorTypeIO, "failed to write container")
	}
	return int64(n), nil
}

// Decode parses a container. Arrays reference data directly, so data must
// not be modified or released while the returned store is in use.
func Decode(data []byte) (*Store, error) {
	if len(data) < headerSize {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("reason", "file shorter than header")
	}
	for i, b := range Magic {
		if data[i] != b {
			return nil, errors.Coded(errors.CodeFileFormat).WithDetail("reason", "bad magic")
		}
	}
	le := binary.LittleEndian
	major := le.Uint16(data[8:])
	if major < VersionMajor {
		return nil, errors.New(errors.ErrorTypeFormat, "container version too old").WithDetail("major", major)
	}
	if major > VersionMajor {
		return nil, errors.New(errors.ErrorTypeFormat, "container version too new").WithDetail("major", major)
	}
	numItems := int(le.Uint32(data[12:]))
	fileSize := le.Uint64(data[16:])
	if fileSize != uint64(len(data)) {
		return nil, errors.Coded(errors.CodeFileFormat).
			WithDetail("reason", "file size mismatch").
			WithDetail("header", fileSize).
			WithDetail("actual", len(data))
	}
	if uint64(headerSize)+uint64(numItems)*descriptorSize > fileSize {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("reason", "descriptors exceed file")
	}

	s := &Store{items: make(map[string]*item, numItems)}
	var prevKey string
	for i := 0; i < numItems; i++ {
		d := data[headerSize+descriptorSize*i:]
		typ := Type(d[0])
		if typ >= numTypes {
			return nil, errors.Coded(errors.CodeBadType).WithDetail("type", int(typ))
		}
		keyStart := le.Uint64(d[8:])
		keyLen := le.Uint64(d[16:])
		arrayStart := le.Uint64(d[24:])
		arrayLen := le.Uint64(d[32:])
		size := uint64(typ.Size())
		if keyStart > fileSize || keyLen > fileSize-keyStart ||
			arrayStart > fileSize || arrayLen > (fileSize-arrayStart)/size {
			return nil, errors.Coded(errors.CodeFileFormat).WithDetail("reason", "item exceeds file")
		}
		arrayBytes := arrayLen * size
		key := string(data[keyStart : keyStart+keyLen])
		if key == "" {
			return nil, errors.Coded(errors.CodeFileFormat).WithDetail("reason", "empty key")
		}
		if i > 0 && key <= prevKey {
			return nil, errors.Coded(errors.CodeFileFormat).WithDetail("reason", "keys not sorted").WithDetail("key", key)
		}
		prevKey = key
		s.items[key] = &item{
			key:  key,
			typ:  typ,
			n:    int(arrayLen),
			data: data[arrayStart : arrayStart+arrayBytes],
		}
	}
	return s, nil
}
