package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	ID   int32   `json:"id"`
	Name string  `json:"name"`
	Time float64 `json:"time"`
}

func TestStreamingEncoderLines(t *testing.T) {
	var out bytes.Buffer
	enc := NewStreamingEncoder(&out, false)
	require.NoError(t, enc.Encode(testRow{ID: 0, Name: "a<b", Time: 1.5}))
	require.NoError(t, enc.Encode(testRow{ID: 1, Name: "c", Time: 0}))
	require.NoError(t, enc.Close())

	assert.Equal(t, 2, enc.Count())
	assert.Equal(t, "{\"id\":0,\"name\":\"a<b\",\"time\":1.5}\n{\"id\":1,\"name\":\"c\",\"time\":0}\n", out.String())
}

func TestStreamingEncoderArray(t *testing.T) {
	tests := []struct {
		name string
		rows []testRow
		want string
	}{
		{name: "empty", want: "[]\n"},
		{name: "one", rows: []testRow{{ID: 3}}, want: "[{\"id\":3,\"name\":\"\",\"time\":0}\n]\n"},
		{
			name: "two",
			rows: []testRow{{ID: 1}, {ID: 2}},
			want: "[{\"id\":1,\"name\":\"\",\"time\":0}\n,{\"id\":2,\"name\":\"\",\"time\":0}\n]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			enc := NewStreamingEncoder(&out, true)
			for _, r := range tt.rows {
				require.NoError(t, enc.Encode(r))
			}
			require.NoError(t, enc.Close())
			assert.Equal(t, tt.want, out.String())
			assert.True(t, Valid(out.Bytes()))

			var decoded []testRow
			require.NoError(t, Unmarshal(out.Bytes(), &decoded))
			assert.Len(t, decoded, len(tt.rows))
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := testRow{ID: 7, Name: "x", Time: 2.25}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out testRow
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)

	indented, err := MarshalIndent(in, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"name\": \"x\"")
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("data")
	PutBuffer(buf)
	assert.Equal(t, 0, GetBuffer().Len())
}
