package provenance

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/tables"
)

var software = Software{Name: "arbor", Version: "test"}

func TestNewRecord(t *testing.T) {
	params := map[string]interface{}{"samples": []int32{0, 1}}
	r := New(context.Background(), software, "simplify", params)

	assert.Equal(t, SchemaVersion, r.SchemaVersion)
	assert.Equal(t, "simplify", r.Parameters["command"])
	assert.NotContains(t, params, "command", "the caller's map is not modified")
	assert.Equal(t, runtime.Version(), r.Environment.Libraries["go"])
	assert.NotEmpty(t, r.Environment.OS.System)
	assert.NotEmpty(t, r.Environment.OS.Machine)
	assert.Nil(t, r.Resources)
}

func TestMarshalParse(t *testing.T) {
	r := New(context.Background(), software, "sort", nil)
	r.Finish(context.Background())
	require.NotNil(t, r.Resources)
	assert.GreaterOrEqual(t, r.Resources.ElapsedTime, 0.0)

	s, err := r.Marshal()
	require.NoError(t, err)
	assert.Contains(t, s, `"schema_version":"1.0.0"`)

	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, software, parsed.Software)
	assert.Equal(t, "sort", parsed.Parameters["command"])
	assert.Equal(t, r.Environment, parsed.Environment)
	assert.Equal(t, r.Resources, parsed.Resources)
}

func TestParseForeignRecord(t *testing.T) {
	r, err := Parse(`{"schema_version":"1.0.0","software":{"name":"msprime","version":"1.3"},"parameters":{"command":"sim_ancestry"}}`)
	require.NoError(t, err)
	assert.Equal(t, "msprime", r.Software.Name)
	assert.Nil(t, r.Resources)

	_, err = Parse("not json")
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}

func TestAppend(t *testing.T) {
	tc := tables.New(1)
	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, Append(context.Background(), tc, New(context.Background(), software, "union", nil)))
	require.Equal(t, 1, tc.Provenances.NumRows())

	row, err := tc.Provenances.Row(0)
	require.NoError(t, err)
	ts, err := time.Parse(time.RFC3339, string(row.Timestamp))
	require.NoError(t, err)
	assert.False(t, ts.Before(before.Truncate(time.Second)))

	parsed, err := Parse(string(row.Record))
	require.NoError(t, err)
	assert.Equal(t, "union", parsed.Parameters["command"])
	assert.NotNil(t, parsed.Resources)
}
