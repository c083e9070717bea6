package diag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesSeverity(t *testing.T) {
	d := New(W001, Span{File: "a.vais"}, "variable %q is never read", "x")
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Contains(t, d.Message, "x")
}

func TestListHasErrorsIgnoresWarnings(t *testing.T) {
	list := List{New(W001, Span{}, "unused")}
	assert.False(t, list.HasErrors())

	list = append(list, New(E020, Span{}, "mismatch"))
	assert.True(t, list.HasErrors())
	require.NotNil(t, list.Primary())
	assert.Equal(t, E020, list.Primary().Code)
}

func TestDiagnosticJSONRoundTrip(t *testing.T) {
	d := New(E021, Span{Start: 3, End: 6, File: "a.vais"}, "undefined variable %q", "foo").
		WithHelp("did you mean `bar`?").
		WithSecondary(Span{Start: 10, End: 12, File: "a.vais"})

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "E021", decoded["code"])
	assert.Equal(t, "error", decoded["severity"])
	assert.Equal(t, "did you mean `bar`?", decoded["help"])
	assert.Len(t, decoded["secondary_spans"], 1)
}
