package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "table", input: "table", want: FormatTable},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "json", input: "json", want: FormatJSON},
		{name: "JSON uppercase", input: "JSON", want: FormatJSON},
		{name: "yaml", input: "yaml", want: FormatYAML},
		{name: "yml alias", input: "yml", want: FormatYAML},
		{name: "whitespace trimmed", input: "  table  ", want: FormatTable},
		{name: "invalid format", input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "table", FormatTable.String())
	assert.Equal(t, "json", FormatJSON.String())
	assert.Equal(t, "yaml", FormatYAML.String())
}

type fakeRow struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type fakeTable []fakeRow

func (f fakeTable) Headers() []string { return []string{"FIELD", "VALUE"} }
func (f fakeTable) Rows() [][]string {
	rows := make([][]string, len(f))
	for i, r := range f {
		rows[i] = []string{r.Name, r.Value}
	}
	return rows
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatJSON, fakeTable{{Name: "a", Value: "1"}}))
	assert.Contains(t, buf.String(), `"name": "a"`)
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatYAML, fakeTable{{Name: "a", Value: "1"}}))
	assert.Contains(t, buf.String(), "name: a")
}

func TestPrintTableUsesRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, fakeTable{{Name: "a", Value: "1"}}))
	assert.Contains(t, buf.String(), "a")
}

func TestPrintRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Print(&buf, Format("xml"), fakeTable{})
	assert.Error(t, err)
}
