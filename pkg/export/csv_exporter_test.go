package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Amount"},
		Rows: []map[string]string{
			{"Student": "Amina Khalil", "Amount": "120.00"},
			{"Amount": "80.00"}, // missing key renders empty
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student,Amount\nAmina Khalil,120.00\n,80.00\n", string(data))
}

func TestCSVRenderNoHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
