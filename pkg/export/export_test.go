package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	payload, err := CSV(Table{
		Headers: []string{"RA", "Name"},
		Rows: [][]string{
			{"20260001", "Ana Souza"},
			{"20260002", "Bruno Lima"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "RA,Name\n20260001,Ana Souza\n20260002,Bruno Lima\n", string(payload))
}

func TestCSVPadsShortRows(t *testing.T) {
	payload, err := CSV(Table{
		Headers: []string{"RA", "Name", "Email"},
		Rows:    [][]string{{"20260001"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "RA,Name,Email\n20260001,,\n", string(payload))
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := CSV(Table{})
	require.Error(t, err)
}

func TestPDF(t *testing.T) {
	payload, err := PDF(Table{
		Headers: []string{"RA", "Name"},
		Rows:    [][]string{{"20260001", "Ana Souza"}},
	}, "Roster Calculus I - 21")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}
