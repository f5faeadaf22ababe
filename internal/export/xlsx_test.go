package export_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kiranshivaraju/sitewatch/internal/export"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

func TestWriteResults(t *testing.T) {
	latency := int64(123)
	results := []models.AuditResult{
		{
			TargetID:      "acme",
			ClientID:      "client-1",
			Timestamp:     1700000000000,
			Scores:        models.Scores{Performance: 85, Accessibility: 95, BestPractices: 100, SEO: 95},
			Uptime:        models.Uptime{Status: models.StatusUp, Latency: &latency},
			Opportunities: []string{"Speed Optimization Service", "SEO Enhancement Package"},
		},
		{
			TargetID:  "globex",
			Timestamp: 1700000060000,
			Uptime:    models.Uptime{Status: models.StatusDown},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteResults(&buf, results))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, export.Columns, rows[0])
	assert.Equal(t, "acme", rows[1][0])
	assert.Equal(t, "client-1", rows[1][1])
	assert.Equal(t, "2023-11-14T22:13:20Z", rows[1][2])
	assert.Equal(t, "85", rows[1][3])
	assert.Equal(t, "UP", rows[1][7])
	assert.Equal(t, "123", rows[1][8])
	assert.Equal(t, "Speed Optimization Service; SEO Enhancement Package", rows[1][9])

	assert.Equal(t, "globex", rows[2][0])
	assert.Equal(t, "DOWN", rows[2][7])
}

func TestWriteResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteResults(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, export.Columns, rows[0])
}
