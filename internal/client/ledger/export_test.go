package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/milkledger/internal/models"
)

func fixedEntries() []*models.AuditEntry {
	return []*models.AuditEntry{
		{
			ID:           "AUD-0001",
			Timestamp:    "2024-03-01T06:15:00.000000000Z",
			SessionID:    "SES-LT0ABC-1A2B3C4D",
			MachineID:    "MID-linux-4core-deadbeef",
			UserID:       "cashier-7",
			UserAgent:    "milkledger/1.0",
			Action:       models.ActionMilkIntake,
			EntityType:   "milk_collection",
			EntityID:     "MC-1",
			Data:         map[string]any{"liters": 12.5, "farmerId": "F-1"},
			Notes:        "Milk intake, morning",
			PreviousHash: "",
			Hash:         "sha256:1111111111111111111111111111111111111111111111111111111111111111",
			Signature:    "hmac-sha256:c2lnLTE",
		},
		{
			ID:           "AUD-0002",
			Timestamp:    "2024-03-01T06:20:00.000000000Z",
			SessionID:    "SES-LT0ABC-1A2B3C4D",
			MachineID:    "MID-linux-4core-deadbeef",
			UserID:       "cashier-7",
			UserAgent:    "milkledger/1.0",
			Action:       models.ActionSaleCreate,
			EntityType:   "invoice",
			EntityID:     "INV-42",
			Notes:        `Paid "cash"`,
			PreviousHash: "sha256:1111111111111111111111111111111111111111111111111111111111111111",
			Hash:         "sha256:2222222222222222222222222222222222222222222222222222222222222222",
			Signature:    "hmac-sha256:c2lnLTI",
		},
	}
}

func goldenFor(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriteEntries_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, fixedEntries(), ExportCSV))

	goldenFor(t).Assert(t, "export_csv", buf.Bytes())
}

func TestWriteEntries_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, fixedEntries()[:1], ExportJSON))

	goldenFor(t).Assert(t, "export_json", buf.Bytes())
}

func TestWriteEntries_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, nil, ExportJSON))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteEntries(&buf, nil, ExportCSV))
	assert.Equal(t, "Timestamp,Action,Entity,ID,User,Notes,Hash\n", buf.String())

	require.Error(t, WriteEntries(&buf, nil, ExportFormat("xml")))
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{in: "json", want: ExportJSON},
		{in: " CSV ", want: ExportCSV},
		{in: "xml", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExportFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLedger_Export(t *testing.T) {
	ctx := context.Background()
	env := setupTestLedger(t, 0)
	logN(t, env.ledger, 3)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := env.ledger.Export(ctx, &buf, ExportJSON)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		var exported []models.AuditEntry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
		assert.Len(t, exported, 3)
	})

	t.Run("csv includes previous export entry", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := env.ledger.Export(ctx, &buf, ExportCSV)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, string(models.ActionDataExport), rows[4][1])
	})

	exports, err := env.ledger.ByAction(ctx, models.ActionDataExport)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, "export", exports[0].EntityType)
	assert.Equal(t, "audit_logs", exports[0].EntityID)
	assert.Equal(t, "json", exports[0].Data["format"])
	assert.Equal(t, json.Number("3"), exports[0].Data["recordCount"])

	res, err := env.ledger.VerifyChain(ctx)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}
