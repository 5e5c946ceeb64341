package ledger

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iudanet/milkledger/internal/models"
)

// ExportFormat формат выгрузки журнала
type ExportFormat string

// Поддерживаемые форматы выгрузки
const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat разбирает формат выгрузки
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ExportJSON, ExportCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q: must be json or csv", s)
	}
}

// csvHeader колонки CSV выгрузки
var csvHeader = []string{"Timestamp", "Action", "Entity", "ID", "User", "Notes", "Hash"}

// Export выгружает все хранимые записи в w и фиксирует выгрузку записью
// DATA_EXPORT. Возвращает число выгруженных записей.
func (l *Ledger) Export(ctx context.Context, w io.Writer, format ExportFormat) (int, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return 0, err
	}

	if err := WriteEntries(w, entries, format); err != nil {
		return 0, err
	}

	_, err = l.Log(ctx, models.ActionDataExport, "export", "audit_logs", map[string]any{
		"exportType":  "audit_logs",
		"recordCount": len(entries),
		"format":      string(format),
	}, fmt.Sprintf("Exported %d records of audit_logs", len(entries)))
	if err != nil {
		return len(entries), fmt.Errorf("export written but not logged: %w", err)
	}

	return len(entries), nil
}

// WriteEntries пишет записи в заданном формате без записи в журнал
func WriteEntries(w io.Writer, entries []*models.AuditEntry, format ExportFormat) error {
	switch format {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []*models.AuditEntry{}
		}
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to write json export: %w", err)
		}
		return nil

	case ExportCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
		for _, e := range entries {
			row := []string{e.Timestamp, string(e.Action), e.EntityType, e.EntityID, e.UserID, e.Notes, e.Hash}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("failed to flush csv export: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
