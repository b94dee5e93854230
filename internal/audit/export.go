package audit

import (
	"bufio"
	"encoding/csv"
	"io"
	"time"
)

var csvHeader = []string{"occurred_at", "adapter", "outcome", "user_id", "role", "requirement", "resource"}

// WriteCSV streams rows to w with a header line and CRLF endings.
func WriteCSV(w io.Writer, rows []Denial) error {
	buf := bufio.NewWriterSize(w, 32*1024)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range rows {
		record := []string{
			d.OccurredAt.UTC().Format(time.RFC3339),
			d.Adapter,
			d.Outcome,
			d.UserID,
			d.Role,
			d.Requirement,
			d.Resource,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}
