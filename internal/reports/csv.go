package reports

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

var csvHeader = []string{
	"student_name", "student_email", "classroom", "opportunity",
	"organization", "date", "hours", "verified_at",
}

// BuildCSV renders export rows as a CSV document.
func BuildCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.StudentName,
			r.StudentEmail,
			r.Classroom,
			r.Opportunity,
			r.Organization,
			r.Date.Format("2006-01-02"),
			strconv.FormatFloat(r.Hours, 'f', 2, 64),
			r.VerifiedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
