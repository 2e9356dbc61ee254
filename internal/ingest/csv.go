// Package ingest loads the patient roster from a CSV snapshot.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oncocare/journey/internal/apperrors"
	"github.com/oncocare/journey/internal/domain/patient"
)

// Required roster columns. Date columns are YYYY-MM-DD.
var requiredColumns = []string{
	"patient_id",
	"nome_paciente",
	"sexo",
	"idade",
	"tipo_cancer",
	"estadiamento",
	"diagnostico_data",
	"cirurgia_data",
	"quimioterapia_inicio",
	"radioterapia_inicio",
	"ultima_consulta",
	"proxima_consulta",
	"status_jornada",
	"notas_clinicas",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadRoster reads the roster snapshot and builds one record per row.
//
// The delimiter is auto-detected among comma, semicolon and tab, and a UTF-8
// BOM is tolerated. Unparseable date cells become absent values. A row with
// an empty patient_id fails the whole load: a roster that cannot be keyed is
// treated as corrupt rather than silently truncated.
func LoadRoster(path string, logger *zap.Logger) ([]*patient.Patient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Ingestion(fmt.Errorf("read %s: %w", path, err))
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Ingestion(fmt.Errorf("parse %s: %w", path, err))
	}
	if len(rows) == 0 {
		return nil, apperrors.Ingestion(fmt.Errorf("%s: empty roster file", path))
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.Ingestion(fmt.Errorf("%s: missing column %q", path, name))
		}
	}

	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	today := patient.DateOf(time.Now())

	patients := make([]*patient.Patient, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cell := func(name string) string {
			idx := cols[name]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		id := cell("patient_id")
		if id == "" {
			return nil, apperrors.Ingestion(fmt.Errorf("%s: row %d has no patient_id", path, i+2))
		}

		diagnosis := parseDateCell(cell("diagnostico_data"))
		treatmentStart := earliestDate(
			parseDateCell(cell("cirurgia_data")),
			parseDateCell(cell("quimioterapia_inicio")),
			parseDateCell(cell("radioterapia_inicio")),
		)

		p := &patient.Patient{
			ID:   id,
			Name: cell("nome_paciente"),
			Sex:  optString(cell("sexo")),
			Age:  parseAgeCell(cell("idade")),
			Oncology: patient.OncologyDates{
				DiagnosisDate:      diagnosis,
				TreatmentStartDate: treatmentStart,
			},
			Cancer: patient.CancerInfo{
				Type:  optString(cell("tipo_cancer")),
				Stage: optString(cell("estadiamento")),
			},
			Care: patient.CareInfo{
				LastVisit: parseDateCell(cell("ultima_consulta")),
				NextVisit: parseDateCell(cell("proxima_consulta")),
				Status:    optString(cell("status_jornada")),
			},
			Flags: patient.ComputeFlags(diagnosis, treatmentStart, today),
			Notes: optString(cell("notas_clinicas")),
			Meta:  map[string]string{"source": "csv", "ingested_at": ingestedAt},
		}
		patients = append(patients, p)
	}

	logger.Info("roster loaded",
		zap.String("path", path),
		zap.Int("patients", len(patients)))
	return patients, nil
}

// detectDelimiter sniffs the header line for the most frequent candidate
// separator. Defaults to comma.
func detectDelimiter(data []byte) rune {
	header := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		header = data[:idx]
	}
	best, count := ',', bytes.Count(header, []byte{','})
	for _, c := range []byte{';', '\t'} {
		if n := bytes.Count(header, []byte{c}); n > count {
			best, count = rune(c), n
		}
	}
	return best
}

func parseDateCell(s string) *patient.Date {
	if s == "" {
		return nil
	}
	d, err := patient.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func parseAgeCell(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func earliestDate(dates ...*patient.Date) *patient.Date {
	var min *patient.Date
	for _, d := range dates {
		if d == nil {
			continue
		}
		if min == nil || d.Before(min.Time) {
			min = d
		}
	}
	return min
}
