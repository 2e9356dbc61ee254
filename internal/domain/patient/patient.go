// Package patient implements the oncology patient roster domain:
// the record model, journey-delay flags and the in-memory store.
package patient

import (
	"fmt"
	"strings"
	"time"
)

// Date is a day-precision calendar date. It marshals as YYYY-MM-DD,
// the format used by the roster CSV and the JSON API.
type Date struct {
	time.Time
}

// NewDate builds a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// DaysBetween returns the whole days from a to b (negative if b precedes a).
func DaysBetween(a, b Date) int {
	return int(b.Sub(a.Time) / (24 * time.Hour))
}

func (d Date) String() string { return d.Format("2006-01-02") }

// MarshalJSON renders the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// OncologyDates holds the journey milestone dates. StagingDate is carried for
// richer sources but is never populated by the current roster.
type OncologyDates struct {
	DiagnosisDate      *Date `json:"diagnosis_date"`
	StagingDate        *Date `json:"staging_date"`
	TreatmentStartDate *Date `json:"treatment_start_date"`
}

// CancerInfo holds the cancer classification.
type CancerInfo struct {
	Type  *string `json:"type"`
	Stage *string `json:"stage"`
}

// CareInfo holds the ongoing-care fields.
type CareInfo struct {
	LastVisit *Date   `json:"last_visit"`
	NextVisit *Date   `json:"next_visit"`
	Status    *string `json:"status"`
}

// Flags holds the journey-delay indicators. Day counts are present only when
// the corresponding flag is set.
type Flags struct {
	AtrasoDiagnosticoEstadiamento     bool `json:"atraso_diagnostico_estadiamento"`
	AtrasoEstadiamentoTratamento      bool `json:"atraso_estadiamento_tratamento"`
	DiasAtrasoDiagnosticoEstadiamento *int `json:"dias_atraso_diagnostico_estadiamento,omitempty"`
	DiasAtrasoEstadiamentoTratamento  *int `json:"dias_atraso_estadiamento_tratamento,omitempty"`
}

// Patient is one row of the roster.
type Patient struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Sex      *string           `json:"sex"`
	Age      *int              `json:"age"`
	Oncology OncologyDates     `json:"oncology"`
	Cancer   CancerInfo        `json:"cancer"`
	Care     CareInfo          `json:"care"`
	Flags    Flags             `json:"flags"`
	Notes    *string           `json:"notes"`
	Meta     map[string]string `json:"meta"`
}

// OncologyPatch carries optional overwrites for the oncology sub-structure.
type OncologyPatch struct {
	DiagnosisDate      *Date `json:"diagnosis_date"`
	StagingDate        *Date `json:"staging_date"`
	TreatmentStartDate *Date `json:"treatment_start_date"`
}

// CarePatch carries optional overwrites for the care sub-structure.
type CarePatch struct {
	LastVisit *Date   `json:"last_visit"`
	NextVisit *Date   `json:"next_visit"`
	Status    *string `json:"status"`
}

// Patch is a partial update. Only the oncology and care sub-structures are
// patchable; fields left nil are not touched. Unknown JSON fields are ignored
// by decoding into this shape.
type Patch struct {
	Oncology *OncologyPatch `json:"oncology"`
	Care     *CarePatch     `json:"care"`
}

// clone returns a copy safe to hand to callers. Pointer fields reference
// immutable values and are only ever replaced wholesale, so a struct copy
// plus a fresh meta map is enough.
func (p *Patient) clone() *Patient {
	cp := *p
	if p.Meta != nil {
		cp.Meta = make(map[string]string, len(p.Meta))
		for k, v := range p.Meta {
			cp.Meta[k] = v
		}
	}
	return &cp
}
