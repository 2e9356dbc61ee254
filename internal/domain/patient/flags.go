package patient

import "fmt"

// DelayThresholdDays is the number of days a patient may wait between
// diagnosis and treatment start before the journey is flagged.
const DelayThresholdDays = 7

// AlertIncompleteDiagnosis is returned by ClinicalAlerts when the record has
// no usable diagnosis date.
const AlertIncompleteDiagnosis = "Dados de diagnóstico incompletos."

// ComputeFlags derives the journey-delay flags from the milestone dates.
//
// The staging-to-treatment flag marks an open journey: it is set only while
// the patient has no treatment start on record and more than
// DelayThresholdDays have passed since diagnosis. A patient who already
// started treatment is never flagged, however long the gap was. With no
// diagnosis date there is nothing to compute and all flags stay unset.
func ComputeFlags(diagnosis, treatmentStart *Date, today Date) Flags {
	var f Flags
	if diagnosis == nil {
		return f
	}

	days := 0
	if treatmentStart != nil {
		days = DaysBetween(*diagnosis, *treatmentStart)
	} else {
		days = DaysBetween(*diagnosis, today)
	}

	if treatmentStart == nil && days > DelayThresholdDays {
		f.AtrasoEstadiamentoTratamento = true
		f.DiasAtrasoEstadiamentoTratamento = &days
	}

	// No staging dates in the current roster, so the diagnosis-to-staging
	// delay can never fire. The field stays exposed for richer sources.
	return f
}

// ClinicalAlerts re-derives the open-journey condition as human-readable
// alert strings for the summary prompt. A missing or unparseable diagnosis
// date short-circuits into the incomplete-data sentinel.
func ClinicalAlerts(p *Patient, today Date) []string {
	if p.Oncology.DiagnosisDate == nil {
		return []string{AlertIncompleteDiagnosis}
	}

	var alerts []string
	if p.Oncology.TreatmentStartDate == nil {
		days := DaysBetween(*p.Oncology.DiagnosisDate, today)
		if days > DelayThresholdDays {
			alerts = append(alerts, fmt.Sprintf(
				"Atenção: paciente diagnosticado há %d dias sem data de início de tratamento registrada.", days))
		}
	}
	return alerts
}
