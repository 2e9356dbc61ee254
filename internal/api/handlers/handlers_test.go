package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oncocare/journey/internal/domain/patient"
	"github.com/oncocare/journey/internal/llm"
	"github.com/oncocare/journey/internal/summary"
)

type fakeLLM struct {
	response string
	calls    int
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	return f.response, nil
}

const validModelJSON = `{"sintomas":["dor"],"pontos_relevantes":[],"sugestao_plano_acao":["q1","q2"],"nivel_urgencia":"Baixa"}`

func fixedTime() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }

func newTestRouter(t *testing.T, fake *fakeLLM) *chi.Mux {
	t.Helper()

	status := "em_acompanhamento"
	diag := patient.NewDate(2024, 1, 1)
	store := patient.NewStore(nil)
	store.Clock = fixedTime
	store.ReplaceAll([]*patient.Patient{
		{
			ID:       "P1",
			Name:     "Ana Souza",
			Oncology: patient.OncologyDates{DiagnosisDate: &diag},
			Care:     patient.CareInfo{Status: &status},
		},
		{ID: "P2", Name: "Bruno Lima"},
	})

	svc := summary.NewService(fake, nil, summary.DefaultConfig(), nil)
	svc.Clock = fixedTime

	r := chi.NewRouter()
	r.Mount("/patients", NewPatientHandler(store, nil, nil).Routes())
	r.Mount("/chat", NewChatHandler(store, svc, nil, nil).Routes())
	r.Mount("/dashboard", NewDashboardHandler(store).Routes())
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetPatient(t *testing.T) {
	r := newTestRouter(t, &fakeLLM{})

	rec := doRequest(t, r, http.MethodGet, "/patients/P1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var p patient.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ID != "P1" || p.Name != "Ana Souza" {
		t.Errorf("patient = %+v", p)
	}
	if !p.Flags.AtrasoEstadiamentoTratamento {
		t.Error("response must carry freshly computed delay flags")
	}
}

func TestGetPatientNotFound(t *testing.T) {
	r := newTestRouter(t, &fakeLLM{})

	rec := doRequest(t, r, http.MethodGet, "/patients/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListPatientsSlicing(t *testing.T) {
	r := newTestRouter(t, &fakeLLM{})

	rec := doRequest(t, r, http.MethodGet, "/patients/?limit=1&offset=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var pts []patient.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &pts); err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 || pts[0].ID != "P2" {
		t.Errorf("slice = %+v, want just P2", pts)
	}
}

func TestSearchOnlyDelayed(t *testing.T) {
	r := newTestRouter(t, &fakeLLM{})

	rec := doRequest(t, r, http.MethodGet, "/patients/search?only_delayed=true", "")

	var pts []patient.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &pts); err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 || pts[0].ID != "P1" {
		t.Errorf("delayed = %+v, want just P1", pts)
	}
}

func TestPatchPatientCareStatus(t *testing.T) {
	r := newTestRouter(t, &fakeLLM{})

	body := `{"care":{"status":"in_treatment"},"bogus_field":true}`
	rec := doRequest(t, r, http.MethodPatch, "/patients/P1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var p patient.Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Care.Status == nil || *p.Care.Status != "in_treatment" {
		t.Errorf("care.status = %v, want in_treatment", p.Care.Status)
	}
	if p.Oncology.DiagnosisDate == nil || p.Oncology.DiagnosisDate.String() != "2024-01-01" {
		t.Error("oncology fields must survive a care-only patch")
	}
}

func TestPatchPatientNotFound(t *testing.T) {
	r := newTestRouter(t, &fakeLLM{})

	rec := doRequest(t, r, http.MethodPatch, "/patients/missing", `{"care":{"status":"x"}}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChatReturnsSummary(t *testing.T) {
	fake := &fakeLLM{response: validModelJSON}
	r := newTestRouter(t, fake)

	rec := doRequest(t, r, http.MethodPost, "/chat/", `{"patient_id":"P1","message":"estou com dor"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.PatientID != "P1" {
		t.Errorf("patient_id = %q", resp.PatientID)
	}
	if resp.Summary == nil || len(resp.Summary.Sintomas) != 1 || resp.Summary.Sintomas[0] != "dor" {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if fake.calls != 1 {
		t.Errorf("model calls = %d, want 1", fake.calls)
	}
}

func TestChatUnknownPatientSkipsUpstream(t *testing.T) {
	fake := &fakeLLM{response: validModelJSON}
	r := newTestRouter(t, fake)

	rec := doRequest(t, r, http.MethodPost, "/chat/", `{"patient_id":"missing","message":"oi"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if fake.calls != 0 {
		t.Errorf("model calls = %d, the upstream must not be reached for an unknown patient", fake.calls)
	}
}

func TestChatValidation(t *testing.T) {
	fake := &fakeLLM{response: validModelJSON}
	r := newTestRouter(t, fake)

	for _, body := range []string{
		`{"message":"sem id"}`,
		`{"patient_id":"P1","message":"  "}`,
		`not json`,
	} {
		rec := doRequest(t, r, http.MethodPost, "/chat/", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
	if fake.calls != 0 {
		t.Errorf("model calls = %d, want 0", fake.calls)
	}
}

func TestChatMalformedModelOutput(t *testing.T) {
	fake := &fakeLLM{response: "no json here"}
	r := newTestRouter(t, fake)

	rec := doRequest(t, r, http.MethodPost, "/chat/", `{"patient_id":"P1","message":"oi"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no json here") {
		t.Error("raw model output must be surfaced in the error details")
	}
}

func TestDashboardAlerts(t *testing.T) {
	r := newTestRouter(t, &fakeLLM{})

	rec := doRequest(t, r, http.MethodGet, "/dashboard/alerts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats AlertStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalPacientes != 2 || stats.PacientesComAtraso != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.PercentualAtraso != 50 {
		t.Errorf("percentual = %v, want 50", stats.PercentualAtraso)
	}
}

func TestDashboardAlertsPercentageRounded(t *testing.T) {
	diag := patient.NewDate(2024, 1, 1)
	store := patient.NewStore(nil)
	store.Clock = fixedTime
	store.ReplaceAll([]*patient.Patient{
		{ID: "P1", Oncology: patient.OncologyDates{DiagnosisDate: &diag}},
		{ID: "P2"},
		{ID: "P3"},
	})

	r := chi.NewRouter()
	r.Mount("/dashboard", NewDashboardHandler(store).Routes())

	rec := doRequest(t, r, http.MethodGet, "/dashboard/alerts", "")

	var stats AlertStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	// 1 of 3 delayed: 33.333... rounds to two decimals
	if stats.PercentualAtraso != 33.33 {
		t.Errorf("percentual = %v, want 33.33", stats.PercentualAtraso)
	}
}
