package summary

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/oncocare/journey/internal/apperrors"
	"github.com/oncocare/journey/internal/domain/patient"
	"github.com/oncocare/journey/internal/llm"
)

// fakeClient returns a scripted response and records every call.
type fakeClient struct {
	response string
	err      error
	calls    int
	lastReq  llm.CompletionRequest
}

func (f *fakeClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.calls++
	f.lastReq = req
	return f.response, f.err
}

func testPatient() *patient.Patient {
	breast := "Mama"
	stage := "II"
	diag := patient.NewDate(2024, 1, 1)
	return &patient.Patient{
		ID:       "P1",
		Name:     "Ana Souza",
		Cancer:   patient.CancerInfo{Type: &breast, Stage: &stage},
		Oncology: patient.OncologyDates{DiagnosisDate: &diag},
	}
}

func newTestService(client llm.Client) *Service {
	svc := NewService(client, nil, DefaultConfig(), nil)
	svc.Clock = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestSummarizeParsesStrictJSON(t *testing.T) {
	fake := &fakeClient{response: `{"sintomas":["náusea","fadiga"],` +
		`"pontos_relevantes":["usa ondansetrona"],` +
		`"sugestao_plano_acao":["A náusea piora após a quimioterapia?","A dose atual controla o sintoma?"],` +
		`"nivel_urgencia":"Média"}`}

	got, err := newTestService(fake).Summarize(context.Background(), testPatient(), "estou com náusea e fadiga", nil)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(got.Sintomas, []string{"náusea", "fadiga"}) {
		t.Errorf("sintomas = %v", got.Sintomas)
	}
	if !reflect.DeepEqual(got.PontosRelevantes, []string{"usa ondansetrona"}) {
		t.Errorf("pontos_relevantes = %v", got.PontosRelevantes)
	}
	if len(got.SugestaoPlanoAcao) != 2 {
		t.Errorf("sugestao_plano_acao = %v", got.SugestaoPlanoAcao)
	}
	if got.NivelUrgencia != UrgencyMedium {
		t.Errorf("nivel_urgencia = %q, want %q", got.NivelUrgencia, UrgencyMedium)
	}
}

func TestSummarizeRepairsWrappedJSON(t *testing.T) {
	fake := &fakeClient{response: `Here is the result: {"sintomas":[],"pontos_relevantes":[],"sugestao_plano_acao":["q1","q2"],"nivel_urgencia":"Baixa"} Thanks.`}

	got, err := newTestService(fake).Summarize(context.Background(), testPatient(), "tudo bem", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Sintomas) != 0 || len(got.PontosRelevantes) != 0 {
		t.Errorf("arrays should be empty: %+v", got)
	}
	if !reflect.DeepEqual(got.SugestaoPlanoAcao, []string{"q1", "q2"}) {
		t.Errorf("sugestao_plano_acao = %v, want [q1 q2]", got.SugestaoPlanoAcao)
	}
	if got.NivelUrgencia != UrgencyLow {
		t.Errorf("nivel_urgencia = %q, want %q", got.NivelUrgencia, UrgencyLow)
	}
}

func TestSummarizeUpstreamFailure(t *testing.T) {
	fake := &fakeClient{err: errors.New("connection refused")}

	_, err := newTestService(fake).Summarize(context.Background(), testPatient(), "mensagem", nil)
	if err == nil {
		t.Fatal("expected an error result")
	}
	if !errors.Is(err, apperrors.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
	if err.Error() == "" {
		t.Error("error description must be non-empty")
	}
}

func TestSummarizeRejectsDegenerateJSON(t *testing.T) {
	// "null" and "{}" decode without error but carry no summary.
	for _, raw := range []string{"null", "{}", `{"sintomas":[]}`} {
		fake := &fakeClient{response: raw}

		_, err := newTestService(fake).Summarize(context.Background(), testPatient(), "mensagem", nil)
		if !errors.Is(err, apperrors.ErrMalformedResponse) {
			t.Errorf("raw %q: err = %v, want ErrMalformedResponse", raw, err)
		}
	}
}

func TestSummarizeMalformedResponseKeepsRawText(t *testing.T) {
	fake := &fakeClient{response: "I cannot produce JSON today, sorry."}

	_, err := newTestService(fake).Summarize(context.Background(), testPatient(), "mensagem", nil)
	if !errors.Is(err, apperrors.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}

	appErr := apperrors.From(err)
	if appErr.Details["raw_response"] != fake.response {
		t.Errorf("raw model output must be surfaced, got %q", appErr.Details["raw_response"])
	}
}

func TestSummarizePromptCarriesContextAndAlerts(t *testing.T) {
	fake := &fakeClient{response: `{"sintomas":[],"pontos_relevantes":[],"sugestao_plano_acao":["q1","q2"],"nivel_urgencia":"Baixa"}`}
	svc := newTestService(fake)

	if _, err := svc.Summarize(context.Background(), testPatient(), "estou com dor", nil); err != nil {
		t.Fatal(err)
	}

	if fake.calls != 1 {
		t.Fatalf("calls = %d, want 1", fake.calls)
	}
	msgs := fake.lastReq.Messages
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != SystemPrompt {
		t.Errorf("first message must be the system prompt, got %+v", msgs[0])
	}
	user := msgs[len(msgs)-1].Content
	if !strings.Contains(user, `"estou com dor"`) {
		t.Error("prompt must quote the patient message verbatim")
	}
	if !strings.Contains(user, "14 dias") {
		t.Error("prompt must carry the open-journey alert")
	}
	if fake.lastReq.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", fake.lastReq.Temperature)
	}
	if fake.lastReq.MaxTokens != 500 {
		t.Errorf("max tokens = %d, want 500", fake.lastReq.MaxTokens)
	}
}

func TestSummarizeHistoryRolesFiltered(t *testing.T) {
	fake := &fakeClient{response: `{"sintomas":[],"pontos_relevantes":[],"sugestao_plano_acao":["q1","q2"],"nivel_urgencia":"Baixa"}`}
	svc := newTestService(fake)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "primeira mensagem"},
		{Role: llm.RoleAssistant, Content: "primeira resposta"},
		{Role: "tool", Content: "must be dropped"},
		{Role: llm.RoleUser, Content: ""},
	}
	if _, err := svc.Summarize(context.Background(), testPatient(), "nova mensagem", history); err != nil {
		t.Fatal(err)
	}

	// system + 2 valid history turns + user prompt
	if got := len(fake.lastReq.Messages); got != 4 {
		t.Errorf("messages = %d, want 4", got)
	}
}

func TestPatientContextAllAbsent(t *testing.T) {
	line := PatientContext(&patient.Patient{ID: "P1"})

	if strings.Count(line, "|") != 9 {
		t.Errorf("expected 10 pipe-delimited fields, got %q", line)
	}
	// every field, name included, renders as the placeholder
	if strings.Count(line, ": -") != 10 {
		t.Errorf("absent fields must render as dash, got %q", line)
	}
}

func TestPatientContextFixedOrder(t *testing.T) {
	p := testPatient()
	line := PatientContext(p)

	wantOrder := []string{"Paciente:", "Sexo:", "Idade:", "Câncer:", "Estágio:",
		"Diagnóstico:", "Início tratamento:", "Última consulta:", "Próxima consulta:", "Status:"}
	last := -1
	for _, label := range wantOrder {
		idx := strings.Index(line, label)
		if idx < 0 || idx < last {
			t.Fatalf("field %q missing or out of order in %q", label, line)
		}
		last = idx
	}
	if !strings.Contains(line, "Câncer: Mama") || !strings.Contains(line, "Diagnóstico: 2024-01-01") {
		t.Errorf("present fields must render their values: %q", line)
	}
}
