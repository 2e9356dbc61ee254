package summary

// prompt.go holds the Portuguese clinical prompts and the patient context
// formatter. Keeping the prompt text in one file makes it easy to tweak
// without touching the pipeline.

import (
	"fmt"
	"strings"

	"github.com/oncocare/journey/internal/domain/patient"
)

const (
	// SystemPrompt sets the model's role for every summary call.
	SystemPrompt = "Você é um assistente médico especializado em oncologia."

	// NoDelayMessage is injected into the prompt when no journey alert fired.
	NoDelayMessage = "Nenhum atraso identificado."
)

// placeholder marks an absent field in the context line.
const placeholder = "-"

// PatientContext renders a fixed-order, pipe-delimited, single-line summary
// of the record. It bounds how much patient data reaches the model; the
// string is write-only and never parsed back.
func PatientContext(p *patient.Patient) string {
	name := p.Name
	if name == "" {
		name = placeholder
	}
	fields := []string{
		"Paciente: " + name,
		"Sexo: " + orDash(p.Sex),
		"Idade: " + orDashInt(p.Age),
		"Câncer: " + orDash(p.Cancer.Type),
		"Estágio: " + orDash(p.Cancer.Stage),
		"Diagnóstico: " + orDashDate(p.Oncology.DiagnosisDate),
		"Início tratamento: " + orDashDate(p.Oncology.TreatmentStartDate),
		"Última consulta: " + orDashDate(p.Care.LastVisit),
		"Próxima consulta: " + orDashDate(p.Care.NextVisit),
		"Status: " + orDash(p.Care.Status),
	}
	return strings.Join(fields, " | ")
}

// buildPrompt assembles the instruction sent as the user message. The output
// contract requires a single JSON object with exactly four keys and forbids
// any text outside it.
func buildPrompt(p *patient.Patient, alerts []string, message string) string {
	alertText := NoDelayMessage
	if len(alerts) > 0 {
		alertText = strings.Join(alerts, " ")
	}

	var b strings.Builder
	b.WriteString("**Contexto do Paciente:**\n")
	fmt.Fprintf(&b, "- ID: %s\n", p.ID)
	fmt.Fprintf(&b, "- Tipo de Câncer: %s\n", orDash(p.Cancer.Type))
	fmt.Fprintf(&b, "- Estadiamento: %s\n", orDash(p.Cancer.Stage))
	fmt.Fprintf(&b, "- Dados: %s\n", PatientContext(p))
	fmt.Fprintf(&b, "- Alertas de Atraso na Jornada: %s\n", alertText)
	b.WriteString("\n**Mensagem do Paciente:**\n")
	fmt.Fprintf(&b, "%q\n", message)
	b.WriteString(`
**Sua Tarefa:**
Você organiza informações para médicos oncologistas. Analise a mensagem do paciente e os dados de contexto. Sua única saída deve ser um objeto JSON com os seguintes campos:

1. ` + "`sintomas`" + `: lista de todos os sintomas mencionados na mensagem. Se nenhum for mencionado, retorne uma lista vazia.
2. ` + "`pontos_relevantes`" + `: lista de outros pontos importantes, como menção a medicamentos, exames, efeitos colaterais ou dúvidas específicas.
3. ` + "`sugestao_plano_acao`" + `: de 2 a 3 perguntas diretas que o médico pode fazer para investigar melhor o estado do paciente, considerando o tipo de câncer, o estadiamento e a mensagem.
4. ` + "`nivel_urgencia`" + `: 'Baixa', 'Média' ou 'Alta', conforme a gravidade dos sintomas descritos.

Responda APENAS com o objeto JSON. Não inclua nenhuma outra palavra ou explicação antes ou depois do JSON.
`)
	return b.String()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return placeholder
	}
	return *s
}

func orDashInt(n *int) string {
	if n == nil {
		return placeholder
	}
	return fmt.Sprintf("%d", *n)
}

func orDashDate(d *patient.Date) string {
	if d == nil {
		return placeholder
	}
	return d.String()
}
