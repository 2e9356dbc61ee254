package llm

import "context"

// Stub is the client used when no provider is configured. It returns a
// fixed, contract-conforming JSON payload so the summary pipeline stays
// exercisable in development and tests.
type Stub struct{}

const stubResponse = `{"sintomas":[],` +
	`"pontos_relevantes":["Resposta gerada em modo de teste, sem acesso ao modelo de IA."],` +
	`"sugestao_plano_acao":["Como o paciente está se sentindo desde a última consulta?","Surgiu algum sintoma novo desde a última mensagem?"],` +
	`"nivel_urgencia":"Baixa"}`

// Complete returns the canned payload.
func (Stub) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return stubResponse, nil
}
