package service

import (
	"errors"
)

// Erros esperados do fluxo de controle do engine. A camada de API os
// converte em respostas tipadas; nenhum deles derruba o processo.
var (
	// ErrQuotaExceeded: cota diária de transferências do plano atingida
	ErrQuotaExceeded = errors.New("limite diário de transferências atingido")

	// ErrSizeLimitExceeded: arquivo maior que o teto do plano
	ErrSizeLimitExceeded = errors.New("arquivo excede o tamanho máximo do plano")

	// ErrNotFound: transferência ausente, expirada ou senha incorreta.
	// Deliberadamente um único resultado, para não vazar qual dos três.
	ErrNotFound = errors.New("transferência não encontrada")

	// ErrPermissionDenied: exclusão antecipada pedida por quem não é o remetente
	ErrPermissionDenied = errors.New("apenas o remetente pode apagar a transferência")
)
