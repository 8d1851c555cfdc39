package service

import (
	"fmt"
	"sync"

	"secshare-backend/internal/models"
)

// DateLayout é o formato de data usado no reset diário de cotas
const DateLayout = "2006-01-02"

// Limits agrupa os tetos de um plano
type Limits struct {
	MaxTransfersPerDay int
	MaxFileSize        int64
}

// QuotaPolicy decide se um usuário pode criar uma transferência e qual o
// tamanho máximo de arquivo permitido. Administradores e superusuários
// são sempre permitidos. A única mutação que a política faz é o reset
// preguiçoso do contador diário, idêntico nos dois checks.
type QuotaPolicy struct {
	mu         sync.RWMutex
	admins     map[int64]struct{}
	superusers map[int64]struct{}

	free    Limits
	premium Limits
}

// NewQuotaPolicy cria a política com a lista de administradores e os
// tetos por plano vindos da configuração
func NewQuotaPolicy(adminIDs []int64, free, premium Limits) *QuotaPolicy {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &QuotaPolicy{
		admins:     admins,
		superusers: make(map[int64]struct{}),
		free:       free,
		premium:    premium,
	}
}

// IsAdmin informa se o usuário é administrador ou superusuário
func (p *QuotaPolicy) IsAdmin(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.admins[userID]; ok {
		return true
	}
	_, ok := p.superusers[userID]
	return ok
}

// AddSuperuser promove um usuário a superusuário em tempo de execução
func (p *QuotaPolicy) AddSuperuser(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.superusers[userID] = struct{}{}
}

// LimitsFor devolve os tetos do plano do usuário
func (p *QuotaPolicy) LimitsFor(user *models.User) Limits {
	if user.IsPremium {
		return p.premium
	}
	return p.free
}

// ResetDailyIfNeeded zera o contador diário se o dia virou desde o último
// reset. Função pura de (data armazenada, data atual); sem timer de fundo.
func ResetDailyIfNeeded(user *models.User, today string) {
	if user.LastResetDate != today {
		user.TransfersSentToday = 0
		user.LastResetDate = today
	}
}

// CheckTransferAllowed verifica a cota diária de transferências.
// Pode mutar o usuário (reset diário); o chamador persiste a mutação.
func (p *QuotaPolicy) CheckTransferAllowed(user *models.User, today string) error {
	if p.IsAdmin(user.ID) {
		return nil
	}

	ResetDailyIfNeeded(user, today)

	limits := p.LimitsFor(user)
	if user.TransfersSentToday >= limits.MaxTransfersPerDay {
		return fmt.Errorf("%w: máximo de %d por dia no seu plano", ErrQuotaExceeded, limits.MaxTransfersPerDay)
	}
	return nil
}

// CheckSizeAllowed verifica o teto de tamanho de arquivo do plano.
// Faz o mesmo reset diário do check de cota, para que ambos observem um
// contador consistente.
func (p *QuotaPolicy) CheckSizeAllowed(user *models.User, sizeBytes int64, today string) error {
	if p.IsAdmin(user.ID) {
		return nil
	}

	ResetDailyIfNeeded(user, today)

	limits := p.LimitsFor(user)
	if sizeBytes > limits.MaxFileSize {
		return fmt.Errorf("%w: máximo de %d MB no seu plano", ErrSizeLimitExceeded, limits.MaxFileSize/(1024*1024))
	}
	return nil
}
