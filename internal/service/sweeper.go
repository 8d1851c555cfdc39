package service

import (
	"context"
	"log"
	"time"
)

// Sweeper roda a varredura periódica de transferências expiradas em
// background. Cancelável via contexto no desligamento do processo.
type Sweeper struct {
	transfers *TransferService
	interval  time.Duration
}

// NewSweeper cria a varredura com o intervalo configurado
func NewSweeper(transfers *TransferService, interval time.Duration) *Sweeper {
	return &Sweeper{
		transfers: transfers,
		interval:  interval,
	}
}

// Run bloqueia até o contexto ser cancelado, varrendo a cada intervalo
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Varredura de expirados iniciada (intervalo: %s)", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Varredura de expirados encerrada.")
			return
		case <-ticker.C:
			count, err := s.transfers.SweepExpired(ctx)
			if err != nil {
				log.Printf("Erro na varredura de expirados: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("Varredura removeu %d transferência(s) expirada(s)", count)
			}
		}
	}
}
