package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"secshare-backend/internal/auth"
	"secshare-backend/internal/crypto"
	"secshare-backend/internal/models"
	"secshare-backend/internal/service"
	"secshare-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler gerencia as dependências para os handlers HTTP
type Handler struct {
	transferService *service.TransferService
	policy          *service.QuotaPolicy
	tokenService    *auth.TokenService
	blobs           storage.BlobStorage
	validate        *validator.Validate

	botAPIKey    string
	maxFileBytes int64 // teto absoluto do multipart (plano premium)
}

// NewHandler cria uma nova instância do Handler
func NewHandler(
	transferSvc *service.TransferService,
	policy *service.QuotaPolicy,
	tokenSvc *auth.TokenService,
	blobs storage.BlobStorage,
	botAPIKey string,
	maxFileBytes int64,
) *Handler {
	return &Handler{
		transferService: transferSvc,
		policy:          policy,
		tokenService:    tokenSvc,
		blobs:           blobs,
		validate:        validator.New(),
		botAPIKey:       botAPIKey,
		maxFileBytes:    maxFileBytes,
	}
}

// === Funções Auxiliares de Resposta ===

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Erro ao serializar JSON: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"Erro interno ao serializar resposta"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithEngineError mapeia a taxonomia de erros do engine para HTTP.
// Cota/tamanho/não-encontrado/permissão são fluxo esperado; cripto e
// persistência viram falha genérica (o detalhe já foi logado lá dentro).
func (h *Handler) respondWithEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		h.respondWithError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, service.ErrSizeLimitExceeded):
		h.respondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		h.respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, crypto.ErrCrypto):
		h.respondWithError(w, http.StatusInternalServerError, "Não foi possível recuperar o conteúdo")
	default:
		h.respondWithError(w, http.StatusInternalServerError, "Erro interno")
	}
}

// === Schemas de Resposta da API ===

type (
	// TransferCreatedResponse é devolvido na criação de transferências
	TransferCreatedResponse struct {
		TransferID string    `json:"transferId"`
		Kind       string    `json:"kind"`
		ExpiresAt  time.Time `json:"expiresAt"`
	}

	// TransferContentResponse é devolvido na leitura de uma transferência
	TransferContentResponse struct {
		TransferID string    `json:"transferId"`
		Kind       string    `json:"kind"`
		Content    string    `json:"content,omitempty"`
		FileName   string    `json:"fileName,omitempty"`
		FileSize   int64     `json:"fileSize,omitempty"`
		ExpiresAt  time.Time `json:"expiresAt"`
	}
)

func transferCreated(t *models.Transfer) TransferCreatedResponse {
	return TransferCreatedResponse{
		TransferID: t.ID,
		Kind:       string(t.Kind),
		ExpiresAt:  t.ExpiresAt,
	}
}

// === Handler de Autenticação ===

// handleIssueToken (POST /auth/token): a camada do bot troca sua chave de
// API por um JWT escopado ao usuário da conversa
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get("X-API-Key")
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(h.botAPIKey)) != 1 {
		h.respondWithError(w, http.StatusUnauthorized, "Chave de API inválida")
		return
	}

	var req struct {
		UserID   int64  `json:"userId" validate:"required"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Payload JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Dados inválidos: "+err.Error())
		return
	}

	token, err := h.tokenService.NewToken(req.UserID, req.Username)
	if err != nil {
		log.Printf("Erro ao gerar token JWT: %v", err)
		h.respondWithError(w, http.StatusInternalServerError, "Erro interno ao gerar token")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

// === Handlers de Transferência ===

// handleCreateTextTransfer (POST /transfers/text)
func (h *Handler) handleCreateTextTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}

	var req struct {
		Content  string `json:"content" validate:"required,max=65536"`
		Password string `json:"password" validate:"omitempty,min=4"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Payload JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Dados inválidos: "+err.Error())
		return
	}

	transfer, err := h.transferService.CreateTextTransfer(r.Context(), identity.UserID, identity.Username, req.Content, req.Password)
	if err != nil {
		h.respondWithEngineError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, transferCreated(transfer))
}

// handleCreateFileTransfer (POST /transfers/file, multipart)
func (h *Handler) handleCreateFileTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}

	// Teto absoluto do corpo: ninguém envia mais que o plano premium
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Multipart inválido ou arquivo grande demais")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Campo 'file' é obrigatório")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Falha ao ler o arquivo enviado")
		return
	}
	password := r.FormValue("password")

	// O blob é gravado antes da admissão; se o engine negar, devolvemos a
	// posse ao storage apagando na hora
	blobKey, err := h.blobs.Save(r.Context(), data, header.Filename)
	if err != nil {
		log.Printf("Erro ao gravar blob do usuário %d: %v", identity.UserID, err)
		h.respondWithError(w, http.StatusInternalServerError, "Erro interno ao guardar o arquivo")
		return
	}

	transfer, err := h.transferService.CreateFileTransfer(
		r.Context(), identity.UserID, identity.Username,
		blobKey, header.Filename, int64(len(data)), password,
	)
	if err != nil {
		if delErr := h.blobs.Delete(r.Context(), blobKey); delErr != nil {
			log.Printf("Erro ao limpar blob %s após negação: %v", blobKey, delErr)
		}
		h.respondWithEngineError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, transferCreated(transfer))
}

// handleGetTransfer (GET /transfers/{id}) — leitura sem consumo; a camada
// chamadora deve confirmar o recebimento depois de entregar o conteúdo
func (h *Handler) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r); !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}

	transferID := chi.URLParam(r, "id")
	password := r.URL.Query().Get("password")

	transfer, content, err := h.transferService.Retrieve(r.Context(), transferID, password)
	if err != nil {
		h.respondWithEngineError(w, err)
		return
	}

	response := TransferContentResponse{
		TransferID: transfer.ID,
		Kind:       string(transfer.Kind),
		ExpiresAt:  transfer.ExpiresAt,
	}
	if transfer.Kind == models.KindText {
		response.Content = content
	} else {
		response.FileName = transfer.FileName
		response.FileSize = transfer.FileSize
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// handleDownloadTransfer (GET /transfers/{id}/download) — stream dos bytes
// do blob de uma transferência de arquivo
func (h *Handler) handleDownloadTransfer(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r); !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}

	transferID := chi.URLParam(r, "id")
	password := r.URL.Query().Get("password")

	transfer, _, err := h.transferService.Retrieve(r.Context(), transferID, password)
	if err != nil {
		h.respondWithEngineError(w, err)
		return
	}
	if transfer.Kind != models.KindFile {
		h.respondWithError(w, http.StatusBadRequest, "Transferência não é de arquivo")
		return
	}

	data, err := h.transferService.ReadFile(r.Context(), transfer)
	if err != nil {
		log.Printf("Erro ao ler blob da transferência %s: %v", transferID, err)
		h.respondWithError(w, http.StatusInternalServerError, "Erro interno ao ler o arquivo")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transfer.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleConfirmTransfer (POST /transfers/{id}/confirm) — destrói a
// transferência após a entrega; idempotente
func (h *Handler) handleConfirmTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}

	transferID := chi.URLParam(r, "id")
	if err := h.transferService.Confirm(r.Context(), transferID, identity.UserID); err != nil {
		h.respondWithEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteTransfer (DELETE /transfers/{id}) — cancelamento antecipado
// pelo remetente
func (h *Handler) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}

	transferID := chi.URLParam(r, "id")
	if err := h.transferService.DeleteNow(r.Context(), transferID, identity.UserID); err != nil {
		h.respondWithEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// === Handlers de Usuário ===

// handleGetStats (GET /me/stats)
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}

	snapshot, err := h.transferService.Stats(r.Context(), identity.UserID, identity.Username)
	if err != nil {
		h.respondWithEngineError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, snapshot)
}

// === Handlers de Administração ===

// handleAddSuperuser (POST /admin/superusers) — promove um usuário em
// tempo de execução; só administradores
func (h *Handler) handleAddSuperuser(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "Contexto de usuário inválido")
		return
	}
	if !h.policy.IsAdmin(identity.UserID) {
		h.respondWithError(w, http.StatusForbidden, "Apenas administradores podem promover superusuários")
		return
	}

	var req struct {
		UserID int64 `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Payload JSON inválido")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Dados inválidos: "+err.Error())
		return
	}

	h.policy.AddSuperuser(req.UserID)
	log.Printf("Usuário %d promovido a superusuário por %d", req.UserID, identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}
