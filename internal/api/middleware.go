package api

import (
	"context"
	"net/http"
	"strings"
)

// contextKey é um tipo privado para evitar colisões de chaves no contexto
type contextKey string

const identityContextKey = contextKey("identity")

// Identity é quem está por trás da requisição: o ID numérico opaco que a
// camada do bot nos fornece, mais o nome de exibição (informativo)
type Identity struct {
	UserID   int64
	Username string
}

// AuthMiddleware valida o token JWT e injeta a identidade no contexto
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Obter o header "Authorization"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.respondWithError(w, http.StatusUnauthorized, "Token de autorização não fornecido")
			return
		}

		// 2. Verificar se o formato é "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			h.respondWithError(w, http.StatusUnauthorized, "Formato do token inválido")
			return
		}
		tokenString := parts[1]

		// 3. Validar o token
		token, err := h.tokenService.ValidateToken(tokenString)
		if err != nil {
			h.respondWithError(w, http.StatusUnauthorized, "Token inválido")
			return
		}

		// 4. Obter a identidade do token
		userID, err := h.tokenService.GetUserIDFromToken(token)
		if err != nil {
			h.respondWithError(w, http.StatusUnauthorized, "Token inválido (claims)")
			return
		}

		identity := Identity{
			UserID:   userID,
			Username: h.tokenService.GetUsernameFromToken(token),
		}

		// 5. Armazenar a identidade no contexto da requisição
		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom extrai a identidade injetada pelo AuthMiddleware
func identityFrom(r *http.Request) (Identity, bool) {
	identity, ok := r.Context().Value(identityContextKey).(Identity)
	return identity, ok
}
