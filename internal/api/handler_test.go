package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"secshare-backend/internal/auth"
	"secshare-backend/internal/crypto"
	"secshare-backend/internal/repository"
	"secshare-backend/internal/service"
	"secshare-backend/internal/storage"
)

const testAPIKey = "chave-de-teste"

func newTestServer(t *testing.T, adminIDs ...int64) *httptest.Server {
	t.Helper()

	store := repository.NewInMemoryStore(nil)
	policy := service.NewQuotaPolicy(
		adminIDs,
		service.Limits{MaxTransfersPerDay: 5, MaxFileSize: 50 * 1024 * 1024},
		service.Limits{MaxTransfersPerDay: 20, MaxFileSize: 1024 * 1024 * 1024},
	)
	users := service.NewUserService(store, policy)
	cryptoSvc, err := crypto.NewWithRandomKey()
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	transfers := service.NewTransferService(store, users, policy, cryptoSvc, blobs, 15*time.Minute)

	tokenSvc, err := auth.NewTokenService("segredo-de-teste")
	if err != nil {
		t.Fatal(err)
	}

	handler := NewHandler(transfers, policy, tokenSvc, blobs, testAPIKey, 1024*1024*1024)
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func issueToken(t *testing.T, srv *httptest.Server, userID int64, username string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]interface{}{"userId": userID, "username": username})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/token", bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("esperava 200 ao emitir token, obteve %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out.Token
}

func doJSON(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestIssueTokenRequiresAPIKey(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"userId": 42})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/token", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "chave-errada")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("esperava 401 com chave errada, obteve %d", resp.StatusCode)
	}
}

func TestTransfersRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", "", map[string]string{"content": "oi"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("esperava 401 sem token, obteve %d", resp.StatusCode)
	}
}

func TestTextTransferFlow(t *testing.T) {
	srv := newTestServer(t)
	sender := issueToken(t, srv, 42, "alice")
	recipient := issueToken(t, srv, 99, "bob")

	// Criar
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", sender, map[string]string{"content": "secret"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("esperava 201, obteve %d", resp.StatusCode)
	}
	var created struct {
		TransferID string `json:"transferId"`
		Kind       string `json:"kind"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.TransferID == "" || created.Kind != "text" {
		t.Fatalf("resposta de criação divergente: %+v", created)
	}

	// Ler
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/transfers/"+created.TransferID, recipient, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("esperava 200 na leitura, obteve %d", resp.StatusCode)
	}
	var got struct {
		Content string `json:"content"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got.Content != "secret" {
		t.Errorf("conteúdo divergente: %q", got.Content)
	}

	// Confirmar
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/"+created.TransferID+"/confirm", recipient, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("esperava 204 na confirmação, obteve %d", resp.StatusCode)
	}

	// Sumiu
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/transfers/"+created.TransferID, recipient, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("esperava 404 após confirmar, obteve %d", resp.StatusCode)
	}
}

func TestPasswordProtectedTransfer(t *testing.T) {
	srv := newTestServer(t)
	sender := issueToken(t, srv, 42, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", sender,
		map[string]string{"content": "segredo", "password": "1234"})
	var created struct {
		TransferID string `json:"transferId"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// Sem senha e com senha errada, 404 nos dois casos
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/transfers/"+created.TransferID, sender, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("sem senha: esperava 404, obteve %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/transfers/"+created.TransferID+"?password=errada", sender, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("senha errada: esperava 404, obteve %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/transfers/"+created.TransferID+"?password=1234", sender, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("senha correta: esperava 200, obteve %d", resp.StatusCode)
	}
}

func TestQuotaExceededResponse(t *testing.T) {
	srv := newTestServer(t)
	sender := issueToken(t, srv, 42, "alice")

	for i := 0; i < 5; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", sender, map[string]string{"content": "oi"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("envio %d deveria passar, obteve %d", i+1, resp.StatusCode)
		}
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", sender, map[string]string{"content": "oi"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("6º envio: esperava 429, obteve %d", resp.StatusCode)
	}
}

func TestFileTransferFlow(t *testing.T) {
	srv := newTestServer(t)
	sender := issueToken(t, srv, 42, "alice")

	// Monta o multipart
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "doc.txt")
	fmt.Fprint(fw, "conteúdo do arquivo")
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/transfers/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sender)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("esperava 201, obteve %d", resp.StatusCode)
	}
	var created struct {
		TransferID string `json:"transferId"`
		Kind       string `json:"kind"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.Kind != "file" {
		t.Fatalf("esperava kind 'file', obteve %q", created.Kind)
	}

	// Download devolve os bytes originais
	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/transfers/"+created.TransferID+"/download", sender, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("esperava 200 no download, obteve %d", resp.StatusCode)
	}
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if body.String() != "conteúdo do arquivo" {
		t.Errorf("bytes divergentes: %q", body.String())
	}
}

func TestDeleteNowForbiddenForNonSender(t *testing.T) {
	srv := newTestServer(t)
	sender := issueToken(t, srv, 42, "alice")
	other := issueToken(t, srv, 43, "mallory")

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", sender, map[string]string{"content": "oi"})
	var created struct {
		TransferID string `json:"transferId"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/transfers/"+created.TransferID, other, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("esperava 403 para não-remetente, obteve %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/transfers/"+created.TransferID, sender, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("esperava 204 para o remetente, obteve %d", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	sender := issueToken(t, srv, 42, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", sender, map[string]string{"content": "oi"})
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/me/stats", sender, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("esperava 200, obteve %d", resp.StatusCode)
	}
	var snap struct {
		TransfersUsedToday      int `json:"transfersUsedToday"`
		TransfersRemainingToday int `json:"transfersRemainingToday"`
	}
	json.NewDecoder(resp.Body).Decode(&snap)
	if snap.TransfersUsedToday != 1 || snap.TransfersRemainingToday != 4 {
		t.Errorf("snapshot divergente: %+v", snap)
	}
}

func TestAddSuperuserRequiresAdmin(t *testing.T) {
	srv := newTestServer(t, 777)
	admin := issueToken(t, srv, 777, "root")
	common := issueToken(t, srv, 42, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/admin/superusers", common, map[string]interface{}{"userId": 55})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("usuário comum: esperava 403, obteve %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/admin/superusers", admin, map[string]interface{}{"userId": 55})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("admin: esperava 204, obteve %d", resp.StatusCode)
	}

	// O promovido agora envia sem limite de cota
	promoted := issueToken(t, srv, 55, "carol")
	for i := 0; i < 7; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transfers/text", promoted, map[string]string{"content": "oi"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("superusuário deveria passar no envio %d, obteve %d", i+1, resp.StatusCode)
		}
	}
}
