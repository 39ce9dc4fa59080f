package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/ai"
	"github.com/tigerfox1974/StudyBuddy/internal/database"
	"github.com/tigerfox1974/StudyBuddy/internal/middleware"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/repository/gormstore"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
	"github.com/tigerfox1974/StudyBuddy/internal/worker"
)

const lecture = "Plate tectonics describes the motion of large plates of the lithosphere. " +
	"Earthquakes and volcanoes cluster along plate boundaries."

type fixture struct {
	auth      *AuthHandler
	documents *DocumentHandler
	tokens    *TokenHandler
	export    *ExportHandler
	accounts  *services.AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	store, err := gormstore.New(db)
	if err != nil {
		t.Fatalf("gormstore.New: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := services.NewTokenLedger(nil)
	workflow := services.NewProcessingWorkflow(services.WorkflowDeps{
		Store:     store,
		Ledger:    ledger,
		Generator: services.NewGenerator(ai.NewDemoProvider(), log),
		Log:       log,
	}, services.WorkflowConfig{
		MaxUploadBytes: 1 << 20,
		MaxInputTokens: 12000,
		UploadDir:      t.TempDir(),
	})

	pool := worker.NewPool(2, log)
	pool.Start()
	t.Cleanup(pool.Stop)

	accounts := services.NewAccountService(store, ledger, middleware.NewJWTAuth("handler-secret", time.Hour), log)
	return &fixture{
		auth:      NewAuthHandler(accounts),
		documents: NewDocumentHandler(workflow, pool, 1<<20),
		tokens:    NewTokenHandler(workflow),
		export:    NewExportHandler(services.NewExportService(store, ledger, log)),
		accounts:  accounts,
	}
}

func (f *fixture) register(t *testing.T) uuid.UUID {
	t.Helper()
	user, _, err := f.accounts.Register(context.Background(), models.RegisterRequest{
		FullName: "Handler Test",
		Email:    uuid.NewString() + "@example.com",
		Password: "handler-pass",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user.ID
}

func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
}

func uploadRequest(t *testing.T, filename, body string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte(body))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

// ─── Auth Handler Tests ───

func TestRegisterHandler(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"full_name":"Test User","email":"test@example.com","password":"StrongPass123!"}`, http.StatusCreated},
		{"duplicate", `{"full_name":"Test User","email":"TEST@example.com","password":"StrongPass123!"}`, http.StatusConflict},
		{"missing email", `{"full_name":"Test","password":"Pass1234"}`, http.StatusBadRequest},
		{"malformed", `{"full_name":`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			f.auth.Register(rr, req)
			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tc.wantCode, rr.Body.String())
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	f := newFixture(t)
	register := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"full_name":"Login User","email":"login@example.com","password":"StrongPass123!"}`))
	f.auth.Register(httptest.NewRecorder(), register)

	rr := httptest.NewRecorder()
	f.auth.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"login@example.com","password":"StrongPass123!"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var tokens models.AuthTokens
	json.NewDecoder(rr.Body).Decode(&tokens)
	if tokens.AccessToken == "" || tokens.ExpiresIn != 3600 {
		t.Fatalf("unexpected tokens %+v", tokens)
	}

	rr = httptest.NewRecorder()
	f.auth.Login(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"login@example.com","password":"wrong-password"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rr.Code)
	}
}

// ─── Document Handler Tests ───

func TestUploadHandler_MissThenHit(t *testing.T) {
	f := newFixture(t)
	userID := f.register(t)

	var first services.UploadResult
	for i, wantCached := range []bool{false, true} {
		rr := httptest.NewRecorder()
		f.documents.Upload(rr, asUser(uploadRequest(t, "geology.txt", lecture, map[string]string{"level": "university"}), userID))
		if rr.Code != http.StatusOK {
			t.Fatalf("upload %d: status = %d: %s", i+1, rr.Code, rr.Body.String())
		}
		var res services.UploadResult
		if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Cached != wantCached {
			t.Fatalf("upload %d: cached = %v, want %v", i+1, res.Cached, wantCached)
		}
		if i == 0 {
			first = res
			continue
		}
		if res.Content.ID != first.Content.ID {
			t.Fatalf("cache hit returned content %s, want %s", res.Content.ID, first.Content.ID)
		}
		if res.TokensRemaining != first.TokensRemaining {
			t.Fatalf("cache hit charged tokens: %d -> %d", first.TokensRemaining, res.TokensRemaining)
		}
	}

	rr := httptest.NewRecorder()
	f.documents.History(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil), userID))
	var history struct {
		Documents []models.Document `json:"documents"`
	}
	json.NewDecoder(rr.Body).Decode(&history)
	if len(history.Documents) != 1 || history.Documents[0].Level != models.LevelUniversity {
		t.Fatalf("unexpected history %+v", history.Documents)
	}
}

func TestUploadHandler_Errors(t *testing.T) {
	f := newFixture(t)
	userID := f.register(t)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{"bad signature", uploadRequest(t, "slides.pdf", "not a pdf", nil), http.StatusBadRequest, "REJECTED_INPUT"},
		{"unsupported type", uploadRequest(t, "movie.mp4", "data", nil), http.StatusBadRequest, "REJECTED_INPUT"},
		{"bad level", uploadRequest(t, "notes.txt", lecture, map[string]string{"level": "kindergarten"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"too large", uploadRequest(t, "big.txt", strings.Repeat("a", 3<<20), nil), http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"no file", httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("")), http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.documents.Upload(rr, asUser(tc.req, userID))
			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tc.wantCode, rr.Body.String())
			}
			if got := decodeError(t, rr).Code; got != tc.wantErr {
				t.Fatalf("error code = %q, want %q", got, tc.wantErr)
			}
		})
	}
}

func TestUploadHandler_QuotaExceeded(t *testing.T) {
	f := newFixture(t)
	userID := f.register(t)

	// three distinct documents use 9 of the 10 trial tokens
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		f.documents.Upload(rr, asUser(uploadRequest(t, "notes.txt", fmt.Sprintf("%s Part %d.", lecture, i), nil), userID))
		if rr.Code != http.StatusOK {
			t.Fatalf("upload %d: status = %d: %s", i+1, rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	f.documents.Upload(rr, asUser(uploadRequest(t, "notes.txt", lecture+" Part 4.", nil), userID))
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rr.Code)
	}
	apiErr := decodeError(t, rr)
	if apiErr.Code != "QUOTA_EXCEEDED" || apiErr.Fields["reason"] == "" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestHistoryHandler_BadLimit(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.documents.History(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=0", nil), uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

// ─── Token and Export Handler Tests ───

func TestTokenHandlers(t *testing.T) {
	f := newFixture(t)
	userID := f.register(t)

	rr := httptest.NewRecorder()
	f.tokens.Info(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil), userID))
	if rr.Code != http.StatusOK {
		t.Fatalf("info status = %d", rr.Code)
	}
	var info models.TokenInfo
	json.NewDecoder(rr.Body).Decode(&info)
	if info.TokensRemaining != 10 || info.Plan != models.PlanFree {
		t.Fatalf("unexpected token info %+v", info)
	}

	rr = httptest.NewRecorder()
	f.tokens.ExportCheck(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/export/check", nil), userID))
	var check services.ExportCheck
	json.NewDecoder(rr.Body).Decode(&check)
	if !check.Allowed || check.Cost != 2 {
		t.Fatalf("unexpected export check %+v", check)
	}

	rr = httptest.NewRecorder()
	f.tokens.Info(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/tokens", nil), uuid.New()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown user status = %d, want 404", rr.Code)
	}
}

func TestExportHandler(t *testing.T) {
	f := newFixture(t)
	userID := f.register(t)

	rr := httptest.NewRecorder()
	f.documents.Upload(rr, asUser(uploadRequest(t, "geology.txt", lecture, nil), userID))
	var res services.UploadResult
	json.NewDecoder(rr.Body).Decode(&res)

	download := func(id, format string, user uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/results/"+id+"/export?format="+format, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rr := httptest.NewRecorder()
		f.export.Download(rr, asUser(req, user))
		return rr
	}

	rr = download(res.Content.ID.String(), "html", userID)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="geology-study-pack.html"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if rr.Header().Get("X-Tokens-Charged") != "2" {
		t.Fatalf("X-Tokens-Charged = %q", rr.Header().Get("X-Tokens-Charged"))
	}
	if !strings.Contains(rr.Body.String(), "<h1") {
		t.Fatal("expected rendered HTML")
	}

	tests := []struct {
		name     string
		id       string
		format   string
		user     uuid.UUID
		wantCode int
	}{
		{"bad id", "not-a-uuid", "md", userID, http.StatusBadRequest},
		{"bad format", res.Content.ID.String(), "pdf", userID, http.StatusBadRequest},
		{"someone else's result", res.Content.ID.String(), "md", uuid.New(), http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rr := download(tc.id, tc.format, tc.user); rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantCode)
			}
		})
	}
}

// ─── Error Mapping Tests ───

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{&services.RejectedInputError{Message: "bad file"}, http.StatusBadRequest, "REJECTED_INPUT"},
		{&services.ValidationError{Fields: map[string]string{"level": "bad"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{&services.QuotaExceededError{Reason: services.QuotaTokens, Message: "no tokens"}, http.StatusPaymentRequired, "QUOTA_EXCEEDED"},
		{&services.NotFoundError{Message: "gone"}, http.StatusNotFound, "NOT_FOUND"},
		{&services.ConflictError{Message: "busy"}, http.StatusConflict, "CONFLICT"},
		{&services.UnauthorizedError{Message: "no"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{&services.GenerationError{Artifact: models.ArtifactSummary, Err: errors.New("timeout")}, http.StatusBadGateway, "GENERATION_FAILED"},
		{&services.CommitError{Err: errors.New("disk full")}, http.StatusServiceUnavailable, "COMMIT_FAILED"},
		{fmt.Errorf("wrapped: %w", &services.NotFoundError{Message: "gone"}), http.StatusNotFound, "NOT_FOUND"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.wantErr, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantCode)
			}
			if got := decodeError(t, rr).Code; got != tc.wantErr {
				t.Fatalf("code = %q, want %q", got, tc.wantErr)
			}
		})
	}
}
