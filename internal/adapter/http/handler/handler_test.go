package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bank-cards/internal/adapter/http/middleware"
	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/internal/core/ports/mocks"
	"bank-cards/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	userPrincipal  = domain.Principal{ClientID: uuid.New(), Username: "alice", Role: domain.RoleUser}
	adminPrincipal = domain.Principal{ClientID: uuid.New(), Username: "admin", Role: domain.RoleAdmin}
)

// newContext builds a test context, optionally authenticated as p.
func newContext(method, target string, body interface{}, p *domain.Principal) (*gin.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if p != nil {
		c.Set(middleware.CtxPrincipal, *p)
	}
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	return data
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	clientID := uuid.New()
	expiry := time.Now().Add(time.Hour)
	mockAuth.EXPECT().Register(gomock.Any(), "alice", "password123").Return(&ports.AuthResult{
		ClientID:  clientID,
		Token:     "jwt-token",
		ExpiresAt: expiry,
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice",
		"password": "password123",
	}, nil)
	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, clientID.String(), data["client_id"])
	assert.Equal(t, "jwt-token", data["token"])
	assert.EqualValues(t, expiry.Unix(), data["expiry"])

	stored, _ := c.Get(middleware.CtxClientID)
	assert.Equal(t, clientID, stored)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty", map[string]string{}},
		{"short password", map[string]string{"username": "alice", "password": "short"}},
		{"unsafe username", map[string]string{"username": "al ice;", "password": "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

			c, w := newContext(http.MethodPost, "/api/v1/auth/register", tt.body, nil)
			h.Register(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "REQ_001", decodeErrorCode(t, w))
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperror.ErrUsernameExists())

	c, w := newContext(http.MethodPost, "/", map[string]string{"username": "taken", "password": "password123"}, nil)
	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AUTH_002", decodeErrorCode(t, w))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name   string
		result *ports.AuthResult
		err    error
		status int
	}{
		{"success", &ports.AuthResult{ClientID: uuid.New(), Token: "jwt", ExpiresAt: time.Now()}, nil, http.StatusOK},
		{"invalid credentials", nil, apperror.ErrInvalidCredentials(), http.StatusUnauthorized},
		{"locked", nil, apperror.ErrClientLocked(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockAuth := mocks.NewMockAuthService(ctrl)
			mockAuth.EXPECT().Login(gomock.Any(), "alice", "password123").Return(tt.result, tt.err)

			c, w := newContext(http.MethodPost, "/", map[string]string{"username": "alice", "password": "password123"}, nil)
			NewAuthHandler(mockAuth).Login(c)

			assert.Equal(t, tt.status, w.Code)
			if tt.result != nil {
				assert.Equal(t, "jwt", decodeData(t, w)["token"])
			}
		})
	}
}

// --- Card Handler Tests ---

func TestCardHandler_Transfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTransfers := mocks.NewMockTransferService(ctrl)
	h := NewCardHandler(nil, mockTransfers, nil)

	src, dst := uuid.New(), uuid.New()
	mockTransfers.EXPECT().Transfer(gomock.Any(), userPrincipal, ports.TransferRequest{
		SourceCardID:   src,
		TargetCardID:   dst,
		Amount:         decimal.RequireFromString("30.5"),
		IdempotencyKey: "key-1",
	}).Return(&domain.Transfer{
		ID:            uuid.New(),
		SourceCardID:  src,
		TargetCardID:  dst,
		Amount:        decimal.RequireFromString("30.5"),
		SourceBalance: decimal.RequireFromString("69.5"),
		TargetBalance: decimal.RequireFromString("80.5"),
		CreatedAt:     time.Now(),
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/cards/transfer", map[string]string{
		"source_card_id": src.String(),
		"target_card_id": dst.String(),
		"amount":         "30.5",
	}, &userPrincipal)
	c.Request.Header.Set(HeaderIdempotencyKey, "key-1")
	h.Transfer(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "30.50", data["amount"])
	assert.Equal(t, "69.50", data["source_balance"])
	assert.Equal(t, "80.50", data["target_balance"])
}

func TestCardHandler_TransferErrors(t *testing.T) {
	src, dst := uuid.New().String(), uuid.New().String()

	tests := []struct {
		name    string
		body    map[string]string
		svcErr  error
		status  int
		code    string
		callSvc bool
	}{
		{"bad amount", map[string]string{"source_card_id": src, "target_card_id": dst, "amount": "1.234"}, nil, http.StatusBadRequest, "REQ_001", false},
		{"bad card id", map[string]string{"source_card_id": "x", "target_card_id": dst, "amount": "1"}, nil, http.StatusBadRequest, "REQ_001", false},
		{"insufficient funds", map[string]string{"source_card_id": src, "target_card_id": dst, "amount": "1"}, apperror.ErrInsufficientFunds(), http.StatusPaymentRequired, "PAY_001", true},
		{"blocked card", map[string]string{"source_card_id": src, "target_card_id": dst, "amount": "1"}, apperror.ErrInvalidState("Source card is not active"), http.StatusUnprocessableEntity, "CARD_001", true},
		{"conflict", map[string]string{"source_card_id": src, "target_card_id": dst, "amount": "1"}, apperror.ErrConcurrencyConflict(errors.New("stale")), http.StatusConflict, "TX_001", true},
		{"unknown error", map[string]string{"source_card_id": src, "target_card_id": dst, "amount": "1"}, errors.New("boom"), http.StatusInternalServerError, "SYS_000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockTransfers := mocks.NewMockTransferService(ctrl)
			if tt.callSvc {
				mockTransfers.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.svcErr)
			}

			c, w := newContext(http.MethodPost, "/api/v1/cards/transfer", tt.body, &userPrincipal)
			NewCardHandler(nil, mockTransfers, nil).Transfer(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeErrorCode(t, w))
		})
	}
}

func TestCardHandler_RequiresPrincipal(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewCardHandler(mocks.NewMockCardService(ctrl), mocks.NewMockTransferService(ctrl), mocks.NewMockLifecycleService(ctrl))

	c, w := newContext(http.MethodGet, "/api/v1/cards", nil, nil)
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCardHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCards := mocks.NewMockCardService(ctrl)
	h := NewCardHandler(mockCards, nil, nil)

	page := domain.NewPage([]domain.CardView{{ID: uuid.New(), MaskedNumber: "**** **** **** 1234"}}, 1, 5, 6)
	mockCards.EXPECT().ListOwnerCards(gomock.Any(), userPrincipal, ports.ListOwnerCardsParams{
		OwnerID: userPrincipal.ClientID,
		Page:    1,
		Size:    5,
		Query:   "1234",
	}).Return(&page, nil)

	c, w := newContext(http.MethodGet, "/api/v1/cards?page=1&size=5&query=1234", nil, &userPrincipal)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.EqualValues(t, 2, data["total_pages"])
	assert.Len(t, data["content"], 1)
}

func TestCardHandler_ListOtherOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCards := mocks.NewMockCardService(ctrl)
	owner := uuid.New()

	mockCards.EXPECT().ListOwnerCards(gomock.Any(), adminPrincipal, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Principal, params ports.ListOwnerCardsParams) (*domain.Page[domain.CardView], error) {
			assert.Equal(t, owner, params.OwnerID)
			page := domain.NewPage[domain.CardView](nil, 0, 10, 0)
			return &page, nil
		})

	c, w := newContext(http.MethodGet, "/api/v1/cards?owner_id="+owner.String(), nil, &adminPrincipal)
	NewCardHandler(mockCards, nil, nil).List(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCardHandler_ListRejectsNonDigitQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewCardHandler(mocks.NewMockCardService(ctrl), nil, nil)

	c, w := newContext(http.MethodGet, "/api/v1/cards?query=12a4", nil, &userPrincipal)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCardHandler_GetAndBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCards := mocks.NewMockCardService(ctrl)
	mockLifecycle := mocks.NewMockLifecycleService(ctrl)
	h := NewCardHandler(mockCards, nil, mockLifecycle)

	id := uuid.New()
	mockCards.EXPECT().GetCard(gomock.Any(), userPrincipal, id).
		Return(nil, apperror.ErrForbidden("Card belongs to another client"))
	mockLifecycle.EXPECT().BlockOwnCard(gomock.Any(), userPrincipal, id).
		Return(&domain.CardView{ID: id, Status: domain.CardStatusBlocked}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/cards/"+id.String(), nil, &userPrincipal)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Get(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newContext(http.MethodPatch, "/api/v1/cards/"+id.String()+"/block", nil, &userPrincipal)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Block(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BLOCKED", decodeData(t, w)["status"])

	c, w = newContext(http.MethodGet, "/api/v1/cards/not-a-uuid", nil, &userPrincipal)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Admin Handler Tests ---

func TestAdminCardHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCards := mocks.NewMockCardService(ctrl)
	h := NewAdminCardHandler(mockCards, nil)

	owner := uuid.New()
	mockCards.EXPECT().CreateCard(gomock.Any(), adminPrincipal, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Principal, req ports.CreateCardRequest) (*domain.CardView, error) {
			assert.Equal(t, owner, req.OwnerID)
			require.NotNil(t, req.InitialBalance)
			assert.True(t, req.InitialBalance.Equal(decimal.RequireFromString("100")))
			return &domain.CardView{ID: uuid.New(), Balance: "100.00", OwnerID: owner}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/admin/cards", map[string]string{
		"owner_id":        owner.String(),
		"initial_balance": "100",
	}, &adminPrincipal)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "100.00", decodeData(t, w)["balance"])
}

func TestAdminCardHandler_SetStatusAndExpire(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLifecycle := mocks.NewMockLifecycleService(ctrl)
	h := NewAdminCardHandler(nil, mockLifecycle)
	fixed := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	id := uuid.New()
	mockLifecycle.EXPECT().SetCardStatus(gomock.Any(), adminPrincipal, id, domain.CardStatusActive).
		Return(&domain.CardView{ID: id, Status: domain.CardStatusActive}, nil)
	mockLifecycle.EXPECT().ExpireOverdue(gomock.Any(), adminPrincipal, fixed).Return(3, nil)

	c, w := newContext(http.MethodPatch, "/", map[string]string{"status": "ACTIVE"}, &adminPrincipal)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.SetStatus(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodPatch, "/", map[string]string{"status": "FROZEN"}, &adminPrincipal)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.SetStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodPost, "/", nil, &adminPrincipal)
	h.Expire(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decodeData(t, w)["expired"])
}

func TestAdminCardHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockCards := mocks.NewMockCardService(ctrl)
	h := NewAdminCardHandler(mockCards, nil)

	id := uuid.New()
	mockCards.EXPECT().DeleteCard(gomock.Any(), adminPrincipal, id).Return(nil)
	mockCards.EXPECT().DeleteCard(gomock.Any(), adminPrincipal, id).Return(apperror.ErrNotFound("Card"))

	c, _ := newContext(http.MethodDelete, "/", nil, &adminPrincipal)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())

	c, w := newContext(http.MethodDelete, "/", nil, &adminPrincipal)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminClientHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClients := mocks.NewMockClientService(ctrl)
	h := NewAdminClientHandler(mockClients)

	bob := domain.Client{ID: uuid.New(), Username: "bob", Role: domain.RoleUser, PasswordHash: "secret-hash"}
	mockClients.EXPECT().ListClients(gomock.Any(), adminPrincipal).Return([]domain.Client{bob}, nil)
	mockClients.EXPECT().SetClientLocked(gomock.Any(), adminPrincipal, bob.ID, true).
		DoAndReturn(func(_ context.Context, _ domain.Principal, _ uuid.UUID, locked bool) (*domain.Client, error) {
			updated := bob
			updated.Locked = locked
			return &updated, nil
		})

	c, w := newContext(http.MethodGet, "/", nil, &adminPrincipal)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"bob"`)
	assert.NotContains(t, w.Body.String(), "secret-hash")

	c, w = newContext(http.MethodPatch, "/", map[string]bool{"locked": true}, &adminPrincipal)
	c.Params = gin.Params{{Key: "id", Value: bob.ID.String()}}
	h.SetLocked(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeData(t, w)["locked"])

	c, w = newContext(http.MethodPatch, "/", map[string]string{}, &adminPrincipal)
	c.Params = gin.Params{{Key: "id", Value: bob.ID.String()}}
	h.SetLocked(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }
func (f fakeChecker) Name() string               { return f.name }

func TestHealthCheck(t *testing.T) {
	r := gin.New()
	r.GET("/ok", HealthCheck(fakeChecker{name: "postgresql"}))
	r.GET("/degraded", HealthCheck(fakeChecker{name: "postgresql"}, fakeChecker{name: "redis", err: errors.New("down")}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/degraded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
	assert.Contains(t, w.Body.String(), "down")
}
