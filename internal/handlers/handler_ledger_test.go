package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/m0nxef/gbank/internal/apperrors"
	"github.com/m0nxef/gbank/internal/core/domain"
	portssvc "github.com/m0nxef/gbank/internal/core/ports/services"
	"github.com/m0nxef/gbank/internal/dto"
	"github.com/m0nxef/gbank/internal/handlers"
)

// --- Mock LedgerSvc ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Balance(ctx context.Context, id uuid.UUID, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, id, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerService) Balances(ctx context.Context, id uuid.UUID) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *MockLedgerService) Credit(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, kind domain.TransactionKind, detail string) error {
	args := m.Called(ctx, id, currency, amount, kind, detail)
	return args.Error(0)
}

func (m *MockLedgerService) Debit(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, detail string) error {
	args := m.Called(ctx, id, currency, amount, detail)
	return args.Error(0)
}

func (m *MockLedgerService) SetBalance(ctx context.Context, id uuid.UUID, currency string, amount decimal.Decimal, detail string) error {
	args := m.Called(ctx, id, currency, amount, detail)
	return args.Error(0)
}

func (m *MockLedgerService) Transfer(ctx context.Context, from, to uuid.UUID, currency string, amount decimal.Decimal, applyTax bool) (*domain.TransferResult, error) {
	args := m.Called(ctx, from, to, currency, amount, applyTax)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}

func (m *MockLedgerService) Transactions(ctx context.Context, id uuid.UUID, currency string, limit int) ([]domain.Transaction, error) {
	args := m.Called(ctx, id, currency, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

var _ portssvc.LedgerSvc = (*MockLedgerService)(nil)

// --- Stub CurrencyRegistry ---
type stubRegistry struct{}

func (stubRegistry) Exists(code string) bool { return code == "gold" }

func (stubRegistry) Get(code string) (*domain.Currency, bool) {
	if code != "gold" {
		return nil, false
	}
	return &domain.Currency{Code: "gold", DisplayName: "Gold", Symbol: "G"}, true
}

func (stubRegistry) TaxRate() decimal.Decimal { return decimal.RequireFromString("0.05") }
func (stubRegistry) DefaultCurrency() string  { return "gold" }
func (stubRegistry) Codes() []string          { return []string{"gold"} }

// --- Test Suite ---
type LedgerHandlerTestSuite struct {
	suite.Suite
	mockService *MockLedgerService
	router      *gin.Engine
}

func (suite *LedgerHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.mockService = new(MockLedgerService)
	suite.router = gin.New()
	handlers.RegisterRoutes(suite.router, suite.mockService, stubRegistry{})
}

func (suite *LedgerHandlerTestSuite) perform(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Test Cases ---

func (suite *LedgerHandlerTestSuite) TestGetBalance_Success() {
	id := uuid.New()
	suite.mockService.On("Balance", mock.Anything, id, "gold").
		Return(decimal.NewFromInt(42), nil).Once()

	w := suite.perform(http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/balances/gold", id), nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Balance.Equal(decimal.NewFromInt(42)))
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestGetBalance_BadAccountID() {
	w := suite.perform(http.MethodGet, "/api/v1/accounts/not-a-uuid/balances/gold", nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "Balance")
}

func (suite *LedgerHandlerTestSuite) TestGetBalance_InvalidCurrency() {
	id := uuid.New()
	suite.mockService.On("Balance", mock.Anything, id, "gems").
		Return(decimal.Zero, fmt.Errorf("%w: gems", apperrors.ErrInvalidCurrency)).Once()

	w := suite.perform(http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/balances/gems", id), nil)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *LedgerHandlerTestSuite) TestCredit_Success() {
	id := uuid.New()
	suite.mockService.On("Credit", mock.Anything, id, "gold", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(20))
	}), domain.KindDeposit, "payday").Return(nil).Once()

	w := suite.perform(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/credit", id),
		dto.MutationRequest{Currency: "gold", Amount: "20", Detail: "payday"})

	suite.Equal(http.StatusNoContent, w.Code)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestCredit_BadAmount() {
	id := uuid.New()

	w := suite.perform(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/credit", id),
		dto.MutationRequest{Currency: "gold", Amount: "lots"})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "Credit")
}

func (suite *LedgerHandlerTestSuite) TestDebit_InsufficientFunds() {
	id := uuid.New()
	suite.mockService.On("Debit", mock.Anything, id, "gold", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: short", apperrors.ErrInsufficientFunds)).Once()

	w := suite.perform(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/debit", id),
		dto.MutationRequest{Currency: "gold", Amount: "50"})

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *LedgerHandlerTestSuite) TestDebit_AccountNotFound() {
	id := uuid.New()
	suite.mockService.On("Debit", mock.Anything, id, "gold", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, id)).Once()

	w := suite.perform(http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/debit", id),
		dto.MutationRequest{Currency: "gold", Amount: "5"})

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *LedgerHandlerTestSuite) TestTransfer_Success() {
	from := uuid.New()
	to := uuid.New()
	suite.mockService.On("Transfer", mock.Anything, from, to, "gold", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(40))
	}), true).Return(&domain.TransferResult{Tax: decimal.NewFromInt(4)}, nil).Once()

	w := suite.perform(http.MethodPost, "/api/v1/transfers", dto.TransferRequest{
		From: from.String(), To: to.String(), Currency: "gold", Amount: "40", ApplyTax: true,
	})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.TransferResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Tax.Equal(decimal.NewFromInt(4)))
	suite.Empty(resp.AuditWarning)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestTransfer_LogAppendFailureReportsWarning() {
	from := uuid.New()
	to := uuid.New()
	logErr := &apperrors.LogAppendError{Err: apperrors.NewStorageError("file", "append", fmt.Errorf("disk full"))}
	suite.mockService.On("Transfer", mock.Anything, from, to, "gold", mock.Anything, false).
		Return(&domain.TransferResult{Tax: decimal.Zero}, logErr).Once()

	w := suite.perform(http.MethodPost, "/api/v1/transfers", dto.TransferRequest{
		From: from.String(), To: to.String(), Currency: "gold", Amount: "10",
	})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.TransferResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.NotEmpty(resp.AuditWarning)
}

func (suite *LedgerHandlerTestSuite) TestTransfer_StorageErrorIsOpaque() {
	from := uuid.New()
	to := uuid.New()
	suite.mockService.On("Transfer", mock.Anything, from, to, "gold", mock.Anything, false).
		Return(nil, apperrors.NewStorageError("relational", "save_account", fmt.Errorf("connection refused"))).Once()

	w := suite.perform(http.MethodPost, "/api/v1/transfers", dto.TransferRequest{
		From: from.String(), To: to.String(), Currency: "gold", Amount: "10",
	})

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.NotContains(w.Body.String(), "connection refused")
}

func (suite *LedgerHandlerTestSuite) TestGetTransactions_MissingCurrency() {
	id := uuid.New()

	w := suite.perform(http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/transactions", id), nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "Transactions")
}

func (suite *LedgerHandlerTestSuite) TestGetTransactions_Success() {
	id := uuid.New()
	history := []domain.Transaction{
		{Kind: domain.KindDeposit, Amount: decimal.NewFromInt(5), Timestamp: 2000, Detail: "payday"},
		{Kind: domain.KindWithdrawal, Amount: decimal.NewFromInt(3), Timestamp: 1000},
	}
	suite.mockService.On("Transactions", mock.Anything, id, "gold", 2).Return(history, nil).Once()

	w := suite.perform(http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/transactions?currency=gold&limit=2", id), nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp []dto.TransactionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp, 2)
	suite.Equal("Deposit", resp[0].Label)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestListCurrencies() {
	w := suite.perform(http.MethodGet, "/api/v1/currencies", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "gold")
	suite.Contains(w.Body.String(), "defaultCurrency")
}

func (suite *LedgerHandlerTestSuite) TestGetCurrency_NotFound() {
	w := suite.perform(http.MethodGet, "/api/v1/currencies/gems", nil)

	suite.Equal(http.StatusNotFound, w.Code)
}

// --- Run Suite ---
func TestLedgerHandler(t *testing.T) {
	suite.Run(t, new(LedgerHandlerTestSuite))
}
