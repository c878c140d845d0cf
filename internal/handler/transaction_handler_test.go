package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/service"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

type transactionHandlerFixture struct {
	e       *echo.Echo
	dc      domain.DataContext
	handler *TransactionHandler
}

func newTransactionHandlerFixture() *transactionHandlerFixture {
	currencies := service.NewCurrencyService("ILS", nil)
	svc := service.NewTransactionService(
		testutil.NewMockTransactionRepository(),
		testutil.NewMockCategoryRepository(),
		currencies,
	)
	return &transactionHandlerFixture{
		e:       echo.New(),
		dc:      domain.DataContext{UserID: uuid.New()},
		handler: NewTransactionHandler(svc),
	}
}

func (f *transactionHandlerFixture) request(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.Set("dataContext", f.dc)
	return c, rec
}

func TestTransactionCreate(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/transactions",
		`{"amount":"125.50","currency":"ILS","type":"expense","description":"Groceries","date":"2026-03-05"}`)
	require.NoError(t, f.handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, "Groceries", tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("125.50")))
	assert.Equal(t, f.dc.UserID, tx.UserID)
}

func TestTransactionCreateRejectsBadAmount(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/transactions",
		`{"amount":"not-a-number","currency":"ILS","type":"expense","description":"x","date":"2026-03-05"}`)
	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Schema violations carry a field list under detail
	var resp struct {
		Detail []FieldError `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Detail, 1)
	assert.Equal(t, []string{"body"}, resp.Detail[0].Loc)
	assert.Equal(t, "value_error", resp.Detail[0].Type)
}

func TestTransactionCreateRejectsBadDate(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/transactions",
		`{"amount":"10","currency":"ILS","type":"expense","description":"x","date":"05/03/2026"}`)
	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTransactionCreateRequiresAuth(t *testing.T) {
	f := newTransactionHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions",
		strings.NewReader(`{"amount":"10","currency":"ILS","type":"expense","description":"x","date":"2026-03-05"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)

	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransactionGetNotFound(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/transactions/"+uuid.NewString(), "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, f.handler.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionListParsesFilters(t *testing.T) {
	f := newTransactionHandlerFixture()

	for _, body := range []string{
		`{"amount":"10","currency":"ILS","type":"expense","description":"a","date":"2026-03-01"}`,
		`{"amount":"20","currency":"ILS","type":"income","description":"b","date":"2026-03-10"}`,
	} {
		c, rec := f.request(http.MethodPost, "/api/v1/transactions", body)
		require.NoError(t, f.handler.Create(c))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	c, rec := f.request(http.MethodGet, "/api/v1/transactions?type=expense&startDate=2026-03-01&endDate=2026-03-31", "")
	require.NoError(t, f.handler.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var page domain.PaginatedTransactions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestTransactionListRejectsBadSortField(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/transactions?sortBy=description", "")
	require.NoError(t, f.handler.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Business rule violations carry a plain message under detail
	var resp struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid sort field", resp.Detail)
}

func TestTransactionBulkCreateRejectsEmpty(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/transactions/bulk", `{"transactions":[]}`)
	require.NoError(t, f.handler.BulkCreate(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionBulkUpdate(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/transactions",
		`{"amount":"10","currency":"ILS","type":"expense","description":"a","date":"2026-03-01"}`)
	require.NoError(t, f.handler.Create(c))
	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))

	c, rec = f.request(http.MethodPut, "/api/v1/transactions/bulk-update",
		`{"transactions":[{"id":"`+tx.ID.String()+`","amount":"42.75","type":"expense","description":"corrected","date":"2026-03-02"}]}`)
	require.NoError(t, f.handler.BulkUpdate(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated []domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated, 1)
	assert.Equal(t, "corrected", updated[0].Description)
	assert.True(t, updated[0].Amount.Equal(decimal.RequireFromString("42.75")))
}

func TestTransactionBulkUpdateUnknownIDFailsBatch(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodPut, "/api/v1/transactions/bulk-update",
		`{"transactions":[{"id":"`+uuid.NewString()+`","amount":"10","type":"expense","description":"x","date":"2026-03-02"}]}`)
	require.NoError(t, f.handler.BulkUpdate(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransactionBulkDelete(t *testing.T) {
	f := newTransactionHandlerFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/transactions",
		`{"amount":"10","currency":"ILS","type":"expense","description":"a","date":"2026-03-01"}`)
	require.NoError(t, f.handler.Create(c))
	var tx domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))

	c, rec = f.request(http.MethodPost, "/api/v1/transactions/bulk-delete",
		`{"ids":["`+tx.ID.String()+`","`+uuid.NewString()+`"]}`)
	require.NoError(t, f.handler.BulkDelete(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BulkDeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Deleted)
}
