package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// TransactionHandler handles transaction related HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// TransactionRequest is the JSON request for creating or updating a transaction
type TransactionRequest struct {
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Type          string     `json:"type"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
	Description   string     `json:"description"`
	Date          string     `json:"date"`
	CreditCardID  *uuid.UUID `json:"creditCardId,omitempty"`
	BankAccountID *uuid.UUID `json:"bankAccountId,omitempty"`
}

// BulkCreateRequest is the JSON request for creating a batch of transactions
type BulkCreateRequest struct {
	Transactions []TransactionRequest `json:"transactions"`
}

// BulkUpdateEntry is one item of a bulk update request
type BulkUpdateEntry struct {
	ID          uuid.UUID  `json:"id"`
	Amount      string     `json:"amount"`
	Type        string     `json:"type"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
}

// BulkUpdateRequest is the JSON request for updating a batch of transactions
type BulkUpdateRequest struct {
	Transactions []BulkUpdateEntry `json:"transactions"`
}

// BulkDeleteRequest is the JSON request for deleting a batch of transactions
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// BulkDeleteResponse reports how many rows were deleted
type BulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

func (r TransactionRequest) toInput() (service.CreateTransactionInput, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return service.CreateTransactionInput{}, errors.New("invalid amount format")
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return service.CreateTransactionInput{}, errors.New("invalid date format (expected YYYY-MM-DD)")
	}
	return service.CreateTransactionInput{
		Amount:        amount,
		Currency:      r.Currency,
		Type:          domain.TransactionType(r.Type),
		CategoryID:    r.CategoryID,
		Description:   r.Description,
		Date:          date,
		CreditCardID:  r.CreditCardID,
		BankAccountID: r.BankAccountID,
	}, nil
}

// Create creates a one-time transaction
// @Summary Create transaction
// @Tags transactions
// @Security BearerAuth
// @Router /transactions [post]
func (h *TransactionHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	input, err := req.toInput()
	if err != nil {
		return schemaError(c, err.Error(), "body")
	}

	transaction, err := h.transactionService.CreateTransaction(dc.Scope(), input)
	if err != nil {
		return transactionError(c, err, "Failed to create transaction")
	}
	return c.JSON(http.StatusCreated, transaction)
}

// BulkCreate creates a batch of transactions with one rollup audit entry
// @Summary Bulk create transactions
// @Tags transactions
// @Security BearerAuth
// @Router /transactions/bulk [post]
func (h *TransactionHandler) BulkCreate(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req BulkCreateRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	inputs := make([]service.CreateTransactionInput, 0, len(req.Transactions))
	for i, entry := range req.Transactions {
		input, err := entry.toInput()
		if err != nil {
			return schemaError(c, err.Error(), "body", "transactions", strconv.Itoa(i))
		}
		inputs = append(inputs, input)
	}

	transactions, err := h.transactionService.BulkCreateTransactions(dc.Scope(), inputs)
	if err != nil {
		return transactionError(c, err, "Failed to create transactions")
	}
	return c.JSON(http.StatusCreated, transactions)
}

// List lists transactions with filters, paging and sorting
// @Summary List transactions
// @Tags transactions
// @Security BearerAuth
// @Router /transactions [get]
func (h *TransactionHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	filters, err := parseTransactionFilters(c)
	if err != nil {
		return schemaError(c, err.Error(), "query")
	}

	page, err := h.transactionService.ListTransactions(dc.Scope(), filters)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Invalid sort field")
		}
		log.Error().Err(err).Msg("Failed to list transactions")
		return NewInternalError(c, "Failed to list transactions")
	}
	return c.JSON(http.StatusOK, page)
}

// Get retrieves a transaction
// @Summary Get transaction
// @Tags transactions
// @Security BearerAuth
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid transaction ID", "path", "id")
	}

	transaction, err := h.transactionService.GetTransaction(dc.Scope(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Msg("Failed to get transaction")
		return NewInternalError(c, "Failed to get transaction")
	}
	return c.JSON(http.StatusOK, transaction)
}

// Update updates a transaction's editable fields
// @Summary Update transaction
// @Tags transactions
// @Security BearerAuth
// @Router /transactions/{id} [put]
func (h *TransactionHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid transaction ID", "path", "id")
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return schemaError(c, "Invalid amount format", "body", "amount")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return schemaError(c, "Invalid date format (expected YYYY-MM-DD)", "body", "date")
	}

	transaction, err := h.transactionService.UpdateTransaction(dc.Scope(), id, service.UpdateTransactionInput{
		Amount:      amount,
		Type:        domain.TransactionType(req.Type),
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		return transactionError(c, err, "Failed to update transaction")
	}
	return c.JSON(http.StatusOK, transaction)
}

// Delete deletes a transaction
// @Summary Delete transaction
// @Tags transactions
// @Security BearerAuth
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid transaction ID", "path", "id")
	}

	if err := h.transactionService.DeleteTransaction(dc.Scope(), id); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "Transaction not found")
		}
		log.Error().Err(err).Msg("Failed to delete transaction")
		return NewInternalError(c, "Failed to delete transaction")
	}
	return c.NoContent(http.StatusNoContent)
}

// BulkUpdate updates a batch of transactions with one rollup audit entry
// @Summary Bulk update transactions
// @Tags transactions
// @Security BearerAuth
// @Router /transactions/bulk-update [put]
func (h *TransactionHandler) BulkUpdate(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req BulkUpdateRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	items := make([]service.BulkUpdateItem, 0, len(req.Transactions))
	for i, entry := range req.Transactions {
		index := strconv.Itoa(i)
		if entry.ID == uuid.Nil {
			return schemaError(c, "Missing transaction ID", "body", "transactions", index)
		}
		amount, err := decimal.NewFromString(entry.Amount)
		if err != nil {
			return schemaError(c, "Invalid amount format", "body", "transactions", index)
		}
		date, err := parseDate(entry.Date)
		if err != nil {
			return schemaError(c, "Invalid date format (expected YYYY-MM-DD)", "body", "transactions", index)
		}
		items = append(items, service.BulkUpdateItem{
			ID: entry.ID,
			Input: service.UpdateTransactionInput{
				Amount:      amount,
				Type:        domain.TransactionType(entry.Type),
				CategoryID:  entry.CategoryID,
				Description: entry.Description,
				Date:        date,
			},
		})
	}

	transactions, err := h.transactionService.BulkUpdateTransactions(dc.Scope(), items)
	if err != nil {
		return transactionError(c, err, "Failed to update transactions")
	}
	return c.JSON(http.StatusOK, transactions)
}

// BulkDelete deletes a batch of transactions with one rollup audit entry
// @Summary Bulk delete transactions
// @Tags transactions
// @Security BearerAuth
// @Router /transactions/bulk-delete [post]
func (h *TransactionHandler) BulkDelete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	deleted, err := h.transactionService.BulkDeleteTransactions(dc.Scope(), req.IDs)
	if err != nil {
		return transactionError(c, err, "Failed to delete transactions")
	}
	return c.JSON(http.StatusOK, BulkDeleteResponse{Deleted: deleted})
}

func parseTransactionFilters(c echo.Context) (*domain.TransactionFilters, error) {
	filters := &domain.TransactionFilters{
		SortBy:   c.QueryParam("sortBy"),
		SortDesc: c.QueryParam("sortDesc") == "true",
	}

	var err error
	if filters.StartDate, err = parseOptionalDate(c.QueryParam("startDate")); err != nil {
		return nil, errors.New("invalid startDate (expected YYYY-MM-DD)")
	}
	if filters.EndDate, err = parseOptionalDate(c.QueryParam("endDate")); err != nil {
		return nil, errors.New("invalid endDate (expected YYYY-MM-DD)")
	}
	if s := c.QueryParam("type"); s != "" {
		t := domain.TransactionType(s)
		filters.Type = &t
	}
	if s := c.QueryParam("categoryId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.New("invalid categoryId")
		}
		filters.CategoryID = &id
	}
	if s := c.QueryParam("entryPattern"); s != "" {
		p := domain.EntryPattern(s)
		filters.EntryPattern = &p
	}
	if s := c.QueryParam("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.New("invalid page")
		}
		filters.Page = int32(page)
	}
	if s := c.QueryParam("pageSize"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.New("invalid pageSize")
		}
		filters.PageSize = int32(size)
	}
	return filters, nil
}

func transactionError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		return NewNotFoundError(c, "Transaction not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrAmountTooLarge):
		return NewValidationError(c, "Invalid amount")
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return NewValidationError(c, "Invalid transaction type")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	case errors.Is(err, domain.ErrCategoryTypeMismatch):
		return NewValidationError(c, "Category type does not match the transaction type")
	case errors.Is(err, domain.ErrCategoryArchived):
		return NewConflictError(c, "Category is archived")
	case errors.Is(err, domain.ErrBatchEmpty):
		return NewValidationError(c, "Batch must not be empty")
	case errors.Is(err, domain.ErrBatchTooLarge):
		return NewValidationError(c, "Batch exceeds the maximum size")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}
