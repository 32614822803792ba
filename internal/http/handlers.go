package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/chat"
	"github.com/expenseflow/expenseflow/internal/domain/expense"
	"github.com/expenseflow/expenseflow/internal/models"
	"github.com/expenseflow/expenseflow/internal/service"
)

// ExpenseService is the domain service surface consumed by the handlers
type ExpenseService interface {
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error)
	GetExpense(ctx context.Context, id int64) (*models.Expense, error)
	CreateExpense(ctx context.Context, in models.CreateExpenseInput) (*models.Expense, error)
	UpdateExpense(ctx context.Context, id int64, in models.UpdateExpenseInput) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	SubmitExpense(ctx context.Context, id int64) (*models.Expense, error)
	ApproveExpense(ctx context.Context, id, reviewerID int64) (*models.Expense, error)
	RejectExpense(ctx context.Context, id, reviewerID int64) (*models.Expense, error)
	AttachReceipt(ctx context.Context, id int64, path string) (*models.Expense, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListStatuses(ctx context.Context) ([]*models.Status, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListRoles(ctx context.Context) ([]*models.Role, error)
	GetStats(ctx context.Context) (*models.ExpenseStats, error)
}

// Converser runs one chat turn
type Converser interface {
	Converse(ctx context.Context, message string, history []models.ChatTurn) chat.Reply
}

// ReceiptStore saves and loads receipt files
type ReceiptStore interface {
	Save(expenseID int64, filename string, content []byte) (string, error)
	Open(relPath string) ([]byte, error)
}

// Exporter renders expenses to a spreadsheet
type Exporter interface {
	Export(expenses []*models.Expense) ([]byte, error)
}

// Fallback supplies placeholder list data when the store is unreachable
type Fallback interface {
	Expenses() []*models.Expense
	Categories() []*models.Category
	Statuses() []*models.Status
	Users() []*models.User
	Roles() []*models.Role
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	svc      ExpenseService
	chat     Converser
	receipts ReceiptStore
	exporter Exporter
	fallback Fallback
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc ExpenseService, conv Converser, receipts ReceiptStore, exporter Exporter, fallback Fallback, logger *zap.Logger) *Handlers {
	return &Handlers{
		svc:      svc,
		chat:     conv,
		receipts: receipts,
		exporter: exporter,
		fallback: fallback,
		logger:   logger,
	}
}

// Response is the standard JSON envelope. Degraded marks placeholder data
// substituted after a store failure; Error then carries the store error.
type Response struct {
	Success  bool   `json:"success"`
	Data     any    `json:"data,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChatRequest is the POST /api/chat body
type ChatRequest struct {
	Message string            `json:"message" binding:"required"`
	History []models.ChatTurn `json:"history"`
}

// ChatResponse is the POST /api/chat reply
type ChatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

type createExpenseRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	CategoryID  int64  `json:"category_id" binding:"required"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Date        string `json:"date" binding:"required"`
	Description string `json:"description"`
}

type updateExpenseRequest struct {
	CategoryID  int64  `json:"category_id" binding:"required"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Date        string `json:"date" binding:"required"`
	Description string `json:"description"`
}

type reviewRequest struct {
	ReviewerID int64 `json:"reviewer_id" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	filter, ok := h.parseExpenseFilter(c)
	if !ok {
		return
	}

	expenses, err := h.svc.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		h.degradedList(c, h.fallback.Expenses(), err)
		return
	}
	if expenses == nil {
		expenses = []*models.Expense{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

func (h *Handlers) parseExpenseFilter(c *gin.Context) (models.ExpenseFilter, bool) {
	var filter models.ExpenseFilter

	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.badRequest(c, "invalid user_id")
			return filter, false
		}
		filter.UserID = id
	}
	if v := c.Query("status"); v != "" {
		st := expense.Status(v)
		if !st.IsValid() {
			h.badRequest(c, "unknown status: "+v)
			return filter, false
		}
		filter.StatusID = st.ID()
	}
	if v := c.Query("category"); v != "" {
		cat, err := h.svc.GetCategoryByName(c.Request.Context(), v)
		if err != nil {
			h.badRequest(c, "unknown category: "+v)
			return filter, false
		}
		filter.CategoryID = cat.ID
	}
	return filter, true
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	e, err := h.svc.GetExpense(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: e})
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.badRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	e, err := h.svc.CreateExpense(c.Request.Context(), models.CreateExpenseInput{
		UserID:      req.UserID,
		CategoryID:  req.CategoryID,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: e})
}

// UpdateExpense handles PUT /api/expenses/:id
func (h *Handlers) UpdateExpense(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req updateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.badRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	e, err := h.svc.UpdateExpense(c.Request.Context(), id, models.UpdateExpenseInput{
		CategoryID:  req.CategoryID,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: e})
}

// DeleteExpense handles DELETE /api/expenses/:id
func (h *Handlers) DeleteExpense(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteExpense(c.Request.Context(), id); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// SubmitExpense handles POST /api/expenses/:id/submit
func (h *Handlers) SubmitExpense(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	e, err := h.svc.SubmitExpense(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: e})
}

// ApproveExpense handles POST /api/expenses/:id/approve
func (h *Handlers) ApproveExpense(c *gin.Context) {
	h.reviewExpense(c, h.svc.ApproveExpense)
}

// RejectExpense handles POST /api/expenses/:id/reject
func (h *Handlers) RejectExpense(c *gin.Context) {
	h.reviewExpense(c, h.svc.RejectExpense)
}

func (h *Handlers) reviewExpense(c *gin.Context, op func(ctx context.Context, id, reviewerID int64) (*models.Expense, error)) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	e, err := op(c.Request.Context(), id, req.ReviewerID)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: e})
}

// GetStats handles GET /api/expenses/stats
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ExportExpenses handles GET /api/expenses/export
func (h *Handlers) ExportExpenses(c *gin.Context) {
	filter, ok := h.parseExpenseFilter(c)
	if !ok {
		return
	}

	expenses, err := h.svc.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	workbook, err := h.exporter.Export(expenses)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		workbook)
}

// UploadReceipt handles POST /api/expenses/:id/receipt
func (h *Handlers) UploadReceipt(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("receipt")
	if err != nil {
		h.badRequest(c, "receipt file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		h.serviceError(c, err)
		return
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	path, err := h.receipts.Save(id, file.Filename, content)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	e, err := h.svc.AttachReceipt(c.Request.Context(), id, path)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: e})
}

// DownloadReceipt handles GET /api/expenses/:id/receipt
func (h *Handlers) DownloadReceipt(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	e, err := h.svc.GetExpense(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	if e.ReceiptPath == "" {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "expense has no receipt"})
		return
	}

	content, err := h.receipts.Open(e.ReceiptPath)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", content)
}

// ListCategories handles GET /api/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		h.degradedList(c, h.fallback.Categories(), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: categories})
}

// ListStatuses handles GET /api/statuses
func (h *Handlers) ListStatuses(c *gin.Context) {
	statuses, err := h.svc.ListStatuses(c.Request.Context())
	if err != nil {
		h.degradedList(c, h.fallback.Statuses(), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: statuses})
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		h.degradedList(c, h.fallback.Users(), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// ListRoles handles GET /api/roles
func (h *Handlers) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles(c.Request.Context())
	if err != nil {
		h.degradedList(c, h.fallback.Roles(), err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: roles})
}

// Chat handles POST /api/chat
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ChatResponse{
			Success: false,
			Error:   "message is required",
		})
		return
	}

	reply := h.chat.Converse(c.Request.Context(), req.Message, req.History)

	// Turn failures are reported in-band; the HTTP status stays 200 so
	// clients always get a displayable response.
	c.JSON(http.StatusOK, ChatResponse{
		Response: reply.Response,
		Success:  reply.Success,
		Error:    reply.ErrorDetail,
	})
}

func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid expense id")
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// degradedList substitutes placeholder data for a failed list read while
// still surfacing the store error.
func (h *Handlers) degradedList(c *gin.Context, placeholder any, err error) {
	h.logger.Warn("Store unreachable, serving placeholder data", zap.Error(err))
	c.JSON(http.StatusOK, Response{
		Success:  true,
		Data:     placeholder,
		Degraded: true,
		Error:    err.Error(),
	})
}

func (h *Handlers) serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, expense.ErrInvalidTransition):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
