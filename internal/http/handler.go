package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/askarbek/marketpay/internal/http/middleware"
	"github.com/askarbek/marketpay/internal/model"
	"github.com/askarbek/marketpay/internal/service"
)

type Handler struct {
	contracts *service.ContractService
	payments  *service.PaymentService
	reports   *service.ReportService
	log       zerolog.Logger
}

func NewHandler(contracts *service.ContractService, payments *service.PaymentService, reports *service.ReportService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, payments: payments, reports: reports, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.GET("/contracts/:id", h.getContract)
	protected.GET("/contracts", h.listContracts)
	protected.GET("/jobs/unpaid", h.listUnpaidJobs)
	protected.POST("/jobs/:id/pay", h.payJob)
	protected.GET("/jobs/:id/receipt", h.jobReceipt)

	router.POST("/balances/deposit/:id", h.deposit)
	router.GET("/admin/best-profession", h.bestProfession)
	router.GET("/admin/best-clients", h.bestClients)
	router.GET("/admin/earnings-report", h.earningsReport)
}

type contractResponse struct {
	ID           uuid.UUID `json:"id"`
	ClientID     uuid.UUID `json:"client_id"`
	ContractorID uuid.UUID `json:"contractor_id"`
	Terms        string    `json:"terms"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type jobResponse struct {
	ID          uuid.UUID       `json:"id"`
	ContractID  uuid.UUID       `json:"contract_id"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Paid        bool            `json:"paid"`
	PaymentDate *time.Time      `json:"payment_date"`
}

type clientPaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	FullName   string          `json:"full_name"`
	Profession string          `json:"profession"`
	Paid       decimal.Decimal `json:"paid"`
}

func (h *Handler) getContract(c *gin.Context) {
	caller, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.contracts.GetContract(c.Request.Context(), caller, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContractResponse(*contract))
}

func (h *Handler) listContracts(c *gin.Context) {
	caller, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	contracts, err := h.contracts.ListContracts(c.Request.Context(), caller)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]contractResponse, 0, len(contracts))
	for _, contract := range contracts {
		out = append(out, toContractResponse(contract))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) listUnpaidJobs(c *gin.Context) {
	caller, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	jobs, err := h.contracts.ListUnpaidJobs(c.Request.Context(), caller)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobResponse(job))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) payJob(c *gin.Context) {
	caller, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	jobID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	if err := h.payments.PayJob(c.Request.Context(), caller, jobID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) jobReceipt(c *gin.Context) {
	caller, ok := middleware.MustProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing profile"})
		return
	}

	jobID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	result, err := h.payments.JobReceipt(c.Request.Context(), caller, jobID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

type depositRequest struct {
	Deposit decimal.Decimal `json:"deposit"`
}

func (h *Handler) deposit(c *gin.Context) {
	clientID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.payments.Deposit(c.Request.Context(), clientID, req.Deposit); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) bestProfession(c *gin.Context) {
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	profession, err := h.reports.BestProfession(c.Request.Context(), start, end)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.String(http.StatusOK, profession)
}

func (h *Handler) bestClients(c *gin.Context) {
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	clients, err := h.reports.BestClients(c.Request.Context(), start, end, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]clientPaymentResponse, 0, len(clients))
	for _, client := range clients {
		out = append(out, clientPaymentResponse{
			ID:         client.ClientID,
			FirstName:  client.FirstName,
			LastName:   client.LastName,
			FullName:   client.FullName(),
			Profession: client.Profession,
			Paid:       client.Paid,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) earningsReport(c *gin.Context) {
	start, end, ok := h.parseRange(c)
	if !ok {
		return
	}

	result, err := h.reports.EarningsExport(c.Request.Context(), start, end)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := parseDate(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoPendingWork), errors.Is(err, service.ErrDepositTooLarge):
		c.JSON(http.StatusNotAcceptable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyPaid):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toContractResponse(contract model.Contract) contractResponse {
	return contractResponse{
		ID:           contract.ID,
		ClientID:     contract.ClientID,
		ContractorID: contract.ContractorID,
		Terms:        contract.Terms,
		Status:       string(contract.Status),
		CreatedAt:    contract.CreatedAt,
	}
}

func toJobResponse(job model.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		ContractID:  job.ContractID,
		Description: job.Description,
		Price:       job.Price,
		Paid:        job.Paid,
		PaymentDate: job.PaymentDate,
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
