package api

import (
	"net/http"
	"strconv"
	"time"

	"ops-engine/internal/apperr"
	"ops-engine/internal/finance"
	"ops-engine/internal/models"
	"ops-engine/internal/service"
	"ops-engine/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	orders    *service.OrderService
	tasks     *service.TaskService
	inventory *service.InventoryService
	purchases *service.PurchaseService
	invoices  *service.InvoiceService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	tasks *service.TaskService,
	inventory *service.InventoryService,
	purchases *service.PurchaseService,
	invoices *service.InvoiceService,
) *Handler {
	return &Handler{
		orders:    orders,
		tasks:     tasks,
		inventory: inventory,
		purchases: purchases,
		invoices:  invoices,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/customers/:id/orders", h.listCustomerOrders)
		v1.GET("/customers/:id/invoices", h.listCustomerInvoices)
		v1.POST("/orders/:id/transition", h.transitionOrder)
		v1.GET("/orders/:id/tasks", h.listOrderTasks)
		v1.POST("/orders/:id/tasks", h.spawnTasks)

		v1.GET("/tasks/:id", h.getTask)
		v1.PATCH("/tasks/:id/status", h.setTaskStatus)
		v1.PATCH("/tasks/:id/assignee", h.assignTask)
		v1.DELETE("/tasks/:id", h.deleteTask)

		v1.GET("/inventory", h.listInventory)
		v1.GET("/inventory/:productId", h.getInventoryItem)
		v1.POST("/inventory/deduct", h.deductInventory)
		v1.POST("/inventory/restock", h.restockInventory)

		v1.POST("/purchase-orders", h.createPurchaseOrder)
		v1.GET("/purchase-orders/:id", h.getPurchaseOrder)
		v1.POST("/purchase-orders/:id/confirm", h.confirmPurchaseOrder)
		v1.POST("/purchase-orders/:id/deliver", h.deliverPurchaseOrder)
		v1.POST("/purchase-orders/:id/cancel", h.cancelPurchaseOrder)
		v1.GET("/suppliers/:id/purchase-orders", h.listSupplierPurchaseOrders)

		v1.POST("/invoices", h.createInvoice)
		v1.GET("/invoices/:id", h.getInvoice)

		v1.POST("/finance/totals", h.computeTotals)
	}
}

// httpStatusFor maps each error kind to a distinct status, so presentation
// code can decide retry-vs-block-vs-inform without parsing message text.
func httpStatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindInvalidTransition:
		return http.StatusConflict
	case apperr.KindInsufficientInventory:
		return http.StatusUnprocessableEntity
	case apperr.KindIncompleteTasks:
		return http.StatusUnprocessableEntity
	case apperr.KindOrderLocked:
		return http.StatusLocked
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPermission:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.JSON(httpStatusFor(kind), gin.H{
		"error":   string(kind),
		"message": err.Error(),
	})
}

// actorFrom parses the identity headers set by the auth layer in front of the
// engine.
func actorFrom(c *gin.Context) (models.Actor, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-Actor-ID"), 10, 64)
	if err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "missing or invalid X-Actor-ID header"))
		return models.Actor{}, false
	}

	role := models.Role(c.GetHeader("X-Actor-Role"))
	if !role.IsValid() {
		respondError(c, apperr.New(apperr.KindValidation, "missing or invalid X-Actor-Role header"))
		return models.Actor{}, false
	}

	return models.Actor{ID: id, Role: role}, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "invalid %s", name))
		return 0, false
	}
	return id, true
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	order, items, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order, "items": items})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, items, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

type transitionRequest struct {
	TargetStatus    string `json:"target_status" binding:"required"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func (h *Handler) transitionOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	target, err := models.ParseOrderStatus(req.TargetStatus)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid target status"))
		return
	}

	order, err := h.orders.Transition(c.Request.Context(), orderID, target, actor, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) listCustomerOrders(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	orders, err := h.orders.ListCustomerOrders(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) listCustomerInvoices(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	invoices, err := h.invoices.ListCustomerInvoices(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *Handler) listSupplierPurchaseOrders(c *gin.Context) {
	supplierID, ok := pathID(c, "id")
	if !ok {
		return
	}

	orders, err := h.purchases.ListSupplierPurchaseOrders(c.Request.Context(), supplierID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_orders": orders})
}

func (h *Handler) listOrderTasks(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.tasks.ListOrderTasks(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

type spawnTasksRequest struct {
	AssigneeID *int64 `json:"assignee_id,omitempty"`
}

func (h *Handler) spawnTasks(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req spawnTasksRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
			return
		}
	}

	tasks, err := h.tasks.SpawnTasksForOrder(c.Request.Context(), orderID, req.AssigneeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"tasks": tasks})
}

type setTaskStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func (h *Handler) getTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *Handler) setTaskStatus(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid task status"))
		return
	}

	task, err := h.tasks.SetTaskStatus(c.Request.Context(), taskID, status, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

type assignTaskRequest struct {
	AssigneeID *int64 `json:"assignee_id"`
}

func (h *Handler) assignTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req assignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	task, err := h.tasks.AssignTask(c.Request.Context(), taskID, req.AssigneeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *Handler) deleteTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), taskID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) listInventory(c *gin.Context) {
	items, err := h.inventory.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) getInventoryItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	item, err := h.inventory.GetItem(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

type deductRequest struct {
	Lines []service.DeductRequest `json:"lines" binding:"required,min=1"`
}

func (h *Handler) deductInventory(c *gin.Context) {
	var req deductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	if err := h.inventory.Deduct(c.Request.Context(), req.Lines); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type restockRequest struct {
	ProductID      int64  `json:"product_id" binding:"required"`
	SupplierID     int64  `json:"supplier_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (h *Handler) restockInventory(c *gin.Context) {
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	item, err := h.inventory.Restock(c.Request.Context(),
		req.ProductID, req.SupplierID, req.Quantity, req.IdempotencyKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) createPurchaseOrder(c *gin.Context) {
	var req service.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	po, items, err := h.purchases.CreatePurchaseOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"purchase_order": po, "items": items})
}

func (h *Handler) getPurchaseOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	po, items, err := h.purchases.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_order": po, "items": items})
}

func (h *Handler) confirmPurchaseOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	po, err := h.purchases.Confirm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_order": po})
}

type deliverRequest struct {
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

func (h *Handler) deliverPurchaseOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req deliverRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
			return
		}
	}

	po, err := h.purchases.MarkDelivered(c.Request.Context(), id, req.DeliveryDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_order": po})
}

func (h *Handler) cancelPurchaseOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	po, err := h.purchases.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_order": po})
}

func (h *Handler) createInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	invoice, items, err := h.invoices.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invoice": invoice, "items": items})
}

func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	invoice, items, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice, "items": items})
}

type computeTotalsRequest struct {
	Items []struct {
		Quantity  int             `json:"quantity" binding:"required,min=1"`
		UnitPrice decimal.Decimal `json:"unit_price"`
	} `json:"items" binding:"required,min=1"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

func (h *Handler) computeTotals(c *gin.Context) {
	var req computeTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, err, "invalid request body"))
		return
	}

	lines := make([]finance.Line, len(req.Items))
	for i, item := range req.Items {
		lines[i] = finance.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}

	totals := finance.Compute(lines, req.TaxRatePercent, req.DiscountAmount)
	c.JSON(http.StatusOK, gin.H{
		"subtotal": totals.Subtotal.StringFixed(2),
		"tax":      totals.Tax.StringFixed(2),
		"total":    totals.Total.StringFixed(2),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
