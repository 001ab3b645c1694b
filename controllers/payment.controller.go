package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicom/sora-padval-b/config"
	"github.com/bekicom/sora-padval-b/middleware"
	"github.com/bekicom/sora-padval-b/models"
	"github.com/bekicom/sora-padval-b/socket"
	"github.com/bekicom/sora-padval-b/utils"
)

// ProcessPayment settles a closed order. The intent is normalized from the
// accepted wire shapes, validated against the stored final total, then the
// order moves to paid, an immutable payment record is written, the table is
// freed and the receipt printed. Only the order transition is mandatory;
// everything after it is best-effort and logged.
func ProcessPayment(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid order ID"})
		return
	}

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}
	intent := req.Normalize()

	actorID, _, actorName := actorFromContext(c)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var order models.Order
	if err := config.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to load order"})
		}
		return
	}

	if order.Status == models.OrderStatusPaid {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_STATE", "message": "Order is already paid", "current_status": order.Status})
		return
	}
	if !order.CanPay() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_STATE",
			"message": "Order must be closed before payment", "current_status": order.Status})
		return
	}

	if err := intent.Validate(order.FinalTotal); err != nil {
		writePaymentError(c, err, order.FinalTotal)
		return
	}

	now := time.Now()
	update := bson.M{
		"status":         models.OrderStatusPaid,
		"paid_at":        now,
		"payment_method": intent.Method,
		"payment_amount": intent.Amount,
		"change_amount":  intent.Change,
		"updated_at":     now,
	}
	if !actorID.IsZero() {
		update["paid_by"] = actorID
	}
	if intent.Notes != "" {
		update["kassir_notes"] = intent.Notes
	}
	mixed := intent.MixedDetails()
	if intent.Method == models.PaymentMethodMixed && mixed != nil {
		update["mixed_payment_details"] = mixed
	}

	// Guard on the pre-payment status so a concurrent cashier cannot settle
	// the same order twice.
	res, err := config.OrderCollection.UpdateOne(ctx,
		bson.M{"_id": order.ID, "status": bson.M{"$in": []string{models.OrderStatusCompleted, "pending_payment"}}},
		bson.M{"$set": update})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to record payment"})
		return
	}
	if res.ModifiedCount == 0 {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "CONFLICT", "message": "Order was settled by another cashier"})
		return
	}

	middleware.PaymentsTotal.WithLabelValues(intent.Method).Inc()

	payment := models.Payment{
		OrderID:         order.ID,
		PaymentMethod:   intent.Method,
		PaymentAmount:   intent.Amount,
		ChangeAmount:    intent.Change,
		MixedDetails:    mixed,
		OrderTotal:      order.FinalTotal,
		TableNumber:     order.TableNumber,
		WaiterName:      order.WaiterName,
		ProcessedBy:     actorID,
		ProcessedByName: actorName,
		Notes:           intent.Notes,
		PaymentDate:     now.Format("2006-01-02"),
		Status:          "completed",
		CreatedAt:       now,
	}
	if err := savePaymentRecord(ctx, &payment); err != nil {
		// The order is already settled; a missing audit row is logged,
		// never surfaced to the cashier.
		log.Printf("payment record for order %s: %v", order.ID.Hex(), err)
	}

	releaseTable(ctx, order.TableID, "order_paid")

	order.Status = models.OrderStatusPaid
	order.PaidAt = &now
	order.PaymentMethod = intent.Method
	order.PaymentAmount = intent.Amount
	order.ChangeAmount = intent.Change
	order.MixedPaymentDetails = mixed

	receipt := gin.H{"printed": false}
	if settings, err := GetActiveSettings(ctx); err == nil && settings.AutoPrint && settings.KassirPrinterIP != "" {
		if err := printReceipt(&order, &settings); err != nil {
			log.Printf("receipt print: %v", err)
			receipt["error"] = err.Error()
		} else {
			receipt["printed"] = true
			markReceiptPrinted(ctx, order.ID, actorID)
		}
	}

	socket.Emit("order_paid", gin.H{
		"orderId":       order.ID.Hex(),
		"tableId":       order.TableID.Hex(),
		"tableNumber":   order.TableNumber,
		"paymentMethod": intent.Method,
		"finalTotal":    order.FinalTotal,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment accepted",
		"order": gin.H{
			"id":                     order.ID,
			"formatted_order_number": order.FormattedOrderNumber(),
			"status":                 order.Status,
			"final_total":            order.FinalTotal,
			"payment_method":         intent.Method,
			"payment_amount":         intent.Amount,
			"change_amount":          intent.Change,
			"mixed_payment_details":  mixed,
			"paid_at":                order.PaidAt,
		},
		"receipt": receipt,
	})
}

func writePaymentError(c *gin.Context, err error, finalTotal float64) {
	kind := "VALIDATION"
	switch {
	case errors.Is(err, models.ErrInvalidMethod):
		kind = "INVALID_METHOD"
	case errors.Is(err, models.ErrInsufficientPayment), errors.Is(err, models.ErrExactAmountRequired):
		kind = "INSUFFICIENT_PAYMENT"
	case errors.Is(err, models.ErrInvalidMixedBreakdown), errors.Is(err, models.ErrMixedPaymentIncomplete):
		kind = "INVALID_MIXED_BREAKDOWN"
	case errors.Is(err, models.ErrInvalidAmount):
		kind = "VALIDATION"
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success":     false,
		"error":       kind,
		"message":     err.Error(),
		"final_total": finalTotal,
	})
}

// savePaymentRecord inserts the audit row. Kept separate so the nightly
// reconciliation and refund paths share it.
func savePaymentRecord(ctx context.Context, p *models.Payment) error {
	res, err := config.PaymentCollection.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func markReceiptPrinted(ctx context.Context, orderID, actorID primitive.ObjectID) {
	now := time.Now()
	set := bson.M{"receipt_printed": true, "receipt_printed_at": now}
	if !actorID.IsZero() {
		set["receipt_printed_by"] = actorID
	}
	if _, err := config.OrderCollection.UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": set}); err != nil {
		log.Printf("mark receipt printed %s: %v", orderID.Hex(), err)
	}
}

// printReceipt builds the cashier receipt from the order and the active
// restaurant profile and posts it to the cashier printer.
func printReceipt(order *models.Order, settings *models.Settings) error {
	items := make([]utils.PrintItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, utils.PrintItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price, Total: it.Total})
	}
	job := utils.PrintJob{
		Items:         items,
		TableNumber:   order.TableNumber,
		WaiterName:    order.WaiterName,
		OrderID:       order.ID.Hex(),
		OrderNumber:   order.FormattedOrderNumber(),
		TotalAmount:   order.TotalPrice,
		ServiceAmount: order.ServiceAmount,
		FinalTotal:    order.FinalTotal,
		Type:          "receipt",
		Currency:      settings.Currency,
		FooterText:    settings.FooterText,
	}
	return utils.PrintToPrinter(settings.KassirPrinterIP, job)
}

// PrintReceiptForKassir reprints (or first-prints) the cashier receipt for a
// closed or paid order on demand.
func PrintReceiptForKassir(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid order ID"})
		return
	}

	actorID, _, _ := actorFromContext(c)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var order models.Order
	if err := config.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Order not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to load order"})
		}
		return
	}

	if order.Status != models.OrderStatusCompleted && order.Status != models.OrderStatusPaid {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_STATE",
			"message": "Receipt is only available for closed or paid orders", "current_status": order.Status})
		return
	}

	settings, err := GetActiveSettings(ctx)
	if err != nil || settings.KassirPrinterIP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Cashier printer is not configured"})
		return
	}

	if err := printReceipt(&order, &settings); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "INTERNAL", "message": err.Error()})
		return
	}
	markReceiptPrinted(ctx, order.ID, actorID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Receipt sent to printer", "printer_ip": settings.KassirPrinterIP})
}

// GetPayments lists payment records for a date (default today).
func GetPayments(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.PaymentCollection.Find(ctx, bson.M{"payment_date": date},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve payments"})
		return
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode payments"})
		return
	}

	total := 0.0
	for _, p := range payments {
		total += p.OrderTotal
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"date":         date,
		"payments":     payments,
		"total_count":  len(payments),
		"total_amount": utils.RoundMoney(total),
	})
}

// GetDailyPaymentStats aggregates the payment records per method for a date.
func GetDailyPaymentStats(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"payment_date": date, "status": "completed"}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$payment_method",
			"count":       bson.M{"$sum": 1},
			"totalAmount": bson.M{"$sum": "$order_total"},
			"totalPaid":   bson.M{"$sum": "$payment_amount"},
			"totalChange": bson.M{"$sum": "$change_amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"totalAmount": -1}}},
	}

	cursor, err := config.PaymentCollection.Aggregate(ctx, pipeline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to aggregate payments"})
		return
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode stats"})
		return
	}

	grandTotal := 0.0
	byMethod := gin.H{}
	for _, row := range rows {
		method, _ := row["_id"].(string)
		if method == "" {
			method = "unknown"
		}
		if amount, ok := row["totalAmount"].(float64); ok {
			grandTotal += amount
		}
		byMethod[method] = gin.H{
			"count":        row["count"],
			"total_amount": row["totalAmount"],
			"total_paid":   row["totalPaid"],
			"total_change": row["totalChange"],
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"date":        date,
		"by_method":   byMethod,
		"grand_total": utils.RoundMoney(grandTotal),
	})
}
