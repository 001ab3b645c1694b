package controllers

import (
	"context"
	"fmt"
	"log"
	"math"
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

// tolerance for comparing a client-declared total against the server-side
// calculation: one unit of currency.
const totalTolerance = 1.0

func actorFromContext(c *gin.Context) (primitive.ObjectID, string, string) {
	oid, _ := primitive.ObjectIDFromHex(c.GetString("userID"))
	return oid, c.GetString("role"), c.GetString("firstName")
}

// updateTableStatus flips the persisted occupancy of a table. The persisted
// status is the authority on occupancy; soft locks are advisory only.
func updateTableStatus(ctx context.Context, tableID primitive.ObjectID, status string) error {
	res, err := config.TableCollection.UpdateOne(ctx,
		bson.M{"_id": tableID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// releaseTable frees the table in the store and drops any leftover soft
// lock, notifying observers. Callers treat failures as non-fatal.
func releaseTable(ctx context.Context, tableID primitive.ObjectID, reason string) {
	if err := updateTableStatus(ctx, tableID, models.TableStatusEmpty); err != nil {
		log.Printf("table release %s: %v", tableID.Hex(), err)
		return
	}
	socket.ReleaseTableLock(tableID.Hex(), reason)
	socket.Emit("table_status_changed", gin.H{"tableId": tableID.Hex(), "status": models.TableStatusEmpty, "reason": reason})
}

type insufficientStockError struct {
	FoodName  string
	Available float64
	Requested float64
	Unit      string
}

func (e *insufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %.3f%s, requested %.3f%s",
		e.FoodName, e.Available, e.Unit, e.Requested, e.Unit)
}

// reserveStock atomically checks and decrements a food's stock. The filter
// carries the quantity guard so two concurrent orders can never both take
// the last unit; ModifiedCount == 0 means someone else got there first.
func reserveStock(ctx context.Context, food *models.Food, qty float64) error {
	res, err := config.FoodCollection.UpdateOne(ctx,
		bson.M{"_id": food.ID, "soni": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"soni": -qty}, "$set": bson.M{"updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return &insufficientStockError{FoodName: food.Name, Available: food.Soni, Requested: qty, Unit: food.Unit}
	}
	return nil
}

// releaseStock adds a cancelled quantity back. Never fails on valid input.
func releaseStock(ctx context.Context, foodID primitive.ObjectID, qty float64) error {
	_, err := config.FoodCollection.UpdateOne(ctx,
		bson.M{"_id": foodID},
		bson.M{"$inc": bson.M{"soni": qty}, "$set": bson.M{"updated_at": time.Now()}})
	return err
}

// nextDailyOrderNumber allocates the next per-date display number. The
// unique (order_date, daily_order_number) index backs this up: if the
// max+1 read races, the insert fails with a duplicate key and the whole
// transaction is retried.
func nextDailyOrderNumber(ctx context.Context, date string) (int, error) {
	var last struct {
		DailyOrderNumber int `bson:"daily_order_number"`
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "daily_order_number", Value: -1}})
	err := config.OrderCollection.FindOne(ctx, bson.M{"order_date": date}, opts).Decode(&last)
	if err == mongo.ErrNoDocuments {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.DailyOrderNumber + 1, nil
}

type createOrderInput struct {
	TableID    string  `json:"table_id"`
	UserID     string  `json:"user_id"`
	TotalPrice float64 `json:"total_price"`
	FirstName  string  `json:"first_name"`
	Notes      string  `json:"notes"`
	Items      []struct {
		FoodID   string  `json:"food_id"`
		Quantity float64 `json:"quantity"`
	} `json:"items"`
}

// CreateOrder validates the waiter and table, reserves stock for every line,
// prices the lines from the current catalog, allocates the daily number and
// marks the table occupied, all in one Mongo transaction. Printing and
// socket notifications happen strictly after commit.
func CreateOrder(c *gin.Context) {
	var input createOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}

	userID, err := primitive.ObjectIDFromHex(input.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Waiter ID is required"})
		return
	}
	tableID, err := primitive.ObjectIDFromHex(input.TableID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Table ID is required"})
		return
	}
	if len(input.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "At least one item is required"})
		return
	}
	for _, it := range input.Items {
		if it.Quantity <= 0 || math.IsNaN(it.Quantity) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION",
				"message": fmt.Sprintf("Invalid quantity: %v, must be a positive number", it.Quantity)})
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var waiter models.User
	if err := config.UserCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&waiter); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Waiter not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to load waiter"})
		}
		return
	}
	if !waiter.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Waiter is not active"})
		return
	}

	var order models.Order
	var txErr error

	// Retried when the daily number insert loses the race against the
	// unique (order_date, daily_order_number) index.
	for attempt := 0; attempt < 3; attempt++ {
		order, txErr = createOrderTx(ctx, &waiter, tableID, input)
		if txErr == nil || !mongo.IsDuplicateKeyError(txErr) {
			break
		}
	}
	if txErr != nil {
		writeOrderTxError(c, txErr)
		return
	}

	middleware.OrdersCreatedTotal.Inc()

	printResults := printKitchenTickets(&order, order.Items)
	emitOrderCreated(ctx, &order)

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Order created",
		"order":    order,
		"printing": printResults,
	})
}

// createOrderTx runs the whole creation as one transaction: stock
// reservations, order insert, table occupancy. Any failure aborts all of it.
func createOrderTx(ctx context.Context, waiter *models.User, tableID primitive.ObjectID, input createOrderInput) (models.Order, error) {
	session, err := config.Client.StartSession()
	if err != nil {
		return models.Order{}, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var table models.Table
		if err := config.TableCollection.FindOne(sc, bson.M{"_id": tableID}).Decode(&table); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, fmt.Errorf("table not found: %w", mongo.ErrNoDocuments)
			}
			return nil, err
		}

		var items []models.OrderItem
		calculatedTotal := 0.0

		for _, in := range input.Items {
			foodID, err := primitive.ObjectIDFromHex(in.FoodID)
			if err != nil {
				return nil, fmt.Errorf("invalid food id %q", in.FoodID)
			}
			qty := utils.RoundQuantity(in.Quantity)

			var food models.Food
			if err := config.FoodCollection.FindOne(sc, bson.M{"_id": foodID}).Decode(&food); err != nil {
				if err == mongo.ErrNoDocuments {
					return nil, fmt.Errorf("food not found: %s", in.FoodID)
				}
				return nil, err
			}
			if food.Price <= 0 {
				return nil, fmt.Errorf("food %s has no valid price", food.Name)
			}

			if err := reserveStock(sc, &food, qty); err != nil {
				return nil, err
			}

			// Catalog price is authoritative; client-declared item
			// prices are never trusted.
			lineTotal := utils.RoundMoney(food.Price * qty)
			calculatedTotal += lineTotal

			item := models.OrderItem{
				FoodID:   food.ID,
				Name:     food.Name,
				Price:    food.Price,
				Quantity: qty,
				Unit:     food.Unit,
				Total:    lineTotal,
			}

			var category models.Category
			if err := config.CategoryCollection.FindOne(sc, bson.M{"_id": food.Category}).Decode(&category); err == nil {
				item.CategoryName = category.Title
				item.PrinterIP = category.PrinterIP
			}
			items = append(items, item)
		}

		calculatedTotal = utils.RoundMoney(calculatedTotal)
		if input.TotalPrice > 0 && math.Abs(calculatedTotal-input.TotalPrice) > totalTolerance {
			// The client figure is discarded, never a reason to fail.
			log.Printf("order total mismatch: calculated=%.2f declared=%.2f", calculatedTotal, input.TotalPrice)
		}

		serviceAmount := utils.ServiceAmount(calculatedTotal, waiter.Percent)
		taxAmount := 0.0
		finalTotal := utils.RoundMoney(calculatedTotal + serviceAmount + taxAmount)

		today := time.Now().Format("2006-01-02")
		number, err := nextDailyOrderNumber(sc, today)
		if err != nil {
			return nil, err
		}

		waiterName := input.FirstName
		if waiterName == "" {
			waiterName = waiter.FullName()
		}

		now := time.Now()
		order := models.Order{
			DailyOrderNumber: number,
			OrderDate:        today,
			TableID:          tableID,
			UserID:           waiter.ID,
			Items:            items,
			Status:           models.OrderStatusPending,
			TotalPrice:       calculatedTotal,
			WaiterPercentage: waiter.Percent,
			ServiceAmount:    serviceAmount,
			TaxAmount:        taxAmount,
			FinalTotal:       finalTotal,
			TableNumber:      table.DisplayName(),
			WaiterName:       waiterName,
			KassirNotes:      input.Notes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		res, err := config.OrderCollection.InsertOne(sc, order)
		if err != nil {
			return nil, err
		}
		order.ID = res.InsertedID.(primitive.ObjectID)

		if err := updateTableStatus(sc, tableID, models.TableStatusOccupied); err != nil {
			return nil, err
		}

		return order, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return result.(models.Order), nil
}

func writeOrderTxError(c *gin.Context, err error) {
	var stockErr *insufficientStockError
	switch {
	case asInsufficientStock(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false, "error": "INSUFFICIENT_STOCK",
			"message":   fmt.Sprintf("Not enough stock: %s, available: %.3f%s, requested: %.3f%s", stockErr.FoodName, stockErr.Available, stockErr.Unit, stockErr.Requested, stockErr.Unit),
			"food":      stockErr.FoodName,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case err == mongo.ErrNoDocuments || containsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": err.Error()})
	}
}

func asInsufficientStock(err error, target **insufficientStockError) bool {
	for err != nil {
		if se, ok := err.(*insufficientStockError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func containsNotFound(err error) bool {
	for e := err; e != nil; {
		if e == mongo.ErrNoDocuments {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		e = u.Unwrap()
	}
	return false
}

// emitOrderCreated fans out the post-commit notifications: the new order,
// the refreshed pending list, and the table flip. Best-effort only.
func emitOrderCreated(ctx context.Context, order *models.Order) {
	socket.Emit("new_order", gin.H{
		"order": order,
		"table": gin.H{"id": order.TableID.Hex(), "number": order.TableNumber, "status": models.TableStatusOccupied},
		"waiter": gin.H{
			"id":   order.UserID.Hex(),
			"name": order.WaiterName,
		},
	})
	socket.ReleaseTableLock(order.TableID.Hex(), "order_committed")
	socket.Emit("table_status_changed", gin.H{
		"tableId":  order.TableID.Hex(),
		"status":   models.TableStatusOccupied,
		"orderId":  order.ID.Hex(),
		"waiterId": order.UserID.Hex(),
	})

	cursor, err := config.OrderCollection.Find(ctx, bson.M{"status": models.OrderStatusPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		log.Printf("pending orders reload: %v", err)
		return
	}
	var pending []models.Order
	if err := cursor.All(ctx, &pending); err != nil {
		log.Printf("pending orders decode: %v", err)
		return
	}
	socket.Emit("update_pending_orders", gin.H{"orders": pending, "count": len(pending)})
}

// printKitchenTickets groups lines per category printer and posts one ticket
// to each. Failures are collected for the response, never propagated.
func printKitchenTickets(order *models.Order, items []models.OrderItem) []gin.H {
	groups := make(map[string][]utils.PrintItem)
	for _, it := range items {
		if it.PrinterIP == "" {
			continue
		}
		groups[it.PrinterIP] = append(groups[it.PrinterIP], utils.PrintItem{
			Name: it.Name, Quantity: it.Quantity, Price: it.Price, Total: it.Total,
		})
	}

	var results []gin.H
	for ip, lines := range groups {
		job := utils.PrintJob{
			Items:       lines,
			TableNumber: order.TableNumber,
			WaiterName:  order.WaiterName,
			OrderID:     order.ID.Hex(),
			OrderNumber: order.FormattedOrderNumber(),
			Type:        "kitchen_ticket",
		}
		if err := utils.PrintToPrinter(ip, job); err != nil {
			log.Printf("kitchen print %s: %v", ip, err)
			results = append(results, gin.H{"printer_ip": ip, "success": false, "error": err.Error()})
		} else {
			results = append(results, gin.H{"printer_ip": ip, "success": true})
		}
	}
	return results
}

type addItemsInput struct {
	Items []struct {
		FoodID   string  `json:"food_id"`
		Quantity float64 `json:"quantity"`
	} `json:"items"`
}

// AddItemsToOrder appends lines to a live order, reserving stock exactly as
// creation does, and grows the totals by addition. Only the owning waiter or
// a cashier may call it.
func AddItemsToOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid order ID"})
		return
	}

	var input addItemsInput
	if err := c.ShouldBindJSON(&input); err != nil || len(input.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "At least one item is required"})
		return
	}
	for _, it := range input.Items {
		if it.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Quantity must be positive"})
			return
		}
	}

	actorID, role, _ := actorFromContext(c)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := config.Client.StartSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to start transaction"})
		return
	}
	defer session.EndSession(ctx)

	type addResult struct {
		order    models.Order
		newItems []models.OrderItem
	}

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var order models.Order
		if err := config.OrderCollection.FindOne(sc, bson.M{"_id": orderID}).Decode(&order); err != nil {
			return nil, err
		}

		if !order.CanModifyItems() {
			return nil, &stateError{status: order.Status, message: "Order can no longer be modified"}
		}
		if role != models.RoleCashier && order.UserID != actorID {
			return nil, errNotAuthorized
		}

		var newItems []models.OrderItem
		addedTotal := 0.0

		for _, in := range input.Items {
			foodID, err := primitive.ObjectIDFromHex(in.FoodID)
			if err != nil {
				return nil, fmt.Errorf("invalid food id %q", in.FoodID)
			}
			qty := utils.RoundQuantity(in.Quantity)

			var food models.Food
			if err := config.FoodCollection.FindOne(sc, bson.M{"_id": foodID}).Decode(&food); err != nil {
				if err == mongo.ErrNoDocuments {
					return nil, fmt.Errorf("food not found: %s", in.FoodID)
				}
				return nil, err
			}

			if err := reserveStock(sc, &food, qty); err != nil {
				return nil, err
			}

			lineTotal := utils.RoundMoney(food.Price * qty)
			addedTotal += lineTotal

			if idx := order.FindItem(foodID); idx >= 0 {
				order.Items[idx].Quantity = utils.RoundQuantity(order.Items[idx].Quantity + qty)
				order.Items[idx].Total = utils.RoundMoney(order.Items[idx].Total + lineTotal)
			} else {
				item := models.OrderItem{
					FoodID:   food.ID,
					Name:     food.Name,
					Price:    food.Price,
					Quantity: qty,
					Unit:     food.Unit,
					Total:    lineTotal,
				}
				var category models.Category
				if err := config.CategoryCollection.FindOne(sc, bson.M{"_id": food.Category}).Decode(&category); err == nil {
					item.CategoryName = category.Title
					item.PrinterIP = category.PrinterIP
				}
				order.Items = append(order.Items, item)
			}

			newItems = append(newItems, models.OrderItem{
				FoodID: food.ID, Name: food.Name, Price: food.Price, Quantity: qty, Total: lineTotal,
				PrinterIP: func() string {
					if idx := order.FindItem(foodID); idx >= 0 {
						return order.Items[idx].PrinterIP
					}
					return ""
				}(),
			})
		}

		order.TotalPrice = utils.RoundMoney(order.TotalPrice + addedTotal)
		order.ServiceAmount = utils.ServiceAmount(order.TotalPrice, order.WaiterPercentage)
		order.FinalTotal = utils.RoundMoney(order.TotalPrice + order.ServiceAmount + order.TaxAmount)
		order.UpdatedAt = time.Now()

		_, err := config.OrderCollection.UpdateOne(sc, bson.M{"_id": order.ID}, bson.M{"$set": bson.M{
			"items":          order.Items,
			"total_price":    order.TotalPrice,
			"service_amount": order.ServiceAmount,
			"final_total":    order.FinalTotal,
			"updated_at":     order.UpdatedAt,
		}})
		if err != nil {
			return nil, err
		}
		return addResult{order: order, newItems: newItems}, nil
	})
	if err != nil {
		writeOrderMutationError(c, err)
		return
	}

	res := result.(addResult)
	printKitchenTickets(&res.order, res.newItems)
	socket.Emit("order_items_added", gin.H{
		"orderId":   res.order.ID.Hex(),
		"table":     gin.H{"id": res.order.TableID.Hex(), "number": res.order.TableNumber},
		"new_items": res.newItems,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Items added to order",
		"order_id":    res.order.ID,
		"added_items": res.newItems,
		"new_totals": gin.H{
			"subtotal":       res.order.TotalPrice,
			"service_amount": res.order.ServiceAmount,
			"final_total":    res.order.FinalTotal,
		},
	})
}

type stateError struct {
	status  string
	message string
}

func (e *stateError) Error() string { return e.message }

var errNotAuthorized = fmt.Errorf("only the owning waiter or a cashier may perform this action")

func writeOrderMutationError(c *gin.Context, err error) {
	var stockErr *insufficientStockError
	var stErr *stateError
	switch {
	case err == mongo.ErrNoDocuments:
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Order not found"})
	case asInsufficientStock(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false, "error": "INSUFFICIENT_STOCK",
			"message":   stockErr.Error(),
			"food":      stockErr.FoodName,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case asStateError(err, &stErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_STATE", "message": stErr.message, "current_status": stErr.status})
	case err == errNotAuthorized:
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": err.Error()})
	case containsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": err.Error()})
	}
}

func asStateError(err error, target **stateError) bool {
	for err != nil {
		if se, ok := err.(*stateError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

type cancelItemInput struct {
	FoodID         string  `json:"food_id"`
	CancelQuantity float64 `json:"cancel_quantity"`
	Reason         string  `json:"reason"`
	Notes          string  `json:"notes"`
}

// CancelOrderItem removes some or all of a line, returns the quantity to
// stock, rebuilds the totals from the remaining lines and appends the
// cancellation to the order's audit history. Allowed through `completed`
// (post-close corrections) but never once the order is paid.
func CancelOrderItem(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid order ID"})
		return
	}

	var input cancelItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}
	if input.FoodID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Food ID is required"})
		return
	}
	if input.CancelQuantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Cancel quantity must be positive"})
		return
	}
	if input.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Cancellation reason is required"})
		return
	}

	foodID, err := primitive.ObjectIDFromHex(input.FoodID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid food ID"})
		return
	}

	actorID, role, actorName := actorFromContext(c)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := config.Client.StartSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to start transaction"})
		return
	}
	defer session.EndSession(ctx)

	type cancelResult struct {
		order     models.Order
		cancelled models.CancelledItem
		newStock  float64
	}

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var order models.Order
		if err := config.OrderCollection.FindOne(sc, bson.M{"_id": orderID}).Decode(&order); err != nil {
			return nil, err
		}

		if !order.CanCancelItem() {
			return nil, &stateError{status: order.Status, message: "Items can only be cancelled on active or completed orders"}
		}
		if role != models.RoleCashier && order.UserID != actorID {
			return nil, errNotAuthorized
		}

		idx := order.FindItem(foodID)
		if idx < 0 {
			return nil, fmt.Errorf("item not found in order: %w", mongo.ErrNoDocuments)
		}

		item := order.Items[idx]
		qty := utils.RoundQuantity(input.CancelQuantity)
		if qty > item.Quantity {
			return nil, &stateError{status: order.Status,
				message: fmt.Sprintf("Cancel quantity exceeds ordered quantity, available: %.3f", item.Quantity)}
		}

		cancelledAmount := utils.RoundMoney(item.Price * qty)

		if qty == item.Quantity {
			order.Items = append(order.Items[:idx], order.Items[idx+1:]...)
		} else {
			order.Items[idx].Quantity = utils.RoundQuantity(item.Quantity - qty)
			order.Items[idx].Total = utils.RoundMoney(item.Price * order.Items[idx].Quantity)
		}

		order.RecalculateTotals()

		entry := models.CancelledItem{
			FoodID:            foodID,
			Name:              item.Name,
			Price:             item.Price,
			CancelledQuantity: qty,
			CancelledAmount:   cancelledAmount,
			Reason:            input.Reason,
			Notes:             input.Notes,
			CancelledBy:       actorID,
			CancelledByName:   actorName,
			CancelledAt:       time.Now(),
		}
		order.CancelledItems = append(order.CancelledItems, entry)
		order.UpdatedAt = time.Now()

		// Order keeps its prior status even when the last line goes;
		// a fully emptied order is not auto-cancelled.
		_, err := config.OrderCollection.UpdateOne(sc, bson.M{"_id": order.ID}, bson.M{"$set": bson.M{
			"items":           order.Items,
			"total_price":     order.TotalPrice,
			"service_amount":  order.ServiceAmount,
			"final_total":     order.FinalTotal,
			"cancelled_items": order.CancelledItems,
			"updated_at":      order.UpdatedAt,
		}})
		if err != nil {
			return nil, err
		}

		if err := releaseStock(sc, foodID, qty); err != nil {
			return nil, err
		}

		var food models.Food
		_ = config.FoodCollection.FindOne(sc, bson.M{"_id": foodID}).Decode(&food)

		return cancelResult{order: order, cancelled: entry, newStock: food.Soni}, nil
	})
	if err != nil {
		writeOrderMutationError(c, err)
		return
	}

	res := result.(cancelResult)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Item cancelled",
		"order": gin.H{
			"id":          res.order.ID,
			"status":      res.order.Status,
			"items_count": len(res.order.Items),
			"new_totals": gin.H{
				"subtotal":       res.order.TotalPrice,
				"service_amount": res.order.ServiceAmount,
				"final_total":    res.order.FinalTotal,
			},
		},
		"cancelled_item": res.cancelled,
		"inventory_update": gin.H{
			"food_name":         res.cancelled.Name,
			"quantity_returned": res.cancelled.CancelledQuantity,
			"new_stock_level":   res.newStock,
		},
	})
}

// CloseOrder moves an order to completed and frees the table. Financial
// fields are authoritative from creation time: stored values are kept
// verbatim, and only zero-valued fields on legacy documents are filled in
// from settings. This guards against double-counting the service fee.
func CloseOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid order ID"})
		return
	}

	actorID, role, _ := actorFromContext(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

	if !order.CanClose() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_STATE",
			"message": fmt.Sprintf("Order is already %s", order.Status), "current_status": order.Status})
		return
	}

	if role != models.RoleCashier && order.UserID != actorID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "NOT_AUTHORIZED",
			"message": "Only the owning waiter or a cashier may close the order"})
		return
	}

	// Legacy documents created before totals were computed at creation time
	// may carry zeroes despite having lines; only those get filled here.
	if order.FinalTotal == 0 && order.TotalPrice > 0 {
		if order.ServiceAmount == 0 {
			percent := order.WaiterPercentage
			if percent == 0 {
				settings, _ := GetActiveSettings(ctx)
				percent = settings.ServicePercent
				order.WaiterPercentage = percent
			}
			order.ServiceAmount = utils.ServiceAmount(order.TotalPrice, percent)
		}
		order.FinalTotal = utils.RoundMoney(order.TotalPrice + order.ServiceAmount + order.TaxAmount)
	}

	now := time.Now()
	order.Status = models.OrderStatusCompleted
	order.CompletedAt = &now
	order.ClosedAt = &now
	if !actorID.IsZero() {
		order.CompletedBy = &actorID
	}
	order.UpdatedAt = now

	_, err = config.OrderCollection.UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": bson.M{
		"status":            order.Status,
		"completed_at":      order.CompletedAt,
		"closed_at":         order.ClosedAt,
		"completed_by":      order.CompletedBy,
		"waiter_percentage": order.WaiterPercentage,
		"service_amount":    order.ServiceAmount,
		"final_total":       order.FinalTotal,
		"updated_at":        order.UpdatedAt,
	}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to close order"})
		return
	}

	releaseTable(ctx, order.TableID, "order_completed")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order closed and sent to the cashier, table released",
		"order": gin.H{
			"id":                     order.ID,
			"daily_order_number":     order.DailyOrderNumber,
			"formatted_order_number": order.FormattedOrderNumber(),
			"status":                 order.Status,
			"completed_at":           order.CompletedAt,
			"service_amount":         order.ServiceAmount,
			"tax_amount":             order.TaxAmount,
			"waiter_percentage":      order.WaiterPercentage,
			"final_total":            order.FinalTotal,
			"order_date":             order.OrderDate,
		},
		"totals": gin.H{
			"subtotal":    order.TotalPrice,
			"service_fee": order.ServiceAmount,
			"tax_fee":     order.TaxAmount,
			"grand_total": order.FinalTotal,
		},
	})
}

// DeleteOrder is an administrative override: it removes the order and
// unconditionally frees its table. Stock is NOT restored; use item
// cancellation for that.
func DeleteOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid order ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var order models.Order
	err = config.OrderCollection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to load order"})
		return
	}

	releaseTable(ctx, order.TableID, "order_deleted")

	if _, err := config.OrderCollection.DeleteOne(ctx, bson.M{"_id": orderID}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order deleted, table released", "table_status_updated": true})
}

// UpdateOrderStatus moves an order along the kitchen pipeline.
func UpdateOrderStatus(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid order ID"})
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}

	switch body.Status {
	case models.OrderStatusPending, models.OrderStatusPreparing, models.OrderStatusReady,
		models.OrderStatusServed, models.OrderStatusCompleted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid status"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var order models.Order
	err = config.OrderCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"status": body.Status, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// GetOrdersByTable lists a table's orders, newest first.
func GetOrdersByTable(c *gin.Context) {
	tableID, err := primitive.ObjectIDFromHex(c.Param("tableId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid table ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.OrderCollection.Find(ctx, bson.M{"table_id": tableID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve orders"})
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetBusyTables returns ids of tables that still have a live kitchen order.
func GetBusyTables(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.OrderCollection.Find(ctx, bson.M{
		"status": bson.M{"$in": []string{models.OrderStatusPending, models.OrderStatusPreparing}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve orders"})
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode orders"})
		return
	}

	busy := make([]string, 0, len(orders))
	for _, o := range orders {
		busy = append(busy, o.TableID.Hex())
	}
	c.JSON(http.StatusOK, busy)
}

// GetMyPendingOrders is role-sensitive: cashiers see every live order,
// waiters only their own pending ones.
func GetMyPendingOrders(c *gin.Context) {
	actorID, role, _ := actorFromContext(c)

	query := bson.M{}
	if role == models.RoleCashier {
		query["status"] = bson.M{"$in": []string{
			models.OrderStatusPending, models.OrderStatusPreparing,
			models.OrderStatusReady, models.OrderStatusServed,
		}}
	} else {
		query["user_id"] = actorID
		query["status"] = models.OrderStatusPending
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.OrderCollection.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve orders"})
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orders":      orders,
		"total_count": len(orders),
		"user_role":   role,
	})
}

// GetPendingPayments lists closed orders waiting at the cashier.
func GetPendingPayments(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.OrderCollection.Find(ctx,
		bson.M{"status": bson.M{"$in": []string{models.OrderStatusCompleted, "pending_payment"}}},
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve pending payments"})
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode orders"})
		return
	}

	totalAmount := 0.0
	pending := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		totalAmount += o.FinalTotal
		pending = append(pending, gin.H{
			"id":            o.ID,
			"orderNumber":   o.FormattedOrderNumber(),
			"tableNumber":   o.TableNumber,
			"waiterName":    o.WaiterName,
			"itemsCount":    len(o.Items),
			"items":         o.Items,
			"subtotal":      o.TotalPrice,
			"serviceAmount": o.ServiceAmount,
			"taxAmount":     o.TaxAmount,
			"finalTotal":    o.FinalTotal,
			"completedAt":   o.CompletedAt,
			"status":        o.Status,
			"order_date":    o.OrderDate,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"pending_orders": pending,
		"total_pending":  len(orders),
		"total_amount":   utils.RoundMoney(totalAmount),
	})
}

// GetCompletedOrders returns closed/paid orders for a date or a range,
// optionally narrowed to the calling waiter.
func GetCompletedOrders(c *gin.Context) {
	date := c.Query("date")
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	paid := c.Query("paid")
	currentUserOnly := c.Query("current_user_only")
	actorID, _, _ := actorFromContext(c)

	var queryStart, queryEnd string
	switch {
	case date != "":
		queryStart, queryEnd = date, date
	case startDate != "" && endDate != "":
		queryStart, queryEnd = startDate, endDate
	default:
		today := time.Now().Format("2006-01-02")
		queryStart, queryEnd = today, today
	}

	query := bson.M{"order_date": bson.M{"$gte": queryStart, "$lte": queryEnd}}
	if currentUserOnly == "true" && !actorID.IsZero() {
		query["user_id"] = actorID
	}
	switch paid {
	case "true":
		query["status"] = models.OrderStatusPaid
	case "false":
		query["status"] = models.OrderStatusCompleted
	default:
		query["status"] = bson.M{"$in": []string{models.OrderStatusCompleted, models.OrderStatusPaid}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.OrderCollection.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}}).SetLimit(200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve orders"})
		return
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode orders"})
		return
	}

	totalAmount := 0.0
	byMethod := map[string]int{}
	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		totalAmount += o.FinalTotal
		method := o.PaymentMethod
		if method == "" {
			method = "not_paid"
		}
		byMethod[method]++
		out = append(out, gin.H{
			"id":             o.ID,
			"orderNumber":    o.FormattedOrderNumber(),
			"tableNumber":    o.TableNumber,
			"waiterName":     o.WaiterName,
			"itemsCount":     len(o.Items),
			"items":          o.Items,
			"subtotal":       o.TotalPrice,
			"serviceAmount":  o.ServiceAmount,
			"taxAmount":      o.TaxAmount,
			"finalTotal":     o.FinalTotal,
			"completedAt":    o.CompletedAt,
			"paidAt":         o.PaidAt,
			"status":         o.Status,
			"paymentMethod":  o.PaymentMethod,
			"receiptPrinted": o.ReceiptPrinted,
			"order_date":     o.OrderDate,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"orders":       out,
		"total_count":  len(orders),
		"total_amount": utils.RoundMoney(totalAmount),
		"filter": gin.H{
			"start_date": queryStart,
			"end_date":   queryEnd,
		},
		"payment_stats": gin.H{"by_method": byMethod},
	})
}

// GetDailySalesSummary aggregates revenue and per-method counts for a date.
func GetDailySalesSummary(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := DailySalesSummary(ctx, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to aggregate daily sales"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "date": date, "summary": summary})
}

// DailySalesSummary is shared by the HTTP endpoint and the nightly report
// job.
func DailySalesSummary(ctx context.Context, date string) (gin.H, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"order_date": date,
			"status":     bson.M{"$in": []string{models.OrderStatusCompleted, models.OrderStatusPaid}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"totalOrders":    bson.M{"$sum": 1},
			"totalRevenue":   bson.M{"$sum": "$final_total"},
			"cashOrders":     bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$payment_method", models.PaymentMethodCash}}, 1, 0}}},
			"cardOrders":     bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$payment_method", models.PaymentMethodCard}}, 1, 0}}},
			"clickOrders":    bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$payment_method", models.PaymentMethodClick}}, 1, 0}}},
			"transferOrders": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$payment_method", models.PaymentMethodTransfer}}, 1, 0}}},
			"mixedOrders":    bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$payment_method", models.PaymentMethodMixed}}, 1, 0}}},
		}}},
	}

	cursor, err := config.OrderCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return gin.H{
			"totalOrders": 0, "totalRevenue": 0,
			"cashOrders": 0, "cardOrders": 0, "clickOrders": 0,
			"transferOrders": 0, "mixedOrders": 0,
		}, nil
	}
	delete(results[0], "_id")
	return gin.H(results[0]), nil
}
