package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicom/sora-padval-b/config"
	"github.com/bekicom/sora-padval-b/models"
	"github.com/bekicom/sora-padval-b/socket"
)

func CreateTable(c *gin.Context) {
	var table models.Table
	if err := c.ShouldBindJSON(&table); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": err.Error()})
		return
	}

	if table.Status == "" {
		table.Status = models.TableStatusEmpty
	}
	table.IsActive = true
	table.CreatedAt = time.Now()
	table.UpdatedAt = table.CreatedAt

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.TableCollection.InsertOne(ctx, table)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "CONFLICT", "message": "A table with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to create table"})
		return
	}
	table.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, table)
}

// GetTables returns every table annotated with its live soft lock, if any.
// The lock annotation is informational; clients react to lock events over
// the socket.
func GetTables(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.TableCollection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve tables"})
		return
	}
	defer cursor.Close(ctx)

	var tables []models.Table
	if err := cursor.All(ctx, &tables); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode tables"})
		return
	}

	locks := socket.Locks()
	out := make([]gin.H, 0, len(tables))
	for _, t := range tables {
		row := gin.H{
			"id":          t.ID,
			"name":        t.Name,
			"number":      t.Number,
			"status":      t.Status,
			"guest_count": t.GuestCount,
			"capacity":    t.Capacity,
			"description": t.Description,
			"is_active":   t.IsActive,
			"locked":      false,
		}
		if locks != nil {
			if lock := locks.Get(t.ID.Hex()); lock != nil {
				row["locked"] = true
				row["locked_by"] = gin.H{
					"waiter_id":   lock.WaiterID,
					"waiter_name": lock.WaiterName,
					"expires_at":  lock.ExpiresAt,
				}
			}
		}
		out = append(out, row)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "tables": out, "total_count": len(out)})
}

func GetTableByID(c *gin.Context) {
	tableID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid table ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var table models.Table
	if err := config.TableCollection.FindOne(ctx, bson.M{"_id": tableID}).Decode(&table); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Table not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve table"})
		return
	}

	c.JSON(http.StatusOK, table)
}

func UpdateTable(c *gin.Context) {
	tableID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid table ID"})
		return
	}

	var body struct {
		Name        *string `json:"name"`
		Number      *string `json:"number"`
		Status      *string `json:"status"`
		GuestCount  *int    `json:"guest_count"`
		Capacity    *int    `json:"capacity"`
		Description *string `json:"description"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}

	set := bson.M{"updated_at": time.Now()}
	if body.Name != nil {
		set["name"] = *body.Name
	}
	if body.Number != nil {
		set["number"] = *body.Number
	}
	if body.Status != nil {
		switch *body.Status {
		case models.TableStatusEmpty, models.TableStatusOccupied, models.TableStatusClosed:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid table status"})
			return
		}
		set["status"] = *body.Status
	}
	if body.GuestCount != nil {
		set["guest_count"] = *body.GuestCount
	}
	if body.Capacity != nil {
		set["capacity"] = *body.Capacity
	}
	if body.Description != nil {
		set["description"] = *body.Description
	}
	if body.IsActive != nil {
		set["is_active"] = *body.IsActive
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var table models.Table
	err = config.TableCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": tableID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&table)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Table not found"})
			return
		}
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "CONFLICT", "message": "A table with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to update table"})
		return
	}

	if body.Status != nil {
		socket.Emit("table_status_changed", gin.H{"tableId": table.ID.Hex(), "status": table.Status, "reason": "manual_update"})
	}

	c.JSON(http.StatusOK, table)
}

func DeleteTable(c *gin.Context) {
	tableID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid table ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// A table with live orders must not disappear under them.
	count, err := config.OrderCollection.CountDocuments(ctx, bson.M{
		"table_id": tableID,
		"status": bson.M{"$in": []string{
			models.OrderStatusPending, models.OrderStatusPreparing,
			models.OrderStatusReady, models.OrderStatusServed, models.OrderStatusCompleted,
		}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to check table orders"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_STATE",
			"message": "Table has unsettled orders and cannot be deleted"})
		return
	}

	res, err := config.TableCollection.DeleteOne(ctx, bson.M{"_id": tableID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete table"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Table not found"})
		return
	}

	socket.ReleaseTableLock(tableID.Hex(), "table_deleted")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Table deleted"})
}

// GetTableLocks exposes the in-memory soft locks over REST for dashboards.
// Read-only: locks are acquired and released exclusively over the socket.
func GetTableLocks(c *gin.Context) {
	locks := socket.Locks()
	if locks == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "locks": []gin.H{}, "total_count": 0})
		return
	}

	snapshot := locks.Snapshot()
	out := make([]gin.H, 0, len(snapshot))
	for _, lock := range snapshot {
		out = append(out, gin.H{
			"table_id":    lock.TableID,
			"waiter_id":   lock.WaiterID,
			"waiter_name": lock.WaiterName,
			"acquired_at": lock.AcquiredAt,
			"expires_at":  lock.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "locks": out, "total_count": len(out)})
}
