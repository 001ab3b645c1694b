package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicom/sora-padval-b/config"
	"github.com/bekicom/sora-padval-b/models"
	"github.com/bekicom/sora-padval-b/utils"
)

func CreateFood(c *gin.Context) {
	var food models.Food
	if err := c.ShouldBindJSON(&food); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": err.Error()})
		return
	}
	if food.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Price must be positive"})
		return
	}
	if food.Soni < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Stock cannot be negative"})
		return
	}
	food.Soni = utils.RoundQuantity(food.Soni)
	food.CreatedAt = time.Now()
	food.UpdatedAt = food.CreatedAt

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := config.CategoryCollection.FindOne(ctx, bson.M{"_id": food.Category}).Err(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Category does not exist"})
		return
	}

	res, err := config.FoodCollection.InsertOne(ctx, food)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to create food"})
		return
	}
	food.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, food)
}

func GetFoods(c *gin.Context) {
	query := bson.M{}
	if cat := c.Query("category"); cat != "" {
		if catID, err := primitive.ObjectIDFromHex(cat); err == nil {
			query["category"] = catID
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.FoodCollection.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve foods"})
		return
	}
	defer cursor.Close(ctx)

	var foods []models.Food
	if err := cursor.All(ctx, &foods); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode foods"})
		return
	}

	c.JSON(http.StatusOK, foods)
}

func GetFoodByID(c *gin.Context) {
	foodID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid food ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var food models.Food
	if err := config.FoodCollection.FindOne(ctx, bson.M{"_id": foodID}).Decode(&food); err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Food not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve food"})
		return
	}

	c.JSON(http.StatusOK, food)
}

// UpdateFood patches catalog fields. A direct stock write here is an
// administrative correction and bypasses the order-transaction guard, so it
// is only exposed to admin roles in the routes.
func UpdateFood(c *gin.Context) {
	foodID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid food ID"})
		return
	}

	var input models.UpdateFood
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}

	set := bson.M{"updated_at": time.Now()}
	if input.Name != "" {
		set["name"] = input.Name
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Price must be positive"})
			return
		}
		set["price"] = *input.Price
	}
	if input.Category != "" {
		catID, err := primitive.ObjectIDFromHex(input.Category)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid category ID"})
			return
		}
		set["category"] = catID
	}
	if input.Subcategory != nil {
		set["subcategory"] = *input.Subcategory
	}
	if input.Unit != "" {
		set["unit"] = input.Unit
	}
	if input.Soni != nil {
		if *input.Soni < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Stock cannot be negative"})
			return
		}
		set["soni"] = utils.RoundQuantity(*input.Soni)
	}
	if input.Warehouse != "" {
		set["warehouse"] = input.Warehouse
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var food models.Food
	err = config.FoodCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": foodID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&food)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Food not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to update food"})
		return
	}

	c.JSON(http.StatusOK, food)
}

func DeleteFood(c *gin.Context) {
	foodID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid food ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.FoodCollection.DeleteOne(ctx, bson.M{"_id": foodID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete food"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Food not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Food deleted"})
}

// GetLowStockFoods lists items whose stock has fallen to or below a
// threshold (default 5 units).
func GetLowStockFoods(c *gin.Context) {
	threshold := 5.0
	if t := c.Query("threshold"); t != "" {
		if parsed, err := strconv.ParseFloat(t, 64); err == nil && parsed >= 0 {
			threshold = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.FoodCollection.Find(ctx,
		bson.M{"soni": bson.M{"$lte": threshold}},
		options.Find().SetSort(bson.D{{Key: "soni", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve foods"})
		return
	}
	defer cursor.Close(ctx)

	var foods []models.Food
	if err := cursor.All(ctx, &foods); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode foods"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "threshold": threshold, "foods": foods, "total_count": len(foods)})
}
