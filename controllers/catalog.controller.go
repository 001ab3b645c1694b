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
)

// Category handlers. A category carries the kitchen printer its foods are
// routed to at order time.

func CreateCategory(c *gin.Context) {
	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": err.Error()})
		return
	}
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if category.PrinterID != nil {
		var printer models.Printer
		if err := config.PrinterCollection.FindOne(ctx, bson.M{"_id": *category.PrinterID}).Decode(&printer); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Printer does not exist"})
			return
		}
		category.PrinterIP = printer.IP
	}

	res, err := config.CategoryCollection.InsertOne(ctx, category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to create category"})
		return
	}
	category.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, category)
}

func GetCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.CategoryCollection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve categories"})
		return
	}
	defer cursor.Close(ctx)

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode categories"})
		return
	}

	c.JSON(http.StatusOK, categories)
}

func UpdateCategory(c *gin.Context) {
	categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid category ID"})
		return
	}

	var body struct {
		Title     *string `json:"title"`
		PrinterID *string `json:"printer_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	set := bson.M{"updated_at": time.Now()}
	if body.Title != nil {
		set["title"] = *body.Title
	}
	if body.PrinterID != nil {
		printerID, err := primitive.ObjectIDFromHex(*body.PrinterID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid printer ID"})
			return
		}
		var printer models.Printer
		if err := config.PrinterCollection.FindOne(ctx, bson.M{"_id": printerID}).Decode(&printer); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Printer does not exist"})
			return
		}
		set["printer_id"] = printerID
		set["printer_ip"] = printer.IP
	}

	var category models.Category
	err = config.CategoryCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": categoryID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&category)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to update category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

func DeleteCategory(c *gin.Context) {
	categoryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid category ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := config.FoodCollection.CountDocuments(ctx, bson.M{"category": categoryID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to check category foods"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "INVALID_STATE",
			"message": "Category still has foods and cannot be deleted"})
		return
	}

	res, err := config.CategoryCollection.DeleteOne(ctx, bson.M{"_id": categoryID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete category"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category deleted"})
}

// Department handlers.

func CreateDepartment(c *gin.Context) {
	var department models.Department
	if err := c.ShouldBindJSON(&department); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": err.Error()})
		return
	}
	department.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.DepartmentCollection.InsertOne(ctx, department)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to create department"})
		return
	}
	department.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, department)
}

func GetDepartments(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.DepartmentCollection.Find(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve departments"})
		return
	}
	defer cursor.Close(ctx)

	var departments []models.Department
	if err := cursor.All(ctx, &departments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode departments"})
		return
	}

	c.JSON(http.StatusOK, departments)
}

func DeleteDepartment(c *gin.Context) {
	departmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid department ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.DepartmentCollection.DeleteOne(ctx, bson.M{"_id": departmentID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete department"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Department not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Department deleted"})
}

// Client handlers (loyalty/deposit customers).

func CreateClient(c *gin.Context) {
	var client models.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": err.Error()})
		return
	}
	client.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.ClientCollection.InsertOne(ctx, client)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to create client"})
		return
	}
	client.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, client)
}

func GetClients(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.ClientCollection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "first_name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve clients"})
		return
	}
	defer cursor.Close(ctx)

	var clients []models.Client
	if err := cursor.All(ctx, &clients); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode clients"})
		return
	}

	c.JSON(http.StatusOK, clients)
}

func DeleteClient(c *gin.Context) {
	clientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid client ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.ClientCollection.DeleteOne(ctx, bson.M{"_id": clientID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete client"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Client not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Client deleted"})
}

// Printer handlers.

func CreatePrinter(c *gin.Context) {
	var printer models.Printer
	if err := c.ShouldBindJSON(&printer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": err.Error()})
		return
	}
	printer.CreatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.PrinterCollection.InsertOne(ctx, printer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to create printer"})
		return
	}
	printer.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, printer)
}

func GetPrinters(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.PrinterCollection.Find(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve printers"})
		return
	}
	defer cursor.Close(ctx)

	var printers []models.Printer
	if err := cursor.All(ctx, &printers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode printers"})
		return
	}

	c.JSON(http.StatusOK, printers)
}

func DeletePrinter(c *gin.Context) {
	printerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid printer ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.PrinterCollection.DeleteOne(ctx, bson.M{"_id": printerID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete printer"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "Printer not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Printer deleted"})
}
