package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bekicom/sora-padval-b/config"
	"github.com/bekicom/sora-padval-b/models"
)

// GetActiveSettings loads the single active restaurant profile, falling back
// to defaults when none has been saved yet.
func GetActiveSettings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := config.SettingsCollection.FindOne(ctx, bson.M{"is_active": true}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}

func GetSettings(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := GetActiveSettings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// UpdateSettings upserts the active profile. There is exactly one active
// settings document at any time.
func UpdateSettings(c *gin.Context) {
	var input models.Settings
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}
	if input.ServicePercent < 0 || input.ServicePercent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Service percent must be between 0 and 100"})
		return
	}
	if input.TaxPercent < 0 || input.TaxPercent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Tax percent must be between 0 and 100"})
		return
	}

	input.IsActive = true
	input.UpdatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var settings models.Settings
	err := config.SettingsCollection.FindOneAndUpdate(ctx,
		bson.M{"is_active": true},
		bson.M{
			"$set":         input,
			"$setOnInsert": bson.M{"created_at": time.Now()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}
