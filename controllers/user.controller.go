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
	"golang.org/x/crypto/bcrypt"

	"github.com/bekicom/sora-padval-b/config"
	"github.com/bekicom/sora-padval-b/models"
	"github.com/bekicom/sora-padval-b/utils"
)

func validRole(role string) bool {
	switch role {
	case models.RoleWaiter, models.RoleCashier, models.RoleAdmin, models.RoleManager:
		return true
	}
	return false
}

type createUserInput struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name"`
	Role      string  `json:"role" binding:"required"`
	Password  string  `json:"password" binding:"required"`
	UserCode  string  `json:"user_code"`
	CardCode  string  `json:"card_code"`
	Percent   float64 `json:"percent"`
}

func CreateUser(c *gin.Context) {
	var input createUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": err.Error()})
		return
	}
	if !validRole(input.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid role"})
		return
	}
	if input.Percent < 0 || input.Percent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Percent must be between 0 and 100"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to hash password"})
		return
	}

	user := models.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      input.Role,
		Password:  string(hashed),
		IsActive:  true,
		UserCode:  input.UserCode,
		CardCode:  input.CardCode,
		Percent:   input.Percent,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.UserCollection.InsertOne(ctx, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to create user"})
		return
	}
	user.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, user)
}

func GetUsers(c *gin.Context) {
	query := bson.M{}
	if role := c.Query("role"); role != "" {
		query["role"] = role
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.UserCollection.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "first_name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to retrieve users"})
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to decode users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

func UpdateUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid user ID"})
		return
	}

	var body struct {
		FirstName *string  `json:"first_name"`
		LastName  *string  `json:"last_name"`
		Role      *string  `json:"role"`
		Password  *string  `json:"password"`
		IsActive  *bool    `json:"is_active"`
		Percent   *float64 `json:"percent"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid request body"})
		return
	}

	set := bson.M{"updated_at": time.Now()}
	if body.FirstName != nil {
		set["first_name"] = *body.FirstName
	}
	if body.LastName != nil {
		set["last_name"] = *body.LastName
	}
	if body.Role != nil {
		if !validRole(*body.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid role"})
			return
		}
		set["role"] = *body.Role
	}
	if body.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to hash password"})
			return
		}
		set["password"] = string(hashed)
	}
	if body.IsActive != nil {
		set["is_active"] = *body.IsActive
	}
	if body.Percent != nil {
		if *body.Percent < 0 || *body.Percent > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Percent must be between 0 and 100"})
			return
		}
		set["percent"] = *body.Percent
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = config.UserCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func DeleteUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Invalid user ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := config.UserCollection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to delete user"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted"})
}

type loginInput struct {
	FirstName string `json:"first_name"`
	UserCode  string `json:"user_code"`
	Password  string `json:"password" binding:"required"`
}

// Login authenticates by first name or short user code and issues the JWT
// both as a cookie and in the body.
func Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "Password is required"})
		return
	}

	query := bson.M{}
	switch {
	case input.UserCode != "":
		query["user_code"] = input.UserCode
	case input.FirstName != "":
		query["first_name"] = input.FirstName
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "VALIDATION", "message": "First name or user code is required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := config.UserCollection.FindOne(ctx, query).Decode(&user); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "Invalid credentials"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "User is deactivated"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Role, user.FirstName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "INTERNAL", "message": "Failed to issue token"})
		return
	}

	c.SetCookie("token", token, int((24 * time.Hour).Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":         user.ID,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
			"percent":    user.Percent,
		},
	})
}

func Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// Me returns the authenticated user's profile.
func Me(c *gin.Context) {
	actorID, _, _ := actorFromContext(c)
	if actorID.IsZero() {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "NOT_AUTHORIZED", "message": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := config.UserCollection.FindOne(ctx, bson.M{"_id": actorID}).Decode(&user); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "NOT_FOUND", "message": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
