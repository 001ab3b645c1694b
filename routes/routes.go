package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/bekicom/sora-padval-b/controllers"
	"github.com/bekicom/sora-padval-b/middleware"
	"github.com/bekicom/sora-padval-b/models"
	"github.com/bekicom/sora-padval-b/socket"
)

// Setup registers every HTTP route. Role scoping follows the floor flow:
// waiters open and modify orders, cashiers settle them, admins and managers
// maintain the catalog.
func Setup(r *gin.Engine, hub *socket.Hub) {
	r.GET("/ws", hub.Handle)

	api := r.Group("/api")

	// auth
	api.POST("/login", controllers.Login)
	api.POST("/logout", controllers.Logout)
	api.GET("/me", middleware.AuthMiddleware(), controllers.Me)

	staff := []string{models.RoleWaiter, models.RoleCashier, models.RoleAdmin, models.RoleManager}
	admins := []string{models.RoleAdmin, models.RoleManager}
	cashierPlus := []string{models.RoleCashier, models.RoleAdmin, models.RoleManager}

	// orders
	orders := api.Group("/orders")
	{
		orders.POST("", middleware.AuthMiddleware(staff...), controllers.CreateOrder)
		orders.GET("/my-pending", middleware.AuthMiddleware(staff...), controllers.GetMyPendingOrders)
		orders.GET("/busy-tables", middleware.AuthMiddleware(staff...), controllers.GetBusyTables)
		orders.GET("/pending-payments", middleware.AuthMiddleware(cashierPlus...), controllers.GetPendingPayments)
		orders.GET("/completed", middleware.AuthMiddleware(cashierPlus...), controllers.GetCompletedOrders)
		orders.GET("/daily-summary", middleware.AuthMiddleware(cashierPlus...), controllers.GetDailySalesSummary)
		orders.GET("/table/:tableId", middleware.AuthMiddleware(staff...), controllers.GetOrdersByTable)

		orders.POST("/:orderId/items", middleware.AuthMiddleware(staff...), controllers.AddItemsToOrder)
		orders.POST("/:orderId/cancel-item", middleware.AuthMiddleware(staff...), controllers.CancelOrderItem)
		orders.PUT("/:orderId/close", middleware.AuthMiddleware(staff...), controllers.CloseOrder)
		orders.PUT("/:orderId/status", middleware.AuthMiddleware(staff...), controllers.UpdateOrderStatus)
		orders.POST("/:orderId/payment", middleware.AuthMiddleware(cashierPlus...), controllers.ProcessPayment)
		orders.POST("/:orderId/print-receipt", middleware.AuthMiddleware(cashierPlus...), controllers.PrintReceiptForKassir)
		orders.DELETE("/:orderId", middleware.AuthMiddleware(admins...), controllers.DeleteOrder)
	}

	// payments
	payments := api.Group("/payments", middleware.AuthMiddleware(cashierPlus...))
	{
		payments.GET("", controllers.GetPayments)
		payments.GET("/daily-stats", controllers.GetDailyPaymentStats)
	}

	// tables
	tables := api.Group("/tables")
	{
		tables.GET("", middleware.AuthMiddleware(staff...), controllers.GetTables)
		tables.GET("/locks", middleware.AuthMiddleware(staff...), controllers.GetTableLocks)
		tables.GET("/:id", middleware.AuthMiddleware(staff...), controllers.GetTableByID)
		tables.POST("", middleware.AuthMiddleware(admins...), controllers.CreateTable)
		tables.PUT("/:id", middleware.AuthMiddleware(admins...), controllers.UpdateTable)
		tables.DELETE("/:id", middleware.AuthMiddleware(admins...), controllers.DeleteTable)
	}

	// catalog
	foods := api.Group("/foods")
	{
		foods.GET("", middleware.AuthMiddleware(staff...), controllers.GetFoods)
		foods.GET("/low-stock", middleware.AuthMiddleware(admins...), controllers.GetLowStockFoods)
		foods.GET("/:id", middleware.AuthMiddleware(staff...), controllers.GetFoodByID)
		foods.POST("", middleware.AuthMiddleware(admins...), controllers.CreateFood)
		foods.PUT("/:id", middleware.AuthMiddleware(admins...), controllers.UpdateFood)
		foods.DELETE("/:id", middleware.AuthMiddleware(admins...), controllers.DeleteFood)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", middleware.AuthMiddleware(staff...), controllers.GetCategories)
		categories.POST("", middleware.AuthMiddleware(admins...), controllers.CreateCategory)
		categories.PUT("/:id", middleware.AuthMiddleware(admins...), controllers.UpdateCategory)
		categories.DELETE("/:id", middleware.AuthMiddleware(admins...), controllers.DeleteCategory)
	}

	departments := api.Group("/departments")
	{
		departments.GET("", middleware.AuthMiddleware(staff...), controllers.GetDepartments)
		departments.POST("", middleware.AuthMiddleware(admins...), controllers.CreateDepartment)
		departments.DELETE("/:id", middleware.AuthMiddleware(admins...), controllers.DeleteDepartment)
	}

	clients := api.Group("/clients", middleware.AuthMiddleware(cashierPlus...))
	{
		clients.GET("", controllers.GetClients)
		clients.POST("", controllers.CreateClient)
		clients.DELETE("/:id", controllers.DeleteClient)
	}

	printers := api.Group("/printers", middleware.AuthMiddleware(admins...))
	{
		printers.GET("", controllers.GetPrinters)
		printers.POST("", controllers.CreatePrinter)
		printers.DELETE("/:id", controllers.DeletePrinter)
	}

	// users
	users := api.Group("/users", middleware.AuthMiddleware(admins...))
	{
		users.GET("", controllers.GetUsers)
		users.POST("", controllers.CreateUser)
		users.PUT("/:id", controllers.UpdateUser)
		users.DELETE("/:id", controllers.DeleteUser)
	}

	// settings
	settings := api.Group("/settings")
	{
		settings.GET("", middleware.AuthMiddleware(staff...), controllers.GetSettings)
		settings.PUT("", middleware.AuthMiddleware(admins...), controllers.UpdateSettings)
	}
}
