package config

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	Client *mongo.Client

	UserCollection       *mongo.Collection
	FoodCollection       *mongo.Collection
	CategoryCollection   *mongo.Collection
	DepartmentCollection *mongo.Collection
	TableCollection      *mongo.Collection
	OrderCollection      *mongo.Collection
	PaymentCollection    *mongo.Collection
	SettingsCollection   *mongo.Collection
	ClientCollection     *mongo.Collection
	PrinterCollection    *mongo.Collection
)

func ConnectDatabase() {
	client, err := mongo.NewClient(options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal(err)
	}

	Client = client
	db := os.Getenv("MONGO_DB")
	if db == "" {
		db = "sorarestaurant"
	}

	UserCollection = Client.Database(db).Collection("users")
	FoodCollection = Client.Database(db).Collection("foods")
	CategoryCollection = Client.Database(db).Collection("categories")
	DepartmentCollection = Client.Database(db).Collection("departments")
	TableCollection = Client.Database(db).Collection("tables")
	OrderCollection = Client.Database(db).Collection("orders")
	PaymentCollection = Client.Database(db).Collection("payments")
	SettingsCollection = Client.Database(db).Collection("settings")
	ClientCollection = Client.Database(db).Collection("clients")
	PrinterCollection = Client.Database(db).Collection("printers")

	ensureIndexes(ctx)
	log.Println("Connected to MongoDB")
}

// ensureIndexes creates the constraints the order engine relies on:
// (order_date, daily_order_number) must be unique so two orders can never
// share a daily number even if the max+1 read races, and table names are
// unique display identifiers.
func ensureIndexes(ctx context.Context) {
	_, err := OrderCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_date", Value: 1}, {Key: "daily_order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "completed_at", Value: 1}}},
		{Keys: bson.D{{Key: "payment_method", Value: 1}, {Key: "paid_at", Value: 1}}},
	})
	if err != nil {
		log.Printf("order index creation: %v", err)
	}

	_, err = TableCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("table index creation: %v", err)
	}

	_, err = PaymentCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "payment_date", Value: 1}}},
		{Keys: bson.D{{Key: "order_id", Value: 1}}},
		{Keys: bson.D{{Key: "payment_method", Value: 1}}},
	})
	if err != nil {
		log.Printf("payment index creation: %v", err)
	}
}
