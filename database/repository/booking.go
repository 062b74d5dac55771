package repository

import (
	"context"
	"fmt"

	"flai/database"
	"flai/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookingRepository defines the interface for confirmed-booking archiving.
type BookingRepository interface {
	Insert(ctx context.Context, booking models.Booking) error
	GetByReference(ctx context.Context, reference string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
}

// MongoBookingRepo implements BookingRepository on MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	db := database.MongoClient.Database("flai")
	return &MongoBookingRepo{coll: db.Collection("bookings")}
}

func (repo *MongoBookingRepo) Insert(ctx context.Context, booking models.Booking) error {
	if _, err := repo.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("insert booking %s: %w", booking.Reference, err)
	}
	return nil
}

func (repo *MongoBookingRepo) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	err := repo.coll.FindOne(ctx, bson.M{"reference": reference}).Decode(&booking)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", reference, err)
	}
	return &booking, nil
}

func (repo *MongoBookingRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := repo.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("bookings for %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("bookings for %s: %w", userID, err)
	}
	return bookings, nil
}
