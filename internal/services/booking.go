package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
	"github.com/markjakearzadon/homigo-gobackend/internal/models"
)

// BookingService is the booking ledger. Every write is a single-document
// atomic operation; status checks live in the filter, not in Go code, so two
// concurrent requests cannot both move the same booking.
type BookingService struct {
	collection *mongo.Collection
	logger     *logrus.Logger
	now        func() time.Time
}

func NewBookingService(db *mongo.Database, logger *logrus.Logger) *BookingService {
	return &BookingService{
		collection: db.Collection("bookings"),
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureIndexes creates the indexes the per-user queries rely on.
func (s *BookingService) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "payment_link_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		s.logger.WithError(err).Error("Failed to create booking indexes")
		return storageError("create booking indexes", err)
	}
	return nil
}

// Create stores a new booking in PENDING_PAYMENT.
func (s *BookingService) Create(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := s.timestamp()
	booking := &models.Booking{
		ID:          primitive.NewObjectID(),
		UserID:      draft.UserID,
		Destination: draft.Destination,
		Address:     draft.Address,
		CheckIn:     draft.CheckIn.UTC(),
		CheckOut:    draft.CheckOut.UTC(),
		Nights:      models.Nights(draft.CheckIn, draft.CheckOut),
		Guests:      draft.Guests,
		Amount:      draft.Amount,
		Currency:    draft.Currency,
		Status:      models.StatusPendingPayment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.collection.InsertOne(ctx, booking); err != nil {
		s.logger.WithError(err).WithField("user_id", draft.UserID).Error("Failed to insert booking")
		return nil, storageError("insert booking", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID.Hex(),
		"user_id":    booking.UserID,
		"amount":     int64(booking.Amount),
	}).Info("Booking created")
	return booking, nil
}

// Get returns a booking owned by userID. Another user's booking is reported
// as not found.
func (s *BookingService) Get(ctx context.Context, userID, bookingID string) (*models.Booking, error) {
	objID, err := primitive.ObjectIDFromHex(bookingID)
	if err != nil {
		return nil, apperr.Validation("booking_id", "is not a valid id")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	err = s.collection.FindOne(ctx, bson.M{"_id": objID, "user_id": userID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("booking")
		}
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to fetch booking")
		return nil, storageError("fetch booking", err)
	}
	return &booking, nil
}

// ListForUser returns the user's bookings, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to query bookings")
		return nil, storageError("list bookings", err)
	}
	defer cur.Close(ctx)

	bookings := []models.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Failed to decode bookings")
		return nil, storageError("decode bookings", err)
	}
	return bookings, nil
}

// Transition moves a booking to status `to` if the edge is allowed.
func (s *BookingService) Transition(ctx context.Context, userID, bookingID string, to models.BookingStatus) (*models.Booking, error) {
	if !to.Valid() {
		return nil, apperr.Validation("status", "unknown booking status")
	}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": s.timestamp()}}
	booking, err := s.updateWhere(ctx, userID, bookingID, models.SourcesFor(to), update, to)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"status":     to,
	}).Info("Booking status changed")
	return booking, nil
}

// RecordPaymentLink stores the checkout link issued for a pending booking.
func (s *BookingService) RecordPaymentLink(ctx context.Context, userID, bookingID string, link models.LinkOutcome) (*models.Booking, error) {
	update := bson.M{
		"$set": bson.M{
			"checkout_url":    link.URL,
			"payment_link_id": link.LinkID,
			"updated_at":      s.timestamp(),
		},
		"$unset": bson.M{"last_payment_error": ""},
		"$inc":   bson.M{"payment_attempts": 1},
	}
	return s.updateWhere(ctx, userID, bookingID, []models.BookingStatus{models.StatusPendingPayment}, update, models.StatusPendingPayment)
}

// RecordPaymentFailure notes a failed link request. The booking stays pending.
func (s *BookingService) RecordPaymentFailure(ctx context.Context, userID, bookingID, detail string) (*models.Booking, error) {
	update := bson.M{
		"$set": bson.M{
			"last_payment_error": detail,
			"updated_at":         s.timestamp(),
		},
		"$inc": bson.M{"payment_attempts": 1},
	}
	return s.updateWhere(ctx, userID, bookingID, []models.BookingStatus{models.StatusPendingPayment}, update, models.StatusPendingPayment)
}

// updateWhere applies update only while the booking is in one of `from`.
// When nothing matched it reads the booking back to tell a missing booking
// from one in the wrong status.
func (s *BookingService) updateWhere(ctx context.Context, userID, bookingID string, from []models.BookingStatus, update bson.M, target models.BookingStatus) (*models.Booking, error) {
	objID, err := primitive.ObjectIDFromHex(bookingID)
	if err != nil {
		return nil, apperr.Validation("booking_id", "is not a valid id")
	}
	if from == nil {
		from = []models.BookingStatus{}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"_id":     objID,
		"user_id": userID,
		"status":  bson.M{"$in": from},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking models.Booking
	err = s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err == nil {
		return &booking, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to update booking")
		return nil, storageError("update booking", err)
	}

	current, getErr := s.Get(ctx, userID, bookingID)
	if getErr != nil {
		return nil, getErr
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"from":       current.Status,
		"to":         target,
	}).Warn("Rejected booking status change")
	return nil, apperr.InvalidTransition(string(current.Status), string(target))
}

// timestamp is the current time at the precision Mongo stores, so a returned
// document matches a later read of it.
func (s *BookingService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func storageError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Internal(op, err)
	}
	return apperr.StorageUnavailable(op, err)
}
