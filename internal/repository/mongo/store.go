package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/chachabrian/rideshare-backend/internal/models"
	"github.com/chachabrian/rideshare-backend/internal/repository"
)

const (
	dbTimeout = time.Second * 3

	usersCollection    = "users"
	ridesCollection    = "rides"
	requestsCollection = "bookingrequests"
	bookingsCollection = "bookings"
)

// Store implements repository.Store on a MongoDB database. With
// transactions enabled the atomic unit runs inside a session transaction,
// which needs a replica set. Without them the same conditional writes run
// directly and are compensated when a later step fails.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	log          *zap.Logger
}

var _ repository.Store = (*Store)(nil)

func NewStore(client *mongo.Client, database string, transactions bool, log *zap.Logger) *Store {
	return &Store{
		client:       client,
		db:           client.Database(database),
		transactions: transactions,
		log:          log,
	}
}

func (s *Store) users() *mongo.Collection    { return s.db.Collection(usersCollection) }
func (s *Store) rides() *mongo.Collection    { return s.db.Collection(ridesCollection) }
func (s *Store) requests() *mongo.Collection { return s.db.Collection(requestsCollection) }
func (s *Store) bookings() *mongo.Collection { return s.db.Collection(bookingsCollection) }

// EnsureIndexes creates the unique and lookup indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users(): {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.rides(): {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
		},
		s.requests(): {
			{Keys: bson.D{{Key: "rideId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "passengerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.bookings(): {
			{Keys: bson.D{{Key: "requestId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.users().InsertOne(ctx, user); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, s.users(), bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, s.users(), bson.M{"email": email}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateNotificationPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	return s.updateUser(ctx, userID, bson.M{"$set": bson.M{"notifications": prefs}})
}

func (s *Store) SetPushToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return s.updateUser(ctx, userID, bson.M{"$unset": bson.M{"pushToken": ""}})
	}
	return s.updateUser(ctx, userID, bson.M{"$set": bson.M{"pushToken": token}})
}

func (s *Store) updateUser(ctx context.Context, userID string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	result, err := s.users().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return translate(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRide(ctx context.Context, ride *models.Ride) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.rides().InsertOne(ctx, ride); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	if err := s.findOne(ctx, s.rides(), bson.M{"_id": id}, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

func (s *Store) GetRides(ctx context.Context, ids []string) (map[string]*models.Ride, error) {
	out := make(map[string]*models.Ride, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rides []*models.Ride
	if err := s.findMany(ctx, s.rides(), bson.M{"_id": bson.M{"$in": ids}}, nil, &rides); err != nil {
		return nil, err
	}
	for _, r := range rides {
		out[r.ID] = r
	}
	return out, nil
}

var byDeparture = bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}
var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

func (s *Store) ListRidesByOwner(ctx context.Context, ownerID string) ([]*models.Ride, error) {
	var rides []*models.Ride
	if err := s.findMany(ctx, s.rides(), bson.M{"userId": ownerID}, byDeparture, &rides); err != nil {
		return nil, err
	}
	return rides, nil
}

func (s *Store) SearchRides(ctx context.Context, filter repository.RideFilter) ([]*models.Ride, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if !filter.MinDate.IsZero() {
		query["date"] = bson.M{"$gte": filter.MinDate}
	}
	if filter.From != "" {
		query["from"] = literalMatch(filter.From)
	}
	if filter.To != "" {
		query["to"] = literalMatch(filter.To)
	}

	var rides []*models.Ride
	if err := s.findMany(ctx, s.rides(), query, byDeparture, &rides); err != nil {
		return nil, err
	}
	return rides, nil
}

func (s *Store) CancelRide(ctx context.Context, id string) (*models.Ride, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var ride models.Ride
	err := s.rides().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RideStatusActive},
		bson.M{"$set": bson.M{"status": models.RideStatusCancelled}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ride)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.whyRideNotUpdated(ctx, id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &ride, nil
}

func (s *Store) CreateBookingRequest(ctx context.Context, req *models.BookingRequest) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.requests().InsertOne(ctx, req); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) GetBookingRequest(ctx context.Context, id string) (*models.BookingRequest, error) {
	var req models.BookingRequest
	if err := s.findOne(ctx, s.requests(), bson.M{"_id": id}, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) ListBookingRequestsByRide(ctx context.Context, rideID string) ([]*models.BookingRequest, error) {
	var reqs []*models.BookingRequest
	if err := s.findMany(ctx, s.requests(), bson.M{"rideId": rideID}, newestFirst, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *Store) ListBookingRequestsByPassenger(ctx context.Context, passengerID string) ([]*models.BookingRequest, error) {
	var reqs []*models.BookingRequest
	if err := s.findMany(ctx, s.requests(), bson.M{"passengerId": passengerID}, newestFirst, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *Store) CountPendingByRides(ctx context.Context, rideIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(rideIDs) == 0 {
		return counts, nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"rideId": bson.M{"$in": rideIDs}, "status": models.RequestStatusPending}}},
		{{Key: "$group", Value: bson.M{"_id": "$rideId", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.requests().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		RideID string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode pending counts: %w", err)
	}
	for _, row := range rows {
		counts[row.RideID] = row.Count
	}
	return counts, nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	var bookings []*models.Booking
	if err := s.findMany(ctx, s.bookings(), bson.M{"userId": userID}, newestFirst, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *Store) GetBookingByRequest(ctx context.Context, requestID string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.findOne(ctx, s.bookings(), bson.M{"requestId": requestID}, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *Store) Atomically(ctx context.Context, fn func(tx repository.Tx) error) error {
	if !s.transactions {
		tx := &mongoTx{store: s}
		if err := fn(tx); err != nil {
			tx.compensate(ctx)
			return err
		}
		return nil
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{store: s, session: session})
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if err := coll.FindOne(ctx, filter).Decode(out); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) findMany(ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return nil
}

func (s *Store) whyRideNotUpdated(ctx context.Context, rideID string) error {
	var ride models.Ride
	if err := s.rides().FindOne(ctx, bson.M{"_id": rideID}).Decode(&ride); err != nil {
		return translate(err)
	}
	if ride.Status != models.RideStatusActive {
		return repository.ErrRideNotActive
	}
	return repository.ErrInsufficientSeats
}

// mongoTx runs the conditional writes of one atomic unit. session is nil
// when transactions are disabled, in which case every successful write
// pushes an inverse operation onto undo.
type mongoTx struct {
	store   *Store
	session mongo.Session
	undo    []func(ctx context.Context) error
}

func (tx *mongoTx) ctx(ctx context.Context) context.Context {
	if tx.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, tx.session)
}

func (tx *mongoTx) ResolveBookingRequest(ctx context.Context, id string, status models.RequestStatus, message string, at time.Time) (*models.BookingRequest, error) {
	ctx = tx.ctx(ctx)
	coll := tx.store.requests()

	var req models.BookingRequest
	err := coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.RequestStatusPending},
		bson.M{"$set": bson.M{"status": status, "driverMessage": message, "respondedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		count, cerr := coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, translate(cerr)
		}
		if count == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrAlreadyResolved
	}
	if err != nil {
		return nil, translate(err)
	}

	tx.push(func(ctx context.Context) error {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": id, "status": status},
			bson.M{
				"$set":   bson.M{"status": models.RequestStatusPending},
				"$unset": bson.M{"driverMessage": "", "respondedAt": ""},
			})
		return err
	})
	return &req, nil
}

func (tx *mongoTx) ReserveSeats(ctx context.Context, rideID string, n int) (*models.Ride, error) {
	ctx = tx.ctx(ctx)
	coll := tx.store.rides()

	// Expressions in a single $set stage see the pre-update document.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "seats", Value: bson.M{"$subtract": bson.A{"$seats", n}}},
			{Key: "status", Value: bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$seats", n}},
				models.RideStatusCompleted,
				"$status",
			}}},
		}}},
	}

	var ride models.Ride
	err := coll.FindOneAndUpdate(ctx,
		bson.M{"_id": rideID, "status": models.RideStatusActive, "seats": bson.M{"$gte": n}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ride)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, tx.store.whyRideNotUpdated(ctx, rideID)
	}
	if err != nil {
		return nil, translate(err)
	}

	tx.push(func(ctx context.Context) error {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": rideID},
			bson.M{
				"$inc": bson.M{"seats": n},
				"$set": bson.M{"status": models.RideStatusActive},
			})
		return err
	})
	return &ride, nil
}

func (tx *mongoTx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	ctx = tx.ctx(ctx)
	coll := tx.store.bookings()

	if _, err := coll.InsertOne(ctx, booking); err != nil {
		return translate(err)
	}
	tx.push(func(ctx context.Context) error {
		_, err := coll.DeleteOne(ctx, bson.M{"_id": booking.ID})
		return err
	})
	return nil
}

func (tx *mongoTx) push(op func(ctx context.Context) error) {
	if tx.session != nil {
		return
	}
	tx.undo = append(tx.undo, op)
}

func (tx *mongoTx) compensate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbTimeout)
	defer cancel()

	for i := len(tx.undo) - 1; i >= 0; i-- {
		if err := tx.undo[i](ctx); err != nil {
			tx.store.log.Error("failed to compensate booking write", zap.Error(err))
		}
	}
	tx.undo = nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	default:
		return err
	}
}

func literalMatch(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
