package mongo

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/repository"
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const checkInCollectionName = "check_ins"

// mongoStatusRepository implements repository.StatusRepository. The
// collection holds one document per present subject, keyed by subject id,
// so document existence doubles as the "in gym" flag.
type mongoStatusRepository struct {
	collection *mongo.Collection
}

// NewMongoStatusRepository creates a new live check-in repository.
func NewMongoStatusRepository(db *mongo.Database) repository.StatusRepository {
	return &mongoStatusRepository{
		collection: db.Collection(checkInCollectionName),
	}
}

// Get retrieves the subject's current check-in.
func (r *mongoStatusRepository) Get(ctx context.Context, subjectID string) (*domain.CheckIn, error) {
	var checkIn domain.CheckIn
	err := r.collection.FindOne(ctx, bson.M{"_id": subjectID}).Decode(&checkIn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &checkIn, nil
}

// Put creates or overwrites the subject's check-in. Only the owning subject
// ever writes its own key, so the replace-with-upsert needs no guard.
func (r *mongoStatusRepository) Put(ctx context.Context, checkIn *domain.CheckIn) error {
	if checkIn.SubjectID == "" {
		return errors.New("check-in requires a subject id")
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": checkIn.SubjectID}, checkIn, opts)
	return err
}

// Delete removes the subject's check-in. A missing record is success.
func (r *mongoStatusRepository) Delete(ctx context.Context, subjectID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": subjectID})
	return err
}

// List returns all live check-ins. Documents that fail to decode are logged
// and skipped so one malformed record cannot poison the aggregate.
func (r *mongoStatusRepository) List(ctx context.Context) ([]domain.CheckIn, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	checkIns := make([]domain.CheckIn, 0)
	for cursor.Next(ctx) {
		var checkIn domain.CheckIn
		if err := cursor.Decode(&checkIn); err != nil {
			log.Printf("WARN: skipping malformed check-in document: %v", err)
			continue
		}
		checkIns = append(checkIns, checkIn)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return checkIns, nil
}

// changeEvent is the slice of a change stream document we care about.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// Watch opens a change stream over the check-in collection and pumps events
// into the returned channel. The channel closes when ctx is cancelled or the
// stream dies; callers re-subscribe if they still care.
func (r *mongoStatusRepository) Watch(ctx context.Context) (<-chan repository.StatusChange, error) {
	stream, err := r.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, err
	}

	changes := make(chan repository.StatusChange)
	go func() {
		defer close(changes)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				log.Printf("WARN: skipping undecodable change event: %v", err)
				continue
			}

			var op repository.StatusChangeOp
			switch ev.OperationType {
			case "insert", "update", "replace":
				op = repository.StatusSet
			case "delete":
				op = repository.StatusRemoved
			default:
				// invalidate, drop, rename: nothing derived views can use
				continue
			}

			select {
			case changes <- repository.StatusChange{Op: op, SubjectID: ev.DocumentKey.ID}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("ERROR: check-in change stream ended: %v", err)
		}
	}()

	return changes, nil
}
