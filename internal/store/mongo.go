package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/charlesng35/authflow/internal/models"
)

// AccountsCollection is the MongoDB collection holding accounts.
const AccountsCollection = "accounts"

// MongoStore implements CredentialStore on top of a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore binds the store to the accounts collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(AccountsCollection)}
}

// Migrate creates the indexes backing email uniqueness and secret lookups.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: colVerificationCode, Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_verification_code"),
		},
		{
			Keys: bson.D{{Key: colResetToken, Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{colResetToken: bson.M{"$type": "string"}}).
				SetName("uniq_reset_token"),
		},
	})
	if err != nil {
		return fmt.Errorf("store: create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindByVerificationCode(ctx context.Context, code string, now time.Time) (*models.Account, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, secretFilter(colVerificationCode, colVerificationExpires, code, now))
}

func (s *MongoStore) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, secretFilter(colResetToken, colResetExpires, token, now))
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var account models.Account
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if err := s.coll.FindOne(ctx, filter, opts).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: find account: %w", err)
	}
	return &account, nil
}

// Insert persists a new account, generating its ID and timestamps.
func (s *MongoStore) Insert(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("store: nil account")
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.Email = NormalizeEmail(account.Email)
	normaliseTimes(account)

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, account); err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: insert account: %w", err)
	}
	return nil
}

// Update applies patch with an optional compare-and-set guard.
func (s *MongoStore) Update(ctx context.Context, id string, patch Patch, guard *Guard) error {
	if err := patch.validate(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	filter := bson.M{"_id": id}
	if guard != nil {
		code, expires, err := guardColumns(guard.Kind)
		if err != nil {
			return err
		}
		for key, value := range secretFilter(code, expires, guard.Value, guard.Now) {
			filter[key] = value
		}
	}

	result, err := s.coll.UpdateOne(ctx, filter, patchDocument(patch))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: update account: %w", err)
	}
	if result.MatchedCount == 0 {
		if guard != nil {
			return ErrStaleSecret
		}
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ClearExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	return s.clearExpired(ctx, colVerificationCode, colVerificationExpires, now)
}

func (s *MongoStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.clearExpired(ctx, colResetToken, colResetExpires, now)
}

func (s *MongoStore) clearExpired(ctx context.Context, secretField, expiresField string, now time.Time) (int64, error) {
	result, err := s.coll.UpdateMany(ctx,
		bson.M{expiresField: bson.M{"$lte": now.UTC()}},
		bson.M{"$unset": bson.M{secretField: "", expiresField: ""}},
	)
	if err != nil {
		return 0, fmt.Errorf("store: clear expired %s: %w", secretField, err)
	}
	return result.ModifiedCount, nil
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func secretFilter(secretField, expiresField, value string, now time.Time) bson.M {
	return bson.M{
		secretField:  value,
		expiresField: bson.M{"$gt": now.UTC()},
	}
}

func patchDocument(p Patch) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	for key, value := range patchColumns(p) {
		if value == nil {
			unset[key] = ""
			continue
		}
		set[key] = value
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc
}

var (
	_ CredentialStore = (*MongoStore)(nil)
	_ SecretSweeper   = (*MongoStore)(nil)
	_ Migrator        = (*MongoStore)(nil)
)
