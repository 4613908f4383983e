// Package mongousers stores users in a MongoDB collection. Uniqueness of
// email and employeeId is enforced by unique indexes created with
// EnsureIndexes.
package mongousers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skfsd/go-auth"
)

const DefaultCollection = "users"

// document is the stored shape of a user
type document struct {
	ID            string           `bson:"_id"`
	Email         string           `bson:"email"`
	Name          string           `bson:"name"`
	Phone         string           `bson:"phone,omitempty"`
	EmployeeID    string           `bson:"employeeId"`
	PasswordHash  string           `bson:"password,omitempty"`
	Role          string           `bson:"role"`
	IsActive      bool             `bson:"isActive"`
	EmailVerified bool             `bson:"emailVerified"`
	LastLogin     *time.Time       `bson:"lastLogin,omitempty"`
	Preferences   auth.Preferences `bson:"preferences"`
	CreatedAt     time.Time        `bson:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt"`
}

var withoutPassword = bson.M{"password": 0}

// Connect opens a client and checks the connection
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// Users implements auth.Users on a mongo collection
type Users struct {
	collection *mongo.Collection
	now        func() time.Time
}

var _ auth.Users = (*Users)(nil)

func NewUsers(db *mongo.Database) *Users {
	return &Users{
		collection: db.Collection(DefaultCollection),
		now:        time.Now,
	}
}

// EnsureIndexes creates the unique indexes the store relies on for
// conflict detection
func (r *Users) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "employeeId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("employee_id_unique"),
		},
	})
	return err
}

func (r *Users) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	record := *user
	record.Normalize()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := r.now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, toDocument(&record)); err != nil {
		return nil, translateError(err)
	}
	return &record, nil
}

func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	var doc document
	err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}, options.FindOne().SetProjection(withoutPassword)).Decode(&doc)
	if err != nil {
		return nil, translateError(err)
	}
	return fromDocument(&doc)
}

func (r *Users) GetByEmailWithPassword(ctx context.Context, email string) (*auth.User, error) {
	var doc document
	err := r.collection.FindOne(ctx, bson.M{"email": auth.NormalizeEmail(email)}).Decode(&doc)
	if err != nil {
		return nil, translateError(err)
	}
	return fromDocument(&doc)
}

func (r *Users) List(ctx context.Context) ([]*auth.User, error) {
	cur, err := r.collection.Find(ctx, bson.M{}, options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, translateError(err)
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translateError(err)
	}

	users := make([]*auth.User, 0, len(docs))
	for i := range docs {
		u, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *Users) UpdateProfile(ctx context.Context, user *auth.User) (*auth.User, error) {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.ID.String()}, bson.M{
		"$set": bson.M{
			"name":        user.Name,
			"phone":       user.Phone,
			"preferences": user.Preferences,
			"updatedAt":   r.now().UTC(),
		},
	})
	if err != nil {
		return nil, translateError(err)
	}
	if res.MatchedCount == 0 {
		return nil, auth.ErrRecordNotFound
	}
	return r.GetByID(ctx, user.ID)
}

func (r *Users) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set": bson.M{"lastLogin": at, "updatedAt": at},
	})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrRecordNotFound
	}
	return nil
}

func (r *Users) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return translateError(err)
	}
	if res.DeletedCount == 0 {
		return auth.ErrRecordNotFound
	}
	return nil
}

func toDocument(u *auth.User) *document {
	return &document{
		ID:            u.ID.String(),
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		EmployeeID:    u.EmployeeID,
		PasswordHash:  u.PasswordHash,
		Role:          string(u.Role),
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		LastLogin:     u.LastLogin,
		Preferences:   u.Preferences,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func fromDocument(d *document) (*auth.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, auth.Wrap(err, auth.CategoryInternal, "stored user has an invalid id")
	}
	return &auth.User{
		ID:            id,
		Email:         d.Email,
		Name:          d.Name,
		Phone:         d.Phone,
		EmployeeID:    d.EmployeeID,
		PasswordHash:  d.PasswordHash,
		Role:          auth.Role(d.Role),
		IsActive:      d.IsActive,
		EmailVerified: d.EmailVerified,
		LastLogin:     d.LastLogin,
		Preferences:   d.Preferences,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func translateError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return auth.ErrRecordNotFound.WithSource(err)
	case mongo.IsDuplicateKeyError(err):
		return auth.ErrDuplicateRecord.WithSource(err)
	default:
		return err
	}
}
