package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/aibekov/fitplanner/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.users.insert",
		tracer.Tag("provider", u.Provider),
	)
	defer sp.Finish()

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Avatar == "" {
		u.Avatar = domain.DefaultAvatar
	}
	res, err := s.users().InsertOne(ctx, u)
	if err != nil {
		sp.SetTag("error", err)
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	sp, _ := tracer.StartSpanFromContext(ctx, "mongo.users.find_by_email")
	defer sp.Finish()

	var u domain.User
	err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &u, nil
}

// SetOTP overwrites any previously issued code together with its
// issuance timestamp. Concurrent issuers race last-writer-wins, which
// is accepted for this flow.
func (s *Store) SetOTP(ctx context.Context, email, code string, issuedAt time.Time) error {
	return s.updateByEmail(ctx, "mongo.users.set_otp", email, bson.M{
		"$set": bson.M{
			"otp":                     code,
			"otp_created_at":          issuedAt.UTC(),
			"password_reset_verified": false,
			"updated_at":              time.Now().UTC(),
		},
	})
}

// MarkEmailVerified flips the verification gate and consumes the code.
func (s *Store) MarkEmailVerified(ctx context.Context, email string) error {
	return s.updateByEmail(ctx, "mongo.users.mark_verified", email, bson.M{
		"$set":   bson.M{"email_verified": true, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"otp": "", "otp_created_at": ""},
	})
}

// MarkResetVerified opens the reset window and consumes the code.
func (s *Store) MarkResetVerified(ctx context.Context, email string) error {
	return s.updateByEmail(ctx, "mongo.users.mark_reset_verified", email, bson.M{
		"$set":   bson.M{"password_reset_verified": true, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"otp": "", "otp_created_at": ""},
	})
}

// UpdatePassword stores the new hash and closes the reset window.
func (s *Store) UpdatePassword(ctx context.Context, email, hash string) error {
	return s.updateByEmail(ctx, "mongo.users.update_password", email, bson.M{
		"$set": bson.M{
			"password_hash":           hash,
			"password_reset_verified": false,
			"updated_at":              time.Now().UTC(),
		},
		"$unset": bson.M{"otp": "", "otp_created_at": ""},
	})
}

func (s *Store) SetWorkoutData(ctx context.Context, email string, wd domain.WorkoutData) error {
	return s.updateByEmail(ctx, "mongo.users.set_workout_data", email, bson.M{
		"$set": bson.M{"workout_data": wd, "updated_at": time.Now().UTC()},
	})
}

func (s *Store) SetWorkoutPlan(ctx context.Context, email, plan string) error {
	return s.updateByEmail(ctx, "mongo.users.set_workout_plan", email, bson.M{
		"$set": bson.M{"workout_plan": plan, "updated_at": time.Now().UTC()},
	})
}

func (s *Store) SetAvatar(ctx context.Context, email, url string) error {
	return s.updateByEmail(ctx, "mongo.users.set_avatar", email, bson.M{
		"$set": bson.M{"avatar": url, "updated_at": time.Now().UTC()},
	})
}

func (s *Store) updateByEmail(ctx context.Context, span, email string, update bson.M) error {
	sp, _ := tracer.StartSpanFromContext(ctx, span)
	defer sp.Finish()

	res, err := s.users().UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		sp.SetTag("error", err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
