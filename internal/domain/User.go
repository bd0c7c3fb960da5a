package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultAvatar = "https://play-lh.googleusercontent.com/nV5JHE9tyyqNcVqh0JLVGoV2ldpAqC8htiBpsbjqxATjXQnpNTKgU99B-euShOJPu-8"

// WorkoutData holds the planner form answers. Pointer fields distinguish
// "never submitted" from "submitted empty": allergy may legitimately be
// an empty string, but it must have been answered before a plan is built.
type WorkoutData struct {
	Goal     *string `bson:"goal,omitempty"     json:"goal,omitempty"`
	PlanType *string `bson:"planType,omitempty" json:"planType,omitempty"`
	Height   *string `bson:"height,omitempty"   json:"height,omitempty"`
	Weight   *string `bson:"weight,omitempty"   json:"weight,omitempty"`
	Allergy  *string `bson:"allergy,omitempty"  json:"allergy,omitempty"`
	Gender   *string `bson:"gender,omitempty"   json:"gender,omitempty"`
	Injuries *string `bson:"injuries,omitempty" json:"injuries,omitempty"`
}

type User struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"            json:"id"`
	Name                  string             `bson:"name"                     json:"name"`
	Email                 string             `bson:"email"                    json:"email"`
	PasswordHash          string             `bson:"password_hash,omitempty"  json:"-"` // empty for OAuth-only accounts
	Provider              string             `bson:"provider"                 json:"provider"` // "local" | "google" | "github"
	EmailVerified         bool               `bson:"email_verified"           json:"email_verified"`
	OTP                   string             `bson:"otp,omitempty"            json:"-"`
	OTPCreatedAt          *time.Time         `bson:"otp_created_at,omitempty" json:"-"`
	PasswordResetVerified bool               `bson:"password_reset_verified"  json:"-"`
	Avatar                string             `bson:"avatar"                   json:"avatar"`
	Bio                   string             `bson:"bio"                      json:"bio"`
	WorkoutData           WorkoutData        `bson:"workout_data,omitempty"   json:"workout_data"`
	WorkoutPlan           string             `bson:"workout_plan,omitempty"   json:"workout_plan"`
	CreatedAt             time.Time          `bson:"created_at"               json:"created_at"`
	UpdatedAt             time.Time          `bson:"updated_at"               json:"updated_at"`
}
