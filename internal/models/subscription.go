package models

import "time"

// SubscriptionPreference records that a student wants upload notifications for a scope.
type SubscriptionPreference struct {
	ID                 string    `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	Institution        string    `db:"institution" json:"institution"`
	Department         string    `db:"department" json:"department"`
	Term               int       `db:"term" json:"term"`
	WantsNotifications bool      `db:"wants_notifications" json:"wantsNotifications"`
	LastViewed         time.Time `db:"last_viewed" json:"lastViewed"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
}
