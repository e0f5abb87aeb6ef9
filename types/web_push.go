package types

import (
	"net/url"
	"strings"
	"time"

	"github.com/batimarket/batimarket/validator"
)

type WebPushSubscription struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Endpoint  string    `db:"endpoint"`
	AuthKey   string    `db:"auth_key"`
	P256dhKey string    `db:"p256dh_key"`
	CreatedAt time.Time `db:"created_at"`
}

type SubscribeWebPush struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		Auth   string `json:"auth"`
		P256dh string `json:"p256dh"`
	} `json:"keys"`

	loggedInUserID string
}

func (in *SubscribeWebPush) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in SubscribeWebPush) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *SubscribeWebPush) Validate() error {
	v := validator.New()

	in.Endpoint = strings.TrimSpace(in.Endpoint)

	v.Check(in.Endpoint != "", "Endpoint", "Endpoint is required")
	if in.Endpoint != "" {
		u, err := url.Parse(in.Endpoint)
		v.Check(err == nil && u.Scheme == "https", "Endpoint", "Endpoint must be an https URL")
	}
	v.Check(in.Keys.Auth != "", "Keys.Auth", "Auth key is required")
	v.Check(in.Keys.P256dh != "", "Keys.P256dh", "P256dh key is required")

	return v.AsError()
}

type UnsubscribeWebPush struct {
	Endpoint string `json:"endpoint"`

	loggedInUserID string
}

func (in *UnsubscribeWebPush) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in UnsubscribeWebPush) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *UnsubscribeWebPush) Validate() error {
	v := validator.New()
	in.Endpoint = strings.TrimSpace(in.Endpoint)
	v.Check(in.Endpoint != "", "Endpoint", "Endpoint is required")
	return v.AsError()
}
