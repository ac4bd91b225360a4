package api

import (
	"errors"

	"github.com/dreamware/scoring/internal/schema"
)

// ErrNoValidPair is returned when online_score arguments contain none of the
// pairs phone+email, first_name+last_name, gender+birthday.
var ErrNoValidPair = errors.New("Arguments must have at least one valid pair")

// methodRequest is the envelope every call arrives in.
var methodRequest = &schema.Schema{
	Name: "MethodRequest",
	Fields: []schema.Field{
		schema.Char("account"),
		schema.Char("login", schema.Required),
		schema.Char("token", schema.Required),
		schema.Arguments("arguments", schema.Required),
		schema.Char("method", schema.Required, schema.NotNull),
	},
}

var clientsInterestsRequest = &schema.Schema{
	Name: "ClientsInterestsRequest",
	Fields: []schema.Field{
		schema.ClientIDs("client_ids", schema.Required),
		schema.Date("date"),
	},
}

var onlineScoreRequest = &schema.Schema{
	Name: "OnlineScoreRequest",
	Fields: []schema.Field{
		schema.Char("first_name"),
		schema.Char("last_name"),
		schema.Email("email"),
		schema.Phone("phone"),
		schema.BirthDay("birthday"),
		schema.Gender("gender"),
	},
	Validate: func(v schema.Values) error {
		pairs := [][2]string{
			{"phone", "email"},
			{"first_name", "last_name"},
			{"gender", "birthday"},
		}
		for _, p := range pairs {
			if v.IsSet(p[0]) && v.IsSet(p[1]) {
				return nil
			}
		}
		return ErrNoValidPair
	},
}

// Envelope is a bound MethodRequest.
type Envelope struct {
	Account   string
	Login     string
	Token     string
	Method    string
	Arguments map[string]any

	// Admin is set by the router once the login is known.
	Admin bool
}

func envelopeFrom(v schema.Values) Envelope {
	deref := func(name string) string {
		if s := v.String(name); s != nil {
			return *s
		}
		return ""
	}
	return Envelope{
		Account:   deref("account"),
		Login:     deref("login"),
		Token:     deref("token"),
		Method:    deref("method"),
		Arguments: v.Map("arguments"),
	}
}
