package api

import (
	"context"
	"strconv"

	"github.com/dreamware/scoring/internal/schema"
	"github.com/dreamware/scoring/internal/scoring"
)

// AdminScore is the fixed score returned to the admin login.
const AdminScore = 42

// Scorer is the business backend behind the methods.
type Scorer interface {
	Score(ctx context.Context, p scoring.Person) float64
	Interests(ctx context.Context, cid int) ([]string, error)
}

// Operation is one addressable method.
type Operation interface {
	// Arguments describes the method's argument object.
	Arguments() *schema.Schema

	// Execute runs the method on bound arguments and records call facts
	// into call.
	Execute(ctx context.Context, env Envelope, args schema.Values, call *CallContext) (any, error)
}

type onlineScore struct {
	scorer Scorer
}

func (onlineScore) Arguments() *schema.Schema { return onlineScoreRequest }

func (op onlineScore) Execute(ctx context.Context, env Envelope, args schema.Values, call *CallContext) (any, error) {
	call.Has = args.Present()

	if env.Admin {
		return map[string]any{"score": AdminScore}, nil
	}

	score := op.scorer.Score(ctx, scoring.Person{
		FirstName: args.String("first_name"),
		LastName:  args.String("last_name"),
		Email:     args.String("email"),
		Phone:     args.String("phone"),
		Birthday:  args.Time("birthday"),
		Gender:    args.Int("gender"),
	})
	return map[string]any{"score": score}, nil
}

type clientsInterests struct {
	scorer Scorer
}

func (clientsInterests) Arguments() *schema.Schema { return clientsInterestsRequest }

func (op clientsInterests) Execute(ctx context.Context, _ Envelope, args schema.Values, call *CallContext) (any, error) {
	ids := args.Ints("client_ids")
	call.NClients = len(ids)

	out := make(map[string][]string, len(ids))
	for _, cid := range ids {
		topics, err := op.scorer.Interests(ctx, cid)
		if err != nil {
			return nil, err
		}
		out[strconv.Itoa(cid)] = topics
	}
	return out, nil
}
