package api

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/scoring/internal/auth"
	"github.com/dreamware/scoring/internal/metrics"
)

// Method names.
const (
	MethodOnlineScore      = "online_score"
	MethodClientsInterests = "clients_interests"
)

// CallContext collects per-call facts for the access log.
type CallContext struct {
	RequestID string
	Method    string
	Has       []string
	NClients  int
}

// Fields renders the context for structured logging.
func (c *CallContext) Fields() logrus.Fields {
	f := logrus.Fields{"request_id": c.RequestID}
	if c.Method != "" {
		f["method"] = c.Method
	}
	if c.Has != nil {
		f["has"] = c.Has
	}
	if c.NClients > 0 {
		f["nclients"] = c.NClients
	}
	return f
}

// Router validates an envelope, authenticates it and dispatches it to the
// named method. It never fails; every outcome is a payload and a Status.
type Router struct {
	auth    *auth.Authenticator
	methods map[string]Operation
	log     logrus.FieldLogger
}

// NewRouter builds the router with the online_score and clients_interests
// methods served by scorer.
func NewRouter(a *auth.Authenticator, scorer Scorer, log logrus.FieldLogger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Router{
		auth: a,
		methods: map[string]Operation{
			MethodOnlineScore:      onlineScore{scorer: scorer},
			MethodClientsInterests: clientsInterests{scorer: scorer},
		},
		log: log,
	}
}

// Dispatch handles one decoded request body. On failure the payload is the
// error message, or nil to use the status's default text.
func (r *Router) Dispatch(ctx context.Context, body map[string]any, call *CallContext) (payload any, status Status) {
	log := r.log.WithField("request_id", call.RequestID)
	defer func() {
		if p := recover(); p != nil {
			log.WithFields(call.Fields()).WithField("panic", p).Error("method panicked")
			payload, status = nil, InternalError
		}
		method := call.Method
		if method == "" {
			method = "unknown"
		}
		metrics.RecordCall(method, int(status))
	}()

	vals, err := methodRequest.Bind(body)
	if err != nil {
		log.WithError(err).Debug("invalid envelope")
		return err.Error(), InvalidRequest
	}
	env := envelopeFrom(vals)
	env.Admin = r.auth.IsAdmin(env.Login)

	if !r.auth.Check(auth.Identity{Account: env.Account, Login: env.Login, Token: env.Token}) {
		log.WithField("login", env.Login).Debug("authentication failed")
		return nil, Forbidden
	}

	op, ok := r.methods[env.Method]
	if !ok {
		return fmt.Sprintf("Method %s not found", env.Method), InvalidRequest
	}
	call.Method = env.Method

	args, err := op.Arguments().Bind(env.Arguments)
	if err != nil {
		log.WithError(err).Debug("invalid arguments")
		return err.Error(), InvalidRequest
	}

	resp, err := op.Execute(ctx, env, args, call)
	if err != nil {
		log.WithFields(call.Fields()).WithError(err).Error("method failed")
		return nil, InternalError
	}
	return resp, OK
}
