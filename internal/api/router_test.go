package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/scoring/internal/auth"
	"github.com/dreamware/scoring/internal/scoring"
	"github.com/dreamware/scoring/internal/storage"
)

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)

func newAuth() *auth.Authenticator {
	a := auth.New(auth.DefaultSalt, auth.DefaultAdminLogin, auth.DefaultAdminSalt)
	a.Now = func() time.Time { return fixedNow }
	return a
}

// decode parses a JSON object the way the transport does.
func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	var out map[string]any
	require.NoError(t, dec.Decode(&out))
	return out
}

// request builds a signed envelope around arguments.
func request(t *testing.T, a *auth.Authenticator, account, login, method, arguments string) map[string]any {
	t.Helper()
	return decode(t, fmt.Sprintf(`{"account":%q,"login":%q,"method":%q,"token":%q,"arguments":%s}`,
		account, login, method, a.Token(account, login), arguments))
}

// stubScorer records calls and returns canned results.
type stubScorer struct {
	calls     int
	err       error
	panicWith any
}

func (s *stubScorer) Score(context.Context, scoring.Person) float64 {
	s.calls++
	return 1
}

func (s *stubScorer) Interests(context.Context, int) ([]string, error) {
	s.calls++
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return []string{"x", "y"}, s.err
}

func newRouter(t *testing.T, scorer Scorer) (*Router, *auth.Authenticator) {
	t.Helper()
	log, _ := test.NewNullLogger()
	a := newAuth()
	if scorer == nil {
		svc := scoring.NewService(storage.NewClient(storage.NewMemoryBackend(nil), storage.Options{Logger: log}), log)
		scorer = svc
	}
	return NewRouter(a, scorer, log), a
}

func TestDispatchEnvelopeErrors(t *testing.T) {
	r, a := newRouter(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		body    map[string]any
		payload any
		status  Status
	}{
		{
			name:    "empty body",
			body:    map[string]any{},
			payload: "Empty MethodRequest.",
			status:  InvalidRequest,
		},
		{
			name: "missing fields aggregated",
			body: decode(t, `{"account":"horns&hoofs"}`),
			payload: "Field login: required not set, Field token: required not set, " +
				"Field arguments: required not set, Field method: required not set",
			status: InvalidRequest,
		},
		{
			name:    "empty method",
			body:    decode(t, `{"login":"h&f","token":"","arguments":{},"method":""}`),
			payload: "Field method: empty require",
			status:  InvalidRequest,
		},
		{
			name:    "bad token",
			body:    decode(t, `{"account":"horns&hoofs","login":"h&f","method":"online_score","token":"sdd","arguments":{}}`),
			payload: nil,
			status:  Forbidden,
		},
		{
			name:    "unknown method",
			body:    request(t, a, "horns&hoofs", "h&f", "delete_everything", `{}`),
			payload: "Method delete_everything not found",
			status:  InvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, status := r.Dispatch(ctx, tt.body, &CallContext{RequestID: "t"})
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.payload, payload)
		})
	}
}

func TestDispatchOnlineScoreInvalid(t *testing.T) {
	r, a := newRouter(t, nil)
	ctx := context.Background()

	tests := []struct {
		args string
		want string
	}{
		{`{}`, "Empty OnlineScoreRequest."},
		{`{"first_name":"a"}`, "Arguments must have at least one valid pair"},
		{`{"phone":"79175002040"}`, "Arguments must have at least one valid pair"},
		{`{"phone":"89175002040","email":"a@b"}`, "Field phone: must be 11 characters long and start with 7"},
		{`{"phone":"79175002040","email":"ab"}`, "Field email: must be a valid email address"},
		{`{"gender":3,"birthday":"01.01.2000"}`, "Field gender: must be an integer, one of 0, 1, 2"},
		{`{"gender":1,"birthday":"01.01.1890"}`, "Field birthday: age must not exceed 70 years"},
		{`{"first_name":1,"last_name":2}`, "Field first_name: must be a string, Field last_name: must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			payload, status := r.Dispatch(ctx, request(t, a, "horns&hoofs", "h&f", MethodOnlineScore, tt.args), &CallContext{})
			assert.Equal(t, InvalidRequest, status)
			assert.Equal(t, tt.want, payload)
		})
	}
}

func TestDispatchOnlineScore(t *testing.T) {
	r, a := newRouter(t, nil)
	ctx := context.Background()

	tests := []struct {
		args  string
		score float64
		has   []string
	}{
		{`{"phone":"79175002040","email":"stupnikov@otus.ru"}`, 3.0, []string{"email", "phone"}},
		{`{"phone":79175002040,"email":"stupnikov@otus.ru"}`, 3.0, []string{"email", "phone"}},
		{`{"gender":0,"birthday":"01.01.2000"}`, 0.0, []string{"birthday", "gender"}},
		{`{"gender":2,"birthday":"01.01.2000"}`, 1.5, []string{"birthday", "gender"}},
		{`{"first_name":"","last_name":"b"}`, 0.0, []string{"first_name", "last_name"}},
		{`{"first_name":"","last_name":"b","phone":"79175002040","email":"a@b"}`, 3.0,
			[]string{"first_name", "last_name", "email", "phone"}},
		{`{"first_name":"a","last_name":"b","gender":null}`, 0.5, []string{"first_name", "last_name"}},
		{`{"phone":"79175002040","email":"stupnikov@otus.ru","gender":1,"birthday":"01.01.2000",` +
			`"first_name":"a","last_name":"b"}`, 5.0,
			[]string{"first_name", "last_name", "email", "phone", "birthday", "gender"}},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			call := &CallContext{}
			payload, status := r.Dispatch(ctx, request(t, a, "horns&hoofs", "h&f", MethodOnlineScore, tt.args), call)
			require.Equal(t, OK, status, "payload: %v", payload)
			assert.Equal(t, map[string]any{"score": tt.score}, payload)
			assert.Equal(t, tt.has, call.Has)
			assert.Equal(t, MethodOnlineScore, call.Method)
		})
	}
}

func TestDispatchOnlineScoreSharedCache(t *testing.T) {
	r, a := newRouter(t, nil)
	ctx := context.Background()

	// Each pair differs in one scored field and runs against the same store.
	pairs := []struct {
		name          string
		first, second string
		want1, want2  float64
	}{
		{"email",
			`{"first_name":"a","last_name":"b","phone":"79175002040"}`,
			`{"first_name":"a","last_name":"b","phone":"79175002040","email":"a@b"}`,
			2.0, 3.5},
		{"gender",
			`{"phone":"79175002040","email":"a@b","birthday":"01.01.2000"}`,
			`{"phone":"79175002040","email":"a@b","birthday":"01.01.2000","gender":1}`,
			3.0, 4.5},
	}
	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			payload, status := r.Dispatch(ctx, request(t, a, "horns&hoofs", "h&f", MethodOnlineScore, tt.first), &CallContext{})
			require.Equal(t, OK, status, "payload: %v", payload)
			assert.Equal(t, map[string]any{"score": tt.want1}, payload)

			payload, status = r.Dispatch(ctx, request(t, a, "horns&hoofs", "h&f", MethodOnlineScore, tt.second), &CallContext{})
			require.Equal(t, OK, status, "payload: %v", payload)
			assert.Equal(t, map[string]any{"score": tt.want2}, payload)
		})
	}
}

func TestDispatchAdminScoreSkipsStore(t *testing.T) {
	scorer := &stubScorer{err: storage.ErrExhausted}
	r, a := newRouter(t, scorer)

	call := &CallContext{}
	payload, status := r.Dispatch(context.Background(),
		request(t, a, "", "admin", MethodOnlineScore, `{"phone":"79175002040","email":"a@b"}`), call)

	require.Equal(t, OK, status)
	assert.Equal(t, map[string]any{"score": AdminScore}, payload)
	assert.Zero(t, scorer.calls)
	assert.Equal(t, []string{"email", "phone"}, call.Has)
}

func TestDispatchAdminTokenExpires(t *testing.T) {
	r, a := newRouter(t, nil)
	body := request(t, a, "", "admin", MethodOnlineScore, `{"phone":"79175002040","email":"a@b"}`)

	a.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	_, status := r.Dispatch(context.Background(), body, &CallContext{})
	assert.Equal(t, Forbidden, status)
}

func TestDispatchClientsInterests(t *testing.T) {
	r, a := newRouter(t, nil)
	ctx := context.Background()

	call := &CallContext{}
	payload, status := r.Dispatch(ctx,
		request(t, a, "horns&hoofs", "h&f", MethodClientsInterests, `{"client_ids":[1,2,3],"date":"19.07.2017"}`), call)
	require.Equal(t, OK, status, "payload: %v", payload)

	got, ok := payload.(map[string][]string)
	require.True(t, ok)
	assert.Len(t, got, 3)
	for _, cid := range []int{1, 2, 3} {
		assert.Equal(t, scoring.FallbackInterests(cid), got[fmt.Sprint(cid)])
	}
	assert.Equal(t, 3, call.NClients)
}

func TestDispatchClientsInterestsInvalid(t *testing.T) {
	r, a := newRouter(t, nil)
	ctx := context.Background()

	tests := []struct {
		args string
		want string
	}{
		{`{}`, "Empty ClientsInterestsRequest."},
		{`{"date":"20.07.2017"}`, "Field client_ids: required not set"},
		{`{"client_ids":[],"date":"20.07.2017"}`, "Field client_ids: must be a non-empty list of non-negative integers"},
		{`{"client_ids":{"1":2}}`, "Field client_ids: must be a non-empty list of non-negative integers"},
		{`{"client_ids":["1","2"]}`, "Field client_ids: must be a non-empty list of non-negative integers"},
		{`{"client_ids":[1,2],"date":"XXX"}`, `Field date: must be a string in format "DD.MM.YYYY"`},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			payload, status := r.Dispatch(ctx, request(t, a, "horns&hoofs", "h&f", MethodClientsInterests, tt.args), &CallContext{})
			assert.Equal(t, InvalidRequest, status)
			assert.Equal(t, tt.want, payload)
		})
	}
}

func TestDispatchStoreFailureIsInternal(t *testing.T) {
	scorer := &stubScorer{err: fmt.Errorf("get i:1: %w", storage.ErrExhausted)}
	r, a := newRouter(t, scorer)

	call := &CallContext{}
	payload, status := r.Dispatch(context.Background(),
		request(t, a, "horns&hoofs", "h&f", MethodClientsInterests, `{"client_ids":[1]}`), call)
	assert.Equal(t, InternalError, status)
	assert.Nil(t, payload)
	assert.Equal(t, 1, call.NClients)
}

func TestDispatchRecoversPanics(t *testing.T) {
	scorer := &stubScorer{panicWith: "boom"}
	r, a := newRouter(t, scorer)

	payload, status := r.Dispatch(context.Background(),
		request(t, a, "horns&hoofs", "h&f", MethodClientsInterests, `{"client_ids":[1]}`), &CallContext{})
	assert.Equal(t, InternalError, status)
	assert.Nil(t, payload)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Forbidden", Forbidden.Text())
	assert.Equal(t, "Invalid Request", InvalidRequest.Text())
	assert.Equal(t, "", OK.Text())
	assert.Equal(t, "Unknown Error", Status(418).Text())
	assert.True(t, NotFound.IsError())
	assert.False(t, OK.IsError())
}

func TestCallContextFields(t *testing.T) {
	c := &CallContext{RequestID: "abc"}
	assert.Equal(t, "abc", c.Fields()["request_id"])
	assert.NotContains(t, c.Fields(), "has")

	c.Has = []string{"phone"}
	c.NClients = 2
	assert.Equal(t, []string{"phone"}, c.Fields()["has"])
	assert.Equal(t, 2, c.Fields()["nclients"])
}
