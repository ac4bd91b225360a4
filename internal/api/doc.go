// Package api implements the method layer of the scoring RPC: the request
// envelope, per-method argument schemas, authentication and dispatch.
//
// # Request flow
//
//	body ──► MethodRequest schema ──► token check ──► method lookup
//	                                                      │
//	     (payload, Status) ◄── Operation.Execute ◄── argument schema
//
// Every step maps its failure onto a Status:
//
//   - an envelope or argument schema failure is InvalidRequest with the
//     aggregated field errors as the message
//   - a token mismatch is Forbidden
//   - an unknown method is InvalidRequest, "Method <name> not found"
//   - an Execute error, including an exhausted store, is InternalError
//
// # Methods
//
// online_score takes any of first_name, last_name, email, phone, birthday and
// gender, and requires at least one complete pair among phone+email,
// first_name+last_name and gender+birthday. The admin login always scores 42
// and never touches the store.
//
// clients_interests takes a non-empty client_ids list and an optional date,
// and returns the interests of each client keyed by its id.
package api
