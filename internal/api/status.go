package api

// Status is the outcome category of a call. Its value doubles as the HTTP
// status code and the envelope's "code".
type Status int

const (
	OK             Status = 200
	BadRequest     Status = 400
	Forbidden      Status = 403
	NotFound       Status = 404
	InvalidRequest Status = 422
	InternalError  Status = 500
)

var statusText = map[Status]string{
	BadRequest:     "Bad Request",
	Forbidden:      "Forbidden",
	NotFound:       "Not Found",
	InvalidRequest: "Invalid Request",
	InternalError:  "Internal Server Error",
}

// IsError reports whether s is a failure category.
func (s Status) IsError() bool {
	_, ok := statusText[s]
	return ok
}

// Text is the default error message for s; empty for OK.
func (s Status) Text() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	if s == OK {
		return ""
	}
	return "Unknown Error"
}
