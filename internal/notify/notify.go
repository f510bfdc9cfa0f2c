// Package notify defines the outbound notification gateway used by the
// alerting and reporting engines.
package notify

import "context"

// Message is one rendered email ready to send.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Result is the outcome of a send attempt. Err is set only when Success
// is false.
type Result struct {
	Success bool
	Err     error
}

// Gateway sends notifications. Failures come back inside the Result so
// callers can record the attempt either way.
type Gateway interface {
	Send(ctx context.Context, msg Message) Result
}

func Ok() Result {
	return Result{Success: true}
}

func Failed(err error) Result {
	return Result{Success: false, Err: err}
}
