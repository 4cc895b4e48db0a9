package reports

import "fmt"

// AuthenticationError means no valid Graph session could be established.
// It is fatal and never retried.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NotFoundError means no message matched the subject pattern.
type NotFoundError struct {
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find an email that matches '%s'", e.Pattern)
}

// UnexpectedError wraps any other collaborator failure, such as a Graph
// request error or an undecodable attachment.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}
