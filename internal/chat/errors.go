package chat

import "fmt"

type Kind uint8

const (
	// KindCompletion means the completion provider could not produce a reply.
	KindCompletion Kind = iota + 1
	// KindEmptyReply means the provider answered with blank text.
	KindEmptyReply
)

func (k Kind) String() string {
	switch k {
	case KindCompletion:
		return "completion"
	case KindEmptyReply:
		return "empty_reply"
	default:
		return "unknown"
	}
}

// Error is a failure of the chat pipeline that forces the fallback reply.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chat %s failure", e.Kind)
	}
	return fmt.Sprintf("chat %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
