package gammon

import "fmt"

// Error is the single failure type returned by all Board operations.
//
// Protocol errors mean the caller broke the state machine contract: calling
// an operation in the wrong phase or supplying dice outside 1-6. They never
// occur under correct sequencing and indicate a caller bug.
//
// Rule errors are expected and recoverable: an illegal step, a commit that
// leaves playable dice unused, a cube action with no offer pending. The most
// recent rule error reason is also retrievable via Board.LastError.
//
// In both cases the failed operation leaves the board untouched.
type Error struct {
	Protocol bool
	Reason   string
}

func (e *Error) Error() string {
	return e.Reason
}

func protocolErrorf(format string, a ...interface{}) *Error {
	return &Error{Protocol: true, Reason: fmt.Sprintf(format, a...)}
}

// ruleError records reason as the board's last error and returns it.
func (b *Board) ruleError(reason string) *Error {
	b.lastErr = reason
	return &Error{Reason: reason}
}
