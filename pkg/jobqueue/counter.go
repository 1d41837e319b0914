package jobqueue

import (
	"fmt"

	"github.com/jzx17/gojobs/pkg/types"
)

// CompletionCounter tracks accepted versus completed items. It is not
// safe for concurrent use on its own; JobQueue guards it with its mutex.
type CompletionCounter struct {
	accepted int
	done     int
}

// Accept records one more accepted item
func (c *CompletionCounter) Accept() {
	c.accepted++
}

// MarkDone records one completion. Completing more items than were
// accepted is a protocol violation and leaves the counter unchanged.
func (c *CompletionCounter) MarkDone() error {
	if c.done >= c.accepted {
		return fmt.Errorf("%w: %d done of %d accepted", types.ErrProtocolViolation, c.done+1, c.accepted)
	}
	c.done++
	return nil
}

// Pending returns the number of accepted items not yet marked done
func (c *CompletionCounter) Pending() int {
	return c.accepted - c.done
}

// Settled reports whether every accepted item has been marked done
func (c *CompletionCounter) Settled() bool {
	return c.done == c.accepted
}

// Accepted returns the number of accepted items
func (c *CompletionCounter) Accepted() int {
	return c.accepted
}

// Done returns the number of completed items
func (c *CompletionCounter) Done() int {
	return c.done
}
