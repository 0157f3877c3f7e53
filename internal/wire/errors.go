package wire

import "fmt"

// CapacityError is logged when a listener turns away a connection because
// it already serves its configured maximum.
type CapacityError struct {
	Listener string
	Limit    int
	Remote   string
}

func (c CapacityError) Error() string {
	return fmt.Sprintf("%s: refusing %s, connection limit of %d reached", c.Listener, c.Remote, c.Limit)
}
