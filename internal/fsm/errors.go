package fsm

import "fmt"

// Done is returned by a Def's Feed function once the value being assembled is
// complete.
var Done = fmt.Errorf("value complete")
