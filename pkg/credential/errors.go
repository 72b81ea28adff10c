package credential

import "errors"

var errNilHandle = errors.New("connector returned no handle")
