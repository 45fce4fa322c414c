package eventstream

import "errors"

// ErrNilProgressEvent indicates a nil progress event was provided to a publisher.
var ErrNilProgressEvent = errors.New("nil upload progress event")
