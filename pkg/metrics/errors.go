package metrics

import "errors"

// ErrWriteFailed wraps failures to write the node_exporter textfile.
var ErrWriteFailed = errors.New("metrics textfile write failed")
