package ingest

import "errors"

var errUnrecognizedShape = errors.New("ingest: frame did not match either known server variant")
