// Package adxml reads and writes the columnar AutoDrive course XML: one
// <waypoints> block holding the id/x/y/z/out/incoming/flags columns, a
// <mapmarker> block with one numbered element per marker, and course-level
// header data passed through untouched.
//
// Connection directions are not stored explicitly in the format; they are
// inferred from the out/incoming cross references. An edge a→b is dual when
// b also lists a as outgoing, reverse when b does not list a as incoming,
// and a regular one-way road otherwise.
package adxml

import "errors"

// ErrMalformed wraps every parse failure, so callers can test the whole
// family with errors.Is.
var ErrMalformed = errors.New("malformed course xml")
