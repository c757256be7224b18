package ids

import "github.com/segmentio/ksuid"

// New returns a k-sortable unique id, used for object key segments.
func New() string {
	return ksuid.New().String()
}
