package nodegraph

import "errors"

// Command-level validation errors. These are sentinel errors returned to
// the command source; the tree is left unchanged and no rebuild is
// triggered, matching the error taxonomy's "recovery policy: reported
// back, no mutation occurred" bucket.
var (
	ErrDuplicateID  = errors.New("nodegraph: duplicate node id")
	ErrUnknownNode  = errors.New("nodegraph: unknown reference node")
	ErrBadPlacement = errors.New("nodegraph: placement not valid for reference node's kind")
	ErrInvalidSlot  = errors.New("nodegraph: invalid parameter slot")
)
