// Package nodegraph implements the server's node tree: a hierarchy of
// synths and groups with ordered siblings and lateral "satellite"
// relations, the structure that graphgen compiles into a work queue.
package nodegraph

// Kind discriminates a Node as a leaf synth or an internal group. Per the
// "tagged variants, not a class hierarchy" design note, this is a one-bit
// discriminator the generator dispatches on, rather than a type hierarchy.
type Kind uint8

const (
	KindSynth Kind = iota
	KindGroup
)

func (k Kind) String() string {
	if k == KindSynth {
		return "synth"
	}
	return "group"
}

// GroupKind distinguishes sequential from parallel groups.
type GroupKind uint8

const (
	// Sequential children execute head-to-tail; child N+1 may start only
	// after child N finishes (subject to satellite and parallelism rules).
	Sequential GroupKind = iota
	// Parallel children have no mutual ordering and may run concurrently.
	Parallel
)

func (k GroupKind) String() string {
	if k == Parallel {
		return "parallel"
	}
	return "sequential"
}

// Placement encodes where a node is inserted relative to a reference node.
// Values match the wire encoding in the external command surface:
// (reference_id int32, placement uint8).
type Placement uint8

const (
	PlaceHead             Placement = 0
	PlaceTail             Placement = 1
	PlaceBefore           Placement = 2
	PlaceAfter            Placement = 3
	PlaceReplace          Placement = 4
	PlaceInsert           Placement = 5
	PlaceSatelliteBefore  Placement = 6
	PlaceSatelliteAfter   Placement = 7
)

func (p Placement) String() string {
	switch p {
	case PlaceHead:
		return "head"
	case PlaceTail:
		return "tail"
	case PlaceBefore:
		return "before"
	case PlaceAfter:
		return "after"
	case PlaceReplace:
		return "replace"
	case PlaceInsert:
		return "insert"
	case PlaceSatelliteBefore:
		return "satellite_before"
	case PlaceSatelliteAfter:
		return "satellite_after"
	default:
		return "unknown"
	}
}

// Position pairs a reference node id with a placement, exactly the wire
// tuple external commands supply.
type Position struct {
	Reference int32
	Placement Placement
}
