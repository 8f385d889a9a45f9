// Package control translates external mutation requests into typed
// commands and queues them for the helper thread to apply to the node
// tree between blocks, per the non-RT/RT domain split.
package control

import "github.com/novasynth/novaserver/nodegraph"

// Kind discriminates a Command's payload, mirroring the wire command set.
type Kind uint8

const (
	KindNewSynth Kind = iota
	KindNewGroup
	KindFree
	KindSet
	KindRun
	KindFreeAll
)

// Command is a closed sum type over the six mutation commands the tree
// accepts. Exactly one of the payload fields is meaningful, selected by
// Kind — a tagged variant rather than one struct per command type, so a
// single intake queue can hold any of them without boxing into interfaces.
type Command struct {
	Kind Kind

	// NewSynth / NewGroup / generic node identity.
	ID       int32
	Position nodegraph.Position

	// NewSynth
	Process nodegraph.ProcessFunc
	Params  []string // declared parameter slot names, addressable by name or position

	// NewGroup
	GroupKind nodegraph.GroupKind

	// Set
	Slot  nodegraph.Slot
	Value float64

	// Run
	Running bool

	// Result receives the outcome once the helper thread applies the
	// command, if the caller wants to observe it. May be nil for
	// fire-and-forget commands (e.g. a run-time OSC bridge that doesn't
	// wait for acknowledgement).
	Result chan<- error
}

// NewSynthCommand builds a node_new_synth command with no declared
// parameter slots; node_set against the resulting synth always fails with
// ErrInvalidSlot. Use NewSynthCommandWithParams to declare a schema.
func NewSynthCommand(id int32, process nodegraph.ProcessFunc, pos nodegraph.Position) Command {
	return Command{Kind: KindNewSynth, ID: id, Process: process, Position: pos}
}

// NewSynthCommandWithParams builds a node_new_synth command that declares
// params as the synth's addressable parameter slots (by name and by
// position) — the Go realization of the abstract command's "def" payload.
func NewSynthCommandWithParams(id int32, process nodegraph.ProcessFunc, params []string, pos nodegraph.Position) Command {
	return Command{Kind: KindNewSynth, ID: id, Process: process, Params: params, Position: pos}
}

// NewGroupCommand builds a node_new_group command.
func NewGroupCommand(id int32, kind nodegraph.GroupKind, pos nodegraph.Position) Command {
	return Command{Kind: KindNewGroup, ID: id, GroupKind: kind, Position: pos}
}

// FreeCommand builds a node_free command.
func FreeCommand(id int32) Command {
	return Command{Kind: KindFree, ID: id}
}

// SetCommand builds a node_set command.
func SetCommand(id int32, slot nodegraph.Slot, value float64) Command {
	return Command{Kind: KindSet, ID: id, Slot: slot, Value: value}
}

// RunCommand builds a node_run command.
func RunCommand(id int32, running bool) Command {
	return Command{Kind: KindRun, ID: id, Running: running}
}

// FreeAllCommand builds a group_free_all command.
func FreeAllCommand(id int32) Command {
	return Command{Kind: KindFreeAll, ID: id}
}

// Apply dispatches c against tree, returning the same sentinel errors
// Tree's own methods return. It is called only from the helper thread,
// never concurrently with queue generation or a block's drain.
func Apply(tree *nodegraph.Tree, c Command) error {
	switch c.Kind {
	case KindNewSynth:
		return tree.Add(nodegraph.NewSynth(c.ID, c.Process, c.Params...), c.Position)
	case KindNewGroup:
		return tree.Add(nodegraph.NewGroup(c.ID, c.GroupKind), c.Position)
	case KindFree:
		return tree.Remove(c.ID)
	case KindSet:
		return tree.Set(c.ID, c.Slot, c.Value)
	case KindRun:
		return tree.Run(c.ID, c.Running)
	case KindFreeAll:
		return tree.RemoveAll(c.ID)
	default:
		return nodegraph.ErrBadPlacement
	}
}
