// Command novaserver is a minimal embedding host for the package nova
// scheduler: it wires a Server, feeds it a handful of synthetic control
// commands, and drives it on a ticker standing in for an audio callback.
//
// Run with: go run ./cmd/novaserver
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/novasynth/novaserver/control"
	"github.com/novasynth/novaserver/nodegraph"
	"github.com/novasynth/novaserver/nova"
)

const (
	rootID     = 0
	framesPer  = 512
	blockDur   = framesPer * time.Second / 48000 // one 512-sample block at 48kHz
	sampleRate = 48000.0
)

// audioBlock is the concrete nodegraph.Block this host hands to every
// synth's Process call: a fixed-size output buffer the synths mix into,
// reused block after block so RunBlock never allocates on its caller's
// behalf.
type audioBlock struct {
	frames int
	rate   float64
	out    []float64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := nova.NewServer(rootID,
		nova.WithBlockDeadline(blockDur),
		nova.WithGlitchRateLimit(time.Second, 5),
	)
	s.Start()
	defer s.Stop()

	seedGraph(s)

	ticker := time.NewTicker(blockDur)
	defer ticker.Stop()

	ab := &audioBlock{frames: framesPer, rate: sampleRate, out: make([]float64, framesPer)}

	var block int64
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("shutting down after %d blocks\n", block)
			return
		case <-ticker.C:
			for i := range ab.out {
				ab.out[i] = 0
			}
			elapsed := s.RunBlock(ab)
			block++
			if block%int64(time.Second/blockDur) == 0 {
				fmt.Printf("block %d: %s, %d glitches, mix[0]=%.4f\n", block, elapsed, s.GlitchTracker().Total(), ab.out[0])
			}
		}
	}
}

// seedGraph submits a small group of oscillators that each mix into the
// host's shared output buffer, mirroring
// the kind of tree an OSC or score-file bridge would build up over many
// separate command submissions.
func seedGraph(s *nova.Server) {
	group := int32(1)
	s.Submit(control.NewGroupCommand(group, nodegraph.Sequential, nodegraph.Position{
		Reference: rootID,
		Placement: nodegraph.PlaceTail,
	}))

	freqs := []float64{220, 277.18, 329.63}
	for i, f := range freqs {
		id := int32(10 + i)
		phase := 0.0
		step := 2 * math.Pi * f / sampleRate
		s.Submit(control.NewSynthCommand(id, func(b nodegraph.Block) {
			ab, ok := b.(*audioBlock)
			if !ok {
				return
			}
			for frame := range ab.out {
				ab.out[frame] += math.Sin(phase)
				phase += step
				if phase > 2*math.Pi {
					phase -= 2 * math.Pi
				}
			}
		}, nodegraph.Position{Reference: group, Placement: nodegraph.PlaceTail}))
	}
}
