package simwarp

import (
	"sync/atomic"

	"github.com/gomlx/tensorcores/devices"
	"github.com/gomlx/tensorcores/isa"
	"github.com/gomlx/tensorcores/types/tiles"
	"github.com/pkg/errors"
)

// group is one simulated execution group. It implements devices.Group.
//
// Every Exec method first revalidates that the instruction handed in matches
// the fragment descriptors -- the hardware signature mismatch that would be
// silent corruption on a real device is a hard error here.
type group struct {
	device *Device
	num    devices.DeviceNum

	// issued counts instructions actually executed, so tests can assert that
	// rejected operations never reach the instruction stage.
	issued atomic.Int64
}

var _ devices.Group = (*group)(nil)

// Device implements devices.Group.
func (g *group) Device() devices.Device { return g.device }

// Lanes implements devices.Group.
func (g *group) Lanes() int { return WarpLanes }

// InstructionsIssued returns how many instructions the group executed.
func (g *group) InstructionsIssued() int64 { return g.issued.Load() }

// checkFragment validates the fragment belongs to a group of this size.
func (g *group) checkFragment(frag *tiles.Fragment) error {
	if frag == nil {
		return errors.Errorf("nil fragment")
	}
	if frag.Lanes() != WarpLanes {
		return errors.Errorf("fragment for %d lanes handed to a %d-lane group", frag.Lanes(), WarpLanes)
	}
	return nil
}

// ExecLoad implements devices.Group.
func (g *group) ExecLoad(instruction isa.Instruction, frag *tiles.Fragment, src any, stride int) error {
	if err := g.checkFragment(frag); err != nil {
		return errors.WithMessagef(err, "%s", instruction.Op)
	}
	expected, err := isa.SelectLoad(frag.Tile())
	if err != nil {
		return err
	}
	if expected != instruction {
		return errors.Errorf("instruction %s (layout mode %d) does not match tile %s, which loads with %s (layout mode %d)",
			instruction.Op, instruction.LayoutMode, frag.Tile(), expected.Op, expected.LayoutMode)
	}
	if err := frag.LoadLinear(src, stride); err != nil {
		return err
	}
	g.issued.Add(1)
	return nil
}

// ExecStore implements devices.Group.
func (g *group) ExecStore(instruction isa.Instruction, frag *tiles.Fragment, dst any, stride int) error {
	if err := g.checkFragment(frag); err != nil {
		return errors.WithMessagef(err, "%s", instruction.Op)
	}
	t := frag.Tile()
	if t.Use != tiles.UseAccumulator {
		return errors.Errorf("only accumulator tiles can be stored, got %s", t)
	}
	expected, err := isa.SelectStore(t.DType, t.Rows, t.Cols, t.Layout)
	if err != nil {
		return err
	}
	if expected != instruction {
		return errors.Errorf("instruction %s (layout mode %d) does not match tile %s, which stores with %s (layout mode %d)",
			instruction.Op, instruction.LayoutMode, t, expected.Op, expected.LayoutMode)
	}
	if err := frag.StoreLinear(dst, stride); err != nil {
		return err
	}
	g.issued.Add(1)
	return nil
}

// ExecFill implements devices.Group.
func (g *group) ExecFill(frag *tiles.Fragment, value float64) error {
	if err := g.checkFragment(frag); err != nil {
		return errors.WithMessagef(err, "fill")
	}
	if err := frag.Fill(value); err != nil {
		return err
	}
	g.issued.Add(1)
	return nil
}
