package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
)

// JointKind identifies the constraint constructor used.
type JointKind int

const (
	PinJoint JointKind = iota + 1
	SlideJoint
	PivotJoint
	GrooveJoint
	DampedSpring
	RotaryLimitJoint
	SimpleMotor
	GearJoint
)

var jointNames = map[JointKind]string{
	PinJoint:         "pin",
	SlideJoint:       "slide",
	PivotJoint:       "pivot",
	GrooveJoint:      "groove",
	DampedSpring:     "damped spring",
	RotaryLimitJoint: "rotary limit",
	SimpleMotor:      "simple motor",
	GearJoint:        "gear",
}

func (k JointKind) String() string {
	if name, ok := jointNames[k]; ok {
		return name
	}
	return fmt.Sprintf("JointKind(%d)", int(k))
}

// Constraint owns one engine constraint handle and shares both bodies.
type Constraint struct {
	entity
	handle *cp.Constraint
	kind   JointKind
	a, b   *Body
}

func newConstraint(kind JointKind, a, b *Body, build func(a, b *cp.Body) *cp.Constraint) *Constraint {
	if a == nil || b == nil {
		panic("physics: new " + kind.String() + " joint: nil body")
	}
	if a.handle == nil || b.handle == nil {
		panic("physics: new " + kind.String() + " joint: body freed")
	}
	return &Constraint{
		entity: entity{owned: true},
		handle: build(a.handle, b.handle),
		kind:   kind,
		a:      a,
		b:      b,
	}
}

// NewPinJoint keeps the anchor points at a fixed distance.
func NewPinJoint(a, b *Body, anchorA, anchorB Vector) *Constraint {
	return newConstraint(PinJoint, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewPinJoint(ha, hb, anchorA, anchorB)
	})
}

// NewSlideJoint keeps the anchor distance between min and max.
func NewSlideJoint(a, b *Body, anchorA, anchorB Vector, min, max float64) *Constraint {
	return newConstraint(SlideJoint, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewSlideJoint(ha, hb, anchorA, anchorB, min, max)
	})
}

// NewPivotJoint pins both bodies together at a world-space pivot.
func NewPivotJoint(a, b *Body, pivot Vector) *Constraint {
	return newConstraint(PivotJoint, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewPivotJoint(ha, hb, pivot)
	})
}

// NewGrooveJoint slides b's anchor along a groove fixed to a.
func NewGrooveJoint(a, b *Body, grooveA, grooveB, anchorB Vector) *Constraint {
	return newConstraint(GrooveJoint, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewGrooveJoint(ha, hb, grooveA, grooveB, anchorB)
	})
}

// NewDampedSpring connects the anchors with a spring.
func NewDampedSpring(a, b *Body, anchorA, anchorB Vector, restLength, stiffness, damping float64) *Constraint {
	return newConstraint(DampedSpring, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewDampedSpring(ha, hb, anchorA, anchorB, restLength, stiffness, damping)
	})
}

// NewRotaryLimitJoint keeps the relative angle between min and max.
func NewRotaryLimitJoint(a, b *Body, min, max float64) *Constraint {
	return newConstraint(RotaryLimitJoint, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewRotaryLimitJoint(ha, hb, min, max)
	})
}

// NewSimpleMotor drives the relative angular velocity towards rate.
func NewSimpleMotor(a, b *Body, rate float64) *Constraint {
	return newConstraint(SimpleMotor, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewSimpleMotor(ha, hb, rate)
	})
}

// NewGearJoint keeps the angular velocity ratio of the bodies constant.
func NewGearJoint(a, b *Body, phase, ratio float64) *Constraint {
	return newConstraint(GearJoint, a, b, func(ha, hb *cp.Body) *cp.Constraint {
		return cp.NewGearJoint(ha, hb, phase, ratio)
	})
}

func (c *Constraint) String() string {
	if c == nil {
		return "constraint(nil)"
	}
	if c.handle == nil {
		return fmt.Sprintf("%s joint %p (freed)", c.kind, c)
	}
	return fmt.Sprintf("%s joint %p", c.kind, c)
}

// Kind reports the joint type.
func (c *Constraint) Kind() JointKind {
	if c == nil {
		return 0
	}
	return c.kind
}

// BodyA returns the first constrained body.
func (c *Constraint) BodyA() *Body {
	if c == nil {
		return nil
	}
	return c.a
}

// BodyB returns the second constrained body.
func (c *Constraint) BodyB() *Body {
	if c == nil {
		return nil
	}
	return c.b
}

// Free releases the handle. It fails with ErrInWorld while the constraint is added.
func (c *Constraint) Free() error {
	if c == nil {
		return nil
	}
	ok, err := c.release()
	if err != nil {
		return fmt.Errorf("free %s: %w", c, err)
	}
	if ok {
		c.handle = nil
	}
	return nil
}

// SetMaxForce caps the force the constraint may apply.
func (c *Constraint) SetMaxForce(f float64) {
	if c == nil || c.handle == nil {
		return
	}
	c.handle.SetMaxForce(f)
}

// SetErrorBias sets the fraction of joint error left after one second.
func (c *Constraint) SetErrorBias(bias float64) {
	if c == nil || c.handle == nil {
		return
	}
	c.handle.SetErrorBias(bias)
}

// SetMaxBias caps the speed at which joint error is corrected.
func (c *Constraint) SetMaxBias(bias float64) {
	if c == nil || c.handle == nil {
		return
	}
	c.handle.SetMaxBias(bias)
}

// SetCollideBodies controls whether the two constrained bodies may collide.
func (c *Constraint) SetCollideBodies(collide bool) {
	if c == nil || c.handle == nil {
		return
	}
	c.handle.SetCollideBodies(collide)
}
