package physics_test

import (
	"fmt"

	"github.com/milk9111/physbridge/physics"
)

func Example() {
	w := physics.NewWorld(physics.WithSettings(physics.Settings{
		Gravity:    physics.Vector{Y: -100},
		Iterations: 10,
	}))
	defer w.Close()

	ground := physics.NewSegment(w.StaticBody(), physics.Vector{X: -50}, physics.Vector{X: 50}, 0)
	ground.SetCollisionType(2)
	w.Add(ground)

	body := physics.NewBody(1, physics.MomentForCircle(1, 0, 1, physics.Vector{}))
	body.SetPosition(physics.Vector{Y: 0.5})
	ball := physics.NewCircle(body, 1, physics.Vector{})
	ball.SetCollisionType(1)
	w.Add(body)
	w.Add(ball)

	w.AddCollisionHandler(1, 2, physics.CollisionHandler{
		Begin: func(arb *physics.Arbiter, w *physics.World) bool {
			a, _ := arb.Shapes()
			w.FreeLater(a)
			return true
		},
	})

	w.Step(1.0 / 60)
	fmt.Println(len(w.Shapes()), ball.Freed())
	// Output: 1 true
}
