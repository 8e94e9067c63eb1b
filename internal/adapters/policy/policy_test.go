package policy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/league/internal/adapters/policy"
	. "github.com/smartystreets/goconvey/convey"
)

// identity-ish weights over 3 actions and 3 features.
func diagonal() policy.Checkpoint {
	return policy.Checkpoint{
		Weights: [][]float64{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		},
		Bias:   []float64{0, 0, 0},
		Greedy: true,
	}
}

func allowed(n int) []bool {
	m := make([]bool, n)
	for i := range m {
		m[i] = true
	}
	return m
}

func TestLinear_Greedy(t *testing.T) {
	Convey("Given a greedy diagonal policy", t, func() {
		ctx := context.Background()
		p, err := policy.NewLinear(diagonal())
		So(err, ShouldBeNil)

		Convey("When deciding a batch", func() {
			actions, err := p.Decide(ctx,
				[][]float64{{0, 5, 1}, {3, 0, 0}},
				[][]bool{allowed(3), allowed(3)})

			Convey("Then each row takes its highest scoring action", func() {
				So(err, ShouldBeNil)
				So(actions, ShouldResemble, []int{1, 0})
			})
		})

		Convey("When the best action is masked", func() {
			actions, err := p.Decide(ctx,
				[][]float64{{0, 5, 1}},
				[][]bool{{true, false, true}})

			Convey("Then the best legal action is taken", func() {
				So(err, ShouldBeNil)
				So(actions, ShouldResemble, []int{2})
			})
		})

		Convey("When every action is masked", func() {
			_, err := p.Decide(ctx, [][]float64{{1, 1, 1}}, [][]bool{{false, false, false}})

			Convey("Then ErrNoLegalAction is returned", func() {
				So(errors.Is(err, policy.ErrNoLegalAction), ShouldBeTrue)
			})
		})

		Convey("When the observation width is wrong", func() {
			_, err := p.Decide(ctx, [][]float64{{1, 1}}, [][]bool{allowed(3)})

			Convey("Then ErrShape is returned", func() {
				So(errors.Is(err, policy.ErrShape), ShouldBeTrue)
			})
		})
	})
}

func TestLinear_Sampling(t *testing.T) {
	Convey("Given a sampling policy", t, func() {
		cp := diagonal()
		cp.Greedy = false
		cp.Temperature = 1
		cp.Seed = 11
		p, err := policy.NewLinear(cp)
		So(err, ShouldBeNil)

		Convey("When many decisions are drawn under a mask", func() {
			obs := make([][]float64, 500)
			masks := make([][]bool, 500)
			for i := range obs {
				obs[i] = []float64{0, 0, 0}
				masks[i] = []bool{true, false, true}
			}
			actions, err := p.Decide(context.Background(), obs, masks)
			So(err, ShouldBeNil)

			Convey("Then only legal actions appear and both are used", func() {
				seen := map[int]int{}
				for _, a := range actions {
					seen[a]++
				}
				So(seen[1], ShouldEqual, 0)
				So(seen[0], ShouldBeGreaterThan, 0)
				So(seen[2], ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestCheckpoint_Validate(t *testing.T) {
	Convey("Given malformed checkpoints", t, func() {
		ragged := diagonal()
		ragged.Weights[1] = []float64{1}
		bias := diagonal()
		bias.Bias = []float64{1}
		temp := diagonal()
		temp.Temperature = -1

		Convey("Then each is rejected", func() {
			for _, cp := range []policy.Checkpoint{{}, ragged, bias, temp} {
				_, err := policy.NewLinear(cp)
				So(errors.Is(err, policy.ErrCheckpoint), ShouldBeTrue)
			}
		})
	})
}

func TestFileLoader(t *testing.T) {
	Convey("Given a checkpoint file on disk", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "agent.pt")
		body := `weights:
  - [1, 0, 0]
  - [0, 1, 0]
  - [0, 0, 1]
bias: [0, 0, 0.5]
greedy: true
`
		So(os.WriteFile(path, []byte(body), 0o600), ShouldBeNil)
		loader := policy.NewFileLoader(policy.WithSeed(3))

		Convey("When it is loaded twice", func() {
			first, err := loader.Load(ctx, path)
			So(err, ShouldBeNil)
			second, err := loader.Load(ctx, path)
			So(err, ShouldBeNil)

			Convey("Then the same policy is reused and decides from the file's weights", func() {
				So(first, ShouldEqual, second)
				actions, err := first.Decide(ctx, [][]float64{{0, 0, 0}}, [][]bool{allowed(3)})
				So(err, ShouldBeNil)
				So(actions, ShouldResemble, []int{2})
			})
		})

		Convey("When the file is missing", func() {
			_, err := loader.Load(ctx, filepath.Join(dir, "ghost.pt"))

			Convey("Then ErrLoadCheckpoint is returned", func() {
				So(errors.Is(err, policy.ErrLoadCheckpoint), ShouldBeTrue)
			})
		})

		Convey("When the file holds no weights", func() {
			empty := filepath.Join(dir, "empty.pt")
			So(os.WriteFile(empty, []byte("greedy: true\n"), 0o600), ShouldBeNil)
			_, err := loader.Load(ctx, empty)

			Convey("Then the checkpoint is rejected", func() {
				So(errors.Is(err, policy.ErrLoadCheckpoint), ShouldBeTrue)
				So(errors.Is(err, policy.ErrCheckpoint), ShouldBeTrue)
			})
		})
	})
}
