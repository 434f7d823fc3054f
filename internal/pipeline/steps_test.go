package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/poserisk/internal/explain"
	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
	"github.com/nao1215/poserisk/internal/risk"
	"github.com/nao1215/poserisk/internal/source"
	"github.com/nao1215/poserisk/internal/window"
)

// fixtureRisk is the score of ../risk/testdata/tiny_lstm.json for a
// window whose hip angle is constant. Only the hip angle feeds the model.
func fixtureRisk(hip float64) float64 {
	h := math.Tanh(math.Tanh(0.001 * hip))
	return 100 / (1 + math.Exp(-2*h))
}

func loadScorer(t *testing.T) *risk.Scorer {
	t.Helper()
	h, err := risk.Load(filepath.Join("..", "risk", "testdata", "tiny_lstm.json"))
	require.NoError(t, err)
	return risk.NewScorer(h)
}

func newWindower(t *testing.T, opts ...window.Option) *window.Windower {
	t.Helper()
	w, err := window.New(opts...)
	require.NoError(t, err)
	return w
}

// squat yields hip 90, knee 135 and shoulder 180 with the default joints.
func squat() pose.LandmarkSet {
	return pose.NewLandmarkSet([]pose.Landmark{
		{Name: pose.LeftHip, X: 0, Y: 1},
		{Name: pose.LeftKnee, X: 0, Y: 0},
		{Name: pose.LeftAnkle, X: 1, Y: 0},
		{Name: pose.LeftFootIndex, X: 2, Y: -1},
		{Name: pose.LeftShoulder, X: 0, Y: 2},
		{Name: pose.LeftElbow, X: 0, Y: 3},
		{Name: pose.LeftWrist, X: 0, Y: 4},
	})
}

// closingSource adds Close to a SliceSource and remembers the call.
type closingSource struct {
	*source.SliceSource
	closed bool
}

func (c *closingSource) Close() error {
	c.closed = true
	return nil
}

func sliceOpener(src *closingSource) Opener {
	return func(context.Context, string) (Source, error) {
		return src, nil
	}
}

func writeAngles(t *testing.T, name string, n int, triple [3]float64) string {
	t.Helper()
	row := make([]string, len(triple))
	for i, v := range triple {
		row[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	rows := make([]string, n)
	for i := range rows {
		rows[i] = "[" + strings.Join(row, ",") + "]"
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(`{"angles": [`+strings.Join(rows, ",")+`]}`), 0o600))
	return path
}

func TestAnglesPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	path := writeAngles(t, "angles.json", 35, [3]float64{85, 90, 50})
	p := NewAnglesPipeline(newWindower(t), loadScorer(t), explain.NewDeterministic(explain.DefaultRuleSet()))

	report := model.NewAnalysisReport(path)
	require.NoError(t, p.Execute(context.Background(), report))

	assert.InDelta(t, 54.2196009874755, report.Risk, 1e-9)
	assert.InDelta(t, fixtureRisk(85), report.Risk, 1e-9)
	assert.Equal(t, model.RiskModerate, report.Level)
	assert.Equal(t, pose.AngleTriple{Hip: 85, Knee: 90, Shoulder: 50}, report.FinalAngles())
	assert.Equal(t,
		"Predicted injury risk is 54.2%. "+
			"Hip angle looks within a normal range; maintain controlled movement. "+
			"Knee positioning is reasonable; keep alignment with the hip and ankle.",
		report.Story)
	assert.Equal(t, "heuristic", report.StorySource)
	assert.NotEmpty(t, report.ModelDigest)
	assert.Equal(t, []string{"angles", "score", "explain"}, report.PerformedSteps)
	assert.Equal(t, model.FrameStats{Pulled: 35, Used: 30}, report.Frames)
	assert.True(t, report.Succeeded())
}

func TestAnglesPipelineFailures(t *testing.T) {
	t.Parallel()

	scorer := loadScorer(t)
	explainer := explain.NewDeterministic(explain.DefaultRuleSet())

	tests := []struct {
		name string
		body string
		want model.FailureKind
	}{
		{name: "too few entries", body: `{"angles": [[85, 90, 50]]}`, want: model.FailureInsufficientFrames},
		{name: "two values", body: `{"angles": [[85, 90]]}`, want: model.FailureInvalidInput},
		{name: "not json", body: `angles`, want: model.FailureInvalidInput},
		{name: "missing field", body: `{"frames": []}`, want: model.FailureInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "angles.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			report := model.NewAnalysisReport(path)
			err := NewAnglesPipeline(newWindower(t), scorer, explainer).Execute(context.Background(), report)
			require.Error(t, err)
			require.NotNil(t, report.Failure)
			assert.Equal(t, tt.want, report.Failure.Kind)
			assert.False(t, report.Succeeded())
		})
	}

	t.Run("out of range angle", func(t *testing.T) {
		t.Parallel()

		path := writeAngles(t, "angles.json", 30, [3]float64{85, 190, 50})
		report := model.NewAnalysisReport(path)
		err := NewAnglesPipeline(newWindower(t), scorer, explainer).Execute(context.Background(), report)
		require.ErrorIs(t, err, pose.ErrAngleOutOfRange)
		assert.Equal(t, model.FailureInvalidInput, report.Failure.Kind)
	})
}

func TestVideoPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	t.Run("skips frames without a body", func(t *testing.T) {
		t.Parallel()

		frames := make([]pose.LandmarkSet, 0, 40)
		for i := range 40 {
			if i%4 == 0 {
				frames = append(frames, nil)
				continue
			}
			frames = append(frames, squat())
		}
		src := &closingSource{SliceSource: source.NewSliceSource(frames...)}

		p := NewVideoPipeline(sliceOpener(src), newWindower(t), loadScorer(t),
			explain.NewDeterministic(explain.DefaultRuleSet()))
		report := model.NewAnalysisReport("squat.mp4")
		require.NoError(t, p.Execute(context.Background(), report))

		assert.True(t, src.closed, "source not closed")
		assert.InDelta(t, fixtureRisk(90), report.Risk, 1e-9)
		assert.Equal(t, 30, report.Frames.Used)
		assert.Equal(t, 10, report.Frames.NoBody)
		assert.Equal(t, 40, report.Frames.Pulled)

		final := report.FinalAngles()
		assert.InDelta(t, 90, final.Hip, 1e-9)
		assert.InDelta(t, 135, final.Knee, 1e-9)
		assert.InDelta(t, 180, final.Shoulder, 1e-9)
		assert.True(t, strings.HasSuffix(report.Story, explain.ShoulderRaisedAdvice), report.Story)
	})

	t.Run("reports insufficient frames with the count found", func(t *testing.T) {
		t.Parallel()

		frames := []pose.LandmarkSet{squat(), nil, squat(), squat()}
		src := &closingSource{SliceSource: source.NewSliceSource(frames...)}

		p := NewVideoPipeline(sliceOpener(src), newWindower(t), loadScorer(t),
			explain.NewDeterministic(explain.DefaultRuleSet()))
		report := model.NewAnalysisReport("short.mp4")
		err := p.Execute(context.Background(), report)

		var insufficient *window.InsufficientFramesError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 3, report.Failure.FramesFound)
		assert.Equal(t, model.FailureInsufficientFrames, report.Failure.Kind)
		assert.Equal(t, 4, report.Frames.Pulled)
		assert.True(t, src.closed)
	})

	t.Run("open failure is internal", func(t *testing.T) {
		t.Parallel()

		openErr := errors.New("ffmpeg not found")
		open := func(context.Context, string) (Source, error) { return nil, openErr }

		p := NewVideoPipeline(open, newWindower(t), loadScorer(t),
			explain.NewDeterministic(explain.DefaultRuleSet()))
		report := model.NewAnalysisReport("clip.mp4")
		err := p.Execute(context.Background(), report)
		require.ErrorIs(t, err, openErr)
		assert.Equal(t, model.FailureInternal, report.Failure.Kind)
	})
}

func TestExplainStepUsesFinalAngles(t *testing.T) {
	t.Parallel()

	triples := make([]pose.AngleTriple, 30)
	for i := range triples {
		triples[i] = pose.AngleTriple{Hip: 90, Knee: 90, Shoulder: 50}
	}
	triples[29] = pose.AngleTriple{Hip: 65, Knee: 90, Shoulder: 50}
	win, err := pose.NewWindow(triples, 30)
	require.NoError(t, err)

	report := model.NewAnalysisReport("x")
	report.Window = win
	report.SetRisk(42)

	step := NewExplainStep(explain.NewDeterministic(explain.DefaultRuleSet()))
	require.NoError(t, step.Do(context.Background(), report))
	assert.Contains(t, report.Story, explain.HipClosedAdvice)
	assert.True(t, strings.HasPrefix(report.Story, "Predicted injury risk is 42.0%."))
}
