package drawer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-pathcopy/pkg/pipeline/drawer"
	"github.com/askiada/go-pathcopy/pkg/pipeline/measure"
	"github.com/askiada/go-pathcopy/pkg/pipeline/model"
)

func TestDOTDrawer_Render(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer("")

	require.NoError(t, d.AddStep("start"))
	require.NoError(t, d.AddStep("1. Quotes"))
	require.NoError(t, d.AddStep("1. Quotes"))
	require.NoError(t, d.AddLink("start", "1. Quotes"))
	require.NoError(t, d.AddLink("start", "1. Quotes"))
	require.Error(t, d.AddLink("start", "missing"))

	var buf bytes.Buffer

	require.NoError(t, d.Render(&buf))

	want := "strict digraph {\n" +
		"\t\"1. Quotes\" [ weight=0 ];\n" +
		"\t\"start\" [ weight=0 ];\n" +
		"\t\"start\" -> \"1. Quotes\" [ weight=0 ];\n" +
		"}\n"
	assert.Equal(t, want, buf.String())
}

func TestDOTDrawer_GraphAttribute(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer("", drawer.GraphAttribute("rankdir", "LR"), drawer.GraphAttribute("bgcolor", "white"))

	require.NoError(t, d.AddStep("start"))

	var buf bytes.Buffer

	require.NoError(t, d.Render(&buf))

	want := "strict digraph {\n" +
		"\tbgcolor=\"white\";\n" +
		"\trankdir=\"LR\";\n" +
		"\t\"start\" [ weight=0 ];\n" +
		"}\n"
	assert.Equal(t, want, buf.String())
}

func TestDOTDrawer_AddMeasure(t *testing.T) {
	t.Parallel()

	d := drawer.NewDOTDrawer("")
	m := measure.NewDefaultMeasure()

	for _, name := range []string{"start", "1. Find & replace", "2. Quotes", "end"} {
		require.NoError(t, d.AddStep(name))
	}

	require.NoError(t, d.AddLink("start", "1. Find & replace"))
	require.NoError(t, d.AddLink("1. Find & replace", "2. Quotes"))
	require.NoError(t, d.AddLink("2. Quotes", "end"))

	m.AddMetric("1. Find & replace").AddDuration(10 * time.Millisecond)
	m.AddMetric("1. Find & replace").AddTransition("start")
	m.AddMetric("2. Quotes").AddDuration(time.Millisecond)
	m.AddMetric("2. Quotes").AddTransition("1. Find & replace")

	require.NoError(t, d.AddMeasure(m))

	var buf bytes.Buffer

	require.NoError(t, d.Render(&buf))

	out := buf.String()
	assert.Contains(t, out, `label=<1. Find &amp; replace <BR /> <FONT POINT-SIZE="12">10ms</FONT>>`)
	assert.Regexp(t, `(?i)"1\. Find & replace" \[ label=<[^\n]*color="#f00000"`, out)
	assert.Regexp(t, `(?i)"2\. Quotes" \[ label=<[^\n]*color="#0000f0"`, out)
	assert.Contains(t, out, `"start" -> "1. Find & replace" [ fontcolor="blue", label="1", weight=0 ];`)
}

func TestPipelineDrawer(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "pipeline.dot")
	m := measure.NewDefaultMeasure()
	opt := drawer.PipelineDrawer(drawer.NewDOTDrawer(file), m)

	require.NoError(t, opt.New())

	step := &model.StepInfo{Index: 0, Kind: "rx", Name: "1. Remove extension"}
	require.NoError(t, opt.PrepareStep(model.StartStep, step))
	require.NoError(t, opt.OnStepOutput(step, time.Millisecond))
	require.NoError(t, opt.PrepareStep(step, model.EndStep))
	require.NoError(t, opt.Finish())

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"start" -> "1. Remove extension"`)
	assert.Contains(t, string(content), `"1. Remove extension" -> "end"`)
}
