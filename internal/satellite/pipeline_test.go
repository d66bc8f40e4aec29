package satellite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fernwood-iot/satellite/internal/satellite"
)

func TestParseWakeWordSpec(t *testing.T) {
	name, pipeline := satellite.ParseWakeWordSpec("ok_nabu")
	assert.Equal(t, "ok_nabu", name)
	assert.Equal(t, "", pipeline)

	name, pipeline = satellite.ParseWakeWordSpec("ok_nabu:kitchen")
	assert.Equal(t, "ok_nabu", name)
	assert.Equal(t, "kitchen", pipeline)

	name, pipeline = satellite.ParseWakeWordSpec("ok_nabu:kitchen:extra")
	assert.Equal(t, "ok_nabu", name)
	assert.Equal(t, "kitchen:extra", pipeline)
}

func TestNormalizeWakeWordName(t *testing.T) {
	cases := map[string]string{
		"Hey Jarvis":      "hey jarvis",
		"hey_jarvis_v2":   "hey jarvis",
		"hey_jarvis_v2.1": "hey jarvis",
		"OK---Nabu!!":     "ok nabu",
		"  spaced  out  ": "spaced out",
	}
	for in, want := range cases {
		assert.Equal(t, want, satellite.NormalizeWakeWordName(in), "input %q", in)
	}
}

func TestResolvePipelineName(t *testing.T) {
	bindings := []satellite.WakeWordBinding{
		{Name: "Hey Jarvis", Pipeline: "assistant"},
		{Name: "ok_nabu_v2", Pipeline: "kitchen"},
	}

	assert.Equal(t, "assistant", satellite.ResolvePipelineName(bindings, "hey_jarvis"))
	assert.Equal(t, "kitchen", satellite.ResolvePipelineName(bindings, "OK Nabu"))
	assert.Equal(t, "", satellite.ResolvePipelineName(bindings, "unknown"))
}

func TestBuildRunPipeline(t *testing.T) {
	ev := satellite.BuildRunPipeline(satellite.PipelineRequest{
		StartStage:   satellite.StageASR,
		EndStage:     satellite.StageTTS,
		RestartOnEnd: true,
		PipelineName: "kitchen",
	})

	assert.Equal(t, "run-pipeline", ev.Type)
	assert.Equal(t, satellite.StageASR, ev.Data["start_stage"])
	assert.Equal(t, satellite.StageTTS, ev.Data["end_stage"])
	assert.Equal(t, true, ev.Data["restart_on_end"])
	assert.Equal(t, "kitchen", ev.Data["name"])

	bare := satellite.BuildRunPipeline(satellite.PipelineRequest{StartStage: satellite.StageWake, EndStage: satellite.StageHandle})
	_, hasName := bare.Data["name"]
	assert.False(t, hasName)
}
