package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageScanning, "Scanning"},
		{StageChunking, "Chunking"},
		{StageEmbedding, "Embedding"},
		{StagePersisting, "Persisting"},
		{StageComplete, "Complete"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stage.String())
		})
	}
}

func TestStage_Icon(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageScanning, "SCAN"},
		{StageChunking, "CHUNK"},
		{StageEmbedding, "EMBED"},
		{StagePersisting, "SAVE"},
		{StageComplete, "DONE"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stage.Icon())
		})
	}
}

func TestIsTTY_WithBuffer_ReturnsFalse(t *testing.T) {
	buf := &bytes.Buffer{}
	assert.False(t, IsTTY(buf))
}

func TestIsTTY_WithNil_ReturnsFalse(t *testing.T) {
	assert.False(t, IsTTY(nil))
}

func TestNewRenderer_NonTTYReturnsPlainRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := NewConfig(buf)
	r := NewRenderer(cfg)

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok, "non-TTY output should use the plain renderer")
}

func TestNewRenderer_ForcePlainReturnsPlainRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := NewConfig(buf, WithForcePlain(true))
	r := NewRenderer(cfg)

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestDetectCI_TrueWhenCIVarSet(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func TestDetectNoColor_TrueWhenSet(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}
