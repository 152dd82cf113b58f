package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassify(t *testing.T) {
	k := NewKeywordClassifier()

	tests := []struct {
		name string
		text string
		want Metadata
	}{
		{
			name: "tee bicaval still",
			text: "A transesophageal echocardiogram in the midesophageal bicaval view shows a mass.",
			want: Metadata{ExamCategory: "TEE", EchoView: "ME bicaval", ImageType: "still"},
		},
		{
			name: "color doppler cine",
			text: "Review the color Doppler cine loop of the mitral valve.",
			want: Metadata{ExamCategory: "Doppler", Modality: "Color Doppler", ImageType: "cine"},
		},
		{
			name: "transthoracic apical",
			text: "On a transthoracic study, the apical four-chamber view demonstrates dilation.",
			want: Metadata{ExamCategory: "TTE", EchoView: "Apical 4-chamber", ImageType: "still"},
		},
		{
			name: "no signal",
			text: "What is the normal range of serum potassium?",
			want: Metadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := k.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordClassify_FirstMatchWins(t *testing.T) {
	k := NewKeywordClassifier()

	got, err := k.Classify(context.Background(), "Midesophageal four-chamber, then a bicaval sweep.")
	require.NoError(t, err)
	assert.Equal(t, "ME 4-chamber", got.EchoView)
}

func TestParseMetadataReply(t *testing.T) {
	fenced := "```json\n{\"exam_category\":\"TEE\",\"echo_view\":\"ME bicaval\",\"image_type\":\"still\"}\n```"
	m, err := parseMetadataReply(fenced)
	require.NoError(t, err)
	assert.Equal(t, "TEE", m.ExamCategory)
	assert.Equal(t, "ME bicaval", m.EchoView)

	_, err = parseMetadataReply("no json here")
	assert.Error(t, err)
}
