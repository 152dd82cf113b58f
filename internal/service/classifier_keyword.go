package service

import (
	"context"
	"strings"
)

// KeywordClassifier suggests metadata from substring heuristics. It is
// the fallback when no Gemini API key is configured.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a KeywordClassifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// viewKeywords maps lowercase phrases to the echo view they indicate.
// Order matters: more specific phrases come first.
var viewKeywords = []struct {
	phrase string
	view   string
}{
	{"midesophageal four-chamber", "ME 4-chamber"},
	{"midesophageal four chamber", "ME 4-chamber"},
	{"me 4-chamber", "ME 4-chamber"},
	{"midesophageal two-chamber", "ME 2-chamber"},
	{"midesophageal long axis", "ME long axis"},
	{"me lax", "ME long axis"},
	{"midesophageal aortic valve short axis", "ME AV short axis"},
	{"midesophageal bicaval", "ME bicaval"},
	{"bicaval", "ME bicaval"},
	{"transgastric short axis", "TG mid-papillary short axis"},
	{"transgastric mid-papillary", "TG mid-papillary short axis"},
	{"deep transgastric", "Deep TG long axis"},
	{"apical four-chamber", "Apical 4-chamber"},
	{"apical four chamber", "Apical 4-chamber"},
	{"apical two-chamber", "Apical 2-chamber"},
	{"apical long axis", "Apical long axis"},
	{"parasternal long axis", "Parasternal long axis"},
	{"parasternal short axis", "Parasternal short axis"},
	{"subcostal", "Subcostal"},
	{"suprasternal", "Suprasternal"},
}

var categoryKeywords = []struct {
	phrase   string
	category string
}{
	{"transesophageal", "TEE"},
	{"tee probe", "TEE"},
	{"intraoperative", "TEE"},
	{"transthoracic", "TTE"},
	{"doppler", "Doppler"},
	{"strain", "Advanced"},
	{"3d", "Advanced"},
}

var modalityKeywords = []struct {
	phrase   string
	modality string
}{
	{"color doppler", "Color Doppler"},
	{"colour doppler", "Color Doppler"},
	{"continuous wave", "CW Doppler"},
	{"cw doppler", "CW Doppler"},
	{"pulsed wave", "PW Doppler"},
	{"pw doppler", "PW Doppler"},
	{"tissue doppler", "Tissue Doppler"},
	{"m-mode", "M-mode"},
	{"2d", "2D"},
}

// Classify scans the text for known echocardiography phrases.
func (k *KeywordClassifier) Classify(_ context.Context, questionText string) (Metadata, error) {
	text := strings.ToLower(questionText)
	var m Metadata

	for _, kw := range viewKeywords {
		if strings.Contains(text, kw.phrase) {
			m.EchoView = kw.view
			break
		}
	}
	for _, kw := range categoryKeywords {
		if strings.Contains(text, kw.phrase) {
			m.ExamCategory = kw.category
			break
		}
	}
	for _, kw := range modalityKeywords {
		if strings.Contains(text, kw.phrase) {
			m.Modality = kw.modality
			break
		}
	}
	if strings.Contains(text, "cine") || strings.Contains(text, "loop") || strings.Contains(text, "video") {
		m.ImageType = "cine"
	} else if m.EchoView != "" || m.Modality != "" {
		m.ImageType = "still"
	}
	return m, nil
}
