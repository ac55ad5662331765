package coach

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

// #region pipeline

// Pipeline derives a Frame from a SessionState:
// calmness → RMSSD → status/state tag → anchor → script text.
type Pipeline struct {
	producer   *signals.Producer
	classifier triage.Classifier
	scripts    script.Source
	breathing  BreathingCycle
}

// NewPipeline wires the stages. scripts supplies the static script data.
func NewPipeline(config PipelineConfig, scripts script.Source) *Pipeline {
	return &Pipeline{
		producer:   signals.NewProducer(config.Producer),
		classifier: triage.NewClassifier(config.Thresholds),
		scripts:    scripts,
		breathing:  CycleFor(config.TargetBPM),
	}
}

// Classifier exposes the cut points in use.
func (p *Pipeline) Classifier() triage.Classifier {
	return p.classifier
}

// Library returns the script library for lang.
func (p *Pipeline) Library(lang string) *script.Library {
	return p.scripts.Library(lang)
}

// #endregion pipeline

// #region narrate

// Narrate is pure given the current script data. Missing script data never
// fails: sentinel text is used and the miss is listed in Frame.Warnings.
func (p *Pipeline) Narrate(st SessionState) Frame {
	return p.narrate(st, signals.Reading{Calmness: st.Calmness})
}

// NarrateReading is Narrate with the provenance of the calmness value kept.
func (p *Pipeline) NarrateReading(st SessionState, r signals.Reading) Frame {
	r.Calmness = st.Calmness
	return p.narrate(st, r)
}

func (p *Pipeline) narrate(st SessionState, r signals.Reading) Frame {
	var warnings []string

	sig := p.producer.Produce(r)
	assessment := p.classifier.Assess(sig.RMSSD)

	lib := p.scripts.Library(st.Language)
	if lib == nil {
		warnings = append(warnings, fmt.Sprintf("no script library for language %q", st.Language))
	}

	tpl, ok := lib.Template(assessment.Tag)
	if !ok && lib != nil {
		warnings = append(warnings, fmt.Sprintf("missing script for %s", assessment.Tag))
	}
	if _, ok := lib.DefaultAnchor(st.Step); !ok && lib != nil {
		warnings = append(warnings, fmt.Sprintf("missing default anchor for %s", st.Step))
	}
	if st.AnchorKey != "" && !lib.HasAnchor(st.AnchorKey) && lib != nil {
		warnings = append(warnings, fmt.Sprintf("anchor %q not in vocabulary, using step default", st.AnchorKey))
	}

	anchor := script.ResolveAnchor(lib, st.AnchorKey, st.Step)
	text := script.FillTemplate(tpl, script.Vars{script.AnchorVar: anchor})

	lang := st.Language
	if lib != nil {
		lang = lib.Language
	}

	f := Frame{
		Calmness:    sig.Calmness,
		RMSSD:       sig.RMSSD,
		Status:      assessment.Status,
		StateTag:    assessment.Tag,
		StatusLabel: assessment.Label,
		Step:        st.Step,
		AnchorKey:   st.AnchorKey,
		Anchor:      anchor,
		Text:        text,
		Language:    lang,
		Breathing:   p.breathing,
		Signals:     sig,
		Warnings:    warnings,
	}
	if st.Voice.Enabled {
		f.Utterance = &Utterance{
			Text:     text,
			Language: voiceLanguage(st.Voice, lang),
			Rate:     st.Voice.Rate,
			Pitch:    st.Voice.Pitch,
		}
	}
	return f
}

// voiceLanguage keeps the configured voice while it speaks the language of
// the script text (en-US for en) and otherwise follows the script.
func voiceLanguage(v Voice, scriptLang string) string {
	if v.Language == "" {
		return scriptLang
	}
	if scriptLang == "" || sameBase(v.Language, scriptLang) {
		return v.Language
	}
	return scriptLang
}

func sameBase(a, b string) bool {
	ba, _ := language.Make(a).Base()
	bb, _ := language.Make(b).Base()
	return ba == bb
}

// #endregion narrate
