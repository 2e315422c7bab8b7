// internal/intent/classifier.go
package intent

import "strings"

type Status string

const (
	StatusYes     Status = "yes"
	StatusNo      Status = "no"
	StatusUnclear Status = "unclear"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Verdict is the agreement classification for one completed call.
type Verdict struct {
	Agreed     bool       `json:"agreed"`
	Status     Status     `json:"status"`
	Confidence Confidence `json:"confidence"`
}

// Extraction keys the provider may fill in.
const (
	fieldInterested = "interested"
	fieldUserIntent = "user_intent"
)

// genericIntentPhrases are boilerplate values the provider emits when no
// intent was actually extracted; they carry no signal and are ignored.
var genericIntentPhrases = map[string]bool{
	"":                    true,
	"n/a":                 true,
	"na":                  true,
	"none":                true,
	"unknown":             true,
	"no intent stated":    true,
	"no intent detected":  true,
	"not specified":       true,
	"nothing specific":    true,
	"no specific intent":  true,
	"unable to determine": true,
}

var affirmativeIntents = map[string]bool{
	"true": true, "yes": true, "interested": true, "agreed": true,
}

var negativeIntents = map[string]bool{
	"false": true, "no": true, "not interested": true, "declined": true,
}

var strongNegatives = []string{
	"not interested",
	"no thanks",
	"no thank you",
	"don't call",
	"do not call",
	"stop calling",
	"leave me alone",
	"remove my number",
	"never call",
}

var moderateNegatives = []string{
	"not right now",
	"not at the moment",
	"too busy",
	"bad time",
	"can't talk",
	"call back later",
	"maybe later",
}

var strongAffirmatives = []string{
	"yes",
	"yeah",
	"definitely",
	"absolutely",
	"sounds great",
	"sounds good",
	"sign me up",
	"book it",
	"i'd like to book",
	"let's do it",
	"schedule",
	"next week",
	"tomorrow",
}

var moderateAffirmatives = []string{
	"maybe",
	"send me info",
	"send me more",
	"tell me more",
	"i'll think about it",
	"interesting",
}

// Classify turns a finished call into an agreement verdict. Deterministic and
// side-effect free: structured extraction wins over the outcome, the outcome
// wins over the transcript, and a short or empty transcript is unclear.
func Classify(transcript, outcome string, extracted map[string]string) Verdict {
	if v, ok := fromExtraction(extracted); ok {
		return v
	}
	if v, ok := fromOutcome(outcome); ok {
		return v
	}
	return fromTranscript(transcript)
}

func fromExtraction(extracted map[string]string) (Verdict, bool) {
	for _, key := range []string{fieldInterested, fieldUserIntent} {
		raw, ok := extracted[key]
		if !ok {
			continue
		}
		val := strings.ToLower(strings.TrimSpace(raw))
		if genericIntentPhrases[val] {
			continue
		}
		if affirmativeIntents[val] {
			return Verdict{Agreed: true, Status: StatusYes, Confidence: ConfidenceHigh}, true
		}
		if negativeIntents[val] {
			return Verdict{Status: StatusNo, Confidence: ConfidenceHigh}, true
		}
	}
	return Verdict{}, false
}

// fromOutcome shortcuts calls that never produced a usable conversation; no
// transcript inspection needed.
func fromOutcome(outcome string) (Verdict, bool) {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "voicemail", "busy", "no_answer", "no-answer", "no answer":
		return Verdict{Status: StatusNo, Confidence: ConfidenceHigh}, true
	case "silence", "silent":
		return Verdict{Status: StatusUnclear, Confidence: ConfidenceHigh}, true
	}
	return Verdict{}, false
}

func fromTranscript(transcript string) Verdict {
	text := strings.ToLower(strings.TrimSpace(transcript))
	if len(text) < 10 {
		return Verdict{Status: StatusUnclear, Confidence: ConfidenceLow}
	}

	// Negatives are checked first so "no, not interested" never trips the
	// affirmative word list.
	if containsAny(text, strongNegatives) {
		return Verdict{Status: StatusNo, Confidence: ConfidenceHigh}
	}
	if containsAny(text, strongAffirmatives) {
		return Verdict{Agreed: true, Status: StatusYes, Confidence: ConfidenceHigh}
	}
	if containsAny(text, moderateNegatives) {
		return Verdict{Status: StatusNo, Confidence: ConfidenceMedium}
	}
	if containsAny(text, moderateAffirmatives) {
		return Verdict{Agreed: true, Status: StatusYes, Confidence: ConfidenceMedium}
	}

	return Verdict{Status: StatusUnclear, Confidence: ConfidenceLow}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(p, " ") {
			if strings.Contains(text, p) {
				return true
			}
			continue
		}
		if containsWord(text, p) {
			return true
		}
	}
	return false
}

// containsWord matches single-word phrases on word boundaries so "yes" does
// not match inside "eyes".
func containsWord(text, word string) bool {
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	}) {
		if tok == word {
			return true
		}
	}
	return false
}
