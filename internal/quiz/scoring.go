package quiz

import (
	"strconv"
	"strings"
)

// Scorer grades a full submission against a quiz's question list.
//
// StrictSets switches multi_answer grading to true set equality. The
// default comparison only checks element count and membership, so a
// submission like "A,A" against the key {A,B} counts as correct. That
// matches the historical grader and stays the default until existing
// score data is migrated.
type Scorer struct {
	StrictSets bool
}

// Score resolves each submitted answer against the question list and
// returns the percentage score plus one detail per resolved answer.
//
// Resolution tries the question id first, then falls back to reading the
// reference as a zero-based position. Unresolvable references are
// dropped without affecting the score. The denominator is always the
// full question count; zero questions scores 0.
func (s Scorer) Score(questions []Question, answers []SubmittedAnswer) (float64, []AnswerDetail) {
	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		if q.ID != "" {
			byID[q.ID] = i
		}
	}

	correct := 0
	details := make([]AnswerDetail, 0, len(answers))
	for _, a := range answers {
		idx, ok := resolveQuestion(byID, len(questions), a.QuestionID)
		if !ok {
			continue
		}
		q := questions[idx]

		detail := AnswerDetail{
			QuestionID:    q.ID,
			StudentAnswer: a.Answer,
		}
		switch q.Type {
		case TypeMultiAnswer:
			detail.CorrectAnswers = q.CorrectAnswers
			detail.IsCorrect = s.gradeMultiAnswer(a.Answer, q.CorrectAnswers)
		default:
			// mcq and true_false compare exactly, case sensitive.
			detail.CorrectAnswer = q.CorrectAnswer
			detail.IsCorrect = a.Answer == q.CorrectAnswer
		}
		if detail.IsCorrect {
			correct++
		}
		details = append(details, detail)
	}

	if len(questions) == 0 {
		return 0, details
	}
	return float64(correct) / float64(len(questions)) * 100, details
}

func (s Scorer) gradeMultiAnswer(raw string, correct []string) bool {
	parts := splitAnswers(raw)
	if s.StrictSets {
		return equalSet(parts, correct)
	}
	if len(parts) != len(correct) {
		return false
	}
	set := make(map[string]struct{}, len(correct))
	for _, c := range correct {
		set[c] = struct{}{}
	}
	for _, p := range parts {
		if _, ok := set[p]; !ok {
			return false
		}
	}
	return true
}

func resolveQuestion(byID map[string]int, total int, ref string) (int, bool) {
	if idx, ok := byID[ref]; ok {
		return idx, true
	}
	idx, err := strconv.Atoi(ref)
	if err != nil || idx < 0 || idx >= total {
		return 0, false
	}
	return idx, true
}

// splitAnswers splits on commas verbatim. Elements keep their padding
// and empty elements survive, so " A , B " never matches the key {A,B}
// and a trailing comma fails the count compare. Historical scores were
// produced by this exact split.
func splitAnswers(raw string) []string {
	return strings.Split(raw, ",")
}

func equalSet(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
