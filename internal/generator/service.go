package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"quizgen/internal/quiz"
)

const generationPrompt = "You write quiz questions for a school quiz platform. Given a passage, produce questions strictly as a JSON array. Each element has fields: question, type, options, correct_answer, correct_answers, difficulty. Use only facts stated in the passage. Return the JSON array and nothing else."

type ServiceConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	HTTPClient   *http.Client
}

type Service struct {
	geminiAPIKey string
	geminiModel  string
	client       *http.Client
}

// Result carries the generated questions plus which path produced them.
type Result struct {
	Questions []quiz.Question
	Source    string
}

func NewService(cfg ServiceConfig) *Service {
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 18 * time.Second}
	}
	return &Service{
		geminiAPIKey: strings.TrimSpace(cfg.GeminiAPIKey),
		geminiModel:  model,
		client:       client,
	}
}

// Generate builds quiz questions from free text. When no remote model is
// configured, or the remote call fails, it degrades to a local heuristic
// built on the sentences of the passage.
func (s *Service) Generate(ctx context.Context, text, quizType, difficulty string) (Result, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return Result{}, fmt.Errorf("text cannot be empty")
	}
	qt := normalizeQuizType(quizType)
	diff := normalizeDifficulty(difficulty)

	if s.geminiAPIKey != "" {
		questions, err := s.generateWithGemini(ctx, cleaned, qt, diff)
		if err == nil && len(questions) > 0 {
			return Result{Questions: questions, Source: "gemini"}, nil
		}
	}

	questions := s.generateLocal(cleaned, qt, diff)
	if len(questions) == 0 {
		return Result{}, fmt.Errorf("no questions could be generated from the provided text")
	}
	source := "local"
	if s.geminiAPIKey != "" {
		source = "local_fallback"
	}
	return Result{Questions: questions, Source: source}, nil
}

func normalizeQuizType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case quiz.TypeTrueFalse:
		return quiz.TypeTrueFalse
	case quiz.TypeMultiAnswer:
		return quiz.TypeMultiAnswer
	default:
		return quiz.TypeMCQ
	}
}

func normalizeDifficulty(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy", "hard":
		return strings.ToLower(strings.TrimSpace(raw))
	default:
		return "medium"
	}
}

func questionTarget(difficulty string) int {
	switch difficulty {
	case "easy":
		return 5
	case "hard":
		return 10
	default:
		return 8
	}
}

func (s *Service) generateWithGemini(ctx context.Context, text, quizType, difficulty string) ([]quiz.Question, error) {
	prompt := fmt.Sprintf("Passage:\n%s\n\nGenerate %d questions of type %q at %s difficulty.", text, questionTarget(difficulty), quizType, difficulty)
	reqBody := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"systemInstruction": map[string]any{
			"parts": []map[string]string{
				{"text": generationPrompt},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     0.4,
			"maxOutputTokens": 2048,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", s.geminiModel, s.geminiAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	var out geminiGenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return parseQuestionJSON(out.firstText(), quizType, difficulty)
}

// parseQuestionJSON pulls a JSON array out of a model reply, tolerating
// markdown code fences around it.
func parseQuestionJSON(reply, quizType, difficulty string) ([]quiz.Question, error) {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return nil, fmt.Errorf("empty gemini response")
	}
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no question array in response")
	}

	var questions []quiz.Question
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	valid := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		if q.Type == "" {
			q.Type = quizType
		}
		if q.Difficulty == "" {
			q.Difficulty = difficulty
		}
		valid = append(valid, q)
	}
	return valid, nil
}

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// generateLocal builds cloze-style questions from the passage itself. Each
// question blanks a keyword out of one sentence; distractors are keywords
// drawn from the rest of the passage.
func (s *Service) generateLocal(text, quizType, difficulty string) []quiz.Question {
	sentences := splitSentences(text)
	keywords := rankKeywords(sentences)
	if len(keywords) < 2 {
		return nil
	}

	target := questionTarget(difficulty)
	var questions []quiz.Question
	for _, sentence := range sentences {
		if len(questions) >= target {
			break
		}
		keyword := pickKeyword(sentence, keywords)
		if keyword == "" {
			continue
		}
		switch quizType {
		case quiz.TypeTrueFalse:
			questions = append(questions, s.trueFalseQuestion(sentence, keyword, keywords, difficulty))
		case quiz.TypeMultiAnswer:
			q, ok := s.multiAnswerQuestion(sentence, keywords, difficulty)
			if !ok {
				continue
			}
			questions = append(questions, q)
		default:
			q, ok := s.clozeQuestion(sentence, keyword, keywords, difficulty)
			if !ok {
				continue
			}
			questions = append(questions, q)
		}
	}
	return questions
}

func (s *Service) clozeQuestion(sentence, keyword string, keywords []string, difficulty string) (quiz.Question, bool) {
	distractors := s.pickDistractors(keyword, keywords, 3)
	if len(distractors) < 2 {
		return quiz.Question{}, false
	}
	options := append([]string{keyword}, distractors...)
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return quiz.Question{
		Text:          "Fill in the blank: " + blankOut(sentence, keyword),
		Type:          quiz.TypeMCQ,
		Difficulty:    difficulty,
		Options:       options,
		CorrectAnswer: keyword,
	}, true
}

func (s *Service) trueFalseQuestion(sentence, keyword string, keywords []string, difficulty string) quiz.Question {
	statement := sentence
	answer := "True"
	// Half the statements get their keyword swapped for a distractor,
	// turning them false.
	if rand.Intn(2) == 0 {
		if distractors := s.pickDistractors(keyword, keywords, 1); len(distractors) == 1 {
			statement = strings.Replace(sentence, keyword, distractors[0], 1)
			answer = "False"
		}
	}
	return quiz.Question{
		Text:          "True or false: " + statement,
		Type:          quiz.TypeTrueFalse,
		Difficulty:    difficulty,
		Options:       []string{"True", "False"},
		CorrectAnswer: answer,
	}
}

func (s *Service) multiAnswerQuestion(sentence string, keywords []string, difficulty string) (quiz.Question, bool) {
	var present []string
	for _, kw := range keywords {
		if containsWord(sentence, kw) {
			present = append(present, kw)
		}
		if len(present) == 2 {
			break
		}
	}
	if len(present) < 2 {
		return quiz.Question{}, false
	}
	distractors := s.pickDistractorsForSentence(sentence, keywords, 2)
	if len(distractors) < 2 {
		return quiz.Question{}, false
	}
	options := append(append([]string{}, present...), distractors...)
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return quiz.Question{
		Text:           "Which of the following terms appear in this statement? " + sentence,
		Type:           quiz.TypeMultiAnswer,
		Difficulty:     difficulty,
		Options:        options,
		CorrectAnswers: present,
	}, true
}

func (s *Service) pickDistractors(keyword string, keywords []string, n int) []string {
	var out []string
	for _, kw := range keywords {
		if strings.EqualFold(kw, keyword) {
			continue
		}
		out = append(out, kw)
		if len(out) == n {
			break
		}
	}
	return out
}

func (s *Service) pickDistractorsForSentence(sentence string, keywords []string, n int) []string {
	var out []string
	for _, kw := range keywords {
		if containsWord(sentence, kw) {
			continue
		}
		out = append(out, kw)
		if len(out) == n {
			break
		}
	}
	return out
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimRight(p, ".!?"))
		if len(strings.Fields(p)) >= 5 {
			out = append(out, p)
		}
	}
	return out
}

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "because": true, "been": true,
	"before": true, "being": true, "between": true, "could": true, "during": true,
	"every": true, "first": true, "from": true, "have": true, "into": true,
	"many": true, "more": true, "most": true, "other": true, "over": true,
	"should": true, "since": true, "some": true, "such": true, "than": true,
	"that": true, "their": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "under": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"with": true, "within": true, "would": true, "your": true,
}

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z-]{3,}`)

// rankKeywords returns candidate answer words ordered by frequency across
// the passage, most frequent first.
func rankKeywords(sentences []string) []string {
	counts := map[string]int{}
	casing := map[string]string{}
	for _, s := range sentences {
		for _, w := range wordPattern.FindAllString(s, -1) {
			lower := strings.ToLower(w)
			if stopwords[lower] {
				continue
			}
			counts[lower]++
			if _, ok := casing[lower]; !ok {
				casing[lower] = w
			}
		}
	}

	lowered := make([]string, 0, len(counts))
	for w := range counts {
		lowered = append(lowered, w)
	}
	sort.Slice(lowered, func(i, j int) bool {
		if counts[lowered[i]] != counts[lowered[j]] {
			return counts[lowered[i]] > counts[lowered[j]]
		}
		return lowered[i] < lowered[j]
	})

	out := make([]string, len(lowered))
	for i, w := range lowered {
		out[i] = casing[w]
	}
	return out
}

func pickKeyword(sentence string, keywords []string) string {
	for _, kw := range keywords {
		if containsWord(sentence, kw) {
			return kw
		}
	}
	return ""
}

func containsWord(sentence, word string) bool {
	for _, w := range wordPattern.FindAllString(sentence, -1) {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

func blankOut(sentence, keyword string) string {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return strings.Replace(sentence, keyword, "_____", 1)
	}
	replaced := false
	return re.ReplaceAllStringFunc(sentence, func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		return "_____"
	})
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r geminiGenerateResponse) firstText() string {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return ""
}
