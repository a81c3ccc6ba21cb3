package generator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"quizgen/internal/quiz"
)

const samplePassage = `Photosynthesis converts sunlight into chemical energy inside the chloroplast. ` +
	`The chloroplast contains chlorophyll pigments which absorb sunlight efficiently. ` +
	`Plants release oxygen as a byproduct of photosynthesis during daylight hours. ` +
	`Glucose produced by photosynthesis fuels cellular respiration in the plant. ` +
	`Cellular respiration happens inside the mitochondria of every living cell. ` +
	`Water travels from the roots to the leaves through the xylem tissue.`

func newLocalService() *Service {
	return NewService(ServiceConfig{})
}

func TestGenerateLocalMCQ(t *testing.T) {
	svc := newLocalService()

	result, err := svc.Generate(context.Background(), samplePassage, "mcq", "easy")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Source != "local" {
		t.Fatalf("source = %q, want local", result.Source)
	}
	if len(result.Questions) == 0 || len(result.Questions) > 5 {
		t.Fatalf("questions = %d, want 1..5 for easy", len(result.Questions))
	}
	for _, q := range result.Questions {
		if q.Type != quiz.TypeMCQ {
			t.Fatalf("type = %q, want mcq", q.Type)
		}
		if len(q.Options) < 3 {
			t.Fatalf("options = %v, want at least 3", q.Options)
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
			}
		}
		if !found {
			t.Fatalf("correct answer %q not among options %v", q.CorrectAnswer, q.Options)
		}
		if !strings.Contains(q.Text, "_____") {
			t.Fatalf("question is not a cloze: %q", q.Text)
		}
	}
}

func TestGenerateLocalTrueFalse(t *testing.T) {
	svc := newLocalService()

	result, err := svc.Generate(context.Background(), samplePassage, "true_false", "medium")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, q := range result.Questions {
		if q.Type != quiz.TypeTrueFalse {
			t.Fatalf("type = %q, want true_false", q.Type)
		}
		if len(q.Options) != 2 {
			t.Fatalf("options = %v, want True/False", q.Options)
		}
		if q.CorrectAnswer != "True" && q.CorrectAnswer != "False" {
			t.Fatalf("correct answer = %q", q.CorrectAnswer)
		}
	}
}

func TestGenerateLocalMultiAnswer(t *testing.T) {
	svc := newLocalService()

	result, err := svc.Generate(context.Background(), samplePassage, "multi_answer", "medium")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, q := range result.Questions {
		if q.Type != quiz.TypeMultiAnswer {
			t.Fatalf("type = %q, want multi_answer", q.Type)
		}
		if len(q.CorrectAnswers) < 2 {
			t.Fatalf("correct answers = %v, want at least 2", q.CorrectAnswers)
		}
		for _, ans := range q.CorrectAnswers {
			found := false
			for _, opt := range q.Options {
				if opt == ans {
					found = true
				}
			}
			if !found {
				t.Fatalf("answer %q missing from options %v", ans, q.Options)
			}
		}
	}
}

func TestGenerateConcurrent(t *testing.T) {
	// One Service serves every request, so option shuffling must be safe
	// under the race detector with parallel callers.
	svc := newLocalService()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Generate(context.Background(), samplePassage, "mixed", "medium")
			if err != nil {
				t.Errorf("Generate: %v", err)
				return
			}
			if len(result.Questions) == 0 {
				t.Error("no questions generated")
			}
		}()
	}
	wg.Wait()
}

func TestGenerateEmptyText(t *testing.T) {
	svc := newLocalService()

	if _, err := svc.Generate(context.Background(), "   ", "mcq", "easy"); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestGenerateTooShortText(t *testing.T) {
	svc := newLocalService()

	if _, err := svc.Generate(context.Background(), "Hi there.", "mcq", "easy"); err == nil {
		t.Fatal("expected error when nothing can be generated")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubClient(status int, body string) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	})}
}

func TestGenerateGeminiSuccess(t *testing.T) {
	reply := `[{"question":"What organ performs photosynthesis?","type":"mcq","options":["Leaf","Root","Stem","Flower"],"correct_answer":"Leaf"}]`
	body := `{"candidates":[{"content":{"parts":[{"text":"` + strings.ReplaceAll(reply, `"`, `\"`) + `"}]}}]}`
	svc := NewService(ServiceConfig{
		GeminiAPIKey: "test-key",
		HTTPClient:   stubClient(http.StatusOK, body),
	})

	result, err := svc.Generate(context.Background(), samplePassage, "mcq", "medium")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Source != "gemini" {
		t.Fatalf("source = %q, want gemini", result.Source)
	}
	if len(result.Questions) != 1 || result.Questions[0].CorrectAnswer != "Leaf" {
		t.Fatalf("questions = %+v", result.Questions)
	}
	if result.Questions[0].Difficulty != "medium" {
		t.Fatalf("difficulty = %q, want medium backfilled", result.Questions[0].Difficulty)
	}
}

func TestGenerateGeminiFailureFallsBack(t *testing.T) {
	svc := NewService(ServiceConfig{
		GeminiAPIKey: "test-key",
		HTTPClient:   stubClient(http.StatusInternalServerError, `{}`),
	})

	result, err := svc.Generate(context.Background(), samplePassage, "mcq", "easy")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Source != "local_fallback" {
		t.Fatalf("source = %q, want local_fallback", result.Source)
	}
	if len(result.Questions) == 0 {
		t.Fatal("expected fallback questions")
	}
}

func TestParseQuestionJSONWithFences(t *testing.T) {
	reply := "```json\n[{\"question\":\"Q?\",\"options\":[\"A\",\"B\"],\"correct_answer\":\"A\"}]\n```"
	questions, err := parseQuestionJSON(reply, "mcq", "hard")
	if err != nil {
		t.Fatalf("parseQuestionJSON: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(questions))
	}
	if questions[0].Type != "mcq" || questions[0].Difficulty != "hard" {
		t.Fatalf("defaults not applied: %+v", questions[0])
	}
}
