package annotate

import (
	"reflect"
	"sync"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestProcessor_Process_EndToEnd(t *testing.T) {
	p := NewProcessor(nil)

	result := p.Process("Очень вкусно, но долго ждали. Персонал вежливый.", intPtr(4))

	// очень doubles долго (-3.0); "вкусно," and "вежливый." carry
	// punctuation and miss the lexicon.
	if result.SentimentScore != -3.0 {
		t.Errorf("expected score -3.0, got %v", result.SentimentScore)
	}
	if result.Verdict != VerdictStronglyNotRecommend {
		t.Errorf("expected verdict %q, got %q", VerdictStronglyNotRecommend, result.Verdict)
	}

	wantTags := []Tag{TagPoliteStaff, TagTastyFood, TagSlowService}
	if !reflect.DeepEqual(result.Tags, wantTags) {
		t.Errorf("expected tags %v, got %v", wantTags, result.Tags)
	}
	if got := result.EnglishTags(); !reflect.DeepEqual(got, []string{"Polite staff", "Tasty food", "Slow service"}) {
		t.Errorf("unexpected English tags %v", got)
	}

	if result.UserRating == nil || *result.UserRating != 4 {
		t.Errorf("expected user rating 4, got %v", result.UserRating)
	}
}

func TestProcessor_Process_Neutral(t *testing.T) {
	p := NewProcessor(nil)

	for _, text := range []string{"", "   ", "мы пришли в обед", "12345 !!!"} {
		result := p.Process(text, nil)
		if result.SentimentScore != 0 {
			t.Errorf("%q: expected score 0, got %v", text, result.SentimentScore)
		}
		if result.Verdict != VerdictNeutral {
			t.Errorf("%q: expected neutral verdict, got %q", text, result.Verdict)
		}
		if result.Tags == nil || len(result.Tags) != 0 {
			t.Errorf("%q: expected empty non-nil tags, got %#v", text, result.Tags)
		}
		if result.UserRating != nil {
			t.Errorf("%q: expected nil rating", text)
		}
	}
}

func TestProcessor_Process_StrongPhraseOnly(t *testing.T) {
	p := NewProcessor(nil)

	result := p.Process("превосходно", nil)
	if result.SentimentScore != 3 {
		t.Errorf("expected score 3, got %v", result.SentimentScore)
	}
	if result.Verdict != VerdictRecommend {
		t.Errorf("expected %q, got %q", VerdictRecommend, result.Verdict)
	}
}

func TestProcessor_Process_NegationExpiry(t *testing.T) {
	p := NewProcessor(nil)

	// "не," is not the negation token, and очень doubles вкусно.
	result := p.Process("не, очень вкусно", nil)
	if result.SentimentScore != 3 {
		t.Errorf("expected score 3, got %v", result.SentimentScore)
	}
	if !hasTag(result.Tags, TagTastyFood) {
		t.Errorf("expected Tasty food, got %v", result.Tags)
	}
}

func TestProcessor_Process_RatingIgnored(t *testing.T) {
	p := NewProcessor(nil)
	text := "Уютно, вкусно, рекомендую всем"

	low := p.Process(text, intPtr(1))
	high := p.Process(text, intPtr(5))

	if low.SentimentScore != high.SentimentScore || low.Verdict != high.Verdict {
		t.Errorf("rating changed the outcome: %+v vs %+v", low, high)
	}
	if !reflect.DeepEqual(low.Tags, high.Tags) {
		t.Errorf("rating changed the tags: %v vs %v", low.Tags, high.Tags)
	}
}

func TestProcessor_Process_Deterministic(t *testing.T) {
	p := NewProcessor(nil)
	text := "Не очень свежие салаты, но кофе отличный и цены приемлемые"

	first := p.Process(text, intPtr(3))
	for i := 0; i < 5; i++ {
		if got := p.Process(text, intPtr(3)); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestProcessor_Process_Concurrent(t *testing.T) {
	p := NewProcessor(nil)
	text := "Очень вкусно, но долго ждали. Персонал вежливый."
	want := p.Process(text, nil)

	var wg sync.WaitGroup
	errs := make(chan Result, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := p.Process(text, nil); !reflect.DeepEqual(got, want) {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("concurrent result differs: %+v", got)
	}
}

func TestProcessor_Process_LongText(t *testing.T) {
	p := NewProcessor(nil)

	text := ""
	for i := 0; i < 2000; i++ {
		text += "очень вкусно и "
	}

	result := p.Process(text, nil)
	if result.Verdict != VerdictStronglyRecommend {
		t.Errorf("expected %q for long praise, got %q", VerdictStronglyRecommend, result.Verdict)
	}
	if len(result.Tags) > MaxTags {
		t.Errorf("tag cap exceeded: %d", len(result.Tags))
	}
}
