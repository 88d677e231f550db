package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talgya/alterlife/internal/game"
)

// replyWith builds a Service talking to a stub proxy that answers every
// call with the given handler.
func replyWith(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(NewClient(srv.URL, ""), nil)
}

func textReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"text": text}},
			},
		})
	}
}

func TestNextSegmentParsesStructuredReply(t *testing.T) {
	payload := `{"narrative":"The sun rises.","updatedCharacterState":{"age":25},"choices":[],"isGameOver":false,"sceneMood":"Happy"}`
	svc := replyWith(t, textReply(payload))

	result := svc.NextSegment(context.Background(), "ctx")
	if result.Narrative != "The sun rises." {
		t.Errorf("narrative = %q", result.Narrative)
	}
	if result.Character.Age != 25 {
		t.Errorf("age = %d", result.Character.Age)
	}
	if result.SceneMood != game.MoodHappy {
		t.Errorf("mood = %q", result.SceneMood)
	}
	if result.IsGameOver {
		t.Error("unexpected game over")
	}
}

func TestNextSegmentFallsBackOnTransportError(t *testing.T) {
	svc := replyWith(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	result := svc.NextSegment(context.Background(), "ctx")
	want := game.FallbackTurnResult()
	if result.Narrative != want.Narrative || !result.IsGameOver {
		t.Fatalf("expected fallback turn result, got %+v", result)
	}
}

func TestNextSegmentFallsBackOnGarbageReply(t *testing.T) {
	svc := replyWith(t, textReply("I'd love to help but here is prose instead of JSON."))

	result := svc.NextSegment(context.Background(), "ctx")
	if result.Narrative != game.FallbackTurnNarrative {
		t.Fatalf("expected fallback narrative, got %q", result.Narrative)
	}
	if !result.IsGameOver || result.GameOverReason != game.FallbackTurnReason {
		t.Fatalf("fallback must force game over: %+v", result)
	}
}

func TestCreateCharacterFallsBackWithCreationReason(t *testing.T) {
	svc := replyWith(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	})

	result := svc.CreateCharacter(context.Background(), nil)
	if result.GameOverReason != game.FallbackCreationReason {
		t.Fatalf("reason = %q, want creation fallback", result.GameOverReason)
	}
}

func TestCreateCharacterRequestVariants(t *testing.T) {
	var captured GenerateRequest
	handler := func(w http.ResponseWriter, r *http.Request) {
		captured = GenerateRequest{}
		json.NewDecoder(r.Body).Decode(&captured)
		textReply(`{"narrative":"born","updatedCharacterState":{"age":8},"choices":[],"isGameOver":false}`)(w, r)
	}

	t.Run("fresh start is search grounded", func(t *testing.T) {
		svc := replyWith(t, handler)
		svc.CreateCharacter(context.Background(), nil)
		if len(captured.Config.Tools) == 0 || captured.Config.Tools[0].GoogleSearch == nil {
			t.Fatal("expected the search tool")
		}
		if captured.Config.ResponseSchema != nil {
			t.Fatal("fresh creation must not pin a response schema")
		}
	})

	t.Run("legacy start is structured", func(t *testing.T) {
		svc := replyWith(t, handler)
		legacy := &game.LegacyContext{
			Parent: game.Character{WorldState: game.WorldState{CurrentYear: 1950}},
			Child:  game.Relationship{Name: "Jo", Type: game.RelationChild},
		}
		svc.CreateCharacter(context.Background(), legacy)
		if captured.Config.ResponseSchema == nil {
			t.Fatal("legacy creation must use the response schema")
		}
		if len(captured.Config.Tools) != 0 {
			t.Fatal("legacy creation must not search")
		}
		if !strings.Contains(captured.Contents, `"Jo"`) {
			t.Fatalf("child name missing from contents: %q", captured.Contents)
		}
	})
}

func TestWorldEventPrefixesClimate(t *testing.T) {
	reply := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"text": `{"narrative":"A crash wipes the markets.","newEconomicClimate":"Recession"}`,
				},
				"groundingMetadata": map[string]any{
					"groundingChunks": []any{
						map[string]any{"web": map[string]any{"uri": "https://example.com", "title": "News"}},
					},
				},
			},
		},
	}
	svc := replyWith(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(reply)
	})

	ev, err := svc.WorldEvent(context.Background(), game.Character{})
	if err != nil {
		t.Fatalf("WorldEvent error: %v", err)
	}
	if ev.Narrative != "(Recession) A crash wipes the markets." {
		t.Errorf("narrative = %q", ev.Narrative)
	}
	if ev.NewClimate != game.ClimateRecession {
		t.Errorf("climate = %q", ev.NewClimate)
	}
	if len(ev.Sources) != 1 || ev.Sources[0].URI != "https://example.com" {
		t.Errorf("sources = %+v", ev.Sources)
	}
}

func TestWorldEventKeepsRawTextWhenInnerParseFails(t *testing.T) {
	svc := replyWith(t, textReply("The world shifted in ways hard to summarize."))

	ev, err := svc.WorldEvent(context.Background(), game.Character{})
	if err != nil {
		t.Fatalf("WorldEvent error: %v", err)
	}
	if ev.Narrative != "The world shifted in ways hard to summarize." {
		t.Errorf("narrative = %q", ev.Narrative)
	}
	if ev.NewClimate != "" {
		t.Errorf("climate should stay empty, got %q", ev.NewClimate)
	}
}

func TestWorldEventTransportFailureIsAnError(t *testing.T) {
	svc := replyWith(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	if _, err := svc.WorldEvent(context.Background(), game.Character{}); err == nil {
		t.Fatal("expected an error on transport failure")
	}
}

func TestRandomEvent(t *testing.T) {
	svc := replyWith(t, textReply("An old friend calls out of nowhere."))

	got, err := svc.RandomEvent(context.Background(), game.Character{Age: 30})
	if err != nil {
		t.Fatalf("RandomEvent error: %v", err)
	}
	if got != "An old friend calls out of nowhere." {
		t.Errorf("narrative = %q", got)
	}
}

func TestRandomEventEmptyReplyIsAnError(t *testing.T) {
	svc := replyWith(t, textReply(""))
	if _, err := svc.RandomEvent(context.Background(), game.Character{}); err == nil {
		t.Fatal("expected an error for an empty narrative")
	}
}

func TestGenerateImageWithoutProvider(t *testing.T) {
	svc := NewService(NewClient("http://unused", ""), nil)
	url, err := svc.GenerateImage(context.Background(), "narrative", game.Character{})
	if err != nil || url != "" {
		t.Fatalf("got (%q, %v), want silent no-image", url, err)
	}
}
