package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/alterlife/internal/game"
)

// Proxy paths for the two generation endpoints.
const (
	pathNextSegment     = "/api/next-segment"
	pathCreateCharacter = "/api/create-character"
)

// Service issues the game's model calls and normalizes their replies. The
// primary-turn and creation calls never surface raw errors: any failure is
// converted into the fixed fallback result so a malformed reply can only
// end the run gracefully. Side-channel calls return errors and the caller
// degrades them to "no event this turn".
type Service struct {
	client *Client
	images *ImageClient
	model  string
}

// NewService wires a Service over the proxy client. images may be nil when
// no image provider is configured.
func NewService(client *Client, images *ImageClient) *Service {
	return &Service{client: client, images: images, model: defaultModel}
}

// NextSegment runs the structured primary turn call. The returned
// TurnResult is always usable; failures degrade to the fallback.
func (s *Service) NextSegment(ctx context.Context, contents string) game.TurnResult {
	req := GenerateRequest{
		Contents: contents,
		Config: RequestConfig{
			SystemInstruction: gameMasterInstruction,
			ResponseMIMEType:  "application/json",
			ResponseSchema:    TurnSchema(),
			Temperature:       0.9,
			Model:             s.model,
		},
	}

	body, err := s.client.Generate(ctx, pathNextSegment, req)
	if err != nil {
		slog.Error("primary turn call failed", "error", err)
		return game.FallbackTurnResult()
	}

	result, err := ParseTurn(body)
	if err != nil {
		slog.Error("primary turn reply unusable", "error", err)
		return game.FallbackTurnResult()
	}
	return result
}

// CreateCharacter runs the character-creation call. With no legacy context
// the call is search-grounded (free-text JSON expected); a legacy restart
// uses the structured schema since the era is already fixed by the parent.
func (s *Service) CreateCharacter(ctx context.Context, legacy *game.LegacyContext) game.TurnResult {
	var req GenerateRequest
	if legacy == nil {
		req = GenerateRequest{
			Contents: "Create the initial character and starting scenario.",
			Config: RequestConfig{
				SystemInstruction: createCharacterInstruction,
				Temperature:       1.0,
				Model:             s.model,
				Tools:             SearchTool(),
			},
		}
	} else {
		req = GenerateRequest{
			Contents: legacyCreationPrompt(*legacy),
			Config: RequestConfig{
				SystemInstruction: legacyCreationInstruction(),
				ResponseMIMEType:  "application/json",
				ResponseSchema:    TurnSchema(),
				Temperature:       1.0,
				Model:             s.model,
			},
		}
	}

	body, err := s.client.Generate(ctx, pathCreateCharacter, req)
	if err != nil {
		slog.Error("character creation call failed", "error", err)
		return game.FallbackCreationResult()
	}

	result, err := ParseTurn(body)
	if err != nil {
		slog.Error("character creation reply unusable", "error", err)
		return game.FallbackCreationResult()
	}
	return result
}

// RandomEvent generates a short personal-event narrative fragment. Errors
// mean the channel contributes nothing this turn.
func (s *Service) RandomEvent(ctx context.Context, c game.Character) (string, error) {
	req := GenerateRequest{
		Contents: randomEventPrompt(c),
		Config: RequestConfig{
			SystemInstruction: randomEventInstruction,
			Temperature:       1.0,
			Model:             s.model,
		},
	}

	body, err := s.client.Generate(ctx, pathNextSegment, req)
	if err != nil {
		return "", fmt.Errorf("random event: %w", err)
	}

	text := strings.TrimSpace(StripFences(ExtractText(body)))
	if text == "" {
		return "", fmt.Errorf("random event: empty narrative")
	}
	return text, nil
}

// worldEventPayload is the inner JSON the world-event call is asked for.
type worldEventPayload struct {
	Narrative          string               `json:"narrative"`
	NewEconomicClimate game.EconomicClimate `json:"newEconomicClimate"`
}

// WorldEvent runs the search-grounded world-event call. On a clean parse
// the narrative is prefixed with the new climate; if only the inner JSON is
// malformed the raw text still ships with its sources. Transport failures
// return an error and the channel yields nothing.
func (s *Service) WorldEvent(ctx context.Context, c game.Character) (*game.WorldEvent, error) {
	req := GenerateRequest{
		Contents: worldEventPrompt(c),
		Config: RequestConfig{
			SystemInstruction: worldEventInstruction,
			Temperature:       1.0,
			Model:             s.model,
			Tools:             SearchTool(),
		},
	}

	body, err := s.client.Generate(ctx, pathNextSegment, req)
	if err != nil {
		return nil, fmt.Errorf("world event: %w", err)
	}

	sources := ExtractSources(body)
	text := StripFences(ExtractText(body))

	var payload worldEventPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil || payload.Narrative == "" {
		slog.Warn("world event reply not parseable, using raw text", "error", err)
		return &game.WorldEvent{Narrative: text, Sources: sources}, nil
	}

	return &game.WorldEvent{
		Narrative:  fmt.Sprintf("(%s) %s", payload.NewEconomicClimate, payload.Narrative),
		NewClimate: payload.NewEconomicClimate,
		Sources:    sources,
	}, nil
}

// GenerateImage asks the image provider for a scene illustration. A missing
// provider or any failure resolves to an empty URL; silent no-image is
// acceptable.
func (s *Service) GenerateImage(ctx context.Context, narrative string, c game.Character) (string, error) {
	if s.images == nil {
		return "", nil
	}
	prompt := BuildImagePrompt(narrative, c)
	if prompt == "" {
		return "", nil
	}
	return s.images.Generate(ctx, prompt)
}
