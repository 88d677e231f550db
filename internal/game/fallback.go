package game

// Fallback narratives shown in place of a raw error. The player always gets a
// coherent, in-fiction stop rather than an error dialog.
const (
	FallbackTurnNarrative     = "An unexpected error occurred. The fabric of reality seems to have torn. Perhaps you should try again?"
	FallbackTurnReason        = "A critical error occurred with the simulation."
	FallbackCreationNarrative = "An unexpected error occurred during character creation. The universe failed to coalesce. Please try starting a new life."
	FallbackCreationReason    = "A critical error occurred during the simulation's big bang."
)

// fallbackYear keeps the fallback character a fixed value so callers and
// tests can compare for exact equality.
const fallbackYear = 2024

// FallbackCharacter returns the fixed minimal character substituted when a
// model call fails or returns an unusable payload.
func FallbackCharacter() Character {
	gender := GenderBoy
	job := "Unemployed"
	desc := "An average person"
	loc := "An unknown place"
	return Character{
		Gender:              &gender,
		Age:                 18,
		Health:              100,
		MentalHealth:        100,
		Happiness:           50,
		Education:           12,
		Hunger:              80,
		Thirst:              80,
		Habits:              []string{},
		Job:                 &job,
		Finances:            FinancialStats{},
		Skills:              Skills{},
		Time:                Clock{Day: 1, Hour: 8, Minute: 0, DayOfWeek: "Monday"},
		Conditions:          []HealthCondition{},
		Schedule:            []ScheduledEvent{},
		WorldState:          WorldState{EconomicClimate: ClimateStable, CurrentYear: fallbackYear},
		Relationships:       []Relationship{},
		PhysicalDescription: &desc,
		Location:            &loc,
	}
}

// FallbackTurnResult is the universal degrade-to-safe-stop result for a
// failed primary turn call: a fixed apology narrative, the fallback
// character, a single Restart choice, and a forced game over.
func FallbackTurnResult() TurnResult {
	return TurnResult{
		Narrative:      FallbackTurnNarrative,
		Character:      FallbackCharacter(),
		Choices:        []Choice{{Text: "Restart"}},
		IsGameOver:     true,
		GameOverReason: FallbackTurnReason,
	}
}

// FallbackCreationResult is the equivalent safe stop for a failed
// character-creation call.
func FallbackCreationResult() TurnResult {
	return TurnResult{
		Narrative:      FallbackCreationNarrative,
		Character:      FallbackCharacter(),
		Choices:        []Choice{{Text: "Restart"}},
		IsGameOver:     true,
		GameOverReason: FallbackCreationReason,
	}
}
