package game

// Choice is a single option presented to the player.
type Choice struct {
	Text string `json:"text"`
}

// Source cites a web page a search-grounded world event drew from.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// WorldEvent is the settled output of the periodic world-event side channel.
type WorldEvent struct {
	Narrative  string          `json:"narrative"`
	NewClimate EconomicClimate `json:"newEconomicClimate"`
	Sources    []Source        `json:"sources"`
}

// TurnResult is the normalized outcome of one primary model call. It is
// transient: the session consumes it immediately and never persists it.
// Exactly one of AspirationsToChoose / Choices is active after a merge;
// aspiration choices take precedence when both are present.
type TurnResult struct {
	Narrative           string             `json:"narrative"`
	Character           Character          `json:"updatedCharacterState"`
	Choices             []Choice           `json:"choices"`
	IsGameOver          bool               `json:"isGameOver"`
	GameOverReason      string             `json:"gameOverReason"`
	SceneMood           SceneMood          `json:"sceneMood,omitempty"`
	AspirationsToChoose []Choice           `json:"aspirationsToChoose,omitempty"`
	StatModifiers       map[string]float64 `json:"statModifiers,omitempty"`
	FinancialModifiers  map[string]float64 `json:"financialModifiers,omitempty"`
	SkillModifiers      map[string]float64 `json:"skillModifiers,omitempty"`
	IsMajorLifeEvent    bool               `json:"isMajorLifeEvent,omitempty"`
}

// StorySegment is one append-only history entry. It is written once per
// completed turn and mutated exactly once more if an asynchronous image
// resolves for it; segments are never deleted except on full restart.
type StorySegment struct {
	Narrative            string   `json:"narrative"`
	Choices              []Choice `json:"choices"`
	ImageURL             string   `json:"imageUrl,omitempty"`
	RandomEventNarrative string   `json:"randomEventNarrative,omitempty"`
	WorldEventNarrative  string   `json:"worldEventNarrative,omitempty"`
	WorldEventSources    []Source `json:"worldEventSources,omitempty"`
	Age                  int      `json:"age"`
	IsMajorLifeEvent     bool     `json:"isMajorLifeEvent,omitempty"`
}
