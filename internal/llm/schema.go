package llm

// Schema is the JSON-schema subset the provider accepts for structured
// responses.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

func str(desc string) *Schema   { return &Schema{Type: "string", Description: desc} }
func num() *Schema              { return &Schema{Type: "number"} }
func boolean() *Schema          { return &Schema{Type: "boolean"} }
func arr(items *Schema) *Schema { return &Schema{Type: "array", Items: items} }

func obj(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// TurnSchema is the structured-response contract for ordinary turns: one
// narrative, a complete replacement character state, choices, and the
// game-over flags. Optional display fields (mood, modifiers, aspirations)
// are not required so a sparse reply still validates.
func TurnSchema() *Schema {
	clockTime := obj(map[string]*Schema{
		"hour":   num(),
		"minute": num(),
	})

	character := obj(map[string]*Schema{
		"gender":              str(""),
		"age":                 num(),
		"health":              num(),
		"mentalHealth":        num(),
		"happiness":           num(),
		"education":           num(),
		"hunger":              num(),
		"thirst":              num(),
		"physicalDescription": str(""),
		"location":            str(""),
		"aspiration":          str(""),
		"job":                 str(""),
		"habits":              arr(str("")),
		"schedule": arr(obj(map[string]*Schema{
			"eventName": str(""),
			"days":      arr(str("")),
			"startTime": clockTime,
			"endTime":   clockTime,
		}, "eventName", "days", "startTime", "endTime")),
		"conditions": arr(obj(map[string]*Schema{
			"name":     str(""),
			"severity": str(""),
		}, "name", "severity")),
		"finances": obj(map[string]*Schema{
			"checking": num(),
			"savings":  num(),
			"income":   num(),
			"expenses": num(),
			"netWorth": num(),
		}, "checking", "savings", "income", "expenses", "netWorth"),
		"skills": obj(map[string]*Schema{
			"fitness":      num(),
			"intelligence": num(),
			"charisma":     num(),
		}, "fitness", "intelligence", "charisma"),
		"time": obj(map[string]*Schema{
			"day":       num(),
			"hour":      num(),
			"minute":    num(),
			"dayOfWeek": str(""),
		}, "day", "hour", "minute", "dayOfWeek"),
		"relationships": arr(obj(map[string]*Schema{
			"name":          str(""),
			"type":          str(""),
			"status":        num(),
			"lifeSituation": str("The NPC's current general life situation. Nullable."),
			"recentEvent":   str("A recent event that happened to the NPC. Nullable."),
		}, "name", "type", "status", "lifeSituation", "recentEvent")),
		"worldState": obj(map[string]*Schema{
			"economicClimate": {Type: "string", Enum: []string{"Recession", "Stable", "Boom"}},
			"currentYear":     num(),
		}, "economicClimate", "currentYear"),
	},
		"gender", "age", "health", "mentalHealth", "happiness", "education",
		"hunger", "thirst", "physicalDescription", "location", "aspiration",
		"job", "habits", "conditions", "schedule", "finances", "skills",
		"time", "relationships", "worldState",
	)

	choice := obj(map[string]*Schema{
		"text": str("The text for a choice the user can make."),
	}, "text")

	modifier := func(fields ...string) *Schema {
		props := make(map[string]*Schema, len(fields))
		for _, f := range fields {
			props[f] = num()
		}
		return &Schema{Type: "object", Properties: props}
	}

	return obj(map[string]*Schema{
		"narrative":             str("A paragraph of the story describing the current situation from a first-person, internal monologue perspective."),
		"updatedCharacterState": character,
		"choices": {
			Type:        "array",
			Description: "Choices for the player. Empty for routine daily actions; populated only for storyteller-triggered events.",
			Items:       choice,
		},
		"isGameOver":     boolean(),
		"gameOverReason": str("Reason for game over, or empty string."),
		"sceneMood": {
			Type:        "string",
			Description: "The dominant emotional mood of the scene. Used to select background music.",
			Enum:        []string{"Neutral", "Happy", "Sad", "Tense", "Reflective"},
		},
		"aspirationsToChoose": {
			Type:        "array",
			Description: "A list of aspirations for the user to choose from. Only present this once.",
			Items:       choice,
		},
		"statModifiers":      modifier("health", "mentalHealth", "happiness", "education", "hunger", "thirst"),
		"financialModifiers": modifier("checking", "savings", "income", "expenses", "netWorth"),
		"skillModifiers":     modifier("fitness", "intelligence", "charisma"),
		"isMajorLifeEvent": {
			Type:        "boolean",
			Description: "Set to true ONLY for a major, life-defining event. Use sparingly.",
		},
	}, "narrative", "updatedCharacterState", "choices", "isGameOver", "gameOverReason")
}
