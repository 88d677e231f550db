package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/alterlife/internal/game"
)

const gameMasterInstruction = `
You are a text-based life simulation game master. Your goal is to create a branching, dynamic, and realistic life story for the user. Your narrative style is deeply immersive, written from a first-person perspective, focusing on the character's internal thoughts and feelings. You will manage ALL aspects of the character's state.

RULES:
1.  **Always respond in JSON format.** Do not add any text before or after the JSON object.
2.  The JSON object must strictly adhere to the provided schema. You MUST return the complete 'updatedCharacterState' object with ALL fields populated.

---
**CORE SIMULATION (CRITICAL)**
You are in complete control of the simulation. Every action has a cause and effect that you must calculate and reflect in the state.

3.  **Time Management & Calendar:** You MUST manage a 24-hour clock and a 7-day week calendar. Every choice or action consumes time. You MUST update the clock realistically. When the 'day' increments, you MUST update the 'dayOfWeek'. The 'worldState.currentYear' MUST be incremented every 365 days.
4.  **Physiological Needs:** You MUST manage 'hunger' and 'thirst'. They decrease gradually over time. If they get too low, health and happiness MUST decrease significantly.
5.  **Tangible Health System:** You MUST manage 'health' and 'mentalHealth' separately. Habits and stress can lead to 'conditions' which have narrative and mechanical impacts.
6.  **Schedule Management (CRITICAL):** You MUST create and manage a 'schedule' for the character based on their job, school, or other major responsibilities. When the in-game time overlaps with a scheduled event, the narrative MUST reflect this. Skipping scheduled responsibilities MUST have negative consequences.
7.  **The Tides of Time (CRITICAL):** You MUST consider the 'worldState.economicClimate' ('Recession', 'Stable', 'Boom') when generating all narratives and outcomes. This MUST be a tangible factor in the simulation.

---
**GAMEPLAY LOOP: FREE WILL & DYNAMIC STORYTELLER (CRITICAL)**

8.  **Player Agency is Default:** The player's primary way of interacting is through "Daily Actions". When the user performs a Daily Action, you will execute it, update the state, and narrate the outcome. For these routine actions, you MUST return an **empty 'choices' array**.
9.  **You are the Dynamic Storyteller:** At random, narratively appropriate moments, you will proactively trigger a multi-choice story event. This is an interruption to the character's daily life.
10. **Skills & Habits:** Skills ('fitness', 'intelligence', 'charisma') are improved through related daily actions. Habits form after repeated actions or significant events and influence stats and story event probability. A character with low happiness will struggle to perform positive actions.

---
**LIVING WORLD & DYNAMIC NPCS (CRITICAL)**
11. **Proactive NPCs & Social Dilemmas:** NPCs have their own lives that progress in the background. On any given turn, you have a chance to trigger a proactive event where an NPC's life directly intersects with the player's, creating a social dilemma presented as a core part of the narrative. The NPC's 'lifeSituation' and 'recentEvent' fields MUST be updated to reflect this.

---
**NARRATIVE STYLE & MOOD (CRITICAL)**
12. Every response must be a deep, first-person internal monologue. "Show, don't tell."
13. You MUST set the 'sceneMood' ('Neutral', 'Happy', 'Sad', 'Tense', 'Reflective').

---
**RESPONSE FORMAT**
14. **State Replacement:** You will return the *entire* updated state of the character in the 'updatedCharacterState' object.
15. **Modifiers:** You MUST populate the 'statModifiers', 'financialModifiers', and 'skillModifiers' objects with the numerical *change* for any stat that was affected this turn.
`

const worldEventInstruction = `
You are a world event generator for a life simulation game. Your goal is to find a major real-world event that impacts the player's life and update the world's economic climate.

RULES:
1.  **Always respond in JSON format.** Your response must be a single JSON object with two keys: "narrative" and "newEconomicClimate". Example: { "narrative": "...", "newEconomicClimate": "Recession" }
2.  Use the search tool to find a significant, real-world event (economic, political, technological, or cultural) that occurred in or around the character's 'currentYear' and 'location'.
3.  Your narrative MUST be a concise, one-paragraph summary of the event and its immediate, tangible impact on the player's life.
4.  You MUST determine the new 'economicClimate' ('Recession', 'Stable', 'Boom') that results from this event. The narrative must mention this new climate.
5.  You MUST return the sources you used for your research.
`

const randomEventInstruction = `
You are a random-event generator for a life simulation game. Produce a single short, unexpected personal event that plausibly happens to the character today — a chance meeting, a minor accident, a small windfall, a call from an old friend. It must be personal in scale, not a world event.

RULES:
1.  Respond with ONE short paragraph of plain text. No JSON, no markdown, no preamble.
2.  The event must fit the character's age, location, era, and current situation.
3.  Do not resolve the event's consequences; just describe what happens.
`

const createCharacterInstruction = `
You are creating the starting point for a life simulation game. The goal is to generate a completely random and unique starting scenario for a new character.

RULES:
1.  **Always respond in JSON format** matching the provided schema. You must return the COMPLETE 'updatedCharacterState' object.
2.  **Total Randomness (CRITICAL):**
    *   You MUST randomly determine the character's 'gender' ('boy' or 'girl').
    *   You MUST set a random starting 'age' between 8 and 55.
    *   You MUST generate a specific, real-world starting 'location' (e.g., "Kyoto, Japan" or "Bend, Oregon, USA").
    *   You MUST set a random 'worldState.currentYear' between 1 AD and 2124.
3.  **Historical/Future Context (CRITICAL):**
    *   **If the 'currentYear' is in the past**, you MUST use the search tool to research the actual historical context of that year and location. The character's backstory, situation, job, finances, and relationships MUST be historically plausible.
    *   **If the 'currentYear' is in the future**, you MUST generate a plausible, speculative vision of that future world.
4.  **Inherent Challenge (CRITICAL):** Every character, regardless of their starting situation, MUST begin with a significant, pre-existing life problem or source of conflict.
5.  **Backstory & Justification:** You must generate a unique backstory that justifies all the initial stats, relationships, and the starting problem.
6.  **Set all initial character stats:** These MUST be logical consequences of the generated backstory. 'schedule' MUST be created based on their age/job. You MUST set the initial 'worldState.economicClimate' to 'Stable'.
7.  **Write the initial 'narrative':** Introduce the character and their current, challenging situation.
8.  **Provide the first 3-4 'choices'** directly relevant to their starting problem.
`

// BuildTurnContext serializes the current character plus the last narrative
// line and the chosen action into the primary call's base context. A fixed
// sentinel stands in for the last narrative on the very first turn.
func BuildTurnContext(c game.Character, lastNarrative, action string) string {
	if lastNarrative == "" {
		lastNarrative = "This is the beginning of my life."
	}
	state, _ := json.Marshal(c)
	return fmt.Sprintf("My current character state is: %s.\nThe last thing that happened was: %q.\nI chose to: %q.\nWhat happens next? Calculate the new state.",
		state, lastNarrative, action)
}

// BuildAspirationContext frames an aspiration selection as its own turn.
func BuildAspirationContext(c game.Character, aspiration string) string {
	state, _ := json.Marshal(c)
	return fmt.Sprintf("My character state is %s. They have just chosen their long-term aspiration: %q. Describe the character's thoughts immediately after this life-altering decision, and set the scene for what happens next.",
		state, aspiration)
}

// SpliceEvents folds the settled side-channel narratives into the primary
// call's prompt as additional grounding facts.
func SpliceEvents(baseContext, randomEvent, worldEvent string) string {
	var b strings.Builder
	b.WriteString(baseContext)
	b.WriteString("\n")
	if randomEvent != "" {
		fmt.Fprintf(&b, "An unexpected personal event also occurred: %q.\n", randomEvent)
	}
	if worldEvent != "" {
		fmt.Fprintf(&b, "A major world event is also impacting the character: %q.\n", worldEvent)
	}
	b.WriteString("Generate the next part of the story. The 'narrative' you generate should describe the combined outcome. Update the entire character state logically based on all events.")
	return b.String()
}

// worldEventPrompt asks for an event grounded in the character's year and place.
func worldEventPrompt(c game.Character) string {
	location := "an unknown place"
	if c.Location != nil {
		location = *c.Location
	}
	return fmt.Sprintf("Generate a major world event for a character in the year %d living in %s.",
		c.WorldState.CurrentYear, location)
}

// randomEventPrompt summarizes the character for the personal-event call.
func randomEventPrompt(c game.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The character is %d years old", c.Age)
	if c.Job != nil {
		fmt.Fprintf(&b, ", working as %s", *c.Job)
	}
	if c.Location != nil {
		fmt.Fprintf(&b, ", living in %s", *c.Location)
	}
	fmt.Fprintf(&b, ", in the year %d.", c.WorldState.CurrentYear)
	if len(c.Relationships) > 0 {
		b.WriteString(" People in their life:")
		for i, r := range c.Relationships {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, " %s (%s);", r.Name, r.Type)
		}
	}
	b.WriteString(" Generate one unexpected personal event for them today.")
	return b.String()
}

// legacyCreationPrompt parameterizes character creation by the prior life's
// parent and the selected child relationship.
func legacyCreationPrompt(legacy game.LegacyContext) string {
	parent := legacy.Parent
	parentState, _ := json.Marshal(parent)
	var b strings.Builder
	fmt.Fprintf(&b, "Create the next generation. The previous character has died; the player continues as their child %q", legacy.Child.Name)
	if legacy.Child.LifeSituation != nil {
		fmt.Fprintf(&b, " (%s)", *legacy.Child.LifeSituation)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "The parent's final net worth was %s in the year %d, living in %s.\n",
		humanize.Commaf(parent.Finances.NetWorth), parent.WorldState.CurrentYear, stringOr(parent.Location, "an unknown place"))
	fmt.Fprintf(&b, "Full parent state for reference: %s.\n", parentState)
	b.WriteString("The child inherits the family's circumstances, relationships, and era. Generate their complete starting state, an opening narrative continuing the family story, and the first 3-4 choices.")
	return b.String()
}

func legacyCreationInstruction() string {
	return strings.Replace(createCharacterInstruction,
		"The goal is to generate a completely random and unique starting scenario for a new character.",
		"You are creating a legacy character: the child of the previous character, inheriting their family, location, and era. Keep the world consistent with the parent's life.",
		1)
}

var (
	firstPersonAm = regexp.MustCompile(`(?i)\b(I am|I'm)\b`)
	firstPersonMy = regexp.MustCompile(`(?i)\bmy\b`)
	firstPersonI  = regexp.MustCompile(`\bI\b`)
)

// BuildImagePrompt converts the turn's first-person narrative into a scene
// description for the image provider. Returns "" when the character lacks a
// physical description or gender, in which case no image is requested.
func BuildImagePrompt(narrative string, c game.Character) string {
	if c.PhysicalDescription == nil || c.Gender == nil {
		return ""
	}

	scene := firstPersonAm.ReplaceAllString(narrative, "the character is")
	scene = firstPersonMy.ReplaceAllString(scene, "their")
	scene = firstPersonI.ReplaceAllString(scene, "the character")

	sex := "male"
	if *c.Gender == game.GenderGirl {
		sex = "female"
	}

	return fmt.Sprintf(`A digital painting of a %d-year-old %s.
Year: %d.
Job: %s.
Appearance: %s.
Location: %s.
Scene: %s.
Style: cinematic, evocative, slightly stylized realism, moody lighting.`,
		c.Age, sex, c.WorldState.CurrentYear, stringOr(c.Job, "Unemployed"),
		*c.PhysicalDescription, stringOr(c.Location, "an unknown place"), scene)
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
