// Package game defines the character schema and turn result types.
// Every field here is produced by the external model and replaced wholesale
// each turn; nothing in this package mutates a Character field-by-field.
package game

// Gender of the simulated character as the model reports it.
type Gender string

const (
	GenderBoy  Gender = "boy"
	GenderGirl Gender = "girl"
)

// EconomicClimate describes the state of the world economy.
type EconomicClimate string

const (
	ClimateRecession EconomicClimate = "Recession"
	ClimateStable    EconomicClimate = "Stable"
	ClimateBoom      EconomicClimate = "Boom"
)

// Severity grades a health condition.
type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// RelationType categorizes a relationship.
type RelationType string

const (
	RelationFamily   RelationType = "Family"
	RelationFriend   RelationType = "Friend"
	RelationRomantic RelationType = "Romantic"
	RelationRival    RelationType = "Rival"
	RelationSpouse   RelationType = "Spouse"
	RelationChild    RelationType = "Child"
	RelationOther    RelationType = "Other"
)

// SceneMood drives background-music selection, one value per turn.
type SceneMood string

const (
	MoodNeutral    SceneMood = "Neutral"
	MoodHappy      SceneMood = "Happy"
	MoodSad        SceneMood = "Sad"
	MoodTense      SceneMood = "Tense"
	MoodReflective SceneMood = "Reflective"
)

// FinancialStats holds the character's money in signed currency units.
// Income and expenses are monthly.
type FinancialStats struct {
	Checking float64 `json:"checking"`
	Savings  float64 `json:"savings"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	NetWorth float64 `json:"netWorth"`
}

// Skills are 0-100 scalars improved through related daily actions.
type Skills struct {
	Fitness      int `json:"fitness"`
	Intelligence int `json:"intelligence"`
	Charisma     int `json:"charisma"`
}

// Clock is the in-game wall clock the model advances every turn.
type Clock struct {
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	DayOfWeek string `json:"dayOfWeek"`
}

// HealthCondition is a named ailment with a severity grade.
type HealthCondition struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
}

// ClockTime is an hour/minute pair inside a scheduled event.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ScheduledEvent is a recurring obligation on the character's weekly schedule.
type ScheduledEvent struct {
	EventName string    `json:"eventName"`
	Days      []string  `json:"days"`
	StartTime ClockTime `json:"startTime"`
	EndTime   ClockTime `json:"endTime"`
}

// WorldState carries the macro conditions the model factors into outcomes.
type WorldState struct {
	EconomicClimate EconomicClimate `json:"economicClimate"`
	CurrentYear     int             `json:"currentYear"`
}

// Relationship is an NPC bond. Name is the unique key within the list.
// Status runs from -100 (hate) to 100 (love). LifeSituation and RecentEvent
// are freeform and may be null; only the model creates or removes entries.
type Relationship struct {
	Name          string       `json:"name"`
	Type          RelationType `json:"type"`
	Status        int          `json:"status"`
	LifeSituation *string      `json:"lifeSituation"`
	RecentEvent   *string      `json:"recentEvent"`
}

// Character is the full aggregate state of one simulated life. It is a
// single immutable snapshot per turn: the model returns a complete
// replacement and the previous snapshot is discarded.
type Character struct {
	Gender              *Gender           `json:"gender"`
	Age                 int               `json:"age"`
	Health              int               `json:"health"`
	MentalHealth        int               `json:"mentalHealth"`
	Happiness           int               `json:"happiness"`
	Education           int               `json:"education"`
	Hunger              int               `json:"hunger"`
	Thirst              int               `json:"thirst"`
	Habits              []string          `json:"habits"`
	Job                 *string           `json:"job"`
	Finances            FinancialStats    `json:"finances"`
	Skills              Skills            `json:"skills"`
	Time                Clock             `json:"time"`
	Conditions          []HealthCondition `json:"conditions"`
	Schedule            []ScheduledEvent  `json:"schedule"`
	WorldState          WorldState        `json:"worldState"`
	Relationships       []Relationship    `json:"relationships"`
	Aspiration          *string           `json:"aspiration"`
	PhysicalDescription *string           `json:"physicalDescription"`
	Location            *string           `json:"location"`
}

// Children returns the relationships a legacy restart can continue as.
func (c Character) Children() []Relationship {
	var out []Relationship
	for _, r := range c.Relationships {
		if r.Type == RelationChild {
			out = append(out, r)
		}
	}
	return out
}

// LegacyContext parameterizes a continue-as-child character creation.
type LegacyContext struct {
	Parent Character    `json:"parent"`
	Child  Relationship `json:"child"`
}
