// Package simulation generates synthetic engagement history so the
// decision flow can be exercised without production data.
package simulation

import (
	"fmt"
	"math/rand"
	"time"
)

// Persona shapes when a synthetic recipient engages.
type Persona string

const (
	PersonaMorningPerson  Persona = "morning_person"
	PersonaEveningPerson  Persona = "evening_person"
	PersonaNightOwl       Persona = "night_owl"
	PersonaLunchBrowser   Persona = "lunch_browser"
	PersonaWeekendWarrior Persona = "weekend_warrior"
	PersonaCommuter       Persona = "commuter"
)

// Personas lists every available persona.
var Personas = []Persona{
	PersonaMorningPerson,
	PersonaEveningPerson,
	PersonaNightOwl,
	PersonaLunchBrowser,
	PersonaWeekendWarrior,
	PersonaCommuter,
}

// activeHours maps each persona to the UTC hours it engages in.
var activeHours = map[Persona][]int{
	PersonaMorningPerson:  {7, 8, 9},
	PersonaEveningPerson:  {18, 19, 20},
	PersonaNightOwl:       {22, 23, 0, 1},
	PersonaLunchBrowser:   {12, 13},
	PersonaWeekendWarrior: {10, 11, 14, 15},
	PersonaCommuter:       {7, 8, 17, 18},
}

// weekendOnly personas engage almost exclusively on Sat/Sun.
var weekendOnly = map[Persona]bool{PersonaWeekendWarrior: true}

// Event is one synthetic engagement observation.
type Event struct {
	UniversalID string
	EventType   string
	Timestamp   time.Time
}

// Identity is one synthetic recipient with its assigned persona.
type Identity struct {
	UniversalID string
	Persona     Persona
}

// GeneratorConfig controls the synthetic population.
type GeneratorConfig struct {
	Identities   int
	Weeks        int
	SendsPerWeek int
	OpenRate     float64
	ClickRate    float64
	Seed         int64
	End          time.Time // history is generated backwards from here
}

// DefaultGeneratorConfig returns a default configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Identities:   50,
		Weeks:        8,
		SendsPerWeek: 10,
		OpenRate:     0.45,
		ClickRate:    0.35,
		Seed:         1,
		End:          time.Now().UTC(),
	}
}

// Generator produces deterministic synthetic histories from a seed.
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a generator.
func NewGenerator(config GeneratorConfig) *Generator {
	if config.Identities <= 0 {
		config.Identities = 50
	}
	if config.Weeks <= 0 {
		config.Weeks = 8
	}
	if config.SendsPerWeek <= 0 {
		config.SendsPerWeek = 10
	}
	if config.OpenRate <= 0 {
		config.OpenRate = 0.45
	}
	if config.ClickRate <= 0 {
		config.ClickRate = 0.35
	}
	if config.End.IsZero() {
		config.End = time.Now().UTC()
	}
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the population and its full event history: each send
// runs the sent, delivered, opened, clicked funnel, with opens and
// clicks landing in the persona's active hours.
func (g *Generator) Generate() ([]Identity, []Event) {
	identities := make([]Identity, g.config.Identities)
	var events []Event

	for i := range identities {
		identities[i] = Identity{
			UniversalID: g.universalID(),
			Persona:     Personas[i%len(Personas)],
		}
		events = append(events, g.history(identities[i])...)
	}
	return identities, events
}

// universalID mints a recipient identifier from the seeded rng so the
// whole population, ids included, is reproducible for a given seed.
func (g *Generator) universalID() string {
	return fmt.Sprintf("pl_%016x", g.rng.Uint64())
}

func (g *Generator) history(id Identity) []Event {
	var events []Event
	start := g.config.End.AddDate(0, 0, -7*g.config.Weeks)

	for week := 0; week < g.config.Weeks; week++ {
		weekStart := start.AddDate(0, 0, 7*week)
		for s := 0; s < g.config.SendsPerWeek; s++ {
			sent := weekStart.Add(time.Duration(g.rng.Intn(7*24*60)) * time.Minute)
			if sent.After(g.config.End) {
				continue
			}
			events = append(events, Event{id.UniversalID, "sent", sent})

			delivered := sent.Add(time.Duration(30+g.rng.Intn(300)) * time.Second)
			events = append(events, Event{id.UniversalID, "delivered", delivered})

			if !g.engages(id.Persona, delivered) {
				continue
			}
			if g.rng.Float64() >= g.config.OpenRate {
				continue
			}
			opened := g.engagementInstant(id.Persona, delivered)
			events = append(events, Event{id.UniversalID, "opened", opened})

			if g.rng.Float64() >= g.config.ClickRate {
				continue
			}
			clicked := opened.Add(time.Duration(10+g.rng.Intn(600)) * time.Second)
			events = append(events, Event{id.UniversalID, "clicked", clicked})
		}
	}
	return events
}

// engages gates the funnel on persona day-of-week preferences.
func (g *Generator) engages(p Persona, at time.Time) bool {
	weekend := at.Weekday() == time.Saturday || at.Weekday() == time.Sunday
	if weekendOnly[p] && !weekend {
		return g.rng.Float64() < 0.1
	}
	return true
}

// engagementInstant places the open inside the persona's active hours
// on the delivery day, with minute-level jitter.
func (g *Generator) engagementInstant(p Persona, delivered time.Time) time.Time {
	hours := activeHours[p]
	hour := hours[g.rng.Intn(len(hours))]
	day := delivered.Truncate(24 * time.Hour)
	instant := day.Add(time.Duration(hour)*time.Hour + time.Duration(g.rng.Intn(60))*time.Minute)
	if instant.Before(delivered) {
		instant = instant.AddDate(0, 0, 1)
	}
	return instant
}
