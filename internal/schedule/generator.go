package schedule

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// GeneratorConfig bounds the candidate slots produced for a doctor/day.
// Durations are drawn from [MinDurationMin, MaxDurationMin] in steps of
// DurationStepMin; gaps between consecutive slots come from GapMinutes.
type GeneratorConfig struct {
	OpenTime        TimeOfDay
	CloseTime       TimeOfDay
	MinSlots        int
	MaxSlots        int
	MinDurationMin  int
	MaxDurationMin  int
	DurationStepMin int
	GapMinutes      []int
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		OpenTime:        MustTimeOfDay(8, 0),
		CloseTime:       MustTimeOfDay(17, 0),
		MinSlots:        4,
		MaxSlots:        5,
		MinDurationMin:  60,
		MaxDurationMin:  210,
		DurationStepMin: 30,
		GapMinutes:      []int{45, 60, 75},
	}
}

// Generator produces candidate slots for a (doctor, date) pair. There
// is no schedule store behind it: slot times are drawn from a PRNG
// seeded from the query key, so repeated queries for the same doctor
// and date return the same candidate set within a process lifetime.
type Generator struct {
	cfg  GeneratorConfig
	seed func(doctorID, date string) int64
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{cfg: cfg, seed: keyedSeed}
}

// NewClockSeededGenerator reseeds from the clock on every call, so the
// candidate set differs across calls. Useful for demos and ad-hoc load,
// where fresh candidates per query are wanted.
func NewClockSeededGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{
		cfg: cfg,
		seed: func(_, _ string) int64 {
			return time.Now().UnixNano()
		},
	}
}

func keyedSeed(doctorID, date string) int64 {
	h := fnv.New64a()
	h.Write([]byte(doctorID))
	h.Write([]byte{'|'})
	h.Write([]byte(date))
	return int64(h.Sum64())
}

// Generate returns candidates ordered by strictly increasing start
// time, all contained in [OpenTime, CloseTime]. An empty result is a
// valid outcome, not an error: it means no candidate fit before
// closing. Availability is not decided here; every candidate starts
// out unavailable until a Policy annotates it.
func (g *Generator) Generate(doctorID, date string) []Slot {
	rng := rand.New(rand.NewSource(g.seed(doctorID, date)))

	count := g.cfg.MinSlots
	if g.cfg.MaxSlots > g.cfg.MinSlots {
		count += rng.Intn(g.cfg.MaxSlots - g.cfg.MinSlots + 1)
	}

	durationSteps := (g.cfg.MaxDurationMin-g.cfg.MinDurationMin)/g.cfg.DurationStepMin + 1

	closeMin := g.cfg.CloseTime.MinuteOfDay()
	cursorMin := g.cfg.OpenTime.MinuteOfDay()
	now := time.Now()

	var slots []Slot
	for i := 0; i < count; i++ {
		duration := g.cfg.MinDurationMin + rng.Intn(durationSteps)*g.cfg.DurationStepMin

		endMin := cursorMin + duration
		if endMin > closeMin {
			// Never emit a truncated slot.
			break
		}

		slots = append(slots, Slot{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			Date:      date,
			StartTime: FromMinuteOfDay(cursorMin),
			EndTime:   FromMinuteOfDay(endMin),
			Kind:      SlotRegular,
			CreatedAt: now,
			UpdatedAt: now,
		})

		gap := g.cfg.GapMinutes[rng.Intn(len(g.cfg.GapMinutes))]
		cursorMin = endMin + gap
		if cursorMin >= closeMin {
			break
		}
	}

	return slots
}
