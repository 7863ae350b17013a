package brackets

import (
	"context"
	"fmt"

	"github.com/campuscup/bracket-system/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

// Generate schedules every unordered team pair exactly once using the circle
// method: one fixed pivot, the rest rotating each round, so no team appears
// twice in the same round. Odd team counts get a rotating dummy slot whose
// pairing means a one-round sit-out.
func (g *RoundRobinGenerator) Generate(_ context.Context, params GenerateParams) (*Blueprint, error) {
	teams, err := validateParams(params)
	if err != nil {
		return nil, err
	}

	bp := &Blueprint{Positions: make(map[int]int, len(teams))}

	players := make([]*int, 0, len(teams)+1)
	for i, t := range teams {
		id := t.TeamID
		players = append(players, &id)
		bp.Positions[t.TeamID] = i + 1
	}
	if len(players)%2 != 0 {
		players = append(players, nil) // dummy slot, pairing against it is a bye
	}

	n := len(players)
	half := n / 2

	for r := 1; r <= n-1; r++ {
		round := &BracketRound{Number: r, Section: models.SectionMain}
		for i := 0; i < half; i++ {
			a, b := players[i], players[n-1-i]
			if a == nil || b == nil {
				continue
			}
			m := &BracketMatch{
				UID:          fmt.Sprintf("R%dM%d", r, len(round.Matches)+1),
				Round:        r,
				Section:      models.SectionMain,
				OrderInRound: len(round.Matches) + 1,
				SlotA:        Slot{TeamID: a},
				SlotB:        Slot{TeamID: b},
			}
			round.Matches = append(round.Matches, m)
		}
		bp.Rounds = append(bp.Rounds, round)

		// Rotate everything but the pivot.
		rotated := make([]*int, 0, n)
		rotated = append(rotated, players[0], players[n-1])
		rotated = append(rotated, players[1:n-1]...)
		players = rotated
	}

	return bp, nil
}
