package brackets

import (
	"context"

	"github.com/campuscup/bracket-system/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate builds ceil(log2(N)) rounds. Round one byes advance their team
// without a playable match, so the blueprint always contains exactly N-1
// matches: every match eliminates one team.
func (g *SingleEliminationGenerator) Generate(_ context.Context, params GenerateParams) (*Blueprint, error) {
	teams, err := validateParams(params)
	if err != nil {
		return nil, err
	}

	size := nextPowerOfTwo(len(teams))
	bp := &Blueprint{Positions: make(map[int]int, len(teams))}
	cur := seededNodes(teams, size, bp.Positions)

	for r := 1; len(cur) > 1; r++ {
		matches, winners, _ := pairNodes(cur, models.SectionMain, "R", r)
		round := &BracketRound{Number: r, Section: models.SectionMain, Matches: matches}
		for _, m := range matches {
			m.Round = r
		}
		bp.Rounds = append(bp.Rounds, round)
		cur = winners
	}

	return bp, nil
}
