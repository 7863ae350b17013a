package brackets

import (
	"context"

	"github.com/campuscup/bracket-system/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() Generator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Name() string {
	return "DoubleElimination"
}

// Generate builds a winners bracket identical to single elimination, a losers
// bracket fed by each winners-round's losers, and a grand-final section of
// two rounds: the first final plus the reset match played only if the
// losers-bracket champion wins the first final. Round numbering is continuous
// across all three sections. Losers-bracket rounds that collapse entirely
// into byes are not materialized.
func (g *DoubleEliminationGenerator) Generate(_ context.Context, params GenerateParams) (*Blueprint, error) {
	teams, err := validateParams(params)
	if err != nil {
		return nil, err
	}

	size := nextPowerOfTwo(len(teams))
	bp := &Blueprint{Positions: make(map[int]int, len(teams))}
	cur := seededNodes(teams, size, bp.Positions)

	var sections []*BracketRound

	// Winners bracket. Loser nodes of each round feed the losers bracket.
	var wbLosers [][]*node
	for r := 1; len(cur) > 1; r++ {
		matches, winners, losers := pairNodes(cur, models.SectionMain, "WR", r)
		for _, m := range matches {
			m.Round = r
		}
		sections = append(sections, &BracketRound{Section: models.SectionMain, Matches: matches})
		wbLosers = append(wbLosers, losers)
		cur = winners
	}
	wbChampion := cur[0]

	// Losers bracket: alternate pair-up rounds with drop-in rounds receiving
	// the next winners-round's losers. Drop-ins are paired in reverse order
	// to delay rematches.
	lbRound := 0
	emit := func(in []*node) []*node {
		matches, winners, _ := pairNodes(in, models.SectionLosers, "LR", lbRound+1)
		if len(matches) > 0 {
			lbRound++
			sections = append(sections, &BracketRound{Section: models.SectionLosers, Matches: matches})
		}
		return winners
	}

	lb := emit(wbLosers[0])
	for k := 1; k < len(wbLosers); k++ {
		drop := wbLosers[k]
		combined := make([]*node, 0, len(lb)+len(drop))
		for i := range lb {
			combined = append(combined, lb[i], drop[len(drop)-1-i])
		}
		lb = emit(combined)
		if k < len(wbLosers)-1 {
			lb = emit(lb)
		}
	}
	lbChampion := lb[0]

	// Grand final plus the conditional reset. The reset match's slots resolve
	// from the first final once it completes; the progression engine cancels
	// it when the winners-bracket champion takes the first final.
	gf1 := &BracketMatch{
		UID:          "GF1",
		Section:      models.SectionFinal,
		OrderInRound: 1,
		SlotA:        wbChampion.slot(),
		SlotB:        lbChampion.slot(),
		GrandFinal:   true,
	}
	gf2 := &BracketMatch{
		UID:             "GF2",
		Section:         models.SectionFinal,
		OrderInRound:    1,
		SlotA:           winnerOf("GF1").slot(),
		SlotB:           loserOf("GF1").slot(),
		GrandFinalReset: true,
	}
	sections = append(sections,
		&BracketRound{Section: models.SectionFinal, Matches: []*BracketMatch{gf1}},
		&BracketRound{Section: models.SectionFinal, Matches: []*BracketMatch{gf2}},
	)

	// Continuous numbering over the materialized rounds.
	for i, round := range sections {
		round.Number = i + 1
		for _, m := range round.Matches {
			m.Round = round.Number
		}
	}
	bp.Rounds = sections

	return bp, nil
}
