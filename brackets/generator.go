package brackets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/campuscup/bracket-system/models"
)

var (
	ErrNotEnoughTeams = errors.New("at least two seeded teams are required to generate a bracket")
	ErrTooManyTeams   = errors.New("team count exceeds the tournament's declared maximum")
	ErrInvalidSeeds   = errors.New("seeds must be a contiguous 1..N permutation")
)

type GenerateParams struct {
	Tournament *models.Tournament
	Teams      []models.TournamentTeam
}

// Generator maps a seeded team list onto a bracket structure. Implementations
// are pure: they never touch storage, the service layer persists the
// blueprint transactionally.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) (*Blueprint, error)
	Name() string
}

// ForFormat returns the generator for a tournament format.
func ForFormat(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported tournament format %q", format)
	}
}

// Slot is one participant slot of a blueprint match: either a concrete team
// or a placeholder fed by the winner/loser of a source match.
type Slot struct {
	TeamID    *int
	SourceUID *string
	Take      models.SlotTake
}

type BracketMatch struct {
	UID          string
	Round        int
	Section      models.BracketSection
	OrderInRound int

	SlotA Slot
	SlotB Slot

	GrandFinal      bool
	GrandFinalReset bool
}

type BracketRound struct {
	Number  int
	Section models.BracketSection
	Matches []*BracketMatch
}

// Blueprint is the full generated bracket: playable rounds in continuous
// 1-based numbering plus the initial bracket position of every team. Byes are
// resolved at generation time and never appear as matches.
type Blueprint struct {
	Rounds []*BracketRound

	// Positions maps team id to its 1-based slot in the initial layout.
	Positions map[int]int
}

func (b *Blueprint) PlayableMatches() int {
	total := 0
	for _, r := range b.Rounds {
		total += len(r.Matches)
	}
	return total
}

func (b *Blueprint) FindMatch(uid string) *BracketMatch {
	for _, r := range b.Rounds {
		for _, m := range r.Matches {
			if m.UID == uid {
				return m
			}
		}
	}
	return nil
}

// validateParams enforces the generation preconditions shared by all formats.
// Returned teams are sorted by seed.
func validateParams(params GenerateParams) ([]models.TournamentTeam, error) {
	teams := make([]models.TournamentTeam, len(params.Teams))
	copy(teams, params.Teams)

	n := len(teams)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}
	if params.Tournament != nil && params.Tournament.MaxTeams > 0 && n > params.Tournament.MaxTeams {
		return nil, fmt.Errorf("%w: %d teams, max %d", ErrTooManyTeams, n, params.Tournament.MaxTeams)
	}

	seen := make(map[int]bool, n)
	for _, t := range teams {
		if t.Seed < 1 || t.Seed > n || seen[t.Seed] {
			return nil, fmt.Errorf("%w: got seed %d for team %d", ErrInvalidSeeds, t.Seed, t.TeamID)
		}
		seen[t.Seed] = true
	}

	sort.Slice(teams, func(i, j int) bool { return teams[i].Seed < teams[j].Seed })
	return teams, nil
}

// node is one intermediate bracket position while building a section round by
// round: a concrete team, a reference to a source match, or a bye.
type node struct {
	teamID    *int
	sourceUID *string
	take      models.SlotTake
	bye       bool
}

func (n *node) slot() Slot {
	if n.teamID != nil {
		return Slot{TeamID: n.teamID}
	}
	return Slot{SourceUID: n.sourceUID, Take: n.take}
}

func winnerOf(uid string) *node {
	u := uid
	return &node{sourceUID: &u, take: models.TakeWinner}
}

func loserOf(uid string) *node {
	u := uid
	return &node{sourceUID: &u, take: models.TakeLoser}
}

// pairNodes pairs adjacent nodes into the matches of one round. A node paired
// against a bye advances without a match; its loser side is itself a bye.
// UIDs are "<prefix><round>M<order>". A single leftover node passes through
// untouched.
func pairNodes(in []*node, section models.BracketSection, uidPrefix string, round int) (matches []*BracketMatch, winners, losers []*node) {
	if len(in) < 2 {
		return nil, in, nil
	}
	for i := 0; i+1 < len(in); i += 2 {
		a, b := in[i], in[i+1]
		switch {
		case a.bye && b.bye:
			winners = append(winners, &node{bye: true})
			losers = append(losers, &node{bye: true})
		case b.bye:
			winners = append(winners, a)
			losers = append(losers, &node{bye: true})
		case a.bye:
			winners = append(winners, b)
			losers = append(losers, &node{bye: true})
		default:
			uid := fmt.Sprintf("%s%dM%d", uidPrefix, round, len(matches)+1)
			m := &BracketMatch{
				UID:          uid,
				Section:      section,
				OrderInRound: len(matches) + 1,
				SlotA:        a.slot(),
				SlotB:        b.slot(),
			}
			matches = append(matches, m)
			winners = append(winners, winnerOf(uid))
			losers = append(losers, loserOf(uid))
		}
	}
	return matches, winners, losers
}

// seedOrder lays out seeds 1..size so that seed i meets seed size+1-i in
// round one and the strongest seeds can only meet in the last rounds.
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		mirror := len(order)*2 + 1
		for _, s := range order {
			next = append(next, s, mirror-s)
		}
		order = next
	}
	return order
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// seededNodes builds the initial layout for elimination formats: seeds beyond
// the real team count become byes. It also records bracket positions.
func seededNodes(teams []models.TournamentTeam, size int, positions map[int]int) []*node {
	nodes := make([]*node, size)
	for i, seed := range seedOrder(size) {
		if seed <= len(teams) {
			id := teams[seed-1].TeamID
			nodes[i] = &node{teamID: &id}
			positions[id] = i + 1
		} else {
			nodes[i] = &node{bye: true}
		}
	}
	return nodes
}
