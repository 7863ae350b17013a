package services

import (
	"context"
	"fmt"

	"github.com/campuscup/bracket-system/brackets"
	"github.com/campuscup/bracket-system/db"
	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
)

type BracketService interface {
	// Generate builds and persists the bracket for a draft tournament and
	// activates it. Generation happens exactly once: a tournament that
	// already has rounds cannot be regenerated.
	Generate(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type bracketService struct {
	tx             db.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TournamentTeamRepository
	roundRepo      repositories.RoundRepository
	matchRepo      repositories.MatchRepository
}

func NewBracketService(
	tx db.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TournamentTeamRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
) BracketService {
	return &bracketService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
	}
}

func (s *bracketService) Generate(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentError(err)
	}
	if tournament.Status != models.TournamentDraft {
		if tournament.Status == models.TournamentActive {
			return nil, ErrBracketAlreadyGenerated
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, models.TournamentActive)
	}

	existing, err := s.roundRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrBracketAlreadyGenerated
	}

	teams, err := s.teamRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	generator, err := brackets.ForFormat(tournament.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	blueprint, err := generator.Generate(ctx, brackets.GenerateParams{Tournament: tournament, Teams: teams})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.persistBlueprint(ctx, exec, tournament, blueprint); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentDraft, models.TournamentActive)
	})
	if err != nil {
		return nil, mapTournamentError(err)
	}

	return loadTournamentView(ctx, s.tournamentRepo, s.teamRepo, s.roundRepo, s.matchRepo, tournamentID)
}

// slotLinks accumulates the outbound progression pointers of one source
// match while the blueprint is being persisted.
type slotLinks struct {
	nextID, nextSlot           *int
	loserNextID, loserNextSlot *int
}

func (s *bracketService) persistBlueprint(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, blueprint *brackets.Blueprint) error {
	idByUID := make(map[string]int, blueprint.PlayableMatches())
	links := make(map[string]*slotLinks)
	link := func(uid string) *slotLinks {
		if l, ok := links[uid]; ok {
			return l
		}
		l := &slotLinks{}
		links[uid] = l
		return l
	}

	for _, br := range blueprint.Rounds {
		status := models.RoundPending
		if br.Number == 1 {
			status = models.RoundActive
		}
		round := &models.Round{
			TournamentID: tournament.ID,
			Number:       br.Number,
			Section:      br.Section,
			TotalMatches: len(br.Matches),
			Status:       status,
		}
		if err := s.roundRepo.Create(ctx, exec, round); err != nil {
			return err
		}

		for _, bm := range br.Matches {
			match := &models.Match{
				TournamentID:    tournament.ID,
				RoundID:         round.ID,
				BracketUID:      bm.UID,
				OrderInRound:    bm.OrderInRound,
				Status:          models.MatchScheduled,
				GrandFinal:      bm.GrandFinal,
				GrandFinalReset: bm.GrandFinalReset,
			}
			applySlot(match, 1, bm.SlotA)
			applySlot(match, 2, bm.SlotB)
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return err
			}
			idByUID[bm.UID] = match.ID

			registerLink(link, bm.SlotA, match.ID, 1)
			registerLink(link, bm.SlotB, match.ID, 2)
		}
	}

	// Second pass: resolve source UIDs to match ids and write the
	// progression pointers.
	for uid, l := range links {
		sourceID, ok := idByUID[uid]
		if !ok {
			return fmt.Errorf("%w: slot references unknown match %q", ErrInvariantViolation, uid)
		}
		if err := s.matchRepo.SetNextMatchInfo(ctx, exec, sourceID, l.nextID, l.nextSlot, l.loserNextID, l.loserNextSlot); err != nil {
			return err
		}
	}

	for teamID, position := range blueprint.Positions {
		if err := s.teamRepo.SetBracketPosition(ctx, exec, tournament.ID, teamID, position); err != nil {
			return err
		}
	}
	return nil
}

func applySlot(match *models.Match, slot int, bs brackets.Slot) {
	if slot == 1 {
		match.TeamAID = bs.TeamID
		match.SourceAUID = bs.SourceUID
		if bs.SourceUID != nil {
			take := bs.Take
			match.SourceATake = &take
		}
		return
	}
	match.TeamBID = bs.TeamID
	match.SourceBUID = bs.SourceUID
	if bs.SourceUID != nil {
		take := bs.Take
		match.SourceBTake = &take
	}
}

func registerLink(link func(string) *slotLinks, bs brackets.Slot, targetID, targetSlot int) {
	if bs.SourceUID == nil {
		return
	}
	l := link(*bs.SourceUID)
	id, slot := targetID, targetSlot
	if bs.Take == models.TakeLoser {
		l.loserNextID, l.loserNextSlot = &id, &slot
		return
	}
	l.nextID, l.nextSlot = &id, &slot
}
