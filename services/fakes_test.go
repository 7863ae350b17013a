package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
)

// memStore is an in-memory stand-in for the postgres repositories. The
// wrapper types below expose it through the repository interfaces with the
// same guard semantics as the SQL (revision checks, counter bounds,
// status-gated updates), so service logic can be exercised without a
// database. It also implements db.Transactor; callbacks run against the
// store directly since there is nothing to roll back.
type memStore struct {
	mu sync.Mutex

	tournaments map[int]*models.Tournament
	teams       map[int][]models.TournamentTeam
	rounds      map[int]*models.Round
	matches     map[int]*models.Match
	events      []*models.MatchEvent
	standings   map[string][]models.LeaderboardEntry

	nextTournamentID int
	nextRoundID      int
	nextMatchID      int
	nextEventID      int64

	// beforeTx, when set, runs at the start of every WithinTx. Tests use it
	// to interleave a conflicting write between a service's pre-transaction
	// reads and its transactional body.
	beforeTx func()
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:      make(map[int]*models.Tournament),
		teams:            make(map[int][]models.TournamentTeam),
		rounds:           make(map[int]*models.Round),
		matches:          make(map[int]*models.Match),
		standings:        make(map[string][]models.LeaderboardEntry),
		nextTournamentID: 1,
		nextRoundID:      1,
		nextMatchID:      1,
		nextEventID:      1,
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	if s.beforeTx != nil {
		s.beforeTx()
	}
	return fn(nil)
}

func (s *memStore) tournamentRepo() repositories.TournamentRepository { return memTournamentRepo{s} }
func (s *memStore) teamRepo() repositories.TournamentTeamRepository  { return memTeamRepo{s} }
func (s *memStore) roundRepo() repositories.RoundRepository          { return memRoundRepo{s} }
func (s *memStore) matchRepo() repositories.MatchRepository          { return memMatchRepo{s} }
func (s *memStore) eventRepo() repositories.MatchEventRepository     { return memEventRepo{s} }
func (s *memStore) leaderboardRepo() repositories.LeaderboardRepository {
	return memLeaderboardRepo{s}
}

// captureArchiver records what the services hand to the archival hook.
type captureArchiver struct {
	mu        sync.Mutex
	archived  []*models.Tournament
	standings [][]models.LeaderboardEntry
	removed   []int
}

func (a *captureArchiver) ArchiveTournament(ctx context.Context, tournament *models.Tournament, standings []models.LeaderboardEntry) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, tournament)
	a.standings = append(a.standings, standings)
	return fmt.Sprintf("https://archive.test/tournaments/%d.json", tournament.ID), nil
}

func (a *captureArchiver) RemoveArchive(ctx context.Context, tournament *models.Tournament) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, tournament.ID)
	return nil
}

type memTournamentRepo struct{ s *memStore }

func (r memTournamentRepo) Create(ctx context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextTournamentID
	r.s.nextTournamentID++
	t.CreatedAt = time.Now().UTC()
	stored := *t
	r.s.tournaments[t.ID] = &stored
	return nil
}

func (r memTournamentRepo) GetByID(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.DeletedAt != nil {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (r memTournamentRepo) UpdateStatus(ctx context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.DeletedAt != nil {
		return repositories.ErrTournamentNotFound
	}
	if t.Status != from {
		return repositories.ErrTournamentStatusConflict
	}
	t.Status = to
	return nil
}

func (r memTournamentRepo) SetWinner(ctx context.Context, _ repositories.SQLExecutor, id int, winnerTeamID *int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerTeamID = winnerTeamID
	return nil
}

func (r memTournamentRepo) ListByScope(ctx context.Context, _ repositories.SQLExecutor, season string, sportID int, gender string) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.s.tournaments {
		if t.DeletedAt == nil && t.Season == season && t.SportID == sportID && t.Gender == gender {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memTournamentRepo) SoftDelete(ctx context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.DeletedAt != nil {
		return repositories.ErrTournamentNotFound
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	return nil
}

type memTeamRepo struct{ s *memStore }

func (r memTeamRepo) ReplaceForTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int, teams []models.TournamentTeam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	replaced := make([]models.TournamentTeam, len(teams))
	copy(replaced, teams)
	r.s.teams[tournamentID] = replaced
	return nil
}

func (r memTeamRepo) ListByTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.TournamentTeam, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	teams := make([]models.TournamentTeam, len(r.s.teams[tournamentID]))
	copy(teams, r.s.teams[tournamentID])
	sort.Slice(teams, func(i, j int) bool { return teams[i].Seed < teams[j].Seed })
	return teams, nil
}

func (r memTeamRepo) SetBracketPosition(ctx context.Context, _ repositories.SQLExecutor, tournamentID, teamID, position int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	teams := r.s.teams[tournamentID]
	for i := range teams {
		if teams[i].TeamID == teamID {
			pos := position
			teams[i].BracketPosition = &pos
			return nil
		}
	}
	return repositories.ErrTournamentTeamNotFound
}

type memRoundRepo struct{ s *memStore }

func (r memRoundRepo) Create(ctx context.Context, _ repositories.SQLExecutor, round *models.Round) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round.ID = r.s.nextRoundID
	r.s.nextRoundID++
	round.CreatedAt = time.Now().UTC()
	stored := *round
	r.s.rounds[round.ID] = &stored
	return nil
}

func (r memRoundRepo) GetByID(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rd, ok := r.s.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	c := *rd
	return &c, nil
}

func (r memRoundRepo) ListByTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Round
	for _, rd := range r.s.rounds {
		if rd.TournamentID == tournamentID {
			out = append(out, *rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r memRoundRepo) IncrementCompleted(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rd, ok := r.s.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	if rd.CompletedMatches >= rd.TotalMatches {
		return nil, repositories.ErrRoundCounterOverflow
	}
	rd.CompletedMatches++
	if rd.CompletedMatches == rd.TotalMatches {
		rd.Status = models.RoundCompleted
	} else {
		rd.Status = models.RoundActive
	}
	c := *rd
	return &c, nil
}

func (r memRoundRepo) DecrementCompleted(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rd, ok := r.s.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	if rd.CompletedMatches <= 0 {
		return nil, repositories.ErrRoundCounterUnderflow
	}
	rd.CompletedMatches--
	rd.Status = models.RoundActive
	c := *rd
	return &c, nil
}

func (r memRoundRepo) CountNotCompleted(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, rd := range r.s.rounds {
		if rd.TournamentID == tournamentID && rd.Status != models.RoundCompleted {
			count++
		}
	}
	return count, nil
}

type memMatchRepo struct{ s *memStore }

func (r memMatchRepo) Create(ctx context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	match.ID = r.s.nextMatchID
	r.s.nextMatchID++
	match.Revision = 1
	match.CreatedAt = time.Now().UTC()
	stored := *match
	r.s.matches[match.ID] = &stored
	return nil
}

func (r memMatchRepo) GetByID(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	c := *m
	return &c, nil
}

func (r memMatchRepo) ListByTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int, round *int, status *models.MatchStatus) ([]models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Match
	for _, m := range r.s.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.RoundID != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memMatchRepo) ListCompletedByTournaments(ctx context.Context, _ repositories.SQLExecutor, tournamentIDs []int) ([]models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[int]bool, len(tournamentIDs))
	for _, id := range tournamentIDs {
		wanted[id] = true
	}
	var out []models.Match
	for _, m := range r.s.matches {
		if wanted[m.TournamentID] && m.Status == models.MatchCompleted {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memMatchRepo) UpdateStateGuarded(ctx context.Context, _ repositories.SQLExecutor, id, expectedRevision, scoreA, scoreB int, status models.MatchStatus, winnerTeamID *int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	if m.Revision != expectedRevision {
		return nil, repositories.ErrMatchStaleRevision
	}
	m.ScoreA, m.ScoreB = scoreA, scoreB
	m.Status = status
	m.WinnerTeamID = winnerTeamID
	m.Revision++
	c := *m
	return &c, nil
}

func (r memMatchRepo) SetNextMatchInfo(ctx context.Context, _ repositories.SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID, m.NextSlot = nextID, nextSlot
	m.LoserNextMatchID, m.LoserNextSlot = loserNextID, loserNextSlot
	return nil
}

func (r memMatchRepo) SetSlotTeam(ctx context.Context, _ repositories.SQLExecutor, id, slot int, teamID *int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	switch slot {
	case 1:
		m.TeamAID = teamID
	case 2:
		m.TeamBID = teamID
	default:
		return repositories.ErrMatchSlotInvalid
	}
	return nil
}

type memEventRepo struct{ s *memStore }

func (r memEventRepo) Append(ctx context.Context, _ repositories.SQLExecutor, event *models.MatchEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = r.s.nextEventID
	r.s.nextEventID++
	event.CreatedAt = time.Now().UTC()
	stored := *event
	r.s.events = append(r.s.events, &stored)
	return nil
}

func (r memEventRepo) LatestNonRevert(ctx context.Context, _ repositories.SQLExecutor, matchID int) (*models.MatchEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.events) - 1; i >= 0; i-- {
		e := r.s.events[i]
		if e.MatchID == matchID && e.Kind != models.EventRevert {
			c := *e
			return &c, nil
		}
	}
	return nil, repositories.ErrMatchEventNotFound
}

func (r memEventRepo) HasRevertFor(ctx context.Context, _ repositories.SQLExecutor, eventID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.RevertsEventID != nil && *e.RevertsEventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (r memEventRepo) ListByMatch(ctx context.Context, _ repositories.SQLExecutor, matchID, limit, offset int) ([]models.MatchEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.MatchEvent
	for i := len(r.s.events) - 1; i >= 0; i-- {
		if r.s.events[i].MatchID == matchID {
			all = append(all, *r.s.events[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type memLeaderboardRepo struct{ s *memStore }

func scopeKey(scope models.LeaderboardScope) string {
	if scope.TournamentID != nil {
		return fmt.Sprintf("t:%d:%d:%s", *scope.TournamentID, scope.SportID, scope.Gender)
	}
	season := ""
	if scope.Season != nil {
		season = *scope.Season
	}
	return fmt.Sprintf("s:%s:%d:%s", season, scope.SportID, scope.Gender)
}

func (r memLeaderboardRepo) ReplaceForScope(ctx context.Context, _ repositories.SQLExecutor, scope models.LeaderboardScope, entries []models.LeaderboardEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	replaced := make([]models.LeaderboardEntry, len(entries))
	copy(replaced, entries)
	r.s.standings[scopeKey(scope)] = replaced
	return nil
}

func (r memLeaderboardRepo) ListByScope(ctx context.Context, _ repositories.SQLExecutor, scope models.LeaderboardScope) ([]models.LeaderboardEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := make([]models.LeaderboardEntry, len(r.s.standings[scopeKey(scope)]))
	copy(entries, r.s.standings[scopeKey(scope)])
	return entries, nil
}
