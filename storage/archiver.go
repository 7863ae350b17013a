package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/campuscup/bracket-system/models"
)

// TournamentArchiver writes the final state of a completed tournament as a
// JSON document to object storage and returns its public location. Keys are
// deterministic per tournament, so re-archiving overwrites the previous
// snapshot instead of accumulating copies.
type TournamentArchiver struct {
	uploader FileUploader
}

// archiveDocument is the stored snapshot: the full bracket view plus the
// final standings at completion time.
type archiveDocument struct {
	Tournament *models.Tournament        `json:"tournament"`
	Standings  []models.LeaderboardEntry `json:"standings"`
}

func NewTournamentArchiver(uploader FileUploader) *TournamentArchiver {
	return &TournamentArchiver{uploader: uploader}
}

func archiveKey(t *models.Tournament) string {
	return fmt.Sprintf("tournaments/%s/%d.json", t.Season, t.ID)
}

func (a *TournamentArchiver) ArchiveTournament(ctx context.Context, tournament *models.Tournament, standings []models.LeaderboardEntry) (string, error) {
	body, err := json.MarshalIndent(archiveDocument{Tournament: tournament, Standings: standings}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal tournament %d for archival: %w", tournament.ID, err)
	}

	result, err := a.uploader.Upload(ctx, archiveKey(tournament), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return result.Location, nil
}

// RemoveArchive deletes the stored snapshot when its tournament is removed.
func (a *TournamentArchiver) RemoveArchive(ctx context.Context, tournament *models.Tournament) error {
	return a.uploader.Delete(ctx, archiveKey(tournament))
}
