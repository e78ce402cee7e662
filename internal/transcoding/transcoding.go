package transcoding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/libresonic/playersettings/internal/database"
)

var ErrUnknownTranscoding = errors.New("unknown transcoding")

// Transcoding is a named conversion pipeline of up to three shell steps.
type Transcoding struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	SourceFormats string `json:"sourceFormats"`
	TargetFormat  string `json:"targetFormat"`
	Step1         string `json:"step1"`
	Step2         string `json:"step2,omitempty"`
	Step3         string `json:"step3,omitempty"`
	DefaultActive bool   `json:"defaultActive"`
}

type Service struct {
	db                database.DBTX
	directory         string
	downsampleCommand string
}

func NewService(db database.DBTX, directory, downsampleCommand string) *Service {
	return &Service{db: db, directory: directory, downsampleCommand: downsampleCommand}
}

const transcodingColumns = `t.id, t.name, t.source_formats, t.target_format, t.step1, t.step2, t.step3, t.default_active`

func (s *Service) All(ctx context.Context) ([]Transcoding, error) {
	return s.query(ctx, `SELECT `+transcodingColumns+` FROM transcodings t ORDER BY t.id`)
}

func (s *Service) ForPlayer(ctx context.Context, playerID int64) ([]Transcoding, error) {
	return s.query(ctx,
		`SELECT `+transcodingColumns+` FROM transcodings t
		 JOIN player_transcodings pt ON pt.transcoding_id = t.id
		 WHERE pt.player_id = $1 ORDER BY t.id`, playerID)
}

func (s *Service) query(ctx context.Context, sql string, args ...any) ([]Transcoding, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcodings: %w", err)
	}
	defer rows.Close()

	transcodings := make([]Transcoding, 0)
	for rows.Next() {
		var t Transcoding
		var step2, step3 *string
		if err := rows.Scan(&t.ID, &t.Name, &t.SourceFormats, &t.TargetFormat, &t.Step1, &step2, &step3, &t.DefaultActive); err != nil {
			return nil, fmt.Errorf("scan transcoding: %w", err)
		}
		if step2 != nil {
			t.Step2 = *step2
		}
		if step3 != nil {
			t.Step3 = *step3
		}
		transcodings = append(transcodings, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcodings: %w", err)
	}
	return transcodings, nil
}

// ReplaceForPlayer replaces the active transcodings of a player using q,
// normally the caller's transaction. Every id must name an existing
// transcoding.
func ReplaceForPlayer(ctx context.Context, q database.DBTX, playerID int64, ids []int) error {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	if len(ids) > 0 {
		var known int
		if err := q.QueryRow(ctx,
			`SELECT COUNT(*) FROM transcodings WHERE id = ANY($1)`, ids,
		).Scan(&known); err != nil {
			return fmt.Errorf("check transcodings: %w", err)
		}
		if known != len(ids) {
			return ErrUnknownTranscoding
		}
	}

	if _, err := q.Exec(ctx, `DELETE FROM player_transcodings WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("clear transcodings for player %d: %w", playerID, err)
	}

	if len(ids) > 0 {
		if _, err := q.Exec(ctx,
			`INSERT INTO player_transcodings (player_id, transcoding_id)
			 SELECT $1, unnest($2::int[])`, playerID, ids,
		); err != nil {
			return fmt.Errorf("assign transcodings to player %d: %w", playerID, err)
		}
	}
	return nil
}

// TranscodeDirectory returns the directory holding transcoder executables,
// creating it when missing.
func (s *Service) TranscodeDirectory() (string, error) {
	dir, err := filepath.Abs(s.directory)
	if err != nil {
		return "", fmt.Errorf("resolve transcode directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcode directory: %w", err)
	}
	return dir, nil
}

// IsDownsamplingSupported reports whether the executable of the downsample
// command is installed in the transcode directory.
func (s *Service) IsDownsamplingSupported() bool {
	executable, _, _ := strings.Cut(strings.TrimSpace(s.downsampleCommand), " ")
	if executable == "" {
		return false
	}
	dir, err := s.TranscodeDirectory()
	if err != nil {
		return false
	}
	for _, name := range []string{executable, executable + ".exe"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
