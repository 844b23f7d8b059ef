// Package sqlite provides a SQLite-backed implementation of the profile history port.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// MemoryDSN keeps history for the life of the process only.
const MemoryDSN = ":memory:"

// Adapter implements ports.ProfileHistory for SQLite
type Adapter struct {
	db *sql.DB
}

// compile-time interface assertion
var _ ports.ProfileHistory = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(dsn string) (*Adapter, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

const profileColumns = `
	id, title, artist,
	bpm, duration_seconds, rms, camelot_key, genre, stored_file_path,
	danceability, energy, valence, acousticness, instrumentalness, liveness, speechiness, loudness,
	spotify_tempo, spotify_key, mode, time_signature,
	resolved_external_id, analyzed_at`

// Save inserts p, or replaces the stored row with the same id.
func (a *Adapter) Save(ctx context.Context, p domain.TrackProfile) error {
	if p.ID == "" {
		return fmt.Errorf("failed to save profile: empty id")
	}

	var bpm, duration, rms sql.NullFloat64
	var camelot, genre, path sql.NullString
	if p.Primary != nil {
		bpm = sql.NullFloat64{Float64: p.Primary.BPM, Valid: true}
		duration = sql.NullFloat64{Float64: p.Primary.DurationSeconds, Valid: true}
		rms = sql.NullFloat64{Float64: p.Primary.RMS, Valid: true}
		camelot = nullString(p.Primary.CamelotKey)
		genre = nullString(p.Primary.Genre)
		path = nullString(p.Primary.StoredFilePath)
	}
	s := p.Supplemental

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			artist=excluded.artist,
			bpm=excluded.bpm,
			duration_seconds=excluded.duration_seconds,
			rms=excluded.rms,
			camelot_key=excluded.camelot_key,
			genre=excluded.genre,
			stored_file_path=excluded.stored_file_path,
			danceability=excluded.danceability,
			energy=excluded.energy,
			valence=excluded.valence,
			acousticness=excluded.acousticness,
			instrumentalness=excluded.instrumentalness,
			liveness=excluded.liveness,
			speechiness=excluded.speechiness,
			loudness=excluded.loudness,
			spotify_tempo=excluded.spotify_tempo,
			spotify_key=excluded.spotify_key,
			mode=excluded.mode,
			time_signature=excluded.time_signature,
			resolved_external_id=excluded.resolved_external_id,
			analyzed_at=excluded.analyzed_at;
	`
	if _, err := a.db.ExecContext(ctx, query,
		p.ID, nullString(p.Title), nullString(p.Artist),
		bpm, duration, rms, camelot, genre, path,
		nullFloat(s.Danceability), nullFloat(s.Energy), nullFloat(s.Valence), nullFloat(s.Acousticness),
		nullFloat(s.Instrumentalness), nullFloat(s.Liveness), nullFloat(s.Speechiness), nullFloat(s.Loudness),
		nullFloat(s.SpotifyTempo), nullInt(s.SpotifyKey), nullInt(s.Mode), nullInt(s.TimeSignature),
		nullString(p.ResolvedExternalID), p.AnalyzedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, err)
	}
	return nil
}

// GetByID loads one profile.
func (a *Adapter) GetByID(ctx context.Context, id string) (domain.TrackProfile, error) {
	row := a.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TrackProfile{}, ports.ErrNotFound
		}
		return domain.TrackProfile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// List returns every stored profile in the order it was first saved.
func (a *Adapter) List(ctx context.Context) ([]domain.TrackProfile, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM profiles ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []domain.TrackProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (domain.TrackProfile, error) {
	var (
		p                      domain.TrackProfile
		title, artist          sql.NullString
		bpm, duration, rms     sql.NullFloat64
		camelot, genre, path   sql.NullString
		dance, energy, valence sql.NullFloat64
		acoustic, instrumental sql.NullFloat64
		live, speech, loudness sql.NullFloat64
		tempo                  sql.NullFloat64
		key, mode, timeSig     sql.NullInt64
		externalID             sql.NullString
		analyzedAt             time.Time
	)
	if err := row.Scan(
		&p.ID, &title, &artist,
		&bpm, &duration, &rms, &camelot, &genre, &path,
		&dance, &energy, &valence, &acoustic, &instrumental, &live, &speech, &loudness,
		&tempo, &key, &mode, &timeSig,
		&externalID, &analyzedAt,
	); err != nil {
		return domain.TrackProfile{}, err
	}

	p.Title = title.String
	p.Artist = artist.String
	if bpm.Valid {
		p.Primary = &domain.PrimaryFeatures{
			BPM:             bpm.Float64,
			DurationSeconds: duration.Float64,
			RMS:             rms.Float64,
			CamelotKey:      camelot.String,
			Genre:           genre.String,
			StoredFilePath:  path.String,
		}
	}
	p.Supplemental = domain.SupplementalFeatures{
		Danceability:     floatPtr(dance),
		Energy:           floatPtr(energy),
		Valence:          floatPtr(valence),
		Acousticness:     floatPtr(acoustic),
		Instrumentalness: floatPtr(instrumental),
		Liveness:         floatPtr(live),
		Speechiness:      floatPtr(speech),
		Loudness:         floatPtr(loudness),
		SpotifyTempo:     floatPtr(tempo),
		SpotifyKey:       intPtr(key),
		Mode:             intPtr(mode),
		TimeSignature:    intPtr(timeSig),
	}
	p.ResolvedExternalID = externalID.String
	p.AnalyzedAt = analyzedAt
	return p, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT,
		artist TEXT,
		bpm REAL,
		duration_seconds REAL,
		rms REAL,
		camelot_key TEXT,
		genre TEXT,
		stored_file_path TEXT,
		danceability REAL,
		energy REAL,
		valence REAL,
		acousticness REAL,
		instrumentalness REAL,
		liveness REAL,
		speechiness REAL,
		loudness REAL,
		spotify_tempo REAL,
		spotify_key INTEGER,
		mode INTEGER,
		time_signature INTEGER,
		resolved_external_id TEXT,
		analyzed_at DATETIME NOT NULL
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
