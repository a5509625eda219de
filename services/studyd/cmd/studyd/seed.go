package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"studyhub/services/directory"
	"studyhub/services/sessions"
)

// seedFile is the YAML document accepted by `serve --seed`. It stands in for
// the CRUD layer when studyd runs on the memory backend.
type seedFile struct {
	Users    []seedUser    `yaml:"users"`
	Sessions []seedSession `yaml:"sessions"`
}

type seedUser struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type seedSession struct {
	ID              string     `yaml:"id"`
	Title           string     `yaml:"title"`
	Description     string     `yaml:"description"`
	HostID          string     `yaml:"host_id"`
	StartTime       *time.Time `yaml:"start_time"`
	EndTime         *time.Time `yaml:"end_time"`
	MaxParticipants int        `yaml:"max_participants"`
	Tags            []string   `yaml:"tags"`
	Participants    []string   `yaml:"participants"`
}

func loadSeed(path string) (seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return seedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f, nil
}

// seed loads users, sessions and participants into the memory backend.
func (a *app) seed(ctx context.Context, f seedFile) error {
	if a.memDir == nil {
		return errors.New("seeding requires STORE_BACKEND=memory")
	}

	for _, u := range f.Users {
		id, err := uuid.Parse(u.ID)
		if err != nil {
			return fmt.Errorf("user %q: invalid id: %w", u.Name, err)
		}
		if err := a.memDir.UpsertUser(ctx, directory.User{ID: id, Name: u.Name, Email: u.Email}); err != nil {
			return err
		}
	}

	for _, s := range f.Sessions {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return fmt.Errorf("session %q: invalid id: %w", s.Title, err)
		}
		host, err := uuid.Parse(s.HostID)
		if err != nil {
			return fmt.Errorf("session %q: invalid host_id: %w", s.Title, err)
		}
		sess := sessions.Session{
			ID:              id,
			Title:           s.Title,
			Description:     s.Description,
			HostID:          host,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			MaxParticipants: s.MaxParticipants,
			Tags:            s.Tags,
		}
		if err := a.sessionStore.Create(ctx, &sess); err != nil {
			return fmt.Errorf("seed session %q: %w", s.Title, err)
		}
		for _, p := range s.Participants {
			userID, err := uuid.Parse(p)
			if err != nil {
				return fmt.Errorf("session %q: invalid participant %q: %w", s.Title, p, err)
			}
			if err := a.memDir.AddParticipant(ctx, id, userID); err != nil {
				return err
			}
		}
	}

	a.log.Info().Int("users", len(f.Users)).Int("sessions", len(f.Sessions)).Msg("memory backend seeded")
	return nil
}
