package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chorely/chorely/internal/config"
	"github.com/chorely/chorely/internal/models"
	"github.com/chorely/chorely/internal/store"
	pkgauth "github.com/chorely/chorely/pkg/auth"
)

// seedPassword is shared by every demo account
const seedPassword = "888888"

type seedTask struct {
	title       string
	description string
	completed   bool
}

type seedUser struct {
	username string
	email    string
	tasks    []seedTask
}

var demoUsers = []seedUser{
	{
		username: "john.doe",
		email:    "john.doe@example.com",
		tasks: []seedTask{
			{"Buy groceries", "Milk, eggs, and bread.", false},
			{"Finish Go project", "Complete the authentication module.", true},
		},
	},
	{
		username: "jane.smith",
		email:    "jane.smith@example.com",
		tasks: []seedTask{
			{"Call a friend", "Schedule a dinner date.", false},
		},
	},
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(context.Background())

	if err := seed(ctx, st, logger); err != nil {
		return err
	}
	logger.Info("database seeded", slog.String("store", st.Driver))
	return nil
}

// seed is idempotent: an account that already exists is left alone along
// with its tasks
func seed(ctx context.Context, st *store.Store, logger *slog.Logger) error {
	hash, err := pkgauth.HashPassword(seedPassword)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	for _, su := range demoUsers {
		if _, err := st.Users.GetByUsername(ctx, su.username); err == nil {
			logger.Info("user already present, skipping", slog.String("username", su.username))
			continue
		} else if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("look up %s: %w", su.username, err)
		}

		user, err := st.Users.Create(ctx, &models.User{
			Username:      su.username,
			Email:         su.email,
			PasswordHash:  hash,
			RefreshTokens: []string{},
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", su.username, err)
		}

		for _, t := range su.tasks {
			if _, err := st.Tasks.Create(ctx, &models.Task{
				Owner:       user.ID,
				Title:       t.title,
				Description: t.description,
				Completed:   t.completed,
			}); err != nil {
				return fmt.Errorf("create task %q: %w", t.title, err)
			}
		}
		logger.Info("user seeded", slog.String("username", su.username), slog.Int("tasks", len(su.tasks)))
	}
	return nil
}
