package main

import (
	"context"
	"log/slog"
	"time"

	"taskdeck/internal/categories"
	"taskdeck/internal/identity"
	"taskdeck/internal/profile"
	"taskdeck/internal/tasks"
)

// seedDemoData builds in-memory repositories preloaded with a demo account
// so the API is usable straight away in local development.
// Credentials: demo@taskdeck.local / demo-password.
func seedDemoData(ctx context.Context, logger *slog.Logger) repositories {
	repos := repositories{
		identity: identity.NewInMemoryRepository(),
		profile:  profile.NewInMemoryRepository(),
		category: categories.NewInMemoryRepository(nil),
		task:     tasks.NewInMemoryRepository(nil),
	}

	identitySvc := identity.NewService(repos.identity, identity.Options{})
	user, err := identitySvc.SignUp(ctx, "demo@taskdeck.local", "demo-password")
	if err != nil {
		logger.Warn("demo user seed failed", "error", err)
		return repos
	}

	fullName := "Demo User"
	if _, err := profile.NewService(repos.profile).EnsureExists(ctx, user.ID, user.Email, &fullName); err != nil {
		logger.Warn("demo profile seed failed", "error", err)
	}

	categorySvc := categories.NewService(repos.category)
	work, _ := categorySvc.Create(ctx, user.ID, categories.CreateInput{Name: "Work", Color: "#3B82F6", Icon: "briefcase"})
	home, _ := categorySvc.Create(ctx, user.ID, categories.CreateInput{Name: "Home", Color: "#10B981", Icon: "home"})

	taskSvc := tasks.NewService(repos.task)
	now := time.Now()
	tomorrow := now.Add(24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	demoTasks := []tasks.CreateInput{
		{Title: "Review quarterly report", CategoryID: &work.ID, Priority: tasks.PriorityHigh, DueDate: &tomorrow, Tags: []string{"reports"}},
		{Title: "Water the plants", CategoryID: &home.ID, Priority: tasks.PriorityLow, DueDate: &yesterday},
		{Title: "Plan sprint backlog", CategoryID: &work.ID, Priority: tasks.PriorityUrgent, DueDate: &now},
		{Title: "Read a chapter", Priority: tasks.PriorityMedium, Status: tasks.StatusCompleted},
	}
	for _, input := range demoTasks {
		if _, err := taskSvc.Create(ctx, user.ID, input); err != nil {
			logger.Warn("demo task seed failed", "title", input.Title, "error", err)
		}
	}

	logger.Info("seeded demo data", "user", user.Email)
	return repos
}
