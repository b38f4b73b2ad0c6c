package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hwtracker/internal/bot"
	"hwtracker/internal/config"
	"hwtracker/internal/logging"
	"hwtracker/internal/repository"
	"hwtracker/internal/schedule"
	"hwtracker/internal/service"
	"hwtracker/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.LogLevel)

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	hwRepo := repository.NewHomeworkRepository(db)

	if subjects, err := service.LoadSubjectsFile(cfg.SubjectsFile); err != nil {
		log.Fatalf("subjects file: %v", err)
	} else if len(subjects) > 0 {
		if err := subjectRepo.Seed(ctx, subjects); err != nil {
			log.Fatalf("seed subjects: %v", err)
		}
		log.Printf("[INFO] seeded %d subject(s) from %s", len(subjects), cfg.SubjectsFile)
	}

	flags := config.NewStageFlags()

	scheduler := schedule.NewScheduler(hwRepo, nil, flags, nil)
	hwSvc := service.NewHomeworkService(hwRepo, subjectRepo, scheduler)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, hwSvc, flags, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	scheduler.SetNotifier(telegramBot)

	// Re-arm every pending cascade before anything can create, edit or
	// deliver homework.
	if n, err := scheduler.Recover(ctx); err != nil {
		log.Fatalf("recover reminders: %v", err)
	} else if n > 0 {
		log.Printf("[INFO] %d homework(s) back on the clock", n)
	}

	if !cfg.PauseAnnounce {
		announceSvc := service.NewAnnounceService(time.Local, telegramBot)
		subjects, err := subjectRepo.ListAll(ctx)
		if err != nil {
			log.Fatalf("load subjects: %v", err)
		}
		registered := announceSvc.RegisterSubjects(subjects)
		log.Printf("[INFO] %d class announcement(s) registered", registered)
		announceSvc.Start()
		defer announceSvc.Stop()
	}

	if cfg.WebEndpoint != "" {
		server := web.NewServer(cfg.WebAddr, hwSvc, cfg.JWTSecret)
		go func() {
			if err := server.Start(ctx); err != nil {
				log.Printf("[ERROR] web: %v", err)
				stop()
			}
		}()
	}

	log.Println("[INFO] homework tracker started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("[INFO] shutdown complete")
}
