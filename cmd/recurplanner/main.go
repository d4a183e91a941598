package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"recurring-planner/internal/config"
	"recurring-planner/internal/repository"
	"recurring-planner/internal/service"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "recurplanner",
		Short:         "Planner with recurring tasks and a Telegram front-end",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired storage and services shared by the subcommands.
type app struct {
	cfg config.Config
	db  *gorm.DB

	users      *repository.UserRepository
	categories *repository.CategoryRepository
	tasks      *repository.TaskRepository
	instances  *repository.InstanceRepository
	activity   *repository.ActivityRepository

	materializer *service.Materializer
	retention    *service.RetentionService
	taskSvc      *service.TaskService
	instanceSvc  *service.InstanceService
	categorySvc  *service.CategoryService
	reminderSvc  *service.ReminderService
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, cfg.LogSQL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{
		cfg:        cfg,
		db:         db,
		users:      repository.NewUserRepository(db),
		categories: repository.NewCategoryRepository(db),
		tasks:      repository.NewTaskRepository(db),
		instances:  repository.NewInstanceRepository(db),
		activity:   repository.NewActivityRepository(db),
	}
	a.materializer = service.NewMaterializer(a.tasks, a.instances, a.activity, cfg.Location)
	a.retention = service.NewRetentionService(a.instances, a.activity, cfg.Location)
	a.taskSvc = service.NewTaskService(a.tasks, a.categories, a.activity, a.materializer, cfg.InitialHorizonDays)
	a.instanceSvc = service.NewInstanceService(a.instances, a.tasks, a.activity)
	a.categorySvc = service.NewCategoryService(a.categories)
	a.reminderSvc = service.NewReminderService(a.tasks, a.instances, a.categories)
	return a, nil
}

func (a *app) Close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("close db: %v", err)
	}
}
