package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/wispbot/wisp/internal/config"
	"github.com/wispbot/wisp/internal/cron"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage scheduled messages",
}

var cronAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a scheduled message",
	RunE:  runCronAdd,
}

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled messages",
	RunE:  runCronList,
}

var cronRmCmd = &cobra.Command{
	Use:   "rm <job-id>",
	Short: "Remove a scheduled message",
	Args:  cobra.ExactArgs(1),
	RunE:  runCronRm,
}

var (
	cronNameFlag    string
	cronExprFlag    string
	cronEveryFlag   time.Duration
	cronAtFlag      string
	cronMessageFlag string
	cronChannelFlag string
	cronToFlag      string
)

func init() {
	cronAddCmd.Flags().StringVar(&cronNameFlag, "name", "", "Job name")
	cronAddCmd.Flags().StringVar(&cronExprFlag, "expr", "", "Cron expression with seconds (e.g. '0 0 9 * * *')")
	cronAddCmd.Flags().DurationVar(&cronEveryFlag, "every", 0, "Run at a fixed interval (e.g. 30m)")
	cronAddCmd.Flags().StringVar(&cronAtFlag, "at", "", "Run once at an RFC3339 time")
	cronAddCmd.Flags().StringVar(&cronMessageFlag, "message", "", "Message the bot responds to when the job fires")
	cronAddCmd.Flags().StringVar(&cronChannelFlag, "channel", "", "Channel to deliver the reply to (e.g. telegram)")
	cronAddCmd.Flags().StringVar(&cronToFlag, "to", "", "Chat id to deliver the reply to")
	cronCmd.AddCommand(cronAddCmd, cronListCmd, cronRmCmd)
}

func cronStorePath() string {
	return filepath.Join(config.ConfigDir(), "data", "cron", "jobs.json")
}

func cronService() (*cron.Service, error) {
	s := cron.NewService(cronStorePath())
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("load cron jobs: %w", err)
	}
	return s, nil
}

func runCronAdd(cmd *cobra.Command, args []string) error {
	if cronMessageFlag == "" {
		return fmt.Errorf("--message is required")
	}

	var schedule cron.Schedule
	switch {
	case cronExprFlag != "":
		schedule = cron.Schedule{Kind: "cron", Expr: cronExprFlag}
	case cronEveryFlag > 0:
		schedule = cron.Schedule{Kind: "every", EveryMs: cronEveryFlag.Milliseconds()}
	case cronAtFlag != "":
		at, err := time.Parse(time.RFC3339, cronAtFlag)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		schedule = cron.Schedule{Kind: "at", AtMs: at.UnixMilli()}
	default:
		return fmt.Errorf("one of --expr, --every or --at is required")
	}

	name := cronNameFlag
	if name == "" {
		name = cronMessageFlag
	}

	payload := cron.Payload{
		Message: cronMessageFlag,
		Channel: cronChannelFlag,
		To:      cronToFlag,
		Deliver: cronChannelFlag != "",
	}

	s, err := cronService()
	if err != nil {
		return err
	}
	job, err := s.AddJob(name, schedule, payload)
	if err != nil {
		return err
	}

	fmt.Printf("Added job %s (%s)\n", job.Name, job.ID)
	return nil
}

func runCronList(cmd *cobra.Command, args []string) error {
	s, err := cronService()
	if err != nil {
		return err
	}

	jobs := s.ListJobs()
	if len(jobs) == 0 {
		fmt.Println("No scheduled messages.")
		return nil
	}

	for _, job := range jobs {
		var when string
		switch job.Schedule.Kind {
		case "cron":
			when = job.Schedule.Expr
		case "every":
			when = fmt.Sprintf("every %s", time.Duration(job.Schedule.EveryMs)*time.Millisecond)
		case "at":
			when = time.UnixMilli(job.Schedule.AtMs).Format(time.RFC3339)
		}
		status := job.State.LastStatus
		if status == "" {
			status = "never run"
		}
		fmt.Printf("%s  %-20s %-24s %s  [%s]\n", job.ID, job.Name, when, job.Payload.Message, status)
	}
	return nil
}

func runCronRm(cmd *cobra.Command, args []string) error {
	s, err := cronService()
	if err != nil {
		return err
	}
	if !s.RemoveJob(args[0]) {
		return fmt.Errorf("job %q not found", args[0])
	}
	fmt.Printf("Removed job %s\n", args[0])
	return nil
}
