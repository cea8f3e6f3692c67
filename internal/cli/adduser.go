package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"onsight/internal/schedule"
	"onsight/internal/user"
)

func newAddUserCmd() *cobra.Command {
	var (
		password     string
		businessType string
		days         []string
		startTime    string
		endTime      string
	)

	cmd := &cobra.Command{
		Use:   "adduser <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddUser(args[0], password, businessType, days, startTime, endTime)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "account password (required)")
	cmd.Flags().StringVar(&businessType, "business-type", "", "business type label")
	cmd.Flags().StringSliceVar(&days, "days", nil, "working days, e.g. mon,tue,wed")
	cmd.Flags().StringVar(&startTime, "start", "08:00", "business hours start (HH:MM)")
	cmd.Flags().StringVar(&endTime, "end", "17:00", "business hours end (HH:MM)")

	return cmd
}

func runAddUser(username, password, businessType string, days []string, startTime, endTime string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("--password is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(database)

	hours := "{}"
	if len(days) > 0 {
		data, err := json.Marshal(&schedule.Hours{
			Days:      days,
			StartTime: startTime,
			EndTime:   endTime,
		})
		if err != nil {
			return fmt.Errorf("encoding business hours: %w", err)
		}
		hours = string(data)
	}

	hashed, err := user.HashPassword(password)
	if err != nil {
		return err
	}

	u, err := user.NewRepository(database).Create(username, hashed, businessType, hours)
	if err != nil {
		return err
	}

	fmt.Printf("created user %s (id %d)\n", u.Username, u.ID)
	return nil
}
