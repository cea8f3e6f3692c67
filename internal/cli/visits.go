package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"onsight/internal/user"
	"onsight/internal/visit"
)

func newVisitsCmd() *cobra.Command {
	var uninvoiced bool

	cmd := &cobra.Command{
		Use:   "visits <username>",
		Short: "List a user's visits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisits(args[0], uninvoiced)
		},
	}

	cmd.Flags().BoolVar(&uninvoiced, "uninvoiced", false, "only closed visits without an invoice")

	return cmd
}

func runVisits(username string, uninvoicedOnly bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(database)

	u, err := user.NewRepository(database).GetByUsername(username)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("no such user: %s", username)
	}

	repo := visit.NewRepository(database)
	var visits []*visit.Visit
	if uninvoicedOnly {
		visits, err = repo.Uninvoiced(u.ID)
	} else {
		visits, err = repo.ListByUserID(u.ID)
	}
	if err != nil {
		return err
	}

	if len(visits) == 0 {
		fmt.Println("No visits recorded.")
		return nil
	}

	printVisits(visits)
	return nil
}

func printVisits(visits []*visit.Visit) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tDURATION\tADDRESS\tINVOICED")
	for _, v := range visits {
		duration := "open"
		if v.Duration != nil {
			duration = visit.FormatDuration(*v.Duration)
		}
		invoiced := ""
		if v.HasInvoice {
			invoiced = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			v.ID, v.StartTime.Local().Format(time.DateTime), duration, v.Address, invoiced)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: flushing output: %v\n", err)
	}
}
