package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/neuroplan/internal/remind"
)

func remindCmd() *cobra.Command {
	var upcoming bool
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager()
			if err != nil {
				return err
			}
			ledger, closeLedger, err := openLedger()
			if err != nil {
				return err
			}
			defer closeLedger()

			scheduler := remind.NewScheduler(mgr, remind.NotifierFunc(consoleNotify), ledger, cfg.CheckInterval)

			if upcoming {
				events := scheduler.Upcoming(time.Now(), 24*time.Hour)
				if len(events) == 0 {
					log.Info().Msg("no upcoming reminders")
					return nil
				}
				for _, ev := range events {
					fmt.Printf("%s\t%s\t%s\n", ev.TriggerTime.Format("2006-01-02 15:04"), ev.Kind, ev.TaskID)
				}
				return nil
			}

			scheduler.Start()
			defer scheduler.Stop()
			log.Info().Dur("interval", cfg.CheckInterval).Msg("reminder scheduler running, ctrl-c to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "list reminders due in the next 24h and exit")
	return cmd
}

// consoleNotify renders a reminder on the terminal with a bell.
func consoleNotify(ev remind.Event) error {
	_, err := fmt.Fprintf(os.Stdout, "\a\n==================================================\n🔔 neuroplan reminder [%s]\n%s\n==================================================\n", ev.Kind, ev.Message)
	return err
}
