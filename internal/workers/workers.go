package workers

import (
	"context"
	"log"
	"time"

	"gymClashAPI/internal/week"
	"gymClashAPI/services"
)

const reminderHour = 18

// StartEvaluationWorker polls once a minute and fires the weekly
// evaluation when the week boundary is reached. The minute tick plus
// the boundary check inside RunBoundary keeps the evaluation from
// firing twice for the same week.
func StartEvaluationWorker(ctx context.Context, evaluations *services.EvaluationService) {
	ticker := time.NewTicker(1 * time.Minute)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now().In(week.Location)
				if err := evaluations.RunBoundary(ctx, now); err != nil {
					log.Printf("Weekly evaluation failed: %v", err)
				}
			case <-ctx.Done():
				log.Println("Evaluation worker stopped")
				return
			}
		}
	}()
}

// StartReminderWorker nudges participants who are still short of their
// goal. Reminders go out once a day in the evening on reminder days.
func StartReminderWorker(ctx context.Context, evaluations *services.EvaluationService) {
	ticker := time.NewTicker(1 * time.Minute)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now().In(week.Location)
				if now.Hour() != reminderHour || now.Minute() != 0 {
					continue
				}
				if err := evaluations.SendReminders(ctx, now); err != nil {
					log.Printf("Reminder run failed: %v", err)
				}
			case <-ctx.Done():
				log.Println("Reminder worker stopped")
				return
			}
		}
	}()
}
