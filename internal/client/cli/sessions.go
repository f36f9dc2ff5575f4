package cli

import (
	"context"
	"fmt"
)

// Sessions prints all interrupted uploads known locally.
func (a *App) Sessions(ctx context.Context) error {
	list, err := a.transfers.ListIncomplete(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No interrupted uploads.")
		return nil
	}

	fmt.Printf("%-30s %10s %8s %10s %s\n", "FILE", "SIZE", "DONE", "STATUS", "EXPIRES")
	for _, s := range list {
		fmt.Printf("%-30s %10d %7.0f%% %10s %s\n",
			s.FileName, s.FileSize, s.ProgressPercent, s.Status, s.ExpiresAt.Format("2006-01-02 15:04"))
	}
	return nil
}
