package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// recoveryCmd lists volumes that need recovery (VolumeState.NeedsRecovery):
// those whose pending_sync watermark is above last_sync while their
// status is not Ok, i.e. a prior push that neither completed nor
// rolled back cleanly.
var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "List volumes that need recovery before they can sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStoreFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()

		states, err := s.QueryAllVolumes(nil)
		if err != nil {
			return err
		}

		found := 0
		for _, st := range states {
			if !st.NeedsRecovery() {
				continue
			}
			found++
			fmt.Printf("%s  status=%s  local_lsn=%s  pending_sync=%s\n",
				st.Vid, statusString(st.Status), localLSNString(st),
				lsnOptionString(st.Watermarks.PendingSync, st.Watermarks.PendingSyncPresent))
		}
		if found == 0 {
			fmt.Println("no volumes need recovery")
		}
		return nil
	},
}
