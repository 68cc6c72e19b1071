package store

import "github.com/graft-kv/graft/pkg/metrics"

// scanRecovery runs at Open/OpenTemporary time: any volume with
// pending_sync > last_sync is in the needs-recovery state until the
// caller resets or completes it (§9 "Recovery"). This only logs and
// records the gauge; it never blocks Open or auto-resolves anything.
func (s *VolumeStore) scanRecovery() error {
	states, err := s.allVolumeStates(nil)
	if err != nil {
		return err
	}
	var recovering int
	for _, st := range states {
		if st.NeedsRecovery() {
			recovering++
			storeLog.Warn().Str("volume_id", st.Vid.String()).Msg("volume needs recovery")
		}
	}
	metrics.VolumesNeedingRecovery.Set(float64(recovering))
	if recovering > 0 {
		metrics.RegisterComponent("sync", false, "volumes awaiting recovery")
	} else {
		metrics.RegisterComponent("sync", true, "no pending recovery")
	}
	return nil
}
