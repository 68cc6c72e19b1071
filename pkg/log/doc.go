/*
Package log provides structured logging for Graft using zerolog.

A single package-level zerolog.Logger is configured once via Init and
shared by every package in the module; component loggers attach a
"component" field ("store", "sync", "kv", ...), and WithVolume/WithLSN
attach the volume id and LSN a log line pertains to.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	storeLog := log.WithComponent("store")
	storeLog.Info().Str("volume_id", vid.String()).Uint64("lsn", uint64(lsn)).Msg("committed")

Debug is used for individual local/remote commits, Info for sync phase
transitions (prepare/complete/rollback/reset), Warn/Error for conflict,
recovery, and corruption conditions — never log page contents.
*/
package log
