package periodstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lastSlotGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "period_sync_last_slot",
		Help: "Last head slot written to the period store.",
	})
	lastSlotTSGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "period_sync_last_slot_ts",
		Help: "Unix timestamp of the last head write.",
	})
	writtenSlotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "period_sync_written_slots_total",
		Help: "Total slots written through the head path.",
	})
	backfilledSlotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "period_sync_backfilled_slots_total",
		Help: "Total slots written by the backfill walker.",
	})
	lagSlotsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "period_sync_lag_slots",
		Help: "Head slots not yet persisted.",
	})
	syncErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "period_sync_errors_total",
		Help: "Filesystem and fetch errors in the period store.",
	})
	queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "period_sync_queue_depth",
		Help: "Pending tasks in the write queue.",
	})
	indexGapsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "period_index_gaps",
		Help: "1 when the period directory sequence has gaps.",
	})
	periodsVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "period_blocks_root_verified_total",
		Help: "Periods whose blocks root matched a historical summary.",
	})
	periodsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "period_blocks_root_failed_total",
		Help: "Periods whose blocks root mismatched a historical summary.",
	})
)
