package prover

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/corpus-core/colibri/config"
	"github.com/corpus-core/colibri/periodstore"
)

var log = logrus.WithField("prefix", "prover")

// guestBinary is the host program of the guest zkVM prover. It is looked
// up next to the executable first, then at the container path.
const (
	guestBinary     = "eth-sync-script"
	guestBinaryPath = "/app/eth-sync-script"
	// minSyncInput guards against truncated proofer output.
	minSyncInput = 1024
	// retryBackoff keeps a freshly failed proof from being re-proven in
	// a thrashing loop.
	retryBackoff = time.Hour
)

// Stats mirrors the prover run history exposed over metrics and config.
type Stats struct {
	LastRunTimestamp   time.Time
	LastRunDurationMS  int64
	LastRunStatus      int
	TotalSuccess       uint64
	TotalFailure       uint64
	CurrentPeriod      uint64
	LastCheckTimestamp time.Time
}

// SyncProofFn produces the SSZ sync proof input for a period; wired to the
// in-process proofer with method eth_proof_sync.
type SyncProofFn func(ctx context.Context, period uint64) ([]byte, error)

// Service drives the recursive proving pipeline.
type Service struct {
	store *periodstore.Store
	cfg   *config.Config

	// Single-entry latch: overlapping checkpoint callbacks skip proving.
	running *semaphore.Weighted

	syncProof SyncProofFn

	mu                 sync.Mutex
	stats              Stats
	lastVerifiedPeriod uint64

	shutdown func() bool
}

// New wires the prover against a period store. shutdown mirrors the
// process-wide graceful shutdown flag.
func New(store *periodstore.Store, cfg *config.Config, syncProof SyncProofFn) *Service {
	return &Service{
		store:     store,
		cfg:       cfg,
		running:   semaphore.NewWeighted(1),
		syncProof: syncProof,
		shutdown:  store.ShuttingDown,
	}
}

// Stats returns a copy of the run history.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LastVerifiedPeriod returns the monotone verified high-water mark.
func (s *Service) LastVerifiedPeriod() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVerifiedPeriod
}

func (s *Service) advance(period uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if period > s.lastVerifiedPeriod {
		s.lastVerifiedPeriod = period
		lastVerifiedGauge.Set(float64(period))
	}
}

// OnFinalizedPeriod is the checkpoint entry point: for finalized period p
// the target is p+1. The decision tree either verifies existing
// artifacts, reuses them, or spawns the guest prover.
func (s *Service) OnFinalizedPeriod(p uint64) {
	if s.shutdown() || s.cfg.SlaveMode() || s.cfg.PeriodProverKeyFile == "" {
		return
	}
	target := p + 1
	s.mu.Lock()
	s.stats.LastCheckTimestamp = time.Now()
	s.stats.CurrentPeriod = target
	last := s.lastVerifiedPeriod
	s.mu.Unlock()
	if target <= last {
		return
	}

	// Existing artifacts are verified before anything is regenerated.
	if s.store.HasFile(target, periodstore.FileProofG16) && s.store.HasFile(target, periodstore.FilePub) {
		if s.verifyExisting(target) {
			s.advance(target)
			return
		}
		path := s.store.FilePath(target, periodstore.FileProofG16)
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < retryBackoff {
			// A failed proof younger than the backoff is not retried.
			return
		}
		_ = os.Remove(path)
	}

	if err := s.ensureSyncInput(target); err != nil {
		s.recordFailure(err)
		return
	}
	if !s.store.HasFile(p, periodstore.FileProofRaw) || !s.store.HasFile(p, periodstore.FileVKRaw) {
		s.recordFailure(errors.Errorf("recursion inputs of period %d missing", p))
		return
	}

	if !s.running.TryAcquire(1) {
		log.WithField("period", target).Info("Prover already running, skipping")
		return
	}
	go func() {
		defer s.running.Release(1)
		s.prove(target, p)
	}()
}

// verifyExisting checks the published proof of a period in-process.
func (s *Service) verifyExisting(period uint64) bool {
	proof, err := s.store.ReadFile(period, periodstore.FileProofG16)
	if err != nil {
		return false
	}
	pub, err := s.store.ReadFile(period, periodstore.FilePub)
	if err != nil {
		return false
	}
	vkRaw, err := s.store.ReadFile(period, periodstore.FileVK)
	if err != nil {
		return false
	}
	vk, err := ParseVerifyingKey(vkRaw)
	if err != nil {
		log.WithError(err).WithField("period", period).Warn("Unreadable verification key")
		return false
	}
	return VerifyProof(vk, proof, pub)
}

// ensureSyncInput generates sync.ssz through the in-process proofer when
// it is missing or truncated.
func (s *Service) ensureSyncInput(period uint64) error {
	path := s.store.FilePath(period, periodstore.FileSync)
	if info, err := os.Stat(path); err == nil && info.Size() >= minSyncInput {
		return nil
	}
	if s.syncProof == nil {
		return errors.New("no sync proof source configured")
	}
	raw, err := s.syncProof(context.Background(), period)
	if err != nil {
		return errors.Wrapf(err, "generate sync input for period %d", period)
	}
	return s.store.WriteFile(period, periodstore.FileSync, raw)
}

// prove spawns the guest prover and verifies its output. The process and
// its two pipes form one handle group: the run context is released only
// after all three are closed.
func (s *Service) prove(target, prev uint64) {
	started := time.Now()
	bin := s.findGuestBinary()
	cmd := exec.Command(bin,
		"--prove", "--groth16",
		"--input-file", s.store.FilePath(target, periodstore.FileSync),
		"--prev-proof", s.store.FilePath(prev, periodstore.FileProofRaw),
		"--prev-vk", s.store.FilePath(prev, periodstore.FileVKRaw),
	)
	cmd.Env = append(os.Environ(),
		"SP1_PRIVATE_KEY_FILE="+s.cfg.PeriodProverKeyFile,
		"PROOF_OUTPUT="+s.store.FilePath(target, periodstore.FileProofG16),
		"PUB_OUTPUT="+s.store.FilePath(target, periodstore.FilePub),
		"VK_OUTPUT="+s.store.FilePath(target, periodstore.FileVK),
		"RAW_PROOF_OUTPUT="+s.store.FilePath(target, periodstore.FileProofRaw),
		"RAW_VK_OUTPUT="+s.store.FilePath(target, periodstore.FileVKRaw),
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.recordFailure(errors.Wrap(err, "stdout pipe"))
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.recordFailure(errors.Wrap(err, "stderr pipe"))
		return
	}
	if err := cmd.Start(); err != nil {
		s.recordFailure(errors.Wrapf(err, "spawn %s", bin))
		return
	}
	log.WithFields(logrus.Fields{"period": target, "binary": bin}).Info("Prover started")

	// One count per pipe reader; the process itself is joined by cmd.Wait
	// once both pipes are drained.
	var handles sync.WaitGroup
	handles.Add(2)
	go func() {
		defer handles.Done()
		forwardLines(stdout, log.WithField("stream", "stdout"), false)
	}()
	go func() {
		defer handles.Done()
		forwardLines(stderr, log.WithField("stream", "stderr"), true)
	}()
	handles.Wait()
	err = cmd.Wait()
	duration := time.Since(started)

	status := 0
	if err != nil {
		status = 1
		if exit, ok := err.(*exec.ExitError); ok {
			status = exit.ExitCode()
		}
	}
	if status == 0 && !s.verifyExisting(target) {
		status = -1
		err = errors.Errorf("generated proof for period %d failed local verification", target)
	}

	s.mu.Lock()
	s.stats.LastRunTimestamp = started
	s.stats.LastRunDurationMS = duration.Milliseconds()
	s.stats.LastRunStatus = status
	if status == 0 {
		s.stats.TotalSuccess++
	} else {
		s.stats.TotalFailure++
	}
	s.mu.Unlock()
	runDurationGauge.Set(duration.Seconds())

	if status != 0 {
		runsFailedTotal.Inc()
		log.WithError(err).WithField("period", target).Error("Prover run failed")
		return
	}
	runsSucceededTotal.Inc()
	s.advance(target)
	log.WithFields(logrus.Fields{
		"period":   target,
		"duration": duration.String(),
	}).Info("Proof generated and verified")
}

// forwardLines flushes complete lines as they arrive and the partial tail
// at stream end.
func forwardLines(r interface{ Read([]byte) (int, error) }, entry *logrus.Entry, warn bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	emit := func(line string) {
		if line == "" {
			return
		}
		if warn {
			entry.Warn(line)
		} else {
			entry.Info(line)
		}
	}
	for scanner.Scan() {
		emit(scanner.Text())
	}
}

func (s *Service) findGuestBinary() string {
	if exe, err := os.Executable(); err == nil {
		local := filepath.Join(filepath.Dir(exe), guestBinary)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}
	return guestBinaryPath
}

func (s *Service) recordFailure(err error) {
	s.mu.Lock()
	s.stats.TotalFailure++
	s.stats.LastRunStatus = 1
	s.mu.Unlock()
	runsFailedTotal.Inc()
	log.WithError(err).Error("Prover precondition failed")
}
