// Package pickstore implements the append-only Pick Store:
// predictions.jsonl, weights.json, and daily audit snapshots on a mounted
// durable volume. The store is a small set of named operations plus a
// health probe over one file-backed append log; there is deliberately no
// relational schema behind it.
package pickstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sawpanic/pickengine/internal/errs"
	"github.com/sawpanic/pickengine/internal/types"
)

// PersistStatus is PersistPick's result.
type PersistStatus string

const (
	StatusLogged    PersistStatus = "logged"
	StatusDuplicate PersistStatus = "duplicate"
	StatusError     PersistStatus = "error"
)

// HealthCheck reports the storage facts the StorageHealth operation
// surfaces.
type HealthCheck struct {
	ResolvedBaseDir      string    `json:"resolved_base_dir"`
	IsMountpoint         bool      `json:"is_mountpoint"`
	IsEphemeral          bool      `json:"is_ephemeral"`
	Writable             bool      `json:"writable"`
	PredictionsLineCount int       `json:"predictions_line_count"`
	WeightsExists        bool      `json:"weights_exists"`
	WeightsLastModified  time.Time `json:"weights_last_modified"`
}

// Store is the Pick Store. Access to each file is serialized behind a
// single mutex per file; reads take the same mutex, so a read-scan never
// sees a half-written line.
type Store struct {
	baseDir string

	predictionsMu sync.Mutex
	weightsMu     sync.Mutex
}

const (
	predictionsFile = "grader/predictions.jsonl"
	weightsFile = "grader/weights.json"
	auditDir = "audit_logs"
)

// Open resolves and validates the volume at baseDir. A temp
// directory (os.TempDir) is treated as ephemeral and rejected.
func Open(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, errs.New(errs.StorageFatal, "pickstore: empty base directory")
	}
	info, err := os.Stat(baseDir)
	if err != nil || !info.IsDir() {
		return nil, errs.Wrap(errs.StorageFatal, err, "pickstore: base directory %q not accessible", baseDir)
	}
	if isEphemeral(baseDir) {
		return nil, errs.New(errs.StorageFatal, "pickstore: base directory %q appears ephemeral", baseDir)
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "grader"), 0o755); err != nil {
		return nil, errs.Wrap(errs.StorageFatal, err, "pickstore: cannot create grader dir")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, auditDir), 0o755); err != nil {
		return nil, errs.Wrap(errs.StorageFatal, err, "pickstore: cannot create audit_logs dir")
	}
	probe := filepath.Join(baseDir, ".pickstore_write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return nil, errs.Wrap(errs.StorageFatal, err, "pickstore: base directory %q not writable", baseDir)
	}
	_ = os.Remove(probe)

	return &Store{baseDir: baseDir}, nil
}

// isEphemeral rejects the common ephemeral mounts a misconfigured deployment
// might point at.
func isEphemeral(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return true
	}
	return abs == os.TempDir() || abs == "/tmp" || abs == "/dev/shm"
}

// isMountpoint reports whether dir's device differs from its parent's,
// the standard heuristic for "this path is a distinct mount" on POSIX
// systems.
func isMountpoint(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil {
		return false
	}
	parentInfo, err := os.Stat(filepath.Dir(dir))
	if err != nil {
		return false
	}
	return !os.SameFile(info, parentInfo)
}

// PersistPick appends one JSON object per line to predictions.jsonl.
// Duplicates (same pick_id on the same et_date) are rejected with
// StatusDuplicate, which is not an error.
func (s *Store) PersistPick(pick types.Pick) (PersistStatus, error) {
	if err := validateRequiredFields(pick); err != nil {
		return StatusError, errs.Wrap(errs.ValidationFailure, err, "pickstore: pick %s failed schema", pick.PickID)
	}

	s.predictionsMu.Lock()
	defer s.predictionsMu.Unlock()

	existing, err := s.loadAllLocked()
	if err != nil {
		return StatusError, errs.Wrap(errs.StorageFatal, err, "pickstore: read predictions.jsonl")
	}
	for _, p := range existing {
		if p.PickID == pick.PickID && p.ETDate == pick.ETDate {
			return StatusDuplicate, nil
		}
	}

	path := filepath.Join(s.baseDir, predictionsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return StatusError, errs.Wrap(errs.StorageFatal, err, "pickstore: open predictions.jsonl")
	}
	defer f.Close()

	line, err := json.Marshal(pick)
	if err != nil {
		return StatusError, errs.Wrap(errs.InternalBug, err, "pickstore: marshal pick %s", pick.PickID)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return StatusError, errs.Wrap(errs.StorageFatal, err, "pickstore: append pick %s", pick.PickID)
	}
	return StatusLogged, nil
}

// LoadPredictions reads predictions for an ET date (or all days if empty),
// optionally filtered by sport. Grading entries written by
// MarkGraded are reconciled here: later lines for the same pick_id win on
// grading fields (last-write-wins).
func (s *Store) LoadPredictions(etDate string, sport types.Sport) ([]types.Pick, error) {
	s.predictionsMu.Lock()
	all, err := s.loadAllLocked()
	s.predictionsMu.Unlock()
	if err != nil {
		return nil, errs.Wrap(errs.StorageFatal, err, "pickstore: read predictions.jsonl")
	}

	byID := make(map[string]types.Pick, len(all))
	order := make([]string, 0, len(all))
	for _, p := range all {
		if _, seen := byID[p.PickID]; !seen {
			order = append(order, p.PickID)
		}
		byID[p.PickID] = p // last write wins, including grading fields
	}

	out := make([]types.Pick, 0, len(order))
	for _, id := range order {
		p := byID[id]
		if etDate != "" && p.ETDate != etDate {
			continue
		}
		if sport != "" && p.Sport != sport {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// MarkGraded appends a grading update line. Readers reconcile by pick_id,
// last-write-wins for grading fields. It populates only the
// result/actual_value/graded_at triple; use MarkGradedFull to also populate
// beat_clv/process_grade in the same write.
func (s *Store) MarkGraded(pickID string, result types.Result, actualValue float64, gradedAt time.Time) error {
	return s.MarkGradedFull(GradingUpdate{
		PickID:      pickID,
		Result:      result,
		ActualValue: actualValue,
		GradedAt:    gradedAt,
	})
}

// GradingUpdate bundles every grading-populated field of a Pick record
// for a single MarkGradedFull call: result/actual_value/graded_at are
// always set; BeatCLV/ProcessGrade are optional (nil when the grader
// couldn't compute closing-line-value, e.g. no odds snapshot available).
type GradingUpdate struct {
	PickID       string
	Result       types.Result
	ActualValue  float64
	GradedAt     time.Time
	BeatCLV      *bool
	ProcessGrade *string
}

// MarkGradedFull is MarkGraded plus the optional CLV/process-grade fields.
func (s *Store) MarkGradedFull(u GradingUpdate) error {
	s.predictionsMu.Lock()
	defer s.predictionsMu.Unlock()

	all, err := s.loadAllLocked()
	if err != nil {
		return errs.Wrap(errs.StorageFatal, err, "pickstore: read predictions.jsonl")
	}
	var base *types.Pick
	for i := range all {
		if all[i].PickID == u.PickID {
			base = &all[i]
		}
	}
	if base == nil {
		return errs.New(errs.ValidationFailure, "pickstore: MarkGraded: unknown pick_id %s", u.PickID)
	}

	updated := *base
	r := u.Result
	actualValue := u.ActualValue
	gradedAt := u.GradedAt
	updated.Result = &r
	updated.ActualValue = &actualValue
	updated.GradedAt = &gradedAt
	updated.BeatCLV = u.BeatCLV
	updated.ProcessGrade = u.ProcessGrade

	path := filepath.Join(s.baseDir, predictionsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(errs.StorageFatal, err, "pickstore: open predictions.jsonl")
	}
	defer f.Close()

	line, err := json.Marshal(updated)
	if err != nil {
		return errs.Wrap(errs.InternalBug, err, "pickstore: marshal graded pick %s", u.PickID)
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

// loadAllLocked reads and decodes every line of predictions.jsonl. Callers
// must hold predictionsMu.
func (s *Store) loadAllLocked() ([]types.Pick, error) {
	path := filepath.Join(s.baseDir, predictionsFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var picks []types.Pick
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p types.Pick
		if err := json.Unmarshal(line, &p); err != nil {
			continue // tolerate unknown/malformed lines rather than fail the whole read
		}
		picks = append(picks, p)
	}
	return picks, scanner.Err()
}

// WriteWeights atomically rewrites weights.json via write-to-temp + rename.
func (s *Store) WriteWeights(weights map[string]map[string]types.WeightVector) error {
	s.weightsMu.Lock()
	defer s.weightsMu.Unlock()

	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return errs.Wrap(errs.InternalBug, err, "pickstore: marshal weights")
	}

	path := filepath.Join(s.baseDir, weightsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.StorageFatal, err, "pickstore: write weights temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(errs.StorageFatal, err, "pickstore: rename weights temp file")
	}
	return nil
}

// ReadWeights loads the current weights.json, or an empty map if it doesn't
// exist yet.
func (s *Store) ReadWeights() (map[string]map[string]types.WeightVector, error) {
	s.weightsMu.Lock()
	defer s.weightsMu.Unlock()

	path := filepath.Join(s.baseDir, weightsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]map[string]types.WeightVector{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageFatal, err, "pickstore: read weights.json")
	}
	var out map[string]map[string]types.WeightVector
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errs.Wrap(errs.InternalBug, err, "pickstore: parse weights.json")
	}
	return out, nil
}

// WriteAuditSnapshot writes the daily audit_logs/audit_YYYY-MM-DD.json
// snapshot.
func (s *Store) WriteAuditSnapshot(etDate string, report interface{}) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errs.Wrap(errs.InternalBug, err, "pickstore: marshal audit report")
	}
	path := filepath.Join(s.baseDir, auditDir, fmt.Sprintf("audit_%s.json", etDate))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(errs.StorageFatal, err, "pickstore: write audit snapshot")
	}
	return nil
}

// Health implements the StorageHealth operator operation.
func (s *Store) Health() HealthCheck {
	hc := HealthCheck{ResolvedBaseDir: s.baseDir}

	info, err := os.Stat(s.baseDir)
	hc.Writable = err == nil && info.IsDir()
	hc.IsEphemeral = isEphemeral(s.baseDir)
	hc.IsMountpoint = isMountpoint(s.baseDir)

	s.predictionsMu.Lock()
	picks, _ := s.loadAllLocked()
	s.predictionsMu.Unlock()
	hc.PredictionsLineCount = len(picks)

	weightsPath := filepath.Join(s.baseDir, weightsFile)
	if wi, err := os.Stat(weightsPath); err == nil {
		hc.WeightsExists = true
		hc.WeightsLastModified = wi.ModTime()
	}
	return hc
}

// validateRequiredFields enforces the required-fields-on-write contract
// before any write hits disk.
func validateRequiredFields(p types.Pick) error {
	switch {
	case p.PickID == "":
		return fmt.Errorf("missing pick_id")
	case p.Sport == "":
		return fmt.Errorf("missing sport")
	case p.EventID == "":
		return fmt.Errorf("missing event_id")
	case p.Market == "":
		return fmt.Errorf("missing market")
	case p.Side == "":
		return fmt.Errorf("missing side")
	case p.Book == "":
		return fmt.Errorf("missing book")
	case p.ETDate == "":
		return fmt.Errorf("missing et_date")
	case p.FinalScore < 0 || p.FinalScore > 10:
		return fmt.Errorf("final_score out of range: %f", p.FinalScore)
	}
	return nil
}
