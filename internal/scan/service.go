package scan

import (
	"context"
	"time"

	"github.com/sentinelml/sentinel/internal/idgen"
	"github.com/sentinelml/sentinel/internal/logging"
	"github.com/sentinelml/sentinel/internal/metrics"
	"github.com/sentinelml/sentinel/internal/model"
	"github.com/sentinelml/sentinel/internal/schema"
	"github.com/sentinelml/sentinel/internal/traces"
)

// Publisher receives completed scan results for fan-out to live subscribers.
type Publisher interface {
	PublishScan(contractAddress string, result *Result)
}

// Service runs deep scans: vector building, model inference, and the
// deterministic decision layer, plus best-effort audit persistence.
type Service struct {
	schema     *schema.Schema
	classifier model.Classifier
	store      Store
	events     Publisher
}

// NewService creates a scan service. Store and publisher are optional;
// nil disables the audit trail and the live feed respectively.
func NewService(s *schema.Schema, c model.Classifier) *Service {
	return &Service{schema: s, classifier: c}
}

// WithStore attaches an audit store.
func (s *Service) WithStore(store Store) *Service {
	s.store = store
	return s
}

// WithPublisher attaches a live-feed publisher.
func (s *Service) WithPublisher(p Publisher) *Service {
	s.events = p
	return s
}

// Schema returns the feature schema the service scores against.
func (s *Service) Schema() *schema.Schema { return s.schema }

// Scan evaluates a raw feature record and returns the full verdict.
// Stateless with respect to prior requests; the same record always
// produces the same result.
func (s *Service) Scan(ctx context.Context, record RawRecord) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "scan.Scan")
	defer span.End()

	vector, err := BuildVector(s.schema, record)
	if err != nil {
		return nil, err
	}

	p := s.classifier.Predict(vector)
	d := Derive(p)
	reason := Reason(record, d.RiskLevel)

	result := &Result{
		Verdict:            d.Verdict,
		ScamProbability:    round4(p),
		Calibrated:         true,
		ConfidenceInterval: [2]float64{round3(d.CILow), round3(d.CIHigh)},
		Uncertainty:        round3(d.Uncertainty),
		RiskBand:           d.RiskBand,
		Reason:             reason,
		ModelVersion:       s.schema.Version,
	}

	addr := record.ContractAddress()
	span.SetAttributes(
		traces.Verdict(string(d.Verdict)),
		traces.Probability(result.ScamProbability),
		traces.ContractAddr(addr),
	)
	metrics.ScansTotal.WithLabelValues(string(d.Verdict)).Inc()
	metrics.ScanProbability.Observe(result.ScamProbability)

	logging.L(ctx).Info("scan completed",
		"verdict", d.Verdict,
		"probability", result.ScamProbability,
		"risk_band", d.RiskBand,
		"contract", addr,
	)

	// Persist asynchronously (best-effort audit trail)
	if s.store != nil {
		assessment := &Assessment{
			ID:              idgen.WithPrefix("scan_"),
			ContractAddress: addr,
			ScamProbability: result.ScamProbability,
			Verdict:         d.Verdict,
			RiskBand:        d.RiskBand,
			Reason:          reason,
			ModelVersion:    s.schema.Version,
			EvaluatedAt:     time.Now(),
		}
		go func() {
			if err := s.store.Record(context.Background(), assessment); err != nil {
				metrics.AuditWriteFailures.Inc()
			}
		}()
	}

	if s.events != nil {
		s.events.PublishScan(addr, result)
	}

	return result, nil
}

// Recent returns the most recent audit records, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Assessment, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRecent(ctx, limit)
}
