package report

import (
	"fmt"

	"github.com/carbocation/scqc/dimred"
	"github.com/carbocation/scqc/expset"
	"github.com/carbocation/scqc/qc"
)

// Every tsneFrameEvery optimization steps, one frame of the convergence
// animation is captured.
const tsneFrameEvery = 10

// Run drives the whole pipeline from a raw expression set to a finished
// document.
func Run(cfg Config, set *expset.Set) (*Document, error) {
	raw, err := NewRun(cfg, set)
	if err != nil {
		return nil, err
	}

	prep, err := raw.Prepare()
	if err != nil {
		return nil, err
	}

	filt, err := prep.Measure().Filter()
	if err != nil {
		return nil, err
	}

	return filt.Embed().Report(), nil
}

// The pipeline is staged: Raw -> Prepared -> Measured -> Filtered ->
// Embedded. Each stage's constructor is a method on the prior stage and the
// fields are unexported, so a caller cannot assemble the stages out of
// order or skip one.

// Raw is the entry stage: a validated configuration bound to an expression
// set that nothing has been computed from yet.
type Raw struct {
	cfg Config
	set *expset.Set
}

// NewRun validates the configuration against the package defaults and binds
// it to the expression set. Configuration mistakes surface here or in
// Prepare, never later.
func NewRun(cfg Config, set *expset.Set) (*Raw, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if set == nil || set.NSamples() == 0 || set.NFeatures() == 0 {
		return nil, fmt.Errorf("the expression set is empty")
	}

	return &Raw{cfg: cfg, set: set}, nil
}

// Prepared has a primary matrix choice and a grouping key per sample.
type Prepared struct {
	cfg     Config
	set     *expset.Set
	primary qc.Primary
	keys    []string
}

// Prepare resolves the grouping columns against the sample annotation and
// picks the primary matrices. A grouping column that does not exist is a
// configuration mistake and aborts the run here, before any metric exists.
func (r *Raw) Prepare() (*Prepared, error) {
	keys, err := r.set.GroupingKeys(r.cfg.PhenoID)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	primary, err := qc.SelectPrimary(r.set)
	if err != nil {
		return nil, err
	}

	return &Prepared{cfg: r.cfg, set: r.set, primary: primary, keys: keys}, nil
}

// Measured has the control decision and the QC table for the unfiltered set.
type Measured struct {
	cfg      Config
	set      *expset.Set
	primary  qc.Primary
	keys     []string
	controls qc.Controls
	metrics  *qc.Metrics
}

// Measure decides control eligibility and computes the QC table. The
// eligibility decision is made exactly once, on the unfiltered data, and
// every later stage inherits it.
func (p *Prepared) Measure() *Measured {
	controls := qc.FindControls(p.set.Features, p.primary.Counts.Values, p.cfg.ControlPrefix, qc.SmallestGroup(p.keys))
	metrics := qc.Compute(p.set, p.primary, controls, p.cfg.TopK)

	return &Measured{
		cfg:      p.cfg,
		set:      p.set,
		primary:  p.primary,
		keys:     p.keys,
		controls: controls,
		metrics:  metrics,
	}
}

// Filtered holds the working set after expression filtering, with the QC
// table recomputed on it so that every figure reflects the features that
// actually remain.
type Filtered struct {
	cfg      Config
	set      *expset.Set
	primary  qc.Primary
	keys     []string
	controls qc.Controls
	metrics  *qc.Metrics

	rawFeatures int
	rawSamples  int
}

// Filter drops undetectable features and empty samples, then recomputes the
// QC table on what remains. The control eligibility decided by Measure is
// carried forward unchanged; control features that the filter removed simply
// stop contributing to the control totals.
func (m *Measured) Filter() (*Filtered, error) {
	filtered, err := qc.Filter(m.set, m.primary.Source, m.cfg.MinDetected)
	if err != nil {
		return nil, err
	}

	primary, err := qc.SelectPrimary(filtered)
	if err != nil {
		return nil, err
	}
	keys, err := filtered.GroupingKeys(m.cfg.PhenoID)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	metrics := qc.Compute(filtered, primary, m.controls, m.cfg.TopK)

	return &Filtered{
		cfg:         m.cfg,
		set:         filtered,
		primary:     primary,
		keys:        keys,
		controls:    m.controls,
		metrics:     metrics,
		rawFeatures: m.set.NFeatures(),
		rawSamples:  m.set.NSamples(),
	}, nil
}

// Embedded adds the low-dimensional views. Embedding failures are data
// properties, not run failures, so they are recorded per embedding and the
// report degrades the affected figures to omission notes.
type Embedded struct {
	*Filtered

	jitter dimred.JitterInfo

	pca    *dimred.PCA
	pcaErr error

	tsne    [][]float64
	tsneErr error
	frames  [][][]float64
}

// Embed selects the most variable features, applies the deduplication
// guard, and computes PCA and t-SNE on the jittered copy. Nothing outside
// the embeddings ever sees the jittered values.
func (f *Filtered) Embed() *Embedded {
	out := &Embedded{Filtered: f}

	input := dimred.EmbeddingInput(f.primary)
	top, _ := dimred.TopVariable(input, f.set.Features, f.cfg.TopVariable)

	x, jit, err := dimred.DedupJitter(top, uint64(f.cfg.Seed))
	if err != nil {
		out.pcaErr = err
		out.tsneErr = err
		return out
	}
	out.jitter = jit

	out.pca, out.pcaErr = dimred.ComputePCA(x, f.cfg.Components)

	var progress func(iter int, divergence float64, snapshot [][]float64)
	if f.cfg.AnimateTSNE {
		progress = func(iter int, divergence float64, snapshot [][]float64) {
			if iter%tsneFrameEvery == 0 {
				out.frames = append(out.frames, snapshot)
			}
		}
	}
	out.tsne, out.tsneErr = dimred.ComputeTSNE(x, f.cfg.Seed, progress)

	return out
}
