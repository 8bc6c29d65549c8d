package job

import (
	"log/slog"

	"github.com/specialistvlad/calocluster/internal/config"
)

// Settings are the top-level scalar fields of the root file.
type Settings struct {
	Seed          int64
	Deterministic bool
	Overfit       bool
	LogLevel      string

	// ValCheckInterval is a fraction of an epoch, or a number of training
	// steps when ValCheckSteps is set.
	ValCheckInterval float64
	ValCheckSteps    bool

	ResumeCkpt string
	InitCkpt   string

	RunID          string
	OutputsDir     string
	RunDir         string
	PredictionsDir string
	PlotsDir       string
}

// Dataset feeds the Dataset Factory.
type Dataset struct {
	Target     string
	DataDir    string
	BatchSize  int64
	NumWorkers int64
	Task       string
	Feats      []string
	Coords     []string
	Params     map[string]any
}

// Model feeds the Model Factory. CR is the channel ratio that scales every
// layer width of the sparse network.
type Model struct {
	Target string
	CR     float64
	Params map[string]any
}

// Criterion feeds the Loss Factory. Method, IgnoreLabels and the deltas are
// only meaningful for the embedding losses.
type Criterion struct {
	Group        string
	Target       string
	Method       string
	IgnoreLabels []int64
	ValidLabels  []int64
	DeltaV       float64
	DeltaD       float64
	Params       map[string]any
}

// Optimizer feeds the Optimizer Factory.
type Optimizer struct {
	Target string
	LR     float64
	Params map[string]any
}

// Scheduler feeds the Scheduler Factory.
type Scheduler struct {
	Target string
	Params map[string]any
}

// Train selects the training strategy.
type Train struct {
	NumEpochs   int64
	GPUs        int64
	Distributed bool
	Params      map[string]any
}

// Wandb configures the experiment logger.
type Wandb struct {
	Project string
	Entity  string
	Mode    string
	Tags    []string
	Params  map[string]any
}

// Checkpoint configures the checkpoint manager.
type Checkpoint struct {
	Monitor  string
	Mode     string
	SaveTopK int64
	DirPath  string
	Params   map[string]any
}

// SWA configures stochastic weight averaging. EpochStart is an epoch number
// when integral, otherwise a fraction of training.
type SWA struct {
	Active     bool
	LRs        float64
	EpochStart float64
	Params     map[string]any
}

// Job is the typed form of one resolved configuration. Optional components
// are nil when their group is not selected.
type Job struct {
	Config *config.Resolved

	Settings          Settings
	Dataset           Dataset
	Model             Model
	SemanticCriterion *Criterion
	EmbedCriterion    *Criterion
	Criterion         *Criterion
	Optimizer         Optimizer
	Scheduler         *Scheduler
	Train             Train
	Wandb             Wandb
	Checkpoint        Checkpoint
	SWA               *SWA
}

// LogValue implements slog.LogValuer with a one-line summary.
func (j *Job) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run_id", j.Settings.RunID),
		slog.String("dataset", j.Dataset.Target),
		slog.String("model", j.Model.Target),
		slog.Float64("cr", j.Model.CR),
		slog.String("optimizer", j.Optimizer.Target),
		slog.Int64("epochs", j.Train.NumEpochs),
		slog.Bool("distributed", j.Train.Distributed),
	}
	for _, c := range []*Criterion{j.SemanticCriterion, j.EmbedCriterion, j.Criterion} {
		if c != nil {
			attrs = append(attrs, slog.String(c.Group, c.Target))
		}
	}
	if j.SWA != nil {
		attrs = append(attrs, slog.Bool("swa", j.SWA.Active))
	}
	return slog.GroupValue(attrs...)
}
