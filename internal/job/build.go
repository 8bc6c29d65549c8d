package job

import (
	"github.com/specialistvlad/calocluster/internal/config"
	"github.com/specialistvlad/calocluster/internal/tree"
)

// Group names read by Build.
const (
	GroupDataset           = "dataset"
	GroupModel             = "model"
	GroupSemanticCriterion = "semantic_criterion"
	GroupEmbedCriterion    = "embed_criterion"
	GroupCriterion         = "criterion"
	GroupOptimizer         = "optimizer"
	GroupScheduler         = "scheduler"
	GroupTrain             = "train"
	GroupWandb             = "wandb"
	GroupCheckpoint        = "checkpoint"
	GroupSWA               = "swa"
)

const targetKey = "_target_"

// Build reads every view from cfg and returns the first problem found.
func Build(cfg *config.Resolved) (*Job, error) {
	j := &Job{Config: cfg}
	var err error

	if j.Settings, err = buildSettings(cfg); err != nil {
		return nil, err
	}
	if j.Dataset, err = buildDataset(cfg); err != nil {
		return nil, err
	}
	if j.Model, err = buildModel(cfg); err != nil {
		return nil, err
	}
	if j.SemanticCriterion, err = buildCriterion(cfg, GroupSemanticCriterion); err != nil {
		return nil, err
	}
	if j.EmbedCriterion, err = buildCriterion(cfg, GroupEmbedCriterion); err != nil {
		return nil, err
	}
	if j.Criterion, err = buildCriterion(cfg, GroupCriterion); err != nil {
		return nil, err
	}
	if j.Optimizer, err = buildOptimizer(cfg); err != nil {
		return nil, err
	}
	if j.Scheduler, err = buildScheduler(cfg); err != nil {
		return nil, err
	}
	if j.Train, err = buildTrain(cfg); err != nil {
		return nil, err
	}
	if j.Wandb, err = buildWandb(cfg); err != nil {
		return nil, err
	}
	if j.Checkpoint, err = buildCheckpoint(cfg); err != nil {
		return nil, err
	}
	if j.SWA, err = buildSWA(cfg); err != nil {
		return nil, err
	}
	return j, nil
}

func required(cfg *config.Resolved, group string) (*fields, error) {
	f := newFields(cfg, group)
	if f.absent {
		return nil, config.Errorf("validate", group, config.ErrMissingValue, "required group is not selected")
	}
	if _, err := cfg.Map(group); err != nil {
		return nil, err
	}
	return f, nil
}

// optional returns nil fields when the group is absent or null.
func optional(cfg *config.Resolved, group string) (*fields, error) {
	f := newFields(cfg, group)
	if f.absent {
		return nil, nil
	}
	v, err := cfg.Value(group)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != tree.KindMap {
		return nil, config.Errorf("validate", group, config.ErrTypeMismatch, "want mapping, got %s", v.Kind())
	}
	return f, nil
}

func buildSettings(cfg *config.Resolved) (Settings, error) {
	f := newFields(cfg, "")
	s := Settings{
		Seed:           f.Int("seed"),
		Deterministic:  f.Bool("deterministic"),
		Overfit:        f.OptBool("overfit"),
		LogLevel:       f.OptString("log_level"),
		ResumeCkpt:     f.Nullable("resume_ckpt"),
		InitCkpt:       f.Nullable("init_ckpt"),
		RunID:          f.OptString("run_id"),
		OutputsDir:     f.String("outputs_dir"),
		RunDir:         f.String("run_dir"),
		PredictionsDir: f.OptString("predictions_dir"),
		PlotsDir:       f.OptString("plots_dir"),
	}
	if f.err == nil && f.has("val_check_interval") {
		v, err := cfg.Value("val_check_interval")
		if err != nil {
			return s, err
		}
		switch v.Kind() {
		case tree.KindInt:
			n, _ := v.AsInt()
			s.ValCheckInterval, s.ValCheckSteps = float64(n), true
			f.Check(n > 0, "val_check_interval", "step count must be positive, got %d", n)
		case tree.KindFloat:
			x, _ := v.AsFloat()
			s.ValCheckInterval = x
			f.Check(x > 0 && x <= 1, "val_check_interval", "fraction must be in (0, 1], got %g", x)
		default:
			f.fail(config.Errorf("validate", "val_check_interval", config.ErrTypeMismatch, "want int or float, got %s", v.Kind()))
		}
	}
	if s.LogLevel != "" {
		f.OneOf("log_level", s.LogLevel, "debug", "info", "warn", "error")
	}
	f.Check(s.ResumeCkpt == "" || s.InitCkpt == "", "init_ckpt", "resume_ckpt and init_ckpt are mutually exclusive")
	return s, f.err
}

func buildDataset(cfg *config.Resolved) (Dataset, error) {
	f, err := required(cfg, GroupDataset)
	if err != nil {
		return Dataset{}, err
	}
	d := Dataset{
		Target:     f.String(targetKey),
		DataDir:    f.String("data_dir"),
		BatchSize:  f.Int("batch_size"),
		NumWorkers: f.OptInt("num_workers"),
		Task:       f.String("task"),
		Feats:      f.OptStrings("feats"),
		Coords:     f.OptStrings("coords"),
	}
	f.Check(d.BatchSize > 0, "batch_size", "must be positive, got %d", d.BatchSize)
	f.Check(d.NumWorkers >= 0, "num_workers", "must not be negative, got %d", d.NumWorkers)
	f.OneOf("task", d.Task, "panoptic", "semantic", "instance")
	d.Params = f.Params()
	return d, f.err
}

func buildModel(cfg *config.Resolved) (Model, error) {
	f, err := required(cfg, GroupModel)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		Target: f.String(targetKey),
		CR:     f.Float("cr"),
	}
	f.Check(m.CR > 0, "cr", "must be positive, got %g", m.CR)
	m.Params = f.Params()
	return m, f.err
}

func buildCriterion(cfg *config.Resolved, group string) (*Criterion, error) {
	f, err := optional(cfg, group)
	if f == nil || err != nil {
		return nil, err
	}
	c := &Criterion{
		Group:        group,
		Target:       f.String(targetKey),
		Method:       f.OptString("method"),
		IgnoreLabels: f.OptInts("ignore_labels"),
		ValidLabels:  f.OptInts("valid_labels"),
		DeltaV:       f.OptFloat("delta_v"),
		DeltaD:       f.OptFloat("delta_d"),
	}
	if c.Method != "" {
		f.OneOf("method", c.Method, "all", "ignore", "separate")
		f.Check(c.Method == "all" || len(c.IgnoreLabels) > 0, "ignore_labels",
			"method %q requires ignore_labels", c.Method)
	}
	f.Check(!f.has("delta_v") || c.DeltaV > 0, "delta_v", "must be positive, got %g", c.DeltaV)
	f.Check(!f.has("delta_d") || c.DeltaD > 0, "delta_d", "must be positive, got %g", c.DeltaD)
	c.Params = f.Params()
	return c, f.err
}

func buildOptimizer(cfg *config.Resolved) (Optimizer, error) {
	f, err := required(cfg, GroupOptimizer)
	if err != nil {
		return Optimizer{}, err
	}
	o := Optimizer{
		Target: f.String(targetKey),
		LR:     f.Float("lr"),
	}
	f.Check(o.LR > 0, "lr", "must be positive, got %g", o.LR)
	o.Params = f.Params()
	return o, f.err
}

func buildScheduler(cfg *config.Resolved) (*Scheduler, error) {
	f, err := optional(cfg, GroupScheduler)
	if f == nil || err != nil {
		return nil, err
	}
	s := &Scheduler{Target: f.String(targetKey)}
	s.Params = f.Params()
	return s, f.err
}

func buildTrain(cfg *config.Resolved) (Train, error) {
	f, err := required(cfg, GroupTrain)
	if err != nil {
		return Train{}, err
	}
	t := Train{
		NumEpochs:   f.Int("num_epochs"),
		GPUs:        f.Int("gpus"),
		Distributed: f.Bool("distributed"),
	}
	f.Check(t.NumEpochs > 0, "num_epochs", "must be positive, got %d", t.NumEpochs)
	f.Check(t.GPUs >= 0, "gpus", "must not be negative, got %d", t.GPUs)
	f.Check(!t.Distributed || t.GPUs > 1, "distributed", "distributed training needs more than one gpu, got %d", t.GPUs)
	t.Params = f.Params()
	return t, f.err
}

func buildWandb(cfg *config.Resolved) (Wandb, error) {
	f, err := required(cfg, GroupWandb)
	if err != nil {
		return Wandb{}, err
	}
	w := Wandb{
		Project: f.String("project"),
		Entity:  f.Nullable("entity"),
		Mode:    f.String("mode"),
		Tags:    f.OptStrings("tags"),
	}
	f.Check(w.Project != "", "project", "must not be empty")
	f.OneOf("mode", w.Mode, "online", "offline", "disabled")
	w.Params = f.Params()
	return w, f.err
}

func buildCheckpoint(cfg *config.Resolved) (Checkpoint, error) {
	f, err := required(cfg, GroupCheckpoint)
	if err != nil {
		return Checkpoint{}, err
	}
	c := Checkpoint{
		Monitor:  f.String("monitor"),
		Mode:     f.String("mode"),
		SaveTopK: f.Int("save_top_k"),
		DirPath:  f.String("dirpath"),
	}
	f.OneOf("mode", c.Mode, "min", "max")
	f.Check(c.SaveTopK >= -1, "save_top_k", "must be -1 or more, got %d", c.SaveTopK)
	c.Params = f.Params()
	return c, f.err
}

func buildSWA(cfg *config.Resolved) (*SWA, error) {
	f, err := optional(cfg, GroupSWA)
	if f == nil || err != nil {
		return nil, err
	}
	s := &SWA{Active: f.Bool("active")}
	if s.Active {
		s.LRs = f.Float("swa_lrs")
		s.EpochStart = f.Float("swa_epoch_start")
		f.Check(s.LRs > 0, "swa_lrs", "must be positive, got %g", s.LRs)
		f.Check(s.EpochStart >= 0, "swa_epoch_start", "must not be negative, got %g", s.EpochStart)
	}
	s.Params = f.Params()
	return s, f.err
}
