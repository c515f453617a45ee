// Package pipeline runs one generation job at a time on a background worker
// and reflects its progress on the UI loop.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"voicegen/internal/pkg/voicegen/errs"
	"voicegen/internal/pkg/voicegen/output"
	"voicegen/internal/pkg/voicegen/postproc"
	"voicegen/internal/pkg/voicegen/synth"
	"voicegen/internal/pkg/voicegen/ui"
)

const (
	DefaultProgressInterval = 100 * time.Millisecond

	progressCeiling = 90.0
	progressKnee    = 50.0
	stepSlow        = 0.2
	stepFast        = 0.5

	MsgGenerating = "Generating speech..."
	MsgPitch      = "Applying pitch adjustment..."
	MsgComplete   = "Audio generated successfully"
)

type Preparer interface {
	Prepare(ctx context.Context) (output.Paths, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request, rawPath string) error
}

type Adjuster interface {
	Adjust(ctx context.Context, rawPath, finalPath string, factor float64) error
}

// ArtifactSink receives the artifact playback should use. nil invalidates it.
type ArtifactSink interface {
	SetArtifact(artifact *output.Artifact)
}

type Deps struct {
	Files    Preparer
	Synth    Synthesizer
	Post     Adjuster
	Playback ArtifactSink
}

type Orchestrator struct {
	ctx      context.Context
	loop     *ui.Loop
	surface  ui.Surface
	deps     Deps
	interval time.Duration

	observers []Observer

	// Owned by the loop goroutine.
	job *Job
}

type Option func(*Orchestrator)

func WithProgressInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// New builds an orchestrator. ctx bounds every worker; it is only cancelled
// on shutdown.
func New(ctx context.Context, loop *ui.Loop, surface ui.Surface, deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ctx:      ctx,
		loop:     loop,
		surface:  surface,
		deps:     deps,
		interval: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Current returns a copy of the most recent job. Call it on the loop.
func (o *Orchestrator) Current() (Job, bool) {
	if o.job == nil {
		return Job{}, false
	}
	return *o.job, true
}

// Busy reports whether a job is in flight. Call it on the loop.
func (o *Orchestrator) Busy() bool {
	return o.job != nil && o.job.State.Active()
}

// Submit starts a job. It must run on the loop. Rejected requests leave any
// in-flight job untouched and only update the status line.
func (o *Orchestrator) Submit(req Request) error {
	if o.Busy() {
		o.surface.SetStatus(MsgBusy)
		return ErrBusy
	}
	if err := req.Validate(); err != nil {
		o.surface.SetStatus(statusFor(err))
		return err
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.New(),
		Request:   req,
		State:     Preparing,
		StartedAt: now,
		UpdatedAt: now,
	}
	o.job = job

	for _, a := range ui.Actions {
		o.surface.SetEnabled(a, false)
	}
	if o.deps.Playback != nil {
		o.deps.Playback.SetArtifact(nil)
	}
	o.surface.SetProgress(0)
	o.surface.SetStatus(MsgGenerating)
	o.notify()

	log.Info().Str("job", job.ID.String()).Str("mode", req.Mode.String()).Msg("Generation started")

	o.loop.After(o.interval, func() { o.animate(job.ID) })
	go o.work(job.ID, req)
	return nil
}

func (o *Orchestrator) animate(id uuid.UUID) {
	if o.job == nil || o.job.ID != id || !o.job.State.Active() {
		return
	}

	step := stepFast
	if o.job.Progress >= progressKnee {
		step = stepSlow
	}
	next := o.job.Progress + step
	if next >= progressCeiling {
		return
	}

	o.job.Progress = next
	o.surface.SetProgress(next)
	o.loop.After(o.interval, func() { o.animate(id) })
}

func (o *Orchestrator) work(id uuid.UUID, req Request) {
	ctx := o.ctx

	paths, err := o.deps.Files.Prepare(ctx)
	if err != nil {
		o.fail(id, errs.Wrap(errs.KindPreparation, "", err))
		return
	}
	o.post(func() {
		if paths.Renamed {
			o.surface.SetStatus("Using new file: " + filepath.Base(paths.Final))
		}
		o.advance(id, Synthesizing)
	})

	if err := o.deps.Synth.Synthesize(ctx, req.synthRequest(), paths.Raw); err != nil {
		o.fail(id, err)
		return
	}

	factor := req.EffectivePitch()
	o.post(func() {
		if !postproc.IsIdentity(factor) {
			o.surface.SetStatus(MsgPitch)
		}
		o.advance(id, PostProcessing)
	})

	if err := o.deps.Post.Adjust(ctx, paths.Raw, paths.Final, factor); err != nil {
		o.fail(id, err)
		return
	}

	artifact := &output.Artifact{RawPath: paths.Raw, FinalPath: paths.Final, CreatedAt: time.Now()}
	o.post(func() { o.complete(id, artifact) })
}

func (o *Orchestrator) post(fn func()) {
	if !o.loop.Post(fn) {
		log.Debug().Msg("UI loop stopped, dropping job update")
	}
}

func (o *Orchestrator) advance(id uuid.UUID, state State) {
	if o.job == nil || o.job.ID != id {
		return
	}
	o.job.State = state
	o.job.UpdatedAt = time.Now()
	o.notify()
}

func (o *Orchestrator) complete(id uuid.UUID, artifact *output.Artifact) {
	if o.job == nil || o.job.ID != id {
		return
	}
	o.job.State = Complete
	o.job.Progress = 100
	o.job.Artifact = artifact
	o.job.UpdatedAt = time.Now()

	o.surface.SetProgress(100)
	o.surface.SetStatus(MsgComplete)
	o.surface.SetEnabled(ui.ActionGenerate, true)
	o.surface.SetEnabled(ui.ActionPlay, true)
	o.surface.SetEnabled(ui.ActionSave, true)
	if o.deps.Playback != nil {
		o.deps.Playback.SetArtifact(artifact)
	}

	log.Info().
		Str("job", id.String()).
		Str("path", artifact.FinalPath).
		Dur("took", o.job.UpdatedAt.Sub(o.job.StartedAt)).
		Msg("Generation complete")
	o.notify()
}

func (o *Orchestrator) fail(id uuid.UUID, err error) {
	o.post(func() {
		if o.job == nil || o.job.ID != id {
			return
		}
		o.job.State = Failed
		o.job.Progress = 0
		o.job.Err = err
		o.job.UpdatedAt = time.Now()

		o.surface.SetProgress(0)
		o.surface.SetStatus("Error generating speech: " + errs.Reason(err))
		o.surface.SetEnabled(ui.ActionGenerate, true)

		log.Error().Err(err).Str("job", id.String()).Msg("Generation failed")
		o.notify()
	})
}

func (o *Orchestrator) notify() {
	if len(o.observers) == 0 {
		return
	}
	job := *o.job
	for _, obs := range o.observers {
		obs.JobChanged(job)
	}
}
