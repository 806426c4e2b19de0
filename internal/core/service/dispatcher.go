package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const stageRequest = "request"

type State int

const (
	StateStart State = iota
	StateConfigResolved
	StateSourceSelected
	StateValidated
	StateBudgeted
	StateComposited
	StateEmitted
	StateFailed
)

func (s State) String() string {
	return [...]string{"start", "config_resolved", "source_selected", "validated", "budgeted",
		"composited", "emitted", "failed"}[s]
}

// Request is one inbound render request.
type Request struct {
	ID        string
	ContentID string
}

type RequestDispatcher struct {
	config     *ConfigResolver
	content    port.ContentRepository
	source     *SourceSelector
	validator  *ImageValidator
	budget     *MemoryBudgeter
	compositor *Compositor
	recovery   *RecoveryPolicy
	errors     port.ErrorSink
	now        func() time.Time
	log        zerolog.Logger
}

func NewRequestDispatcher(config *ConfigResolver, content port.ContentRepository, source *SourceSelector,
	validator *ImageValidator, budget *MemoryBudgeter, compositor *Compositor, recovery *RecoveryPolicy,
	sink port.ErrorSink, log zerolog.Logger) *RequestDispatcher {
	return &RequestDispatcher{
		config:     config,
		content:    content,
		source:     source,
		validator:  validator,
		budget:     budget,
		compositor: compositor,
		recovery:   recovery,
		errors:     sink,
		now:        time.Now,
		log:        log,
	}
}

// run is the per-request state carried between pipeline steps.
type run struct {
	req       Request
	contentID int64
	attempt   Attempt
	base      domain.ImageAsset
	overlay   domain.ImageAsset
	result    domain.Result
	recovered bool
}

// Dispatch drives one request from an identifier to encoded bytes. Every step
// may fail; one failure per request may be mitigated and the failed step is
// then re-entered. A second failure is terminal.
func (d *RequestDispatcher) Dispatch(ctx context.Context, req Request) (domain.Result, error) {
	l := d.log.With().Str("requestId", req.ID).Str("contentId", req.ContentID).Logger()
	r := &run{req: req}

	state := StateStart
	for state != StateEmitted {
		next, err := d.step(ctx, r, state)
		if err == nil {
			l.Debug().Str("from", state.String()).Str("to", next.String()).Msg("transition")
			state = next
			continue
		}

		failure := domain.AsError(err)
		if r.recovered {
			failure.RecoveryAttempted = true
			d.record(ctx, r, failure)
			l.Warn().Err(failure).Str("state", state.String()).Str("category", string(failure.Kind.Category())).
				Msg("request failed after recovery")
			return domain.Result{}, failure
		}

		r.recovered = true
		mitigation, rerr := d.recovery.Recover(ctx, failure, &r.attempt)
		d.record(ctx, r, failure)
		if rerr != nil {
			l.Warn().Err(failure).Str("state", state.String()).Str("category", string(failure.Kind.Category())).
				Msg("request failed")
			return domain.Result{}, rerr
		}

		l.Info().Str("mitigation", mitigation.String()).Str("state", state.String()).Msg("re-entering failed state")
	}

	return r.result, nil
}

// step performs the work that leaves state and returns the state reached.
func (d *RequestDispatcher) step(ctx context.Context, r *run, state State) (State, error) {
	switch state {
	case StateStart:
		id, err := ParseContentID(r.req.ContentID)
		if err != nil {
			return StateFailed, err
		}
		r.contentID = id

		cfg, err := d.config.Resolve(ctx)
		if err != nil {
			return StateFailed, err
		}
		r.attempt.Config = cfg
		return StateConfigResolved, nil

	case StateConfigResolved:
		content, err := d.content.Content(ctx, r.contentID)
		if err != nil {
			return StateFailed, d.contentError(err)
		}
		if !content.Published {
			return StateFailed, domain.NewError(domain.KindContentNotFound, stageSource, "",
				fmt.Errorf("content %d is not published", content.ID))
		}

		ref, err := d.source.Select(ctx, content, r.attempt.Config)
		if err != nil {
			return StateFailed, err
		}
		r.attempt.BaseRef = ref
		return StateSourceSelected, nil

	case StateSourceSelected:
		base, err := d.validator.Validate(ctx, r.attempt.BaseRef, domain.RoleBase)
		if err != nil {
			return StateFailed, err
		}
		overlay, err := d.validator.Validate(ctx, r.attempt.Config.OverlayImage, domain.RoleOverlay)
		if err != nil {
			return StateFailed, err
		}
		r.base, r.overlay = base, overlay
		return StateValidated, nil

	case StateValidated:
		if err := d.budget.Check(r.base, r.overlay); err != nil {
			return StateFailed, err
		}
		return StateBudgeted, nil

	case StateBudgeted:
		res, err := d.compositor.Compose(ctx, CompositionJob{
			Base:    r.base,
			Overlay: r.overlay,
			Offset:  image.Pt(r.attempt.Config.OverlayX, r.attempt.Config.OverlayY),
			Format:  r.attempt.Config.OutputFormat,
			Quality: r.attempt.Config.OutputQuality,
		})
		if err != nil {
			return StateFailed, err
		}
		r.result = res
		return StateComposited, nil

	case StateComposited:
		return StateEmitted, nil

	default:
		return StateFailed, domain.NewError(domain.KindProcessingException, stageRequest, "",
			fmt.Errorf("no transition from %s", state))
	}
}

func (d *RequestDispatcher) contentError(err error) error {
	if errors.Is(err, domain.ErrContentNotFound) {
		return domain.NewError(domain.KindContentNotFound, stageSource, "", err)
	}
	return domain.NewError(domain.KindProcessingException, stageSource, "", err)
}

// record appends to the error sink. A misbehaving sink never fails the request.
func (d *RequestDispatcher) record(ctx context.Context, r *run, failure *domain.Error) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().Interface("panic", p).Msg("error sink panicked")
		}
	}()

	d.errors.Record(ctx, domain.ErrorEntry{
		Time:              d.now(),
		RequestID:         r.req.ID,
		ContentID:         r.req.ContentID,
		Kind:              failure.Kind.String(),
		Category:          string(failure.Kind.Category()),
		Stage:             failure.Stage,
		Role:              string(failure.Role),
		Message:           failure.Error(),
		RecoveryAttempted: failure.RecoveryAttempted,
	})
}

// ParseContentID accepts a positive decimal identifier.
func ParseContentID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewError(domain.KindInvalidIdentifier, stageRequest, "",
			fmt.Errorf("invalid content id %q", raw))
	}
	return id, nil
}
