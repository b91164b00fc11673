package decisioning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"decisioning-engine/internal/artifact"
	"decisioning-engine/internal/cache"
	"decisioning-engine/internal/observability"
	"decisioning-engine/internal/request"
)

// DefaultMinimumPollingInterval floors the polling interval and governs the
// per-attempt retry delay.
const DefaultMinimumPollingInterval = 5 * time.Minute

// Config configures one engine instance. Either Client (for CDN location
// derivation), an explicit ArtifactLocation, or a pre-supplied
// ArtifactPayload is required. Payload mode disables polling.
type Config struct {
	Client         string
	OrganizationID string

	// Environment selects the artifact path segment and the campaign
	// environment campaigns are matched against. Invalid values fall back
	// to production with a logged warning.
	Environment        string
	CDNEnvironment     string
	PropertyToken      string
	ForcePropertyToken bool

	ArtifactLocation string
	ArtifactPayload  json.RawMessage

	// PollingInterval of zero means a single fetch with no recurring
	// polling. Positive values are floored at the minimum polling interval.
	PollingInterval time.Duration

	// MinimumPollingInterval overrides the default floor; negative disables
	// it entirely (useful in tests).
	MinimumPollingInterval time.Duration

	// MaximumWaitReady bounds how long construction blocks on the first
	// artifact load. Zero waits for the full first fetch cycle.
	MaximumWaitReady time.Duration

	TargetLocationHint string

	Logger       zerolog.Logger
	EventEmitter artifact.Emitter
	GeoResolver  request.GeoResolver
	HTTPClient   *http.Client
}

// Options is one GetOffers invocation.
type Options struct {
	Request      *request.DeliveryRequest
	SessionID    string
	LocationHint string
}

type artifactSnapshot struct {
	parsed *Artifact
	raw    json.RawMessage
}

// Engine gates requests on artifact availability and version compatibility
// and owns its own cache, poller and subscriber registry; there are no
// process-wide singletons.
type Engine struct {
	cfg         Config
	environment string
	log         zerolog.Logger
	resolver    request.GeoResolver
	poller      *artifact.Poller
	snap        cache.Snapshot[artifactSnapshot]
}

// New constructs an engine and performs the first artifact load. Startup is
// non-blocking beyond MaximumWaitReady: when the first fetch has not
// completed in time, construction still succeeds and calls fail readiness
// checks until data arrives.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Client == "" && cfg.ArtifactLocation == "" && len(cfg.ArtifactPayload) == 0 {
		return nil, fmt.Errorf("decisioning: config requires a client, artifact location or artifact payload")
	}

	log := cfg.Logger
	e := &Engine{
		cfg:         cfg,
		environment: artifact.ValidEnvironment(log, cfg.Environment),
		log:         log,
		resolver:    cfg.GeoResolver,
	}
	if e.resolver == nil {
		e.resolver = request.PassthroughGeoResolver()
	}

	if len(cfg.ArtifactPayload) > 0 {
		if err := e.swap(cfg.ArtifactPayload); err != nil {
			return nil, fmt.Errorf("decisioning: invalid artifact payload: %w", err)
		}
		return e, nil
	}

	location := cfg.ArtifactLocation
	if location == "" {
		location = artifact.DetermineLocation(log, artifact.LocationConfig{
			Client:         cfg.Client,
			Environment:    cfg.Environment,
			CDNEnvironment: cfg.CDNEnvironment,
			PropertyToken:  cfg.PropertyToken,
		}, cfg.ForcePropertyToken)
	}

	floor := cfg.MinimumPollingInterval
	switch {
	case floor < 0:
		floor = 0
	case floor == 0:
		floor = DefaultMinimumPollingInterval
	}
	interval := cfg.PollingInterval
	if interval > 0 && interval < floor {
		interval = floor
	}

	fetcher := artifact.NewFetcher(cfg.HTTPClient, log, floor, cfg.EventEmitter)
	e.poller = artifact.NewPoller(fetcher, location, interval, log)
	e.poller.Subscribe(func(payload json.RawMessage) {
		if err := e.swap(payload); err != nil {
			e.log.Error().Err(err).Msg("discarding malformed artifact")
		}
	})

	firstDone := e.poller.Start(ctx)
	if cfg.MaximumWaitReady > 0 {
		select {
		case <-firstDone:
		case <-time.After(cfg.MaximumWaitReady):
			e.log.Debug().Dur("waited", cfg.MaximumWaitReady).Msg("proceeding before first artifact load")
		}
	} else {
		<-firstDone
	}
	return e, nil
}

// swap parses and atomically replaces the held artifact for new incoming
// requests. In-flight evaluations keep the reference they captured.
func (e *Engine) swap(payload json.RawMessage) error {
	parsed := &Artifact{}
	if err := json.Unmarshal(payload, parsed); err != nil {
		return err
	}
	e.snap.Store(artifactSnapshot{parsed: parsed, raw: payload})
	return nil
}

// IsReady reports whether an artifact has been loaded.
func (e *Engine) IsReady() bool {
	_, ok := e.snap.Load()
	return ok
}

// GetRawArtifact returns the raw bytes of the currently held artifact, or
// nil when none has loaded.
func (e *Engine) GetRawArtifact() json.RawMessage {
	snap, ok := e.snap.Load()
	if !ok {
		return nil
	}
	return snap.raw
}

// StopPolling cancels the recurring artifact refresh. Idempotent.
func (e *Engine) StopPolling() {
	if e.poller != nil {
		e.poller.Stop()
	}
}

// GetOffers evaluates one delivery request against the artifact reference
// current at call time.
func (e *Engine) GetOffers(ctx context.Context, opts Options) (*Response, error) {
	snap, ok := e.snap.Load()
	if !ok {
		return nil, ErrArtifactNotAvailable
	}
	if major := snap.parsed.MajorVersion(); major != artifact.SupportedMajorVersion {
		return nil, fmt.Errorf("%w: artifact version %q, supported major version %d",
			ErrArtifactVersionUnsupported, snap.parsed.Version, artifact.SupportedMajorVersion)
	}

	start := time.Now()
	defer func() {
		observability.DecisionDuration.Observe(time.Since(start).Seconds())
	}()

	hint := opts.LocationHint
	if hint == "" {
		hint = e.cfg.TargetLocationHint
	}
	req, err := request.ValidDeliveryRequest(ctx, opts.Request, hint, e.resolver)
	if err != nil {
		return nil, fmt.Errorf("decisioning: geo resolution failed: %w", err)
	}

	base := request.BuildContext(req, time.Now())
	ev := &evaluator{client: e.cfg.Client, environment: e.environment, artifact: snap.parsed, log: e.log}

	resp := &Response{
		Status:    http.StatusOK,
		RequestID: req.RequestID,
		ID:        req.ID,
		Client:    e.cfg.Client,
	}

	if req.Execute != nil {
		block := &ExecuteResponse{}
		for _, m := range req.Execute.Mboxes {
			r := ev.evaluateAsk(ask{kind: askMbox, mode: modeExecute, name: m.Name, index: m.Index, parameters: m.Parameters}, req, base, opts.SessionID)
			block.Mboxes = append(block.Mboxes, MboxResponse{Index: m.Index, Name: m.Name, Options: r.options, Trace: r.trace})
			resp.Notifications = append(resp.Notifications, r.notifications...)
		}
		if req.Execute.PageLoad != nil {
			r := ev.evaluateAsk(ask{kind: askPageLoad, mode: modeExecute, name: e.globalMbox(snap.parsed), parameters: req.Execute.PageLoad.Parameters}, req, base, opts.SessionID)
			block.PageLoad = &PageLoadResponse{Options: r.options, Trace: r.trace}
			resp.Notifications = append(resp.Notifications, r.notifications...)
		}
		resp.Execute = block
	}

	if req.Prefetch != nil {
		block := &PrefetchResponse{}
		for _, m := range req.Prefetch.Mboxes {
			r := ev.evaluateAsk(ask{kind: askMbox, mode: modePrefetch, name: m.Name, index: m.Index, parameters: m.Parameters}, req, base, opts.SessionID)
			block.Mboxes = append(block.Mboxes, MboxResponse{Index: m.Index, Name: m.Name, Options: r.options, Trace: r.trace})
		}
		for _, v := range req.Prefetch.Views {
			r := ev.evaluateAsk(ask{kind: askView, mode: modePrefetch, name: v.Name, parameters: v.Parameters}, req, base, opts.SessionID)
			block.Views = append(block.Views, ViewResponse{Name: v.Name, Options: r.options, Trace: r.trace})
		}
		if req.Prefetch.PageLoad != nil {
			r := ev.evaluateAsk(ask{kind: askPageLoad, mode: modePrefetch, name: e.globalMbox(snap.parsed), parameters: req.Prefetch.PageLoad.Parameters}, req, base, opts.SessionID)
			block.PageLoad = &PageLoadResponse{Options: r.options, Trace: r.trace}
		}
		resp.Prefetch = block
	}

	return resp, nil
}

func (e *Engine) globalMbox(a *Artifact) string {
	if a.GlobalMbox != "" {
		return a.GlobalMbox
	}
	return "global-mbox"
}

// HasRemoteDependency reports which requested mboxes/views the artifact
// declares as remote-only. When no artifact is loaded yet, every ask is
// reported remote.
func (e *Engine) HasRemoteDependency(req *request.DeliveryRequest) RemoteDependency {
	snap, ready := e.snap.Load()

	remoteMbox := map[string]bool{}
	remoteView := map[string]bool{}
	if ready {
		for _, name := range snap.parsed.RemoteMboxes {
			remoteMbox[name] = true
		}
		for _, name := range snap.parsed.RemoteViews {
			remoteView[name] = true
		}
	}

	dep := RemoteDependency{}
	if req == nil {
		return dep
	}
	var mboxes []request.MboxRequest
	var views []request.ViewRequest
	if req.Execute != nil {
		mboxes = append(mboxes, req.Execute.Mboxes...)
	}
	if req.Prefetch != nil {
		mboxes = append(mboxes, req.Prefetch.Mboxes...)
		views = append(views, req.Prefetch.Views...)
	}
	for _, m := range mboxes {
		if !ready || remoteMbox[m.Name] {
			dep.RemoteMboxes = append(dep.RemoteMboxes, m.Name)
		}
	}
	for _, v := range views {
		if !ready || remoteView[v.Name] {
			dep.RemoteViews = append(dep.RemoteViews, v.Name)
		}
	}
	dep.Remote = len(dep.RemoteMboxes) > 0 || len(dep.RemoteViews) > 0
	return dep
}
