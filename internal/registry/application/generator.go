package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"utility-registry/internal/observability/metrics"
	registry "utility-registry/internal/registry/domain"
)

const summaryRule = "=================================================="

// Generator produces registries for every subscriber of a period.
type Generator struct {
	store    SubscriberStore
	settings SettingsProvider
	renderer DocumentRenderer
	logger   *slog.Logger
	clock    Clock
	newRunID func() string
	history  *RunHistory
	dirs     dirLocks
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(g *Generator) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithRunIDFactory overrides run id generation.
func WithRunIDFactory(fn func() string) Option {
	return func(g *Generator) {
		if fn != nil {
			g.newRunID = fn
		}
	}
}

// WithHistory records every finished run in h.
func WithHistory(h *RunHistory) Option {
	return func(g *Generator) {
		g.history = h
	}
}

// NewGenerator constructs a Generator.
func NewGenerator(store SubscriberStore, settings SettingsProvider, renderer DocumentRenderer, opts ...Option) (*Generator, error) {
	if store == nil {
		return nil, errors.New("registry generator: nil store")
	}
	if settings == nil {
		return nil, errors.New("registry generator: nil settings provider")
	}
	if renderer == nil {
		return nil, errors.New("registry generator: nil renderer")
	}
	g := &Generator{
		store:    store,
		settings: settings,
		renderer: renderer,
		logger:   slog.Default(),
		clock:    systemClock{},
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// RunRequest describes one generation run. Period must already be validated.
type RunRequest struct {
	Period     registry.Period
	OutputRoot string
	Progress   ProgressSink
}

// Run generates one registry per subscriber. Per-subscriber failures are
// recorded in the summary; setup failures are returned as *SetupError with a
// nil summary. When ctx ends mid-run the remaining subscribers are recorded as
// canceled and the summary is returned together with ErrRunCanceled.
//
// Runs writing into the same output directory are serialized; a run waits for
// the previous one to finish before it touches any file.
func (g *Generator) Run(ctx context.Context, req RunRequest) (*RunSummary, error) {
	started := g.clock.Now()
	runID := g.newRunID()
	period := req.Period
	sink := req.Progress
	if sink == nil {
		sink = discardSink
	}
	log := g.logger.With("run_id", runID, "period", period.String())

	result := metrics.ResultSuccess
	total := 0
	defer func() {
		metrics.ObserveRun(result, total, g.clock.Now().Sub(started))
	}()

	setupFailed := func(op string, err error) (*RunSummary, error) {
		result = metrics.ResultError
		log.Error("registry_run_setup_failed", "op", op, "err", err)
		return nil, &SetupError{Op: op, Err: err}
	}

	sink.Emit("Начинаем генерацию реестров по всем абонентам...")
	subscribers, err := g.store.ListSubscribers(ctx)
	if err != nil {
		sink.Emit("Ошибка загрузки абонентов: " + err.Error())
		return setupFailed("list subscribers", err)
	}
	if len(subscribers) == 0 {
		sink.Emit("Нет абонентов в базе данных!")
		return setupFailed("list subscribers", ErrNoSubscribers)
	}
	total = len(subscribers)
	sink.Emit(fmt.Sprintf("Найдено абонентов: %d", total))
	sink.Emit(fmt.Sprintf("Генерируем реестры за %s %d года", period.MonthName(), period.Year))

	settings, err := g.settings.Load(ctx)
	if err != nil {
		sink.Emit("Ошибка при загрузке настроек: " + err.Error())
		return setupFailed("load settings", err)
	}
	outDir := filepath.Join(settings.OutputRoot(req.OutputRoot), registry.FolderName(period))
	unlock, err := g.dirs.acquire(ctx, outDir)
	if err != nil {
		sink.Emit("Ожидание другой генерации прервано: " + err.Error())
		return setupFailed("wait for concurrent run", err)
	}
	defer unlock()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		sink.Emit("Не удалось создать папку сохранения: " + err.Error())
		return setupFailed("create output dir", err)
	}

	log.Info("registry_run_start", "subscribers", total, "output_dir", outDir)
	state := newRunState(runID, period, total, outDir, started)
	previous := period.Previous()
	canceled := false
	var cancelErr error
	written := make(map[string]registry.Subscriber, total)

	for i, sub := range subscribers {
		if err := ctx.Err(); err != nil {
			canceled, cancelErr = true, err
			for _, rest := range subscribers[i:] {
				state.fail(rest, ReasonCanceled, err.Error())
				metrics.IncDocument(metrics.OutcomeCanceled)
				sink.Emit(fmt.Sprintf("   Отменено: %s", rest.Name))
			}
			log.Warn("registry_run_canceled", "remaining", len(subscribers)-i, "err", err)
			break
		}

		sink.Emit(fmt.Sprintf("Обрабатываем абонента %d/%d: %s", i+1, total, sub.Name))
		fileName, err := g.generateOne(ctx, sub, period, previous, settings.Signatures, outDir, written)
		switch {
		case err == nil:
			written[fileKey(fileName)] = sub
			state.succeed(filepath.Join(outDir, fileName))
			metrics.IncDocument(metrics.OutcomeSuccess)
			sink.Emit("   Реестр создан: " + fileName)
		case errors.Is(err, ErrNoDataForPeriod):
			state.fail(sub, ReasonNoData, err.Error())
			metrics.IncDocument(metrics.OutcomeNoData)
			sink.Emit(fmt.Sprintf("   Нет данных за %s %d года", period.MonthName(), period.Year))
			log.Info("registry_document_skipped", "subscriber_id", sub.ID, "subscriber", sub.Name)
		default:
			state.fail(sub, ReasonError, err.Error())
			metrics.IncDocument(metrics.OutcomeError)
			sink.Emit("   Ошибка: " + err.Error())
			log.Warn("registry_document_failed", "subscriber_id", sub.ID, "subscriber", sub.Name, "err", err)
		}
	}

	summary := state.freeze(g.clock.Now(), canceled)
	emitSummary(sink, summary)
	g.history.Add(summary)
	log.Info("registry_run_finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"canceled", summary.Canceled,
		"duration", summary.Duration().String(),
	)

	if canceled {
		result = metrics.ResultCanceled
		return &summary, fmt.Errorf("%w: %w", ErrRunCanceled, cancelErr)
	}
	return &summary, nil
}

// generateOne composes and renders the registry of a single subscriber and
// returns the written file name. A name already in written is refused before
// rendering. Panics raised by collaborators are returned as errors so one
// subscriber cannot abort the batch.
func (g *Generator) generateOne(ctx context.Context, sub registry.Subscriber, period, previous registry.Period, signatures []registry.SignatureBlock, outDir string, written map[string]registry.Subscriber) (fileName string, err error) {
	defer func() {
		if r := recover(); r != nil {
			fileName = ""
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	current, err := g.store.GetReading(ctx, sub.ID, period)
	if err != nil {
		return "", fmt.Errorf("load reading %s: %w", period, err)
	}
	if current == nil {
		return "", fmt.Errorf("%w: %s", ErrNoDataForPeriod, period)
	}
	prior, err := g.store.GetReading(ctx, sub.ID, previous)
	if err != nil {
		return "", fmt.Errorf("load reading %s: %w", previous, err)
	}

	report, err := registry.Compose(sub, period, current, prior, signatures)
	if err != nil {
		return "", err
	}
	fileName, err = registry.FileName(sub.Name, period, g.renderer.Format())
	if err != nil {
		return "", err
	}
	if owner, taken := written[fileKey(fileName)]; taken {
		return "", fmt.Errorf("%w: %s already written for subscriber %d (%s)", ErrFileNameTaken, fileName, owner.ID, owner.Name)
	}

	start := time.Now()
	if err := g.renderer.Render(ctx, report, filepath.Join(outDir, fileName)); err != nil {
		metrics.ObserveRender(g.renderer.Format(), metrics.ResultError, time.Since(start))
		return "", err
	}
	metrics.ObserveRender(g.renderer.Format(), metrics.ResultSuccess, time.Since(start))
	return fileName, nil
}

// fileKey folds case so names differing only in case also collide on
// case-insensitive filesystems.
func fileKey(name string) string {
	return strings.ToLower(name)
}

func emitSummary(sink ProgressSink, s RunSummary) {
	sink.Emit("")
	sink.Emit(summaryRule)
	sink.Emit("ИТОГИ ГЕНЕРАЦИИ:")
	sink.Emit(fmt.Sprintf("Успешно создано: %d", s.Succeeded))
	sink.Emit(fmt.Sprintf("Ошибок: %d", s.Failed))
	if noData := len(s.FailuresByReason(ReasonNoData)); noData > 0 {
		sink.Emit(fmt.Sprintf("  из них без данных за период: %d", noData))
	}
	sink.Emit("Папка сохранения: " + s.OutputDir)
	switch {
	case s.Canceled:
		sink.Emit("Генерация прервана")
	case s.Succeeded > 0:
		sink.Emit("Генерация завершена успешно!")
	default:
		sink.Emit("Не удалось создать ни одного реестра")
	}
}

// FormatFailures renders failures as "name: message" lines.
func FormatFailures(failures []Failure) string {
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, f.SubscriberName+": "+f.Message)
	}
	return strings.Join(lines, "\n")
}
