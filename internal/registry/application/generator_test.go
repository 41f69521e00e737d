package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	registry "utility-registry/internal/registry/domain"
)

type readingKey struct {
	id     int64
	period registry.Period
}

type stubStore struct {
	mu          sync.Mutex
	subscribers []registry.Subscriber
	readings    map[readingKey]*registry.Reading
	readingErr  map[int64]error
	listErr     error
	lookups     []readingKey
}

func newStubStore(subs ...registry.Subscriber) *stubStore {
	return &stubStore{subscribers: subs, readings: map[readingKey]*registry.Reading{}, readingErr: map[int64]error{}}
}

func (s *stubStore) put(id int64, period registry.Period, r registry.Reading) {
	r.SubscriberID = id
	r.Period = period
	s.readings[readingKey{id, period}] = &r
}

func (s *stubStore) ListSubscribers(_ context.Context) ([]registry.Subscriber, error) {
	return s.subscribers, s.listErr
}

func (s *stubStore) GetReading(_ context.Context, id int64, period registry.Period) (*registry.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, readingKey{id, period})
	if err := s.readingErr[id]; err != nil {
		return nil, err
	}
	return s.readings[readingKey{id, period}], nil
}

type staticSettings struct {
	settings registry.Settings
	err      error
}

func (s staticSettings) Load(_ context.Context) (registry.Settings, error) {
	return s.settings, s.err
}

type textRenderer struct {
	mu       sync.Mutex
	failFor  map[string]error
	panicFor string
	reports  []registry.RegistryReport
	after    func(report registry.RegistryReport)
}

func (r *textRenderer) Format() string { return "txt" }

func (r *textRenderer) Render(_ context.Context, report registry.RegistryReport, path string) error {
	r.mu.Lock()
	r.reports = append(r.reports, report)
	r.mu.Unlock()
	if r.after != nil {
		defer r.after(report)
	}
	if report.SubscriberName == r.panicFor {
		panic("renderer exploded")
	}
	if err := r.failFor[report.SubscriberName]; err != nil {
		return err
	}
	var b strings.Builder
	for _, p := range report.Paragraphs() {
		b.WriteString(p.Text + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var march2024 = registry.Period{Month: 3, Year: 2024}

func newTestGenerator(t *testing.T, store SubscriberStore, settings SettingsProvider, renderer DocumentRenderer, opts ...Option) *Generator {
	t.Helper()
	opts = append([]Option{
		WithClock(fixedClock{now: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}),
		WithRunIDFactory(func() string { return "run-test" }),
	}, opts...)
	g, err := NewGenerator(store, settings, renderer, opts...)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestGeneratorFailureDoesNotStopBatch(t *testing.T) {
	store := newStubStore(
		registry.Subscriber{ID: 1, Name: "A"},
		registry.Subscriber{ID: 2, Name: "B"},
	)
	store.put(1, march2024, registry.Reading{Water: registry.Float(10)})
	store.put(2, march2024, registry.Reading{Water: registry.Float(20)})
	renderer := &textRenderer{failFor: map[string]error{"A": errors.New("disk full")}}
	root := t.TempDir()

	g := newTestGenerator(t, store, staticSettings{}, renderer)
	summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: root})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("expected 1/1, got %d/%d", summary.Succeeded, summary.Failed)
	}
	if summary.Failures[0].SubscriberName != "A" || summary.Failures[0].Reason != ReasonError || summary.Failures[0].Message != "disk full" {
		t.Fatalf("unexpected failure %+v", summary.Failures[0])
	}
	bPath := filepath.Join(root, "март", "B_март_2024_реестр.txt")
	if _, err := os.Stat(bPath); err != nil {
		t.Fatalf("expected B's registry on disk: %v", err)
	}
	if len(summary.Files) != 1 || summary.Files[0] != bPath {
		t.Fatalf("unexpected files %v", summary.Files)
	}
	if summary.OutputDir != filepath.Join(root, "март") {
		t.Fatalf("unexpected output dir %s", summary.OutputDir)
	}
}

func TestGeneratorMissingReadingVersusNullReading(t *testing.T) {
	store := newStubStore(
		registry.Subscriber{ID: 1, Name: "Без записи"},
		registry.Subscriber{ID: 2, Name: "Пустая запись"},
	)
	store.put(2, march2024, registry.Reading{})
	renderer := &textRenderer{}

	g := newTestGenerator(t, store, staticSettings{}, renderer)
	summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("expected 1/1, got %d/%d", summary.Succeeded, summary.Failed)
	}
	noData := summary.FailuresByReason(ReasonNoData)
	if len(noData) != 1 || noData[0].SubscriberID != 1 {
		t.Fatalf("expected subscriber 1 without data, got %+v", summary.Failures)
	}
	if len(renderer.reports) != 1 || len(renderer.reports[0].Sections) != 0 {
		t.Fatalf("expected one report without sections, got %+v", renderer.reports)
	}
}

func TestGeneratorCountsEverySubscriber(t *testing.T) {
	var subs []registry.Subscriber
	for i := int64(1); i <= 7; i++ {
		subs = append(subs, registry.Subscriber{ID: i, Name: "S" + string(rune('0'+i))})
	}
	store := newStubStore(subs...)
	store.put(1, march2024, registry.Reading{Gas: registry.Float(5)})
	store.put(3, march2024, registry.Reading{Gas: registry.Float(5)})
	store.put(4, march2024, registry.Reading{Gas: registry.Float(5)})
	store.readingErr[5] = errors.New("connection reset")
	store.put(6, march2024, registry.Reading{})
	renderer := &textRenderer{failFor: map[string]error{"S4": errors.New("boom")}}

	g := newTestGenerator(t, store, staticSettings{}, renderer)
	summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Total != 7 || summary.Succeeded+summary.Failed != summary.Total {
		t.Fatalf("expected %d = %d + %d", summary.Total, summary.Succeeded, summary.Failed)
	}
	if summary.Succeeded != 3 {
		t.Fatalf("expected 3 successes, got %d", summary.Succeeded)
	}
	if len(summary.FailuresByReason(ReasonNoData)) != 2 || len(summary.FailuresByReason(ReasonError)) != 2 {
		t.Fatalf("unexpected failures %+v", summary.Failures)
	}
}

func TestGeneratorUsesPreviousPeriodAcrossYear(t *testing.T) {
	jan := registry.Period{Month: 1, Year: 2024}
	dec := registry.Period{Month: 12, Year: 2023}
	store := newStubStore(registry.Subscriber{ID: 9, Name: "Ф", TransformationRatio: 5})
	store.put(9, jan, registry.Reading{Electricity: registry.Float(120)})
	store.put(9, dec, registry.Reading{Electricity: registry.Float(100)})
	renderer := &textRenderer{}

	g := newTestGenerator(t, store, staticSettings{}, renderer)
	if _, err := g.Run(context.Background(), RunRequest{Period: jan, OutputRoot: t.TempDir()}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(store.lookups) != 2 || store.lookups[1].period != dec {
		t.Fatalf("expected lookup of %v, got %+v", dec, store.lookups)
	}
	s, ok := renderer.reports[0].Section(registry.UtilityElectricity)
	if !ok || s.Consumption != 20 || s.AdjustedConsumption != 100 {
		t.Fatalf("unexpected electricity section %+v", s)
	}
}

func TestGeneratorSetupErrors(t *testing.T) {
	t.Run("no subscribers", func(t *testing.T) {
		g := newTestGenerator(t, newStubStore(), staticSettings{}, &textRenderer{})
		summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: t.TempDir()})
		if summary != nil || !errors.Is(err, ErrNoSubscribers) || !IsSetupError(err) {
			t.Fatalf("expected setup error, got %v %v", summary, err)
		}
	})
	t.Run("list failure", func(t *testing.T) {
		store := newStubStore()
		store.listErr = errors.New("db down")
		g := newTestGenerator(t, store, staticSettings{}, &textRenderer{})
		if _, err := g.Run(context.Background(), RunRequest{Period: march2024}); !IsSetupError(err) {
			t.Fatalf("expected setup error, got %v", err)
		}
	})
	t.Run("settings", func(t *testing.T) {
		store := newStubStore(registry.Subscriber{ID: 1, Name: "A"})
		g := newTestGenerator(t, store, staticSettings{err: errors.New("bad yaml")}, &textRenderer{})
		summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: t.TempDir()})
		var setupErr *SetupError
		if summary != nil || !errors.As(err, &setupErr) || setupErr.Op != "load settings" {
			t.Fatalf("expected settings setup error, got %v", err)
		}
	})
	t.Run("output dir", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
			t.Fatalf("write blocker: %v", err)
		}
		store := newStubStore(registry.Subscriber{ID: 1, Name: "A"})
		g := newTestGenerator(t, store, staticSettings{}, &textRenderer{})
		summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: blocker})
		var setupErr *SetupError
		if summary != nil || !errors.As(err, &setupErr) || setupErr.Op != "create output dir" {
			t.Fatalf("expected output dir setup error, got %v", err)
		}
	})
}

func TestGeneratorOutputRootFromSettings(t *testing.T) {
	root := t.TempDir()
	store := newStubStore(registry.Subscriber{ID: 1, Name: "A"})
	store.put(1, march2024, registry.Reading{Water: registry.Float(1)})
	settings := staticSettings{settings: registry.Settings{
		SavePath:   root,
		Signatures: []registry.SignatureBlock{{Position: "Инженер", Name: "Сидоров"}},
	}}
	renderer := &textRenderer{}

	g := newTestGenerator(t, store, settings, renderer)
	summary, err := g.Run(context.Background(), RunRequest{Period: march2024})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.OutputDir != filepath.Join(root, "март") {
		t.Fatalf("unexpected output dir %s", summary.OutputDir)
	}
	if len(renderer.reports[0].Signatures) != 1 {
		t.Fatalf("expected signatures to pass through, got %+v", renderer.reports[0].Signatures)
	}
}

func TestGeneratorCancellationMarksRemaining(t *testing.T) {
	store := newStubStore(
		registry.Subscriber{ID: 1, Name: "A"},
		registry.Subscriber{ID: 2, Name: "B"},
		registry.Subscriber{ID: 3, Name: "C"},
	)
	for id := int64(1); id <= 3; id++ {
		store.put(id, march2024, registry.Reading{Gas: registry.Float(1)})
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	renderer := &textRenderer{after: func(registry.RegistryReport) { cancel() }}
	progress := &Collector{}

	g := newTestGenerator(t, store, staticSettings{}, renderer)
	summary, err := g.Run(ctx, RunRequest{Period: march2024, OutputRoot: t.TempDir(), Progress: progress})
	if !errors.Is(err, ErrRunCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled run, got %v", err)
	}
	if summary == nil || !summary.Canceled {
		t.Fatalf("expected canceled summary, got %+v", summary)
	}
	if summary.Succeeded != 1 || len(summary.FailuresByReason(ReasonCanceled)) != 2 {
		t.Fatalf("expected 1 success and 2 canceled, got %+v", summary)
	}
	if summary.Succeeded+summary.Failed != summary.Total {
		t.Fatalf("counts do not add up: %+v", summary)
	}
	lines := strings.Join(progress.Lines(), "\n")
	if !strings.Contains(lines, "Отменено: B") || !strings.Contains(lines, "Отменено: C") {
		t.Fatalf("expected cancellation lines, got\n%s", lines)
	}
}

func TestGeneratorRecoversRendererPanic(t *testing.T) {
	store := newStubStore(registry.Subscriber{ID: 1, Name: "A"}, registry.Subscriber{ID: 2, Name: "B"})
	store.put(1, march2024, registry.Reading{Gas: registry.Float(1)})
	store.put(2, march2024, registry.Reading{Gas: registry.Float(1)})
	renderer := &textRenderer{panicFor: "A"}

	g := newTestGenerator(t, store, staticSettings{}, renderer)
	summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("expected 1/1, got %d/%d", summary.Succeeded, summary.Failed)
	}
	if !strings.Contains(summary.Failures[0].Message, "renderer exploded") {
		t.Fatalf("unexpected failure message %q", summary.Failures[0].Message)
	}
}

func TestGeneratorProgressLines(t *testing.T) {
	store := newStubStore(registry.Subscriber{ID: 1, Name: "A"}, registry.Subscriber{ID: 2, Name: "B"})
	store.put(2, march2024, registry.Reading{Water: registry.Float(3)})
	progress := &Collector{}
	history := NewRunHistory(0)

	g := newTestGenerator(t, store, staticSettings{}, &textRenderer{}, WithHistory(history))
	summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: t.TempDir(), Progress: progress})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	expected := []string{
		"Найдено абонентов: 2",
		"Генерируем реестры за март 2024 года",
		"Обрабатываем абонента 1/2: A",
		"   Нет данных за март 2024 года",
		"Обрабатываем абонента 2/2: B",
		"   Реестр создан: B_март_2024_реестр.txt",
		"ИТОГИ ГЕНЕРАЦИИ:",
		"Успешно создано: 1",
		"Ошибок: 1",
		"Папка сохранения: " + summary.OutputDir,
		"Генерация завершена успешно!",
	}
	lines := progress.Lines()
	pos := 0
	for _, want := range expected {
		found := false
		for pos < len(lines) {
			pos++
			if lines[pos-1] == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected line %q in order, got\n%s", want, strings.Join(lines, "\n"))
		}
	}

	runs := history.List()
	if len(runs) != 1 || runs[0].RunID != "run-test" {
		t.Fatalf("expected run in history, got %+v", runs)
	}
}

func TestNewGeneratorRejectsNilDependencies(t *testing.T) {
	if _, err := NewGenerator(nil, staticSettings{}, &textRenderer{}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewGenerator(newStubStore(), nil, &textRenderer{}); err == nil {
		t.Fatal("expected error for nil settings")
	}
	if _, err := NewGenerator(newStubStore(), staticSettings{}, nil); err == nil {
		t.Fatal("expected error for nil renderer")
	}
}

func TestGeneratorRefusesCollidingFileNames(t *testing.T) {
	store := newStubStore(
		registry.Subscriber{ID: 1, Name: "ООО Ромашка/2"},
		registry.Subscriber{ID: 2, Name: "ООО Ромашка2"},
		registry.Subscriber{ID: 3, Name: "ооо ромашка2"},
	)
	for id := int64(1); id <= 3; id++ {
		store.put(id, march2024, registry.Reading{Water: registry.Float(float64(id))})
	}
	renderer := &textRenderer{}
	root := t.TempDir()

	g := newTestGenerator(t, store, staticSettings{}, renderer)
	summary, err := g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: root})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Succeeded != 1 || summary.Failed != 2 {
		t.Fatalf("expected 1/2, got %d/%d", summary.Succeeded, summary.Failed)
	}
	for i, f := range summary.Failures {
		if f.SubscriberID != int64(i+2) || f.Reason != ReasonError || !strings.Contains(f.Message, "already written for subscriber 1") {
			t.Fatalf("unexpected failure %+v", f)
		}
	}
	if len(renderer.reports) != 1 {
		t.Fatalf("expected colliding subscribers not to be rendered, got %d renders", len(renderer.reports))
	}

	path := filepath.Join(root, "март", "ООО Ромашка2_март_2024_реестр.txt")
	if len(summary.Files) != 1 || summary.Files[0] != path {
		t.Fatalf("unexpected files %v", summary.Files)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "ООО Ромашка/2") {
		t.Fatalf("expected first subscriber's registry to survive, got\n%s", data)
	}
}

type gatedRenderer struct {
	textRenderer
	entered chan struct{}
	release chan struct{}

	mu       sync.Mutex
	inflight int
	peak     int
}

func (r *gatedRenderer) Render(ctx context.Context, report registry.RegistryReport, path string) error {
	r.mu.Lock()
	r.inflight++
	if r.inflight > r.peak {
		r.peak = r.inflight
	}
	first := r.entered != nil
	entered := r.entered
	r.entered = nil
	r.mu.Unlock()

	if first {
		close(entered)
		<-r.release
	}
	err := r.textRenderer.Render(ctx, report, path)

	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
	return err
}

func TestGeneratorSerializesRunsPerOutputDir(t *testing.T) {
	store := newStubStore(registry.Subscriber{ID: 1, Name: "A"})
	store.put(1, march2024, registry.Reading{Gas: registry.Float(1)})
	renderer := &gatedRenderer{entered: make(chan struct{}), release: make(chan struct{})}
	root := t.TempDir()
	g := newTestGenerator(t, store, staticSettings{}, renderer)

	entered := renderer.entered
	var wg sync.WaitGroup
	results := make([]*RunSummary, 2)
	errs := make([]error, 2)
	run := func(i int) {
		defer wg.Done()
		results[i], errs[i] = g.Run(context.Background(), RunRequest{Period: march2024, OutputRoot: root})
	}

	wg.Add(1)
	go run(0)
	<-entered

	wg.Add(1)
	go run(1)
	deadline := time.Now().Add(5 * time.Second)
	for waiting(g, filepath.Join(root, "март")) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("second run never queued on the output directory")
		}
		time.Sleep(time.Millisecond)
	}
	close(renderer.release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil || results[i] == nil || results[i].Succeeded != 1 {
			t.Fatalf("run %d: %+v %v", i, results[i], errs[i])
		}
	}
	if renderer.peak != 1 {
		t.Fatalf("expected renders not to overlap, peak %d", renderer.peak)
	}
	if g.dirs.active() != 0 {
		t.Fatalf("expected no directory slots left, got %d", g.dirs.active())
	}
}

func waiting(g *Generator, dir string) int {
	g.dirs.mu.Lock()
	defer g.dirs.mu.Unlock()
	if slot := g.dirs.slots[dir]; slot != nil {
		return slot.refs
	}
	return 0
}

func TestDirLocksCanceledWait(t *testing.T) {
	var locks dirLocks
	dir := t.TempDir()
	unlock, err := locks.acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.acquire(ctx, dir); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	unlock()
	unlock()
	if locks.active() != 0 {
		t.Fatalf("expected slots released, got %d", locks.active())
	}

	unlock, err = locks.acquire(ctx, dir)
	if err != nil {
		t.Fatalf("free directory should be acquired even with a done context: %v", err)
	}
	unlock()
}
