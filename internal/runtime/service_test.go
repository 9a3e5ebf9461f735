package runtime

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/bindflow/binder"
	"github.com/drblury/bindflow/binder/bindertest"
	_ "github.com/drblury/bindflow/binder/local"
	configpkg "github.com/drblury/bindflow/internal/runtime/config"
	errspkg "github.com/drblury/bindflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/bindflow/internal/runtime/logging"
	"github.com/drblury/bindflow/sender"
)

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func localConfig() *configpkg.Config {
	return &configpkg.Config{
		Binders: map[string]configpkg.BinderConfig{
			"local": {Type: configpkg.TypeLocal},
		},
	}
}

func newInjectedService(t *testing.T, conf *configpkg.Config, b binder.Binder) *Service {
	t.Helper()
	reg := binder.NewRegistry()
	if err := reg.Register("local", b); err != nil {
		t.Fatalf("register binder: %v", err)
	}
	svc, err := TryNewService(conf, newTestLogger(), context.Background(), ServiceDependencies{Registry: reg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Close()
		_ = reg.Close()
	})
	return svc
}

func waitResult(t *testing.T, res *sender.Result) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := res.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("send did not complete")
	}
	return err
}

func TestTryNewServiceRequiresConfig(t *testing.T) {
	if _, err := TryNewService(nil, nil, context.Background(), ServiceDependencies{}); !errors.Is(err, errspkg.ErrConfigRequired) {
		t.Fatalf("expected config required error, got %v", err)
	}
}

func TestTryNewServiceRejectsInvalidConfig(t *testing.T) {
	_, err := TryNewService(&configpkg.Config{}, nil, context.Background(), ServiceDependencies{})
	var cfgErr errspkg.ConfigValidationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigValidationError, got %v", err)
	}
}

func TestNewServicePanicsOnInvalidConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewService(&configpkg.Config{}, nil, context.Background(), ServiceDependencies{})
}

func TestServiceDeliversFromSenderToSubscriber(t *testing.T) {
	ctx := context.Background()
	svc := NewService(localConfig(), newTestLogger(), ctx, ServiceDependencies{})
	defer svc.Close()

	var (
		mu       sync.Mutex
		received []string
	)
	binding, err := svc.Subscribe(ctx, "orders", "billing", func(msg *message.Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(msg.Payload))
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if binding.Group() != "billing" {
		t.Fatalf("unexpected group %q", binding.Group())
	}

	if err := waitResult(t, Send(ctx, svc, "orders", sender.FromSlice([]string{"a", "b", "c"}))); err != nil {
		t.Fatalf("send: %v", err)
	}

	mu.Lock()
	got := append([]string(nil), received...)
	mu.Unlock()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected payloads %v", got)
	}

	if err := binding.Unbind(); err != nil {
		t.Fatalf("unbind: %v", err)
	}
}

func TestServiceSubscribeRequiresHandler(t *testing.T) {
	svc := newInjectedService(t, &configpkg.Config{}, bindertest.New())
	if _, err := svc.Subscribe(context.Background(), "orders", "", nil); !errors.Is(err, errspkg.ErrHandlerRequired) {
		t.Fatalf("expected handler required error, got %v", err)
	}
}

func TestServicePassesConfiguredProperties(t *testing.T) {
	b := bindertest.New()
	conf := &configpkg.Config{
		DynamicDestinationProperties: map[string]string{binder.PropertyPartitionKey: "customer_id"},
		Destinations: map[string]map[string]string{
			"audit": {binder.PropertyTopic: "audit-log"},
		},
	}
	svc := newInjectedService(t, conf, b)

	ctx := context.Background()
	for _, name := range []string{"orders", "audit#local"} {
		if _, err := svc.Resolve(ctx, name); err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
	}
	if _, err := svc.Subscribe(ctx, "audit", "auditors", func(*message.Message) error { return nil }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	orders := b.CallsFor(binder.RoleProducer, "orders")
	if len(orders) != 1 || orders[0].Props.Get(binder.PropertyPartitionKey, "") != "customer_id" {
		t.Fatalf("unexpected orders bind calls %+v", orders)
	}
	audit := b.CallsFor(binder.RoleProducer, "audit")
	if len(audit) != 1 || audit[0].Props.Get(binder.PropertyTopic, "") != "audit-log" {
		t.Fatalf("unexpected audit bind calls %+v", audit)
	}
	consumers := b.CallsFor(binder.RoleConsumer, "audit")
	if len(consumers) != 1 || consumers[0].Group != "auditors" || consumers[0].Props.Get(binder.PropertyTopic, "") != "audit-log" {
		t.Fatalf("unexpected consumer bind calls %+v", consumers)
	}
}

func TestServiceSenderUsesConfiguredRetries(t *testing.T) {
	conf := &configpkg.Config{
		SenderMaxRetries:      1,
		SenderInitialInterval: time.Millisecond,
		SenderMaxInterval:     time.Millisecond,
	}
	svc := newInjectedService(t, conf, bindertest.New())

	boom := errors.New("boom")
	subscriptions := 0
	var seq iter.Seq2[string, error] = func(yield func(string, error) bool) {
		subscriptions++
		yield("", boom)
	}

	if err := waitResult(t, Send(context.Background(), svc, "orders", seq)); !errors.Is(err, boom) {
		t.Fatalf("expected sequence error, got %v", err)
	}
	if subscriptions != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", subscriptions)
	}
}

func TestServiceRegistersMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	reg := binder.NewRegistry()
	if err := reg.Register("local", bindertest.New()); err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	svc, err := TryNewService(&configpkg.Config{}, nil, context.Background(), ServiceDependencies{
		Registry:          reg,
		MetricsRegisterer: promReg,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	if _, err := svc.Resolve(context.Background(), "orders"); err != nil {
		t.Fatal(err)
	}

	families, err := promReg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "bindflow_resolver_resolutions_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("resolver metrics not registered")
	}
}

func TestServiceCloseLeavesInjectedRegistryOpen(t *testing.T) {
	b := bindertest.New()
	reg := binder.NewRegistry()
	if err := reg.Register("local", b); err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	svc, err := TryNewService(&configpkg.Config{}, nil, context.Background(), ServiceDependencies{Registry: reg})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(context.Background(), "orders"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if b.CloseCalls() != 0 {
		t.Fatalf("injected registry was closed")
	}
	if bound := svc.Resolver().Bound(); len(bound) != 0 {
		t.Fatalf("expected no bound destinations, got %v", bound)
	}
}

func TestSendWithoutService(t *testing.T) {
	res := Send(context.Background(), nil, "orders", sender.FromSlice([]string{"a"}))
	if err := waitResult(t, res); !errors.Is(err, errspkg.ErrServiceRequired) {
		t.Fatalf("expected service required error, got %v", err)
	}
}
