package command

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
)

type published struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

// fakeTransport records publishes and fails when err is set.
type fakeTransport struct {
	mu   sync.Mutex
	sent []published
	err  error
	// block, if non-nil, holds every publish until closed.
	block chan struct{}
}

func (f *fakeTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{topic, string(payload), qos, retained})
	return f.err
}

func (f *fakeTransport) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}

type fakeObserver struct {
	mu      sync.Mutex
	classes []string
	errs    []error
}

func (o *fakeObserver) CommandPublished(class string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.classes = append(o.classes, class)
	o.errs = append(o.errs, err)
}

var kitchen = Target{UserID: "7", Location: "kitchen", DeviceID: "3"}

func waitAck(t *testing.T, ack *Ack) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := ack.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("ack never resolved")
	}
	return err
}

func TestPublisher_Variants(t *testing.T) {
	tests := []struct {
		name        string
		publish     func(p *Publisher) *Ack
		wantTopic   string
		wantPayload string
	}{
		{
			name:        "fan",
			publish:     func(p *Publisher) *Ack { return p.PublishFan(kitchen, FanSettings{FanMode: "auto"}) },
			wantTopic:   "7/fan/kitchen/3/settings",
			wantPayload: `{"fanMode":"auto"}`,
		},
		{
			name: "thresholds",
			publish: func(p *Publisher) *Ack {
				return p.PublishThresholds(kitchen, TemperatureThresholds{MaxTemperature: 25, NormalTemperature: 21, MinTemperature: 18})
			},
			wantTopic:   "7/temperatur/kitchen/3/settings",
			wantPayload: `{"maxTemperature":25,"normalTemperature":21,"minTemperature":18}`,
		},
		{
			name:        "lock",
			publish:     func(p *Publisher) *Ack { return p.PublishLock(kitchen, LockState{IsLocked: true}) },
			wantTopic:   "7/rfid/kitchen/3/settings",
			wantPayload: `{"isLocked":true}`,
		},
		{
			name:        "assignment",
			publish:     func(p *Publisher) *Ack { return p.PublishAssignment("12", Assignment{UserID: "7", Location: "frontdoor"}) },
			wantTopic:   "rfid/assign/12",
			wantPayload: `{"userId":"7","location":"frontdoor"}`,
		},
		{
			name:        "scan response",
			publish:     func(p *Publisher) *Ack { return p.PublishScanResponse(Target{"7", "frontdoor", "1"}, "ABC123", true) },
			wantTopic:   "7/rfid/frontdoor/1/scan/ABC123",
			wantPayload: `{"authorised":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			p := NewPublisher(tr, Config{})

			ack := tt.publish(p)
			if err := waitAck(t, ack); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
			if ack.ID == "" || ack.Topic != tt.wantTopic {
				t.Errorf("ack = %+v", ack)
			}

			msgs := tr.messages()
			if len(msgs) != 1 {
				t.Fatalf("published %d messages, want 1", len(msgs))
			}
			m := msgs[0]
			if m.topic != tt.wantTopic || m.payload != tt.wantPayload {
				t.Errorf("published %s %s, want %s %s", m.topic, m.payload, tt.wantTopic, tt.wantPayload)
			}
			if m.qos != 1 || m.retained {
				t.Errorf("qos=%d retained=%v, want 1/false", m.qos, m.retained)
			}
		})
	}
}

func TestPublisher_InvalidTarget(t *testing.T) {
	tr := &fakeTransport{}
	p := NewPublisher(tr, Config{})

	acks := []*Ack{
		p.PublishFan(Target{UserID: "", Location: "kitchen", DeviceID: "3"}, FanSettings{FanMode: "on"}),
		p.PublishLock(Target{UserID: "7", Location: "front/door", DeviceID: "3"}, LockState{}),
		p.PublishAssignment("+", Assignment{}),
		p.PublishScanResponse(kitchen, "AB#", false),
	}
	for i, ack := range acks {
		select {
		case <-ack.Done():
		default:
			t.Fatalf("ack %d not resolved immediately", i)
		}
		if !errors.Is(ack.Err(), ErrInvalidTarget) {
			t.Errorf("ack %d error = %v, want ErrInvalidTarget", i, ack.Err())
		}
	}
	if n := len(tr.messages()); n != 0 {
		t.Errorf("published %d messages for invalid targets", n)
	}
}

func TestPublisher_LastIntended(t *testing.T) {
	tr := &fakeTransport{}
	obs := &fakeObserver{}
	p := NewPublisher(tr, Config{Observer: obs})

	if _, ok := p.LastIntended(device.KindFan, "3"); ok {
		t.Fatal("LastIntended() before any publish reported state")
	}

	if err := waitAck(t, p.PublishFan(kitchen, FanSettings{FanMode: "on"})); err != nil {
		t.Fatalf("publish error = %v", err)
	}
	if err := waitAck(t, p.PublishFan(kitchen, FanSettings{FanMode: "off"})); err != nil {
		t.Fatalf("publish error = %v", err)
	}

	st, ok := p.LastIntended(device.KindFan, "3")
	if !ok {
		t.Fatal("LastIntended() missing after publish")
	}
	var got FanSettings
	if err := json.Unmarshal(st.Settings, &got); err != nil {
		t.Fatalf("decoding intended settings: %v", err)
	}
	if got.FanMode != "off" || st.Topic != "7/fan/kitchen/3/settings" || st.PublishedAt.IsZero() {
		t.Errorf("LastIntended() = %+v", st)
	}

	// Same device id under another class is tracked separately.
	if _, ok := p.LastIntended(device.KindTemperature, "3"); ok {
		t.Error("fan settings leaked into temperature state")
	}

	// A failed publish leaves the previous intention in place.
	tr.err = errors.New("broker down")
	if err := waitAck(t, p.PublishFan(kitchen, FanSettings{FanMode: "auto"})); err == nil {
		t.Fatal("expected publish failure")
	}
	st, _ = p.LastIntended(device.KindFan, "3")
	if err := json.Unmarshal(st.Settings, &got); err != nil || got.FanMode != "off" {
		t.Errorf("intended state after failure = %s", st.Settings)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.classes) != 3 || obs.classes[0] != "fan" || obs.errs[2] == nil {
		t.Errorf("observer saw classes=%v errs=%v", obs.classes, obs.errs)
	}
}

func TestAck_WaitHonoursContext(t *testing.T) {
	tr := &fakeTransport{block: make(chan struct{})}
	p := NewPublisher(tr, Config{})

	ack := p.PublishLock(kitchen, LockState{IsLocked: true})
	if ack.Err() != nil {
		t.Fatalf("pending ack Err() = %v", ack.Err())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ack.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() on cancelled ctx = %v", err)
	}

	close(tr.block)
	if err := waitAck(t, ack); err != nil {
		t.Errorf("Wait() after release = %v", err)
	}
}

func TestClassForKind(t *testing.T) {
	tests := map[device.Kind]string{
		device.KindFan:         "fan",
		device.KindTemperature: "temperatur",
		device.KindRFID:        "rfid",
		device.KindCamera:      "camera",
	}
	for kind, want := range tests {
		if got, err := ClassForKind(kind); err != nil || got != want {
			t.Errorf("ClassForKind(%s) = %q, %v", kind, got, err)
		}
	}
	if _, err := ClassForKind("toaster"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ClassForKind(toaster) error = %v", err)
	}
}
