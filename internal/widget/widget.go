// Package widget pushes today's prayer times and monthly caches to the
// native home-screen widgets over MQTT. Everything here is best-effort:
// a broker outage must never block or fail a core flow.
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/engine"
	"github.com/ezanapp/minaret/internal/model"
)

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to MQTT broker")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Warn().Err(err).Msg("MQTT connection lost")
}

// publisher is the slice of mqtt.Client the bridge uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// Bridge publishes widget payloads and engine events per device.
type Bridge struct {
	client publisher

	store db.Store
	cache *engine.CacheManager

	mu      sync.Mutex
	lastDay map[int]string
}

// NewBridge connects to the broker. An empty brokerURL disables the
// bridge; publishes become no-ops.
func NewBridge(brokerURL, clientID string) (*Bridge, error) {
	b := &Bridge{lastDay: make(map[int]string)}
	if brokerURL == "" {
		log.Info().Msg("widget bridge disabled, no MQTT broker configured")
		return b, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}
	b.client = client
	return b, nil
}

// AttachEngine wires the store and cache the push paths read from. Called
// once in main after the cache manager exists; the bridge and the cache
// reference each other, so this cannot happen in NewBridge.
func (b *Bridge) AttachEngine(store db.Store, cache *engine.CacheManager) {
	b.store = store
	b.cache = cache
}

// Publish implements engine.EventSink. A mode switch refreshes the
// widget immediately; waiting for the midnight rollover would leave the
// old location's times on screen.
func (b *Bridge) Publish(deviceID int, ev model.Event) {
	b.send(fmt.Sprintf("app/%d/events", deviceID), ev)
	if ev.Kind == model.EventModeSwitched {
		b.pushCurrent(context.Background(), deviceID)
	}
}

// PushToday updates the widget with the current day's times and the
// active location label.
func (b *Bridge) PushToday(deviceID int, label string, today *model.PrayerTime) {
	if today == nil {
		return
	}
	b.send(fmt.Sprintf("widget/%d/today", deviceID), map[string]any{
		"location": label,
		"today":    today,
	})
}

// SyncMonthly replaces the widget's local month cache.
func (b *Bridge) SyncMonthly(deviceID int, series []model.PrayerTime) {
	b.send(fmt.Sprintf("widget/%d/monthly", deviceID), map[string]any{
		"series": series,
	})
}

func (b *Bridge) send(topic string, payload any) {
	if b.client == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to encode widget payload")
		return
	}
	token := b.client.Publish(topic, 1, false, raw)
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("widget publish failed")
		}
	}()
}

// RunRollover re-evaluates the current-day lookup once per interval so
// widgets roll over at local midnight without an app restart.
func (b *Bridge) RunRollover(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.rolloverOnce(ctx)
		}
	}
}

func (b *Bridge) rolloverOnce(ctx context.Context) {
	if b.store == nil {
		return
	}
	ids, err := b.store.ListDeviceIDs()
	if err != nil {
		return
	}
	for _, id := range ids {
		today, err := b.cache.Today(ctx, id)
		if err != nil || today == nil {
			continue
		}
		b.mu.Lock()
		changed := b.lastDay[id] != today.Date
		b.mu.Unlock()
		if changed {
			b.pushCurrent(ctx, id)
		}
	}
}

// pushCurrent pushes the active mode's today record and monthly series
// for one device and records the day so the rollover does not repeat it.
func (b *Bridge) pushCurrent(ctx context.Context, deviceID int) {
	if b.store == nil || b.cache == nil {
		return
	}
	state, err := b.store.GetLocationState(deviceID)
	if err != nil {
		return
	}
	today, err := b.cache.Today(ctx, deviceID)
	if err != nil || today == nil {
		return
	}

	label := ""
	if state.Mode == model.ModeManual && state.Manual != nil {
		label = state.Manual.DisplayName()
	} else if state.GPS != nil {
		label = state.GPS.DisplayName()
	}

	b.mu.Lock()
	b.lastDay[deviceID] = today.Date
	b.mu.Unlock()

	b.PushToday(deviceID, label, today)
	if series, err := b.store.GetSeries(deviceID, state.Mode); err == nil && len(series) > 0 {
		b.SyncMonthly(deviceID, series)
	}
	b.send(fmt.Sprintf("app/%d/events", deviceID),
		model.Event{Kind: model.EventWidgetSync, Mode: state.Mode, DisplayName: label, Today: today})
}
