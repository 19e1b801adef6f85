package service

import (
	"context"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/cov"
	"github.com/bacnet-stack/bacnet-go/pkg/persistence"
)

// SaveState writes the device objects to the state store. It is a no-op
// without a store.
func (s *DeviceService) SaveState() error {
	s.mu.RLock()
	store := s.stateStore
	s.mu.RUnlock()
	if store == nil {
		return nil
	}

	state := persistence.Capture(s.device)
	state.SavedAt = s.now()
	return store.Save(state)
}

// LoadState restores the device objects from the state store. It is a
// no-op without a store or without saved state.
func (s *DeviceService) LoadState() error {
	s.mu.RLock()
	store := s.stateStore
	s.mu.RUnlock()
	if store == nil {
		return nil
	}

	state, err := store.Load()
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	if err := persistence.Apply(s.device, state); err != nil {
		return err
	}
	s.debugLog("state restored", "objects", s.device.ObjectCount(), "saved_at", state.SavedAt)
	return nil
}

// persist saves state after a change, logging failures.
func (s *DeviceService) persist() {
	if err := s.SaveState(); err != nil {
		s.debugLog("failed to save state", "error", err)
	}
}

func (s *DeviceService) historyStore() *persistence.HistoryStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history
}

// recordChange turns an acknowledged change into an event and a history
// entry.
func (s *DeviceService) recordChange(c cov.Change) {
	s.emitEvent(Event{
		Type:      EventValueChanged,
		Object:    c.Object,
		Values:    c.Values,
		Timestamp: c.Timestamp,
	})

	store := s.historyStore()
	if store == nil {
		return
	}
	entry := historyEntry(c)
	if err := store.Record(context.Background(), entry); err != nil {
		s.debugLog("failed to record history", "object", c.Object, "error", err)
	}
}

func historyEntry(c cov.Change) *persistence.Entry {
	e := &persistence.Entry{Object: c.Object, RecordedAt: c.Timestamp}
	for _, pv := range c.Values {
		switch pv.Property {
		case bacnet.PropPresentValue:
			e.Value = pv.Value.String()
			e.Numeric = numeric(pv.Value)
		case bacnet.PropStatusFlags:
			if pv.Value.Tag == bacapp.TagBitString {
				e.OutOfService = pv.Value.BitString.Bit(bacnet.StatusFlagOutOfService)
			}
		}
	}
	return e
}

func numeric(v bacapp.Value) float64 {
	switch v.Tag {
	case bacapp.TagUnsigned:
		return float64(v.Unsigned)
	case bacapp.TagSigned:
		return float64(v.Signed)
	case bacapp.TagReal:
		return float64(v.Real)
	case bacapp.TagDouble:
		return v.Double
	case bacapp.TagEnumerated:
		return float64(v.Enumerated)
	default:
		return 0
	}
}

func (s *DeviceService) deleteHistory(id bacnet.ObjectID) {
	store := s.historyStore()
	if store == nil {
		return
	}
	if _, err := store.DeleteObject(context.Background(), id); err != nil {
		s.debugLog("failed to delete history", "object", id, "error", err)
	}
}

func (s *DeviceService) pruneHistory(now time.Time) {
	if s.config.HistoryRetention <= 0 {
		return
	}
	store := s.historyStore()
	if store == nil {
		return
	}

	s.mu.Lock()
	due := now.Sub(s.lastPrune) >= historyPruneInterval
	if due {
		s.lastPrune = now
	}
	s.mu.Unlock()
	if !due {
		return
	}

	n, err := store.Prune(context.Background(), now.Add(-s.config.HistoryRetention))
	if err != nil {
		s.debugLog("failed to prune history", "error", err)
		return
	}
	s.debugLog("history pruned", "entries", n)
}
