package services

import (
	"context"
	"log/slog"
	mathrand "math/rand/v2"
	"sync"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
)

const (
	minSimulatedDelay = 10 * time.Second
	maxSimulatedDelay = 40 * time.Second
)

// watch lives while a tracking view holds it or any event stream is open
type watch struct {
	sessionID string
	streams   int
	tracked   bool
	gen       int
	timer     Timer
}

// Simulator advances watched orders on a random delay, standing in for the
// kitchen while a tracking view is open. A nil *Simulator is a valid, disabled simulator.
type Simulator struct {
	book   *OrderBook
	clock  Clock
	logger *slog.Logger
	delay  func() time.Duration

	mu      sync.Mutex
	watches map[string]*watch
	stopped bool
}

// NewSimulator creates a simulator and subscribes it to the book's status changes
func NewSimulator(book *OrderBook, clock Clock, logger *slog.Logger) *Simulator {
	s := &Simulator{
		book:    book,
		clock:   clock,
		logger:  logger,
		delay:   randomDelay,
		watches: make(map[string]*watch),
	}
	book.AddPublisher(s)
	return s
}

func randomDelay() time.Duration {
	return minSimulatedDelay + mathrand.N(maxSimulatedDelay-minSimulatedDelay)
}

// Watch joins the auto-advance loop for the length of an event stream; every
// call is paired with one Release
func (s *Simulator) Watch(order *models.Order) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if w := s.open(order); w != nil {
		w.streams++
	}
}

// Release ends one event stream's hold on the order
func (s *Simulator) Release(orderID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[orderID]
	if !ok || w.streams == 0 {
		return
	}
	w.streams--
	s.closeIfIdle(orderID, w)
}

// Track holds the order open for a tracking view. Repeated calls hold it once,
// and one Unwatch lets it go.
func (s *Simulator) Track(order *models.Order) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if w := s.open(order); w != nil {
		w.tracked = true
	}
}

// Unwatch ends the tracking view's hold on the order; open event streams keep it
func (s *Simulator) Unwatch(orderID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[orderID]
	if !ok {
		return
	}
	w.tracked = false
	s.closeIfIdle(orderID, w)
}

// open returns the order's watch, arming a new one when none exists. It returns
// nil once stopped or when the order no longer advances. Must be called with mu held.
func (s *Simulator) open(order *models.Order) *watch {
	if s.stopped {
		return nil
	}
	if w, ok := s.watches[order.ID]; ok {
		return w
	}
	w := &watch{sessionID: order.SessionID}
	s.watches[order.ID] = w
	s.arm(order.ID, w, order.Status)
	return s.watches[order.ID]
}

// closeIfIdle must be called with mu held
func (s *Simulator) closeIfIdle(orderID string, w *watch) {
	if w.tracked || w.streams > 0 {
		return
	}
	s.disarm(w)
	delete(s.watches, orderID)
}

// Reassign points the watches of one session at its new id
func (s *Simulator) Reassign(fromSessionID, toSessionID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.watches {
		if w.sessionID == fromSessionID {
			w.sessionID = toSessionID
		}
	}
}

// Watching reports whether an advance timer is armed for the order
func (s *Simulator) Watching(orderID string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[orderID]
	return ok && w.timer != nil
}

// Publish re-arms the timer of a watched order after any status change
func (s *Simulator) Publish(_ context.Context, change models.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[change.OrderID]
	if !ok || s.stopped {
		return nil
	}
	s.disarm(w)
	s.arm(change.OrderID, w, change.To)
	return nil
}

// Stop cancels every pending timer; later watches are ignored
func (s *Simulator) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, w := range s.watches {
		s.disarm(w)
		delete(s.watches, id)
	}
}

// arm must be called with mu held. Orders that stop advancing drop their watch.
func (s *Simulator) arm(orderID string, w *watch, status models.OrderStatus) {
	if status.IsTerminal() || status == models.StatusReady {
		if s.watches[orderID] == w {
			delete(s.watches, orderID)
		}
		return
	}
	w.gen++
	gen := w.gen
	w.timer = s.clock.AfterFunc(s.delay(), func() {
		s.fire(orderID, w, gen)
	})
}

// disarm must be called with mu held
func (s *Simulator) disarm(w *watch) {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
}

func (s *Simulator) fire(orderID string, w *watch, gen int) {
	s.mu.Lock()
	if s.stopped || s.watches[orderID] != w || w.gen != gen {
		s.mu.Unlock()
		return
	}
	w.timer = nil
	sessionID := w.sessionID
	s.mu.Unlock()

	if _, err := s.book.AdvanceToNext(context.Background(), sessionID, orderID); err != nil {
		s.logger.Warn("simulated order advance failed", "order_id", orderID, "error", err)
	}
}
