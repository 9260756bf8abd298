package canvas

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"genui/internal/domain"
)

type Options struct {
	SessionTimeout time.Duration
	Logger         *zap.Logger
	Metrics        domain.Metrics
	Now            func() time.Time
}

// Store keeps one canvas per session. Sessions idle longer than the
// configured timeout are dropped by Cleanup.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  domain.Metrics
}

type session struct {
	elements   []domain.UIElement
	themeColor string
	lastSeen   time.Time
}

func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	timeout := opts.SessionTimeout
	if timeout <= 0 {
		timeout = domain.DefaultSessionTimeoutSeconds * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]*session),
		timeout:  timeout,
		now:      now,
		logger:   logger.Named("canvas"),
		metrics:  metrics,
	}
}

// Upsert replaces the element with the same id or appends a new one.
// Validation failures are reported in the outcome, not as errors.
func (s *Store) Upsert(sessionID, id string, elementType domain.ElementType, props map[string]any) domain.ToolOutcome {
	if strings.TrimSpace(id) == "" {
		return errorOutcome("Invalid id: must be non-empty string")
	}
	if !domain.IsAllowedElementType(elementType) {
		return errorOutcome(fmt.Sprintf("Unknown type '%s'. Allowed types: %s", elementType, allowedTypesList()))
	}
	if props == nil {
		return errorOutcome("Invalid props: must be a dictionary")
	}

	s.mu.Lock()
	sess := s.touchLocked(sessionID)
	element := domain.UIElement{ID: id, Type: elementType, Props: cloneProps(props)}
	action := "added"
	found := false
	for i := range sess.elements {
		if sess.elements[i].ID == id {
			sess.elements[i] = element
			found = true
			break
		}
	}
	if found {
		action = "updated"
	} else {
		sess.elements = append(sess.elements, element)
	}
	count := len(sess.elements)
	s.mu.Unlock()

	s.logger.Debug("element upserted", zap.String("session", sessionID), zap.String("id", id), zap.String("action", action))
	return domain.ToolOutcome{
		Status:       domain.ToolStatusSuccess,
		Message:      fmt.Sprintf("Element '%s' of type '%s' %s.", id, elementType, action),
		ElementCount: &count,
	}
}

// Remove deletes the element with the given id.
func (s *Store) Remove(sessionID, id string) domain.ToolOutcome {
	if strings.TrimSpace(id) == "" {
		return errorOutcome("Invalid id: must be non-empty string")
	}

	s.mu.Lock()
	sess := s.touchLocked(sessionID)
	kept := sess.elements[:0:0]
	for _, element := range sess.elements {
		if element.ID != id {
			kept = append(kept, element)
		}
	}
	removed := len(kept) != len(sess.elements)
	sess.elements = kept
	count := len(kept)
	s.mu.Unlock()

	if !removed {
		return domain.ToolOutcome{
			Status:       domain.ToolStatusWarning,
			Message:      fmt.Sprintf("Element '%s' not found (no change made)", id),
			ElementCount: &count,
		}
	}
	return domain.ToolOutcome{
		Status:       domain.ToolStatusSuccess,
		Message:      fmt.Sprintf("Element '%s' removed.", id),
		ElementCount: &count,
	}
}

// Clear removes every element from the session canvas.
func (s *Store) Clear(sessionID string) domain.ToolOutcome {
	s.mu.Lock()
	sess := s.touchLocked(sessionID)
	sess.elements = nil
	s.mu.Unlock()
	return domain.ToolOutcome{Status: domain.ToolStatusSuccess, Message: "Canvas cleared."}
}

// SetThemeColor records the theme color requested for the frontend.
func (s *Store) SetThemeColor(sessionID, color string) domain.ToolOutcome {
	s.mu.Lock()
	sess := s.touchLocked(sessionID)
	sess.themeColor = color
	s.mu.Unlock()
	return domain.ToolOutcome{Status: domain.ToolStatusSuccess, Message: fmt.Sprintf("Theme color set to %s", color)}
}

// Elements returns a copy of the session's elements; never nil.
func (s *Store) Elements(sessionID string) []domain.UIElement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return []domain.UIElement{}
	}
	return cloneElements(sess.elements)
}

// Snapshot returns a copy of the session canvas without refreshing its idle timer.
func (s *Store) Snapshot(sessionID string) domain.CanvasSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := domain.CanvasSnapshot{SessionID: sessionID, Elements: []domain.UIElement{}}
	if sess, ok := s.sessions[sessionID]; ok {
		snapshot.Elements = cloneElements(sess.elements)
		snapshot.ThemeColor = sess.themeColor
	}
	return snapshot
}

// Cleanup removes sessions idle for longer than the timeout and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.timeout {
			delete(s.sessions, id)
			removed++
		}
	}
	size := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetCanvasSessions(size)
	if removed > 0 {
		s.logger.Info("expired canvas sessions", zap.Int("removed", removed), zap.Int("active", size))
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = domain.DefaultSweepIntervalSeconds * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Size returns the number of live sessions.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// touchLocked returns the session, creating it if needed (must be called with lock held).
func (s *Store) touchLocked(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
		s.metrics.SetCanvasSessions(len(s.sessions))
	}
	sess.lastSeen = s.now()
	return sess
}

func errorOutcome(msg string) domain.ToolOutcome {
	return domain.ToolOutcome{Status: domain.ToolStatusError, Message: msg}
}

func allowedTypesList() string {
	names := make([]string, 0, len(domain.AllowedElementTypes))
	for _, t := range domain.AllowedElementTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func cloneElements(elements []domain.UIElement) []domain.UIElement {
	out := make([]domain.UIElement, len(elements))
	for i, element := range elements {
		out[i] = domain.UIElement{ID: element.ID, Type: element.Type, Props: cloneProps(element.Props)}
	}
	return out
}

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
