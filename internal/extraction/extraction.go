// Package extraction is the item-extraction collaborator the load lifecycle
// reports page failures to.
package extraction

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
)

// Failure is the last reported extraction failure.
type Failure struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Service records extraction failures.
type Service struct {
	mu      sync.RWMutex
	failure *Failure
	logger  *logging.Logger
}

// NewService creates a service with no failure.
func NewService(logger *logging.Logger) *Service {
	return &Service{logger: logging.OrNop(logger).Named("extraction")}
}

// Fail marks extraction on the current page as failed.
func (s *Service) Fail(reason string) {
	s.mu.Lock()
	s.failure = &Failure{Reason: reason, At: time.Now()}
	s.mu.Unlock()
	s.logger.Warn("extraction failed", zap.String("reason", reason))
}

// Failure returns the last failure, if any.
func (s *Service) Failure() (Failure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure == nil {
		return Failure{}, false
	}
	return *s.failure, true
}

// Reset clears the failure after a page loads.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = nil
}
