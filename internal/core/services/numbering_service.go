package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/facturio/invoice-engine/internal/apperrors"
	portsrepo "github.com/facturio/invoice-engine/internal/core/ports/repositories"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
	"github.com/facturio/invoice-engine/internal/middleware"
)

const minSequenceWidth = 3

// NumberGeneratorService issues sequential invoice numbers of the form
// {prefix}{year}{NNN}. Generation for a given prefix is serialized in-process
// so two concurrent creations cannot observe the same last number.
type NumberGeneratorService struct {
	numberRepo portsrepo.NumberReader
	yearReset  bool
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewNumberGeneratorService creates a new NumberGeneratorService.
func NewNumberGeneratorService(nr portsrepo.NumberReader, yearReset bool) portssvc.NumberGeneratorSvc {
	return &NumberGeneratorService{
		numberRepo: nr,
		yearReset:  yearReset,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

var _ portssvc.NumberGeneratorSvc = (*NumberGeneratorService)(nil)

func (s *NumberGeneratorService) lockFor(prefix string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[prefix]
	if !ok {
		l = &sync.Mutex{}
		s.locks[prefix] = l
	}
	return l
}

// NextNumber returns the next free number for the prefix. When year reset is
// enabled the sequence restarts at 001 each calendar year.
func (s *NumberGeneratorService) NextNumber(ctx context.Context, prefix string) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	patternPrefix := prefix
	if s.yearReset {
		patternPrefix = fmt.Sprintf("%s%d", prefix, s.now().Year())
	}

	lock := s.lockFor(patternPrefix)
	lock.Lock()
	defer lock.Unlock()

	next := 1
	last, err := s.numberRepo.FindLastNumberByPrefix(ctx, patternPrefix)
	switch {
	case err == nil:
		suffix := last[len(patternPrefix):]
		n, parseErr := strconv.Atoi(suffix)
		if parseErr != nil {
			logger.Warn("Unparseable invoice number suffix, restarting sequence",
				slog.String("last_number", last), slog.String("prefix", patternPrefix))
		} else {
			next = n + 1
		}
	case errors.Is(err, apperrors.ErrNotFound):
		// First number for this prefix.
	default:
		return "", fmt.Errorf("failed to read last invoice number: %w", err)
	}

	existing, err := s.numberRepo.ListNumbersByPrefix(ctx, patternPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to list invoice numbers: %w", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}

	candidate := formatNumber(patternPrefix, next)
	for {
		if _, exists := taken[candidate]; !exists {
			break
		}
		next++
		candidate = formatNumber(patternPrefix, next)
	}

	logger.Debug("Generated invoice number", slog.String("number", candidate))
	return candidate, nil
}

// formatNumber zero-pads the sequence to three digits; wider sequences keep
// their natural width.
func formatNumber(patternPrefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", patternPrefix, minSequenceWidth, seq)
}
