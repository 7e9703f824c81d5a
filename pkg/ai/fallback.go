package ai

import (
	"context"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackService routes generation to a primary provider and falls back to a
// secondary one on connection or quota errors.
type FallbackService struct {
	primary   Service
	secondary Service
	logger    *zap.Logger
}

func NewFallbackService(primary, secondary Service, logger *zap.Logger) *FallbackService {
	return &FallbackService{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// IsPolicyRejection reports whether the provider refused the prompt on
// content-policy grounds. Callers treat this the same as a provider failure.
func IsPolicyRejection(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "content policy") ||
		strings.Contains(errStr, "content_filter") ||
		strings.Contains(errStr, "safety")
}

func (f *FallbackService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if f.primary != nil {
		result, err := f.primary.GenerateText(ctx, prompt)
		if err == nil {
			return result, nil
		}

		if f.secondary == nil {
			return "", err
		}

		if isConnectionError(err) || isQuotaError(err) {
			f.logger.Warn("primary AI provider unavailable, falling back",
				zap.Error(err))
		} else {
			f.logger.Warn("primary AI provider error, trying secondary",
				zap.Error(err))
		}
	}

	if f.secondary != nil {
		result, err := f.secondary.GenerateText(ctx, prompt)
		if err == nil {
			return result, nil
		}
		return "", fmt.Errorf("secondary provider failed: %w", err)
	}

	return "", fmt.Errorf("no AI provider available")
}
