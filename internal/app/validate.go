// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/astraleph/astra-tui/internal/api"
)

// ErrValidation wraps all client-side onboarding validation failures so the
// UI can render them inline instead of treating them as transport errors.
var ErrValidation = errors.New("validation failed")

// ValidateOnboarding checks required fields and formats, and normalizes
// free-text fields to NFC in place. Only presence and format are validated
// client-side; semantic checks belong to the backend.
func ValidateOnboarding(req *api.OnboardingRequest) error {
	req.Name = norm.NFC.String(strings.TrimSpace(req.Name))
	req.Place = norm.NFC.String(strings.TrimSpace(req.Place))
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	req.TimeOfBirth = strings.TrimSpace(req.TimeOfBirth)
	req.Timezone = strings.TrimSpace(req.Timezone)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.DateOfBirth == "" {
		missing = append(missing, "date of birth")
	}
	if req.TimeOfBirth == "" {
		missing = append(missing, "time of birth")
	}
	if req.Place == "" {
		missing = append(missing, "place")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}

	if _, err := time.Parse("2006-01-02", req.DateOfBirth); err != nil {
		return fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrValidation)
	}
	if _, err := time.Parse("15:04", req.TimeOfBirth); err != nil {
		return fmt.Errorf("%w: time of birth must be HH:mm", ErrValidation)
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be provided together", ErrValidation)
	}
	if req.Latitude != nil {
		if *req.Latitude < -90 || *req.Latitude > 90 {
			return fmt.Errorf("%w: latitude out of range", ErrValidation)
		}
		if *req.Longitude < -180 || *req.Longitude > 180 {
			return fmt.Errorf("%w: longitude out of range", ErrValidation)
		}
	}
	return nil
}
