// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package onboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/ui/styles"
)

func filledForm() Model {
	m := New(styles.NewTheme(), "")
	m.inputs[fieldName].SetValue("Ada Lovelace")
	m.inputs[fieldDate].SetValue("1990-04-12")
	m.inputs[fieldTime].SetValue("08:30")
	m.inputs[fieldPlace].SetValue("Porto, Portugal")
	return m
}

func TestRequestFromFields(t *testing.T) {
	m := filledForm()
	m.inputs[fieldLatitude].SetValue("41.1579")
	m.inputs[fieldLongitude].SetValue("-8.6291")
	m.inputs[fieldTimezone].SetValue("Europe/Lisbon")

	req, err := m.Request()
	if err != nil {
		t.Fatal(err)
	}
	if req.Name != "Ada Lovelace" || req.DateOfBirth != "1990-04-12" {
		t.Errorf("request = %+v", req)
	}
	if req.Latitude == nil || *req.Latitude != 41.1579 {
		t.Errorf("latitude = %v", req.Latitude)
	}
	if req.Timezone != "Europe/Lisbon" {
		t.Errorf("timezone = %q", req.Timezone)
	}
}

func TestRequestValidates(t *testing.T) {
	m := filledForm()
	m.inputs[fieldDate].SetValue("12/04/1990")

	_, err := m.Request()
	if !errors.Is(err, app.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestRejectsNonNumericCoordinates(t *testing.T) {
	m := filledForm()
	m.inputs[fieldLatitude].SetValue("north-ish")

	_, err := m.Request()
	if !errors.Is(err, app.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOptionalFieldsStayNil(t *testing.T) {
	m := filledForm()
	req, err := m.Request()
	if err != nil {
		t.Fatal(err)
	}
	if req.Latitude != nil || req.Longitude != nil {
		t.Error("empty coordinates should stay nil")
	}
}

func TestViewShowsNotice(t *testing.T) {
	m := New(styles.NewTheme(), "profile computation failed, please check your details and retry")
	if !strings.Contains(m.View(), "profile computation failed") {
		t.Error("notice not rendered")
	}
}

func TestFocusWraps(t *testing.T) {
	m := New(styles.NewTheme(), "")
	if m.focus != fieldName {
		t.Fatalf("initial focus = %d", m.focus)
	}

	m = m.moveFocus(-1)
	if m.focus != fieldCount-1 {
		t.Errorf("focus after wrap back = %d", m.focus)
	}
	m = m.moveFocus(1)
	if m.focus != fieldName {
		t.Errorf("focus after wrap forward = %d", m.focus)
	}
}
