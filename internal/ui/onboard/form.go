// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package onboard provides the birth-detail form shown before first chat.
package onboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/astraleph/astra-tui/internal/api"
	"github.com/astraleph/astra-tui/internal/app"
	"github.com/astraleph/astra-tui/internal/ui/styles"
)

// =============================================================================
// FIELDS
// =============================================================================

// field indices, in tab order.
const (
	fieldName = iota
	fieldDate
	fieldTime
	fieldPlace
	fieldLatitude
	fieldLongitude
	fieldTimezone
	fieldCount
)

// fieldSpec drives construction and labeling per input.
type fieldSpec struct {
	label       string
	placeholder string
	hint        string
	limit       int
}

var fieldSpecs = [fieldCount]fieldSpec{
	fieldName:      {"Name", "Ada Lovelace", "", 120},
	fieldDate:      {"Date of birth", "1990-04-12", "YYYY-MM-DD", 10},
	fieldTime:      {"Time of birth", "08:30", "24-hour HH:MM", 5},
	fieldPlace:     {"Place of birth", "Porto, Portugal", "city, country", 160},
	fieldLatitude:  {"Latitude", "41.1579", "optional", 12},
	fieldLongitude: {"Longitude", "-8.6291", "optional", 12},
	fieldTimezone:  {"Timezone", "Europe/Lisbon", "optional IANA name", 64},
}

// =============================================================================
// MESSAGES
// =============================================================================

// SubmitMsg is emitted when the form validates locally and should be sent.
type SubmitMsg struct {
	Request *api.OnboardingRequest
}

// CancelMsg is emitted when the user backs out of the form.
type CancelMsg struct{}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the onboarding form.
type Model struct {
	theme  *styles.Theme
	inputs [fieldCount]textinput.Model
	focus  int

	// notice is the flow-supplied reason the form is being (re)shown,
	// e.g. a failed computation.
	notice string
	// errMsg is the current local validation failure.
	errMsg string

	width int
}

// New creates the form. notice may be empty.
func New(theme *styles.Theme, notice string) Model {
	m := Model{theme: theme, notice: notice}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = fieldSpecs[i].placeholder
		in.PlaceholderStyle = theme.InputPlaceholder
		in.CharLimit = fieldSpecs[i].limit
		in.Prompt = ""
		m.inputs[i] = in
	}
	m.inputs[fieldName].Focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return CancelMsg{} }
		case "tab", "down":
			return m.moveFocus(1), nil
		case "shift+tab", "up":
			return m.moveFocus(-1), nil
		case "enter":
			if m.focus == fieldCount-1 {
				return m.submit()
			}
			return m.moveFocus(1), nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// moveFocus shifts focus by delta with wraparound.
func (m Model) moveFocus(delta int) Model {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()
	return m
}

// submit builds the request and validates it locally before emitting.
func (m Model) submit() (tea.Model, tea.Cmd) {
	req, err := m.Request()
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	m.errMsg = ""
	return m, func() tea.Msg { return SubmitMsg{Request: req} }
}

// Request assembles the onboarding payload from the current field values.
func (m *Model) Request() (*api.OnboardingRequest, error) {
	req := &api.OnboardingRequest{
		Name:        m.inputs[fieldName].Value(),
		DateOfBirth: m.inputs[fieldDate].Value(),
		TimeOfBirth: m.inputs[fieldTime].Value(),
		Place:       m.inputs[fieldPlace].Value(),
		Timezone:    m.inputs[fieldTimezone].Value(),
	}

	if lat := strings.TrimSpace(m.inputs[fieldLatitude].Value()); lat != "" {
		v, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: latitude must be a number", app.ErrValidation)
		}
		req.Latitude = &v
	}
	if lon := strings.TrimSpace(m.inputs[fieldLongitude].Value()); lon != "" {
		v, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: longitude must be a number", app.ErrValidation)
		}
		req.Longitude = &v
	}

	if err := app.ValidateOnboarding(req); err != nil {
		return nil, err
	}
	return req, nil
}

// SetError displays a submit failure from the flow (server rejection).
func (m *Model) SetError(msg string) { m.errMsg = msg }

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.FormTitle.Render("Tell the stars who you are"))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(m.theme.WarningStyle.Render(m.notice))
		b.WriteString("\n\n")
	}

	for i, in := range m.inputs {
		label := m.theme.FormLabel.Render(fieldSpecs[i].label)
		if i == m.focus {
			label = m.theme.FormLabelFocus.Render(fieldSpecs[i].label)
		}
		b.WriteString(label)
		if hint := fieldSpecs[i].hint; hint != "" {
			b.WriteString(" " + m.theme.FormHint.Render("("+hint+")"))
		}
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.FormError.Render(m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.ShortcutKey.Render("tab") + m.theme.ShortcutDesc.Render(" next field  "))
	b.WriteString(m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" submit  "))
	b.WriteString(m.theme.ShortcutKey.Render("esc") + m.theme.ShortcutDesc.Render(" back"))

	return m.theme.FormBox.Render(b.String())
}
