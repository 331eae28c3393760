package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/provisioning"
	"internship-hub/project-portal/project-portal-backend/internal/validation"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Width(34)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
)

type field struct {
	key   string
	label string
}

var positionFields = []field{
	{validation.FieldPositionCode, "Código de puesto"},
	{validation.FieldVacancyCount, "Cantidad de vacantes"},
	{validation.FieldMaxApplicationCount, "Máximo de postulaciones"},
	{validation.FieldWeeklyHours, "Horas semanales"},
}

var requirementFields = []field{
	{validation.FieldCareerCode, "Código de carrera"},
	{validation.FieldRequiredApprovedCourses, "Materias aprobadas requeridas"},
	{validation.FieldRequiredInProgressCourses, "Materias en curso requeridas"},
	{validation.FieldStudyPlanCode, "Plan de estudios"},
}

// handledMsg carries the session after an event was applied
type handledMsg struct {
	session *provisioning.Session
	err     error
}

// model drives one provisioning session from the terminal
type model struct {
	ctx       context.Context
	manager   *provisioning.Manager
	sessionID uuid.UUID
	view      provisioning.View

	inputs []textinput.Model
	focus  int
	busy   bool
	err    error
}

func newModel(ctx context.Context, manager *provisioning.Manager, session *provisioning.Session) model {
	m := model{
		ctx:       ctx,
		manager:   manager,
		sessionID: session.ID,
	}
	m.apply(session.View)
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case handledMsg:
		m.busy = false
		m.err = msg.err
		if msg.session != nil {
			m.apply(msg.session.View)
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.view.Step.Terminal() {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlX {
		return m.send(provisioning.Event{Kind: provisioning.EventCancel})
	}

	switch m.view.Step {
	case provisioning.StepPositionForm, provisioning.StepRequirementForm:
		switch msg.Type {
		case tea.KeyTab, tea.KeyDown:
			m.setFocus(m.focus + 1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.setFocus(m.focus - 1)
			return m, nil
		case tea.KeyEsc:
			return m.send(provisioning.Event{Kind: provisioning.EventBack})
		case tea.KeyEnter:
			return m.send(m.submitEvent())
		}
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd

	case provisioning.StepPositionConfirm, provisioning.StepRequirementConfirm, provisioning.StepRequirementIntro:
		switch {
		case msg.Type == tea.KeyEnter:
			return m.send(provisioning.Event{Kind: provisioning.EventConfirm})
		case msg.Type == tea.KeyEsc, msg.String() == "b":
			return m.send(provisioning.Event{Kind: provisioning.EventBack})
		}

	case provisioning.StepMoreRequirements, provisioning.StepMorePositions:
		switch msg.String() {
		case "y", "s":
			return m.send(provisioning.Event{Kind: provisioning.EventYes})
		case "n":
			return m.send(provisioning.Event{Kind: provisioning.EventNo})
		}
	}
	return m, nil
}

func (m model) send(event provisioning.Event) (tea.Model, tea.Cmd) {
	m.busy = true
	ctx, manager, id := m.ctx, m.manager, m.sessionID
	return m, func() tea.Msg {
		session, err := manager.Handle(ctx, id, event)
		return handledMsg{session: session, err: err}
	}
}

func (m model) submitEvent() provisioning.Event {
	values := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		values[i] = strings.TrimSpace(in.Value())
	}

	if m.view.Step == provisioning.StepPositionForm {
		return provisioning.Event{Kind: provisioning.EventSubmit, Position: &validation.PositionForm{
			Code:                values[0],
			VacancyCount:        values[1],
			MaxApplicationCount: values[2],
			WeeklyHours:         values[3],
		}}
	}
	return provisioning.Event{Kind: provisioning.EventSubmit, Requirement: &validation.RequirementForm{
		CareerCode:                values[0],
		RequiredApprovedCourses:   values[1],
		RequiredInProgressCourses: values[2],
		StudyPlanCode:             values[3],
	}}
}

// apply rebuilds the inputs from the workflow's form values
func (m *model) apply(view provisioning.View) {
	m.view = view

	var values []string
	switch view.Step {
	case provisioning.StepPositionForm:
		f := view.PositionForm
		values = []string{f.Code, f.VacancyCount, f.MaxApplicationCount, f.WeeklyHours}
	case provisioning.StepRequirementForm:
		f := view.RequirementForm
		values = []string{f.CareerCode, f.RequiredApprovedCourses, f.RequiredInProgressCourses, f.StudyPlanCode}
	default:
		m.inputs = nil
		return
	}

	m.inputs = make([]textinput.Model, len(values))
	for i, v := range values {
		in := textinput.New()
		in.CharLimit = 20
		in.Width = 24
		in.SetValue(v)
		m.inputs[i] = in
	}
	m.setFocus(0)
}

func (m *model) setFocus(i int) {
	if len(m.inputs) == 0 {
		return
	}
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
			m.inputs[j].PromptStyle = focusedStyle
		} else {
			m.inputs[j].Blur()
			m.inputs[j].PromptStyle = lipgloss.NewStyle()
		}
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Alta de puestos · proyecto %d", m.view.ProjectID)))
	b.WriteString("\n")

	switch m.view.Step {
	case provisioning.StepPositionForm:
		b.WriteString(m.renderForm("Nuevo puesto", positionFields))
	case provisioning.StepRequirementForm:
		b.WriteString(m.renderForm("Nuevo requisito de carrera", requirementFields))
	case provisioning.StepPositionConfirm:
		b.WriteString(renderPosition(m.view.CandidatePosition))
		b.WriteString(hintStyle.Render("enter confirmar · b volver · ctrl+x cancelar"))
	case provisioning.StepRequirementIntro:
		b.WriteString("A continuación se cargarán los requisitos de carrera del puesto.\n")
		b.WriteString(hintStyle.Render("enter continuar · ctrl+x cancelar"))
	case provisioning.StepRequirementConfirm:
		b.WriteString(renderRequirement(m.view.CandidateRequirement))
		b.WriteString(hintStyle.Render("enter confirmar · b volver · ctrl+x cancelar"))
	case provisioning.StepMoreRequirements:
		b.WriteString("¿Desea agregar otro requisito a este puesto?\n")
		b.WriteString(hintStyle.Render("y sí · n no · ctrl+x cancelar"))
	case provisioning.StepMorePositions:
		b.WriteString("¿Desea agregar otro puesto al proyecto?\n")
		b.WriteString(hintStyle.Render("y sí · n no (guardar) · ctrl+x cancelar"))
	case provisioning.StepCommitted:
		b.WriteString(okStyle.Render(fmt.Sprintf("Se guardaron %d puestos.", len(m.view.Committed))))
		b.WriteString(hintStyle.Render("\ncualquier tecla para salir"))
	case provisioning.StepCancelled:
		b.WriteString("Alta cancelada. No se guardó ningún puesto.")
		b.WriteString(hintStyle.Render("\ncualquier tecla para salir"))
	}

	if len(m.view.Pending) > 0 && !m.view.Step.Terminal() {
		b.WriteString("\n\n")
		b.WriteString(renderPending(m.view.Pending))
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(apperrors.ToResponse(m.err).Error))
	}
	return b.String() + "\n"
}

func (m model) renderForm(title string, fields []field) string {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for i, f := range fields {
		b.WriteString(labelStyle.Render(f.label))
		b.WriteString(m.inputs[i].View())
		if m.view.Errors != nil {
			if msg, ok := m.view.Errors.FieldErrors[f.key]; ok {
				b.WriteString("  " + errorStyle.Render(msg))
			}
		}
		b.WriteString("\n")
	}
	if m.view.Errors != nil {
		for _, msg := range m.view.Errors.GeneralErrors {
			b.WriteString(errorStyle.Render(msg) + "\n")
		}
	}
	b.WriteString(hintStyle.Render("tab siguiente campo · enter enviar · esc volver · ctrl+x cancelar"))
	return b.String()
}

func renderPosition(p *validation.PositionInput) string {
	if p == nil {
		return ""
	}
	return boxStyle.Render(fmt.Sprintf("%s · %s\nVacantes: %d   Máx. postulaciones: %d   Horas semanales: %d",
		p.Code, p.Name, p.VacancyCount, p.MaxApplicationCount, p.WeeklyHours)) + "\n"
}

func renderRequirement(r *validation.RequirementInput) string {
	if r == nil {
		return ""
	}
	return boxStyle.Render(fmt.Sprintf("%s · %s\nPlan %d   Aprobadas: %d   En curso: %d",
		r.CareerCode, r.CareerName, r.StudyPlanCode, r.RequiredApprovedCourses, r.RequiredInProgressCourses)) + "\n"
}

func renderPending(pending []provisioning.PendingPosition) string {
	lines := []string{"Pendientes de guardar:"}
	for _, p := range pending {
		lines = append(lines, fmt.Sprintf("  %s %s (%d requisitos)", p.Position.Code, p.Position.Name, len(p.Requirements)))
	}
	return hintStyle.Render(strings.Join(lines, "\n"))
}
