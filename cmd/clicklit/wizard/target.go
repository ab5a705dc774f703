package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"clicklit/internal/logging"
	"clicklit/internal/session"
)

type targetSection int

const (
	sectionAges targetSection = iota
	sectionGenders
	sectionInterests
	sectionPersonas
)

// TargetModel is the audience definition screen. Two entry paths exist:
// manual (age groups + genders + interests) and persona presets. Picking
// a persona pre-fills the manual fields; editing any manual field drops
// the persona reference again.
type TargetModel struct {
	deps    Deps
	section targetSection

	ageCursor    int
	agePicked    map[int]bool
	genderCursor int
	genderPicked map[int]bool
	interests    textinput.Model

	personaCursor int
	persona       *session.PersonaRef

	err error
}

func newTargetModel(deps Deps) *TargetModel {
	ti := textinput.New()
	ti.Placeholder = "관심사를 입력하세요 (예: 생활, 쇼핑)"
	ti.CharLimit = 200
	ti.Width = 48
	return &TargetModel{
		deps:         deps,
		agePicked:    map[int]bool{},
		genderPicked: map[int]bool{},
		interests:    ti,
	}
}

func (m *TargetModel) mount() {
	m.err = nil
	tgt, err := m.deps.Session.Target()
	if err != nil {
		// Absent target is the normal first-run state.
		return
	}
	m.agePicked = map[int]bool{}
	for i, age := range session.AgeGroups {
		for _, picked := range tgt.AgeGroups {
			if picked == age {
				m.agePicked[i] = true
			}
		}
	}
	m.genderPicked = map[int]bool{}
	for i, g := range session.Genders {
		for _, picked := range tgt.Genders {
			if picked == g {
				m.genderPicked[i] = true
			}
		}
	}
	m.interests.SetValue(tgt.Interests)
	m.persona = tgt.Persona
	if tgt.Persona != nil {
		for i, p := range session.Personas {
			if p.ID == tgt.Persona.ID {
				m.personaCursor = i
			}
		}
	}
}

func (m *TargetModel) editing() bool {
	return m.section == sectionInterests && m.interests.Focused()
}

// current reconstructs the Target from the screen state.
func (m *TargetModel) current() session.Target {
	t := session.Target{
		Interests: strings.TrimSpace(m.interests.Value()),
		Persona:   m.persona,
	}
	for i, age := range session.AgeGroups {
		if m.agePicked[i] {
			t.AgeGroups = append(t.AgeGroups, age)
		}
	}
	for i, g := range session.Genders {
		if m.genderPicked[i] {
			t.Genders = append(t.Genders, g)
		}
	}
	return t
}

func (m *TargetModel) update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	if m.editing() {
		switch key.String() {
		case "esc":
			m.interests.Blur()
			return nil
		case "enter", "tab":
			m.interests.Blur()
			m.section = sectionPersonas
			return nil
		}
		before := m.interests.Value()
		var cmd tea.Cmd
		m.interests, cmd = m.interests.Update(msg)
		// A manual edit means the persona shortcut no longer applies.
		if m.interests.Value() != before {
			m.persona = nil
		}
		return cmd
	}

	switch key.String() {
	case "tab", "right":
		m.section = (m.section + 1) % 4
		if m.section == sectionInterests {
			return m.interests.Focus()
		}
	case "shift+tab", "left":
		m.section = (m.section + 3) % 4
		if m.section == sectionInterests {
			return m.interests.Focus()
		}
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case " ":
		m.toggle()
	case "ctrl+x":
		m.clearSection()
	case "enter":
		return m.submit()
	}
	return nil
}

func (m *TargetModel) moveCursor(delta int) {
	switch m.section {
	case sectionAges:
		m.ageCursor = clamp(m.ageCursor+delta, len(session.AgeGroups))
	case sectionGenders:
		m.genderCursor = clamp(m.genderCursor+delta, len(session.Genders))
	case sectionPersonas:
		m.personaCursor = clamp(m.personaCursor+delta, len(session.Personas))
	}
}

func (m *TargetModel) toggle() {
	switch m.section {
	case sectionAges:
		m.agePicked[m.ageCursor] = !m.agePicked[m.ageCursor]
		m.persona = nil
	case sectionGenders:
		m.genderPicked[m.genderCursor] = !m.genderPicked[m.genderCursor]
		m.persona = nil
	case sectionPersonas:
		m.applyPersona(session.Personas[m.personaCursor])
	}
}

// applyPersona replaces the whole manual selection with the preset.
func (m *TargetModel) applyPersona(p session.Persona) {
	tgt := p.Apply()
	m.persona = tgt.Persona
	m.agePicked = map[int]bool{}
	for i, age := range session.AgeGroups {
		if age == p.Age {
			m.agePicked[i] = true
		}
	}
	m.genderPicked = map[int]bool{}
	for i, g := range session.Genders {
		if g == p.Gender {
			m.genderPicked[i] = true
		}
	}
	m.interests.SetValue(p.Interests)
	logging.Wizard("persona %s applied", p.ID)
}

// clearSection resets only the focused section.
func (m *TargetModel) clearSection() {
	switch m.section {
	case sectionAges:
		m.agePicked = map[int]bool{}
	case sectionGenders:
		m.genderPicked = map[int]bool{}
	case sectionInterests:
		m.interests.SetValue("")
	case sectionPersonas:
		m.persona = nil
	}
}

func (m *TargetModel) submit() tea.Cmd {
	tgt := m.current()
	if !tgt.Valid() {
		m.err = fmt.Errorf("연령대, 성별, 관심사를 모두 입력하거나 페르소나를 선택하세요")
		return nil
	}
	if err := m.deps.Session.SaveTarget(tgt); err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	logging.Session("target saved: %s", tgt.AudienceLine())
	return gotoStep(StepProduct)
}

func (m *TargetModel) view(width int) string {
	s := m.deps.Styles
	var b strings.Builder

	b.WriteString(s.Title.Render("타겟 설정"))
	b.WriteString("\n")
	b.WriteString(s.Subtitle.Render("광고를 보여줄 대상을 정의하세요"))
	b.WriteString("\n\n")

	b.WriteString(m.sectionHeader("연령대", sectionAges))
	b.WriteString(m.pickList(session.AgeGroups, m.agePicked, m.ageCursor, m.section == sectionAges))
	b.WriteString("\n")

	b.WriteString(m.sectionHeader("성별", sectionGenders))
	b.WriteString(m.pickList(session.Genders, m.genderPicked, m.genderCursor, m.section == sectionGenders))
	b.WriteString("\n")

	b.WriteString(m.sectionHeader("관심사", sectionInterests))
	b.WriteString("  " + m.interests.View())
	b.WriteString("\n\n")

	b.WriteString(m.sectionHeader("페르소나", sectionPersonas))
	for i, p := range session.Personas {
		cursor := "  "
		style := s.Option
		if m.section == sectionPersonas && i == m.personaCursor {
			cursor = s.Cursor.Render("▸ ")
		}
		mark := "○"
		if m.persona != nil && m.persona.ID == p.ID {
			mark = "●"
			style = s.OptionSelected
		}
		line := fmt.Sprintf("%s %s (%s %s, %s)", mark, p.Name, p.Age, p.Gender, p.Interests)
		b.WriteString("  " + cursor + style.Render(line) + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + s.Error.Render("⚠ "+m.err.Error()))
	}
	b.WriteString("\n" + s.Muted.Render("tab: 섹션 이동  space: 선택  ctrl+x: 섹션 초기화  enter: 다음"))
	return b.String()
}

func (m *TargetModel) sectionHeader(label string, sec targetSection) string {
	s := m.deps.Styles
	if m.section == sec {
		return s.Bold.Render("» "+label) + "\n"
	}
	return s.Muted.Render("  "+label) + "\n"
}

func (m *TargetModel) pickList(items []string, picked map[int]bool, cursor int, focused bool) string {
	s := m.deps.Styles
	var b strings.Builder
	for i, item := range items {
		prefix := "  "
		if focused && i == cursor {
			prefix = s.Cursor.Render("▸ ")
		}
		mark := "○"
		style := s.Option
		if picked[i] {
			mark = "●"
			style = s.OptionSelected
		}
		b.WriteString("  " + prefix + style.Render(mark+" "+item) + "\n")
	}
	return b.String()
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
