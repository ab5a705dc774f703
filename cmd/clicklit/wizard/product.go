package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"clicklit/internal/logging"
	"clicklit/internal/session"
)

type productField int

const (
	fieldCategory productField = iota
	fieldTextA
	fieldTextB
)

// ProductModel collects the product category and the two marketing copy
// candidates, then submits the merged payload for prediction. Only one
// predict request may be in flight at a time.
type ProductModel struct {
	deps  Deps
	field productField

	categoryCursor int
	category       string
	inputA         textinput.Model
	inputB         textinput.Model

	spin spinner.Model
	busy bool
	err  error
}

func newProductModel(deps Deps) *ProductModel {
	newInput := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 300
		ti.Width = 56
		return ti
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Styles.Spinner
	return &ProductModel{
		deps:   deps,
		inputA: newInput("마케팅 문구 A"),
		inputB: newInput("마케팅 문구 B"),
		spin:   sp,
	}
}

func (m *ProductModel) mount() {
	m.err = nil
	m.busy = false
	prod, ok, err := m.deps.Session.Product()
	if err != nil {
		m.err = err
		return
	}
	if !ok {
		return
	}
	m.category = prod.Category
	for i, c := range session.Categories {
		if c == prod.Category {
			m.categoryCursor = i
		}
	}
	m.inputA.SetValue(prod.MarketingA)
	m.inputB.SetValue(prod.MarketingB)
}

func (m *ProductModel) editing() bool {
	return m.inputA.Focused() || m.inputB.Focused()
}

func (m *ProductModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.busy {
			return nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return cmd

	case predictResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			logging.Wizard("predict failed: %v", msg.err)
			return nil
		}
		if err := m.deps.Session.SavePrediction(*msg.pred); err != nil {
			m.err = err
			return nil
		}
		logging.Session("prediction stored for log %s", msg.pred.LogID)
		return gotoStep(StepPrediction)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *ProductModel) handleKey(key tea.KeyMsg) tea.Cmd {
	if m.busy {
		// A request is in flight; the screen only watches for its result.
		return nil
	}

	if m.editing() {
		switch key.String() {
		case "esc":
			m.blur()
			return nil
		case "tab":
			m.blur()
			return m.advanceField()
		case "enter":
			if m.inputB.Focused() {
				m.blur()
				return m.submit()
			}
			m.blur()
			return m.advanceField()
		}
		var cmd tea.Cmd
		if m.inputA.Focused() {
			m.inputA, cmd = m.inputA.Update(key)
		} else {
			m.inputB, cmd = m.inputB.Update(key)
		}
		return cmd
	}

	switch key.String() {
	case "tab", "right":
		return m.advanceField()
	case "shift+tab", "left":
		m.field = (m.field + 2) % 3
		return m.focusField()
	case "up", "k":
		if m.field == fieldCategory {
			m.categoryCursor = clamp(m.categoryCursor-1, len(session.Categories))
		}
	case "down", "j":
		if m.field == fieldCategory {
			m.categoryCursor = clamp(m.categoryCursor+1, len(session.Categories))
		}
	case " ":
		if m.field == fieldCategory {
			m.category = session.Categories[m.categoryCursor]
		}
	case "ctrl+x":
		switch m.field {
		case fieldCategory:
			m.category = ""
		case fieldTextA:
			m.inputA.SetValue("")
		case fieldTextB:
			m.inputB.SetValue("")
		}
	case "enter":
		if m.field == fieldCategory {
			m.category = session.Categories[m.categoryCursor]
			return m.advanceField()
		}
		return m.submit()
	}
	return nil
}

func (m *ProductModel) blur() {
	m.inputA.Blur()
	m.inputB.Blur()
}

func (m *ProductModel) advanceField() tea.Cmd {
	m.field = (m.field + 1) % 3
	return m.focusField()
}

func (m *ProductModel) focusField() tea.Cmd {
	m.blur()
	switch m.field {
	case fieldTextA:
		return m.inputA.Focus()
	case fieldTextB:
		return m.inputB.Focus()
	}
	return nil
}

func (m *ProductModel) submit() tea.Cmd {
	tgt, err := m.deps.Session.Target()
	if err != nil {
		m.err = err
		return nil
	}
	prod := session.Product{
		Target:     tgt,
		Category:   m.category,
		MarketingA: strings.TrimSpace(m.inputA.Value()),
		MarketingB: strings.TrimSpace(m.inputB.Value()),
	}
	if !prod.Valid() {
		m.err = fmt.Errorf("카테고리와 두 개의 마케팅 문구를 모두 입력하세요")
		return nil
	}
	m.err = nil
	m.busy = true
	logging.Wizard("predict submitted for category %s", prod.Category)
	return tea.Batch(m.spin.Tick, predictCmd(m.deps, prod))
}

func (m *ProductModel) view(width int) string {
	s := m.deps.Styles
	var b strings.Builder

	b.WriteString(s.Title.Render("제품 정보"))
	b.WriteString("\n")
	b.WriteString(s.Subtitle.Render("제품 카테고리와 비교할 두 문구를 입력하세요"))
	b.WriteString("\n\n")

	header := s.Muted.Render("  카테고리")
	if m.field == fieldCategory {
		header = s.Bold.Render("» 카테고리")
	}
	b.WriteString(header + "\n")
	for i, c := range session.Categories {
		cursor := "  "
		if m.field == fieldCategory && i == m.categoryCursor {
			cursor = s.Cursor.Render("▸ ")
		}
		mark := "○"
		style := s.Option
		if c == m.category {
			mark = "●"
			style = s.OptionSelected
		}
		b.WriteString("  " + cursor + style.Render(mark+" "+c) + "\n")
	}
	b.WriteString("\n")

	labelA := s.Muted.Render("  문구 A")
	if m.field == fieldTextA {
		labelA = s.Bold.Render("» 문구 A")
	}
	b.WriteString(labelA + "\n  " + m.inputA.View() + "\n\n")

	labelB := s.Muted.Render("  문구 B")
	if m.field == fieldTextB {
		labelB = s.Bold.Render("» 문구 B")
	}
	b.WriteString(labelB + "\n  " + m.inputB.View() + "\n")

	if m.busy {
		b.WriteString("\n" + m.spin.View() + s.Info.Render(" CTR 예측 중..."))
	}
	if m.err != nil {
		b.WriteString("\n" + s.Error.Render("⚠ "+m.err.Error()))
	}
	b.WriteString("\n" + s.Muted.Render("tab: 다음 항목  space: 카테고리 선택  ctrl+x: 항목 초기화  enter: 예측 실행"))
	return b.String()
}
