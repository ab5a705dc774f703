// Package wizard implements the four-step ClickLit flow as Bubble Tea
// models: target, product, prediction and image. Each screen re-reads its
// state from the session on entry and writes back within the same handler
// turn, so switching screens never loses work.
package wizard

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clicklit/cmd/clicklit/ui"
	"clicklit/internal/api"
	"clicklit/internal/download"
	"clicklit/internal/logging"
	"clicklit/internal/session"
)

// Step identifies one wizard screen.
type Step int

const (
	StepTarget Step = iota
	StepProduct
	StepPrediction
	StepImage
)

var stepLabels = map[Step]string{
	StepTarget:     "타겟 설정",
	StepProduct:    "제품 정보",
	StepPrediction: "CTR 예측",
	StepImage:      "이미지 생성",
}

// Deps bundles everything the screens share.
type Deps struct {
	Session      *session.Session
	Client       *api.Client
	Saver        *download.Saver
	ChoicePolicy session.ChoicePolicy
	StylePolicy  session.StylePolicy
	Styles       ui.Styles
}

// screen is the shared surface of the four step models.
type screen interface {
	// mount reloads the screen's state from the session.
	mount()
	// editing reports whether the screen is capturing free text, in which
	// case the root leaves navigation keys to it.
	editing() bool
	update(msg tea.Msg) tea.Cmd
	view(width int) string
}

// Model is the root navigation controller.
type Model struct {
	deps Deps
	step Step

	target     *TargetModel
	product    *ProductModel
	prediction *PredictionModel
	image      *ImageModel

	width  int
	height int
	err    error
}

// New builds the wizard at the target step.
func New(deps Deps) Model {
	m := Model{
		deps:       deps,
		step:       StepTarget,
		target:     newTargetModel(deps),
		product:    newProductModel(deps),
		prediction: newPredictionModel(deps),
		image:      newImageModel(deps),
		width:      80,
	}
	m.target.mount()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) active() screen {
	switch m.step {
	case StepProduct:
		return m.product
	case StepPrediction:
		return m.prediction
	case StepImage:
		return m.image
	}
	return m.target
}

// enter switches screens unconditionally. Direct entry into a later step
// is always allowed; a screen with missing upstream state shows its own
// sentinel error after mount instead of being redirected.
func (m *Model) enter(step Step) {
	m.err = nil
	m.step = step
	m.active().mount()
	logging.Wizard("entered step %d (%s)", step, stepLabels[step])
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case gotoStepMsg:
		m.enter(msg.step)
		return m, nil

	case ConfigReloadedMsg:
		m.applyReload(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+r":
			if err := m.deps.Session.Reset(); err != nil {
				m.err = err
				return m, nil
			}
			logging.Wizard("session reset")
			m.target = newTargetModel(m.deps)
			m.product = newProductModel(m.deps)
			m.prediction = newPredictionModel(m.deps)
			m.image = newImageModel(m.deps)
			m.err = nil
			m.step = StepTarget
			m.target.mount()
			return m, nil
		}

		if !m.active().editing() {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "esc":
				if m.step > StepTarget {
					m.enter(m.step - 1)
				}
				return m, nil
			case "home":
				m.enter(StepTarget)
				return m, nil
			case "1", "2", "3", "4":
				m.enter(Step(int(msg.String()[0] - '1')))
				return m, nil
			}
		}
	}

	cmd := m.active().update(msg)
	return m, cmd
}

func (m Model) View() string {
	s := m.deps.Styles
	var b strings.Builder

	b.WriteString(m.tabBar())
	b.WriteString("\n")
	b.WriteString(s.RenderDivider(min(m.width, 72)))
	b.WriteString("\n")
	b.WriteString(m.active().view(m.width))

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(s.Error.Render("⚠ " + m.err.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(s.Muted.Render("1-4: 단계 이동  esc: 이전  ctrl+r: 초기화  ctrl+c: 종료"))
	return s.Content.Render(b.String())
}

func (m Model) tabBar() string {
	s := m.deps.Styles
	tabs := make([]string, 0, 4)
	for step := StepTarget; step <= StepImage; step++ {
		label := stepLabels[step]
		if step == m.step {
			tabs = append(tabs, s.TabOn.Render("● "+label))
		} else {
			tabs = append(tabs, s.Tab.Render("○ "+label))
		}
	}
	title := s.Header.Render("ClickLit")
	return lipgloss.JoinHorizontal(lipgloss.Center, title, strings.Join(tabs, ""))
}
