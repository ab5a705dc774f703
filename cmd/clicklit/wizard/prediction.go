package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"clicklit/internal/logging"
	"clicklit/internal/session"
)

// candidateBadge marks the A/B candidate with the highest predicted CTR.
const candidateBadge = "최다 CTR 예측"

var candidateOrder = []session.Option{session.OptionA, session.OptionB, session.OptionC}

// PredictionModel shows the three evaluated candidates with their predicted
// CTRs and lets the user confirm one. Confirming runs the choice policy's
// Begin synchronously before any network call, then reports the choice and
// generates the candidate's image; generation failure rolls the choice back.
type PredictionModel struct {
	deps Deps

	tgt  session.Target
	prod session.Product
	pred session.Prediction

	cursor       int
	state        session.CandidateState
	locked       *session.ChoiceLock
	analysisOpen bool

	spin     spinner.Model
	renderer *glamour.TermRenderer
	err      error
}

func newPredictionModel(deps Deps) *PredictionModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Styles.Spinner
	return &PredictionModel{deps: deps, spin: sp}
}

func (m *PredictionModel) mount() {
	m.err = nil
	m.state = session.CandidateState{}
	m.locked = nil

	tgt, err := m.deps.Session.Target()
	if err != nil {
		m.err = err
		return
	}
	m.tgt = tgt

	prod, ok, err := m.deps.Session.Product()
	if err != nil {
		m.err = err
		return
	}
	if !ok {
		m.err = session.ErrNoPrediction
		return
	}
	m.prod = prod

	pred, err := m.deps.Session.Prediction()
	if err != nil {
		m.err = err
		return
	}
	m.pred = pred

	if lock, held, err := m.deps.Session.LockState(pred.LogID); err == nil && held {
		m.locked = &lock
	}
}

func (m *PredictionModel) editing() bool { return false }

func (m *PredictionModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.state.Phase != session.CandidateGenerating {
			return nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return cmd

	case candidateImageMsg:
		return m.handleGeneration(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *PredictionModel) handleKey(key tea.KeyMsg) tea.Cmd {
	if m.state.Phase == session.CandidateGenerating {
		return nil
	}
	switch key.String() {
	case "up", "k":
		m.cursor = clamp(m.cursor-1, len(candidateOrder))
	case "down", "j":
		m.cursor = clamp(m.cursor+1, len(candidateOrder))
	case "a":
		m.analysisOpen = !m.analysisOpen
	case "enter":
		if m.state.Phase == session.CandidateReady {
			return gotoStep(StepImage)
		}
		return m.confirm(candidateOrder[m.cursor])
	}
	return nil
}

// confirm pins the candidate through the choice policy before anything
// touches the network. A held lock surfaces immediately; the user keeps
// the existing choice.
func (m *PredictionModel) confirm(opt session.Option) tea.Cmd {
	// The locked candidate stays actionable: re-confirming it moves on to
	// its image instead of tripping over the user's own lock.
	if m.locked != nil && m.locked.Option == opt {
		return gotoStep(StepImage)
	}

	text := m.pred.TextFor(opt, m.prod)
	if strings.TrimSpace(text) == "" {
		m.err = fmt.Errorf("후보 %s에는 문구가 없습니다", opt)
		return nil
	}

	var ctr float64
	if v := m.pred.CTRFor(opt); v != nil {
		ctr = *v
	}
	choice := session.Choice{
		Option:  opt,
		Text:    text,
		CTR:     ctr,
		Target:  m.tgt,
		Product: m.prod,
		Result:  m.pred,
	}

	if err := m.deps.ChoicePolicy.Begin(m.deps.Session, choice); err != nil {
		if errors.Is(err, session.ErrChoiceLocked) {
			logging.Wizard("choice rejected, lock held for %s", m.pred.LogID)
		}
		m.err = err
		return nil
	}

	m.err = nil
	m.state = session.Generating()
	logging.Wizard("choice %s confirmed for %s via %s policy", opt, m.pred.LogID, m.deps.ChoicePolicy.Name())
	return tea.Batch(m.spin.Tick, confirmCandidateCmd(m.deps, choice))
}

func (m *PredictionModel) handleGeneration(msg candidateImageMsg) tea.Cmd {
	if msg.err != nil {
		if rbErr := m.deps.ChoicePolicy.Rollback(m.deps.Session, msg.choice.Result.LogID); rbErr != nil {
			logging.WizardWarn("rollback failed for %s: %v", msg.choice.Result.LogID, rbErr)
		}
		m.state = session.Failed(msg.err.Error())
		m.locked = nil
		logging.Wizard("candidate image failed, choice rolled back: %v", msg.err)
		return nil
	}

	if err := m.deps.ChoicePolicy.Commit(m.deps.Session, msg.choice); err != nil {
		m.err = err
		return nil
	}
	m.state = session.Ready(msg.ref)
	if lock, held, err := m.deps.Session.LockState(msg.choice.Result.LogID); err == nil && held {
		m.locked = &lock
	}
	logging.Wizard("choice %s committed for %s", msg.choice.Option, msg.choice.Result.LogID)
	return nil
}

func (m *PredictionModel) view(width int) string {
	s := m.deps.Styles
	if m.err != nil && m.pred.LogID == "" {
		return s.Error.Render("⚠ " + m.err.Error())
	}

	var b strings.Builder
	b.WriteString(s.Title.Render("CTR 예측 결과"))
	b.WriteString("\n")
	b.WriteString(s.Subtitle.Render("후보를 선택하면 해당 문구로 이미지를 생성합니다"))
	b.WriteString("\n\n")

	winner, hasWinner := m.pred.HighestAB()
	for i, opt := range candidateOrder {
		b.WriteString(m.candidateCard(opt, i == m.cursor, hasWinner && opt == winner))
		b.WriteString("\n")
	}

	if m.analysisOpen {
		b.WriteString(m.analysisView(width))
	}

	switch m.state.Phase {
	case session.CandidateGenerating:
		b.WriteString("\n" + m.spin.View() + s.Info.Render(" 선택한 문구로 이미지 생성 중..."))
	case session.CandidateReady:
		b.WriteString("\n" + s.Success.Render("✓ 이미지 생성 완료") + s.Muted.Render("  enter: 이미지 단계로"))
	case session.CandidateFailed:
		b.WriteString("\n" + s.Error.Render("✗ 이미지 생성 실패: "+m.state.Reason))
		b.WriteString("\n" + s.Muted.Render("선택이 해제되었습니다. 다시 선택할 수 있습니다."))
	}

	if m.err != nil {
		b.WriteString("\n" + s.Error.Render("⚠ "+m.err.Error()))
	}
	b.WriteString("\n" + s.Muted.Render("j/k: 이동  enter: 선택 확정  a: 분석 보기"))
	return b.String()
}

func (m *PredictionModel) candidateCard(opt session.Option, focused, badge bool) string {
	s := m.deps.Styles
	isAI := opt == session.OptionC

	label := fmt.Sprintf("후보 %s", opt)
	if isAI {
		label = "후보 C (AI 제안)"
	}

	header := s.Bold.Render(label)
	if badge {
		header += "  " + s.Badge.Render(candidateBadge)
	}
	if isAI {
		header += "  " + s.BadgeAI.Render("AI")
	}
	if m.locked != nil && m.locked.Option == opt {
		header += "  " + s.Success.Render("● 선택됨")
	}

	ctr := m.pred.CTRFor(opt)
	ctrLine := s.Muted.Render("예측 CTR: -")
	if ctr != nil {
		ctrLine = fmt.Sprintf("예측 CTR: %.2f%%  %s", *ctr*100, s.CTRBar(ctr, isAI, 24))
	}

	text := m.pred.TextFor(opt, m.prod)
	if text == "" {
		text = s.Muted.Render("(문구 없음)")
	}

	card := header + "\n" + text + "\n" + ctrLine
	style := s.Card
	if focused {
		style = style.BorderForeground(s.Theme.Accent)
	}
	return style.Render(card)
}

// analysisView renders the per-candidate analysis markdown through glamour.
func (m *PredictionModel) analysisView(width int) string {
	s := m.deps.Styles
	md := m.analysisMarkdown()
	if strings.TrimSpace(md) == "" {
		return "\n" + s.Muted.Render("분석 결과가 없습니다.")
	}

	if m.renderer == nil {
		wrap := min(width-4, 76)
		if wrap < 20 {
			wrap = 20
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return "\n" + md
		}
		m.renderer = r
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return "\n" + md
	}
	return "\n" + out
}

func (m *PredictionModel) analysisMarkdown() string {
	var b strings.Builder
	if m.pred.AnalysisA != "" {
		b.WriteString("## 후보 A 분석\n\n" + m.pred.AnalysisA + "\n\n")
	}
	if m.pred.AnalysisB != "" {
		b.WriteString("## 후보 B 분석\n\n" + m.pred.AnalysisB + "\n\n")
	}
	if m.pred.AnalysisC != "" {
		b.WriteString("## 후보 C 분석\n\n" + m.pred.AnalysisC + "\n\n")
	}
	return b.String()
}
