package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"clicklit/internal/download"
	"clicklit/internal/logging"
	"clicklit/internal/session"
)

const imageSlots = 3

// ImageModel is the final screen: it takes the latest confirmed selection,
// composes a prompt through the style policy, generates a 3-image batch,
// and saves the results with the tiered download fallback. Slots can be
// regenerated one at a time.
type ImageModel struct {
	deps Deps

	sel   session.SelectionLog
	style textinput.Model

	slots [imageSlots]session.CandidateState
	// prev holds the slot states from before a batch request, so a failed
	// batch can leave the previous images in place.
	prev   [imageSlots]session.CandidateState
	cursor int
	busy   bool

	spin   spinner.Model
	status string
	err    error
}

func newImageModel(deps Deps) *ImageModel {
	ti := textinput.New()
	ti.Placeholder = "이미지 스타일 (예: 미니멀, 수채화)"
	ti.CharLimit = 100
	ti.Width = 40
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Styles.Spinner
	return &ImageModel{deps: deps, style: ti, spin: sp}
}

func (m *ImageModel) mount() {
	m.err = nil
	m.status = ""
	m.busy = false
	sel, err := m.deps.Session.LatestSelection()
	if err != nil {
		m.err = err
		return
	}
	m.sel = sel
}

func (m *ImageModel) editing() bool { return m.style.Focused() }

// prompt composes the generation prompt from the selected copy and the
// style input, under the active style policy.
func (m *ImageModel) prompt() string {
	return m.deps.StylePolicy.Compose(m.sel.MarketingText, strings.TrimSpace(m.style.Value()))
}

func (m *ImageModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.generating() {
			return nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return cmd

	case slotImagesMsg:
		m.busy = false
		if msg.err != nil {
			// A failed batch keeps whatever was there before.
			m.slots = m.prev
			m.err = msg.err
			logging.Wizard("batch generation failed: %v", msg.err)
			return nil
		}
		for i := range m.slots {
			if i < len(msg.refs) {
				m.slots[i] = session.Ready(msg.refs[i])
			} else {
				m.slots[i] = session.CandidateState{}
			}
		}
		m.err = nil
		m.status = fmt.Sprintf("%d개의 이미지가 생성되었습니다", len(msg.refs))
		return nil

	case slotImageMsg:
		if msg.err != nil {
			m.slots[msg.index] = session.Failed(msg.err.Error())
			return nil
		}
		m.slots[msg.index] = session.Ready(msg.ref)
		m.status = fmt.Sprintf("슬롯 %d 재생성 완료", msg.index+1)
		return nil

	case downloadResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return nil
		}
		m.err = nil
		m.status = describeDownloads(msg.results)
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *ImageModel) generating() bool {
	if m.busy {
		return true
	}
	for _, s := range m.slots {
		if s.Phase == session.CandidateGenerating {
			return true
		}
	}
	return false
}

func (m *ImageModel) handleKey(key tea.KeyMsg) tea.Cmd {
	if m.sel.MarketingText == "" {
		// Nothing selected upstream; the screen is inert.
		return nil
	}

	if m.editing() {
		switch key.String() {
		case "esc", "enter":
			m.style.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.style, cmd = m.style.Update(key)
		return cmd
	}

	switch key.String() {
	case "s":
		return m.style.Focus()
	case "left", "h":
		m.cursor = clamp(m.cursor-1, imageSlots)
	case "right", "l":
		m.cursor = clamp(m.cursor+1, imageSlots)
	case "g", "enter":
		return m.generateBatch()
	case "r":
		return m.regenerateSlot(m.cursor)
	case "d":
		return m.downloadSlot(m.cursor)
	case "a":
		return m.downloadAll()
	}
	return nil
}

func (m *ImageModel) generateBatch() tea.Cmd {
	if m.busy {
		return nil
	}
	if err := m.deps.StylePolicy.Validate(strings.TrimSpace(m.style.Value())); err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	m.status = ""
	m.busy = true
	m.prev = m.slots
	for i := range m.slots {
		m.slots[i] = session.Generating()
	}
	logging.Wizard("batch generation started for selection %s", m.sel.SelectedOption)
	return tea.Batch(m.spin.Tick, generateBatchCmd(m.deps, m.prompt()))
}

func (m *ImageModel) regenerateSlot(index int) tea.Cmd {
	if m.busy || m.slots[index].Phase == session.CandidateGenerating {
		return nil
	}
	if err := m.deps.StylePolicy.Validate(strings.TrimSpace(m.style.Value())); err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	m.slots[index] = session.Generating()
	return tea.Batch(m.spin.Tick, regenerateSlotCmd(m.deps, m.prompt(), index))
}

func (m *ImageModel) downloadSlot(index int) tea.Cmd {
	slot := m.slots[index]
	if slot.Phase != session.CandidateReady {
		m.err = fmt.Errorf("슬롯 %d에는 저장할 이미지가 없습니다", index+1)
		return nil
	}
	m.err = nil
	m.busy = true
	return downloadSlotCmd(m.deps, slot.ImageRef, index)
}

func (m *ImageModel) downloadAll() tea.Cmd {
	refs := make([]string, imageSlots)
	any := false
	for i, slot := range m.slots {
		if slot.Phase == session.CandidateReady {
			refs[i] = slot.ImageRef
			any = true
		}
	}
	if !any {
		m.err = fmt.Errorf("저장할 이미지가 없습니다")
		return nil
	}
	m.err = nil
	m.busy = true
	return downloadAllCmd(m.deps, refs)
}

func (m *ImageModel) view(width int) string {
	s := m.deps.Styles
	if m.sel.MarketingText == "" {
		msg := "선택된 문구가 없습니다"
		if m.err != nil {
			msg = m.err.Error()
		}
		return s.Error.Render("⚠ " + msg)
	}

	var b strings.Builder
	b.WriteString(s.Title.Render("이미지 생성"))
	b.WriteString("\n")
	b.WriteString(s.Subtitle.Render("선택한 문구로 광고 이미지를 생성합니다"))
	b.WriteString("\n\n")

	b.WriteString(s.Bold.Render("선택된 문구") + " " + s.Badge.Render(string(m.sel.SelectedOption)) + "\n")
	b.WriteString(s.Body.Render(m.sel.MarketingText) + "\n\n")

	b.WriteString(s.Muted.Render("스타일") + "  " + m.style.View() + "\n\n")

	for i, slot := range m.slots {
		b.WriteString(m.slotLine(i, slot) + "\n")
	}

	if m.generating() {
		b.WriteString("\n" + m.spin.View() + s.Info.Render(" 이미지 생성 중..."))
	}
	if m.status != "" {
		b.WriteString("\n" + s.Success.Render(m.status))
	}
	if m.err != nil {
		b.WriteString("\n" + s.Error.Render("⚠ "+m.err.Error()))
	}
	b.WriteString("\n" + s.Muted.Render("g: 3개 생성  r: 슬롯 재생성  d: 저장  a: 모두 저장  s: 스타일 입력"))
	return b.String()
}

func (m *ImageModel) slotLine(index int, slot session.CandidateState) string {
	s := m.deps.Styles
	cursor := "  "
	if index == m.cursor {
		cursor = s.Cursor.Render("▸ ")
	}
	label := fmt.Sprintf("이미지 %d", index+1)
	switch slot.Phase {
	case session.CandidateGenerating:
		return cursor + s.Info.Render(label+": 생성 중...")
	case session.CandidateReady:
		return cursor + s.Success.Render(label+": 준비됨 ✓")
	case session.CandidateFailed:
		return cursor + s.Error.Render(label+": 실패 ("+slot.Reason+")")
	}
	return cursor + s.Muted.Render(label+": 대기")
}

// describeDownloads summarizes results per fallback tier.
func describeDownloads(results []download.Result) string {
	var parts []string
	for _, r := range results {
		switch r.Method {
		case download.MethodFile:
			if r.Path != "" {
				parts = append(parts, "저장됨: "+r.Path)
			}
		case download.MethodClipboard:
			parts = append(parts, "클립보드에 복사됨")
		case download.MethodManual:
			parts = append(parts, "수동 복사 필요: "+truncateRef(r.Ref))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "  ")
}

func truncateRef(ref string) string {
	if len(ref) > 40 {
		return ref[:40] + "…"
	}
	return ref
}
