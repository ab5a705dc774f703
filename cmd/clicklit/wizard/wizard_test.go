package wizard

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"clicklit/cmd/clicklit/ui"
	"clicklit/internal/api"
	"clicklit/internal/download"
	"clicklit/internal/session"
	"clicklit/internal/store"
)

// backend is a fake ClickLit server covering every endpoint the wizard hits.
type backend struct {
	failGenerate bool
	failBatch    bool
	choiceCalls  int
	lastChoice   map[string]string
}

func (b *backend) handler() http.HandlerFunc {
	dataURI := func(s string) string {
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(s))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/predict":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"log_id":        "log-test",
				"ctr_a":         0.051,
				"ctr_b":         0.034,
				"ctr_c":         0.060,
				"analysis_a":    "문구 A 분석",
				"analysis_b":    "문구 B 분석",
				"ai_suggestion": "AI 추천 문구",
			})
		case "/api/user-choice":
			b.choiceCalls++
			b.lastChoice = map[string]string{}
			json.NewDecoder(r.Body).Decode(&b.lastChoice)
			w.WriteHeader(http.StatusNoContent)
		case "/api/generate-image":
			if b.failGenerate {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"detail": "generation backend down"})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"image_url": dataURI("candidate")})
		case "/api/generate-images":
			if b.failBatch {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"detail": "batch backend down"})
				return
			}
			json.NewEncoder(w).Encode(map[string][]string{
				"images": {dataURI("img-1"), dataURI("img-2"), dataURI("img-3")},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestWizard(t *testing.T, b *backend, outDir string) Model {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	return New(Deps{
		Session:      session.New(store.NewMemory()),
		Client:       api.New(srv.URL, 5*time.Second),
		Saver:        download.NewSaver(outDir),
		ChoicePolicy: session.SingleChoiceLockPolicy{},
		StylePolicy:  session.OptionalStylePolicy{},
		Styles:       ui.NewStyles(ui.LightTheme()),
	})
}

// apply feeds messages through Update, executing returned commands inline
// so async flows resolve deterministically. Spinner ticks are dropped.
func apply(t *testing.T, m tea.Model, msgs ...tea.Msg) tea.Model {
	t.Helper()
	for _, msg := range msgs {
		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		m = exec(t, m, cmd)
	}
	return m
}

func exec(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = exec(t, m, c)
		}
		return m
	case spinner.TickMsg:
		return m
	default:
		var next tea.Cmd
		m, next = m.Update(msg)
		return exec(t, m, next)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// completeTarget walks the target screen via the persona shortcut.
func completeTarget(t *testing.T, m tea.Model) tea.Model {
	t.Helper()
	// ages -> genders -> interests -> personas
	m = apply(t, m, key("tab"), key("tab"), key("tab"), key("space"), key("enter"))
	return m
}

// completeProduct fills the product screen and submits the prediction.
func completeProduct(t *testing.T, m tea.Model) tea.Model {
	t.Helper()
	m = apply(t, m, key("space"), key("tab")) // pick category, focus copy A
	m = apply(t, m, key("첫번째 문구"), key("enter"))
	m = apply(t, m, key("두번째 문구"), key("enter"))
	return m
}

func TestWizardStartsAtTarget(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())
	view := m.View()
	if !strings.Contains(view, "타겟 설정") {
		t.Fatalf("expected target screen, got:\n%s", view)
	}
	if !strings.Contains(view, "페르소나") {
		t.Fatalf("expected persona section to be rendered")
	}
}

func TestDirectEntryShowsUpstreamError(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())

	// Jumping straight to the prediction step is allowed; the screen itself
	// shows its upstream-missing error instead of redirecting.
	next := apply(t, m, key("3"))
	if root := next.(Model); root.step != StepPrediction {
		t.Fatalf("expected prediction step, got %d", root.step)
	}
	if !strings.Contains(next.View(), session.ErrNoTarget.Error()) {
		t.Fatalf("expected upstream-missing error, got:\n%s", next.View())
	}

	// Same for the image step without a confirmed choice.
	next = apply(t, next, key("4"))
	if root := next.(Model); root.step != StepImage {
		t.Fatalf("expected image step, got %d", root.step)
	}
	if !strings.Contains(next.View(), session.ErrNoSelection.Error()) {
		t.Fatalf("expected missing-selection error, got:\n%s", next.View())
	}
}

func TestTargetPersonaShortcut(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())
	next := completeTarget(t, m)

	view := next.View()
	if !strings.Contains(view, "제품 정보") {
		t.Fatalf("expected product screen after persona submit, got:\n%s", view)
	}

	root := next.(Model)
	tgt, err := root.deps.Session.Target()
	if err != nil {
		t.Fatalf("target not stored: %v", err)
	}
	if tgt.Persona == nil || tgt.Persona.ID != "p1" {
		t.Fatalf("expected persona p1, got %+v", tgt.Persona)
	}
}

func TestTargetManualValidation(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())

	// Submitting with nothing selected fails with a validation message.
	next := apply(t, m, key("enter"))
	if !strings.Contains(next.View(), "페르소나를 선택하세요") {
		t.Fatalf("expected validation error, got:\n%s", next.View())
	}
}

func TestPredictionShowsBadgeAndCTRs(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())
	next := completeProduct(t, completeTarget(t, m))

	view := next.View()
	if !strings.Contains(view, "CTR 예측 결과") {
		t.Fatalf("expected prediction screen, got:\n%s", view)
	}
	// A has 5.1%% vs B 3.4%%: A carries the badge even though C is higher.
	if !strings.Contains(view, "최다 CTR 예측") {
		t.Fatalf("expected the highest-CTR badge")
	}
	if !strings.Contains(view, "5.10%") || !strings.Contains(view, "3.40%") {
		t.Fatalf("expected CTR percentages, got:\n%s", view)
	}
	if !strings.Contains(view, "AI 추천 문구") {
		t.Fatalf("expected the AI suggestion to be rendered")
	}
}

func TestChoiceLockAndGeneration(t *testing.T) {
	b := &backend{}
	m := newTestWizard(t, b, t.TempDir())
	next := completeProduct(t, completeTarget(t, m))

	// Confirm candidate A.
	next = apply(t, next, key("enter"))
	view := next.View()
	if !strings.Contains(view, "이미지 생성 완료") {
		t.Fatalf("expected generation success, got:\n%s", view)
	}
	if b.choiceCalls != 1 {
		t.Fatalf("expected one user-choice report, got %d", b.choiceCalls)
	}
	if b.lastChoice["log_id"] != "log-test" {
		t.Fatalf("unexpected choice payload: %v", b.lastChoice)
	}

	root := next.(Model)
	lock, held, err := root.deps.Session.LockState("log-test")
	if err != nil || !held {
		t.Fatalf("expected lock held, err=%v", err)
	}
	if lock.Option != session.OptionA {
		t.Fatalf("expected lock on A, got %s", lock.Option)
	}

	// The committed choice is in the history.
	sel, err := root.deps.Session.LatestSelection()
	if err != nil {
		t.Fatalf("selection missing: %v", err)
	}
	if sel.SelectedOption != session.OptionA {
		t.Fatalf("expected selection A, got %s", sel.SelectedOption)
	}
}

func TestChoiceRollbackOnGenerationFailure(t *testing.T) {
	b := &backend{failGenerate: true}
	m := newTestWizard(t, b, t.TempDir())
	next := completeProduct(t, completeTarget(t, m))

	next = apply(t, next, key("enter"))
	view := next.View()
	if !strings.Contains(view, "이미지 생성 실패") {
		t.Fatalf("expected generation failure, got:\n%s", view)
	}
	if !strings.Contains(view, "다시 선택할 수 있습니다") {
		t.Fatalf("expected retry hint after rollback")
	}

	root := next.(Model)
	_, held, err := root.deps.Session.LockState("log-test")
	if err != nil {
		t.Fatal(err)
	}
	if held {
		t.Fatal("expected lock released after rollback")
	}
	if _, err := root.deps.Session.LatestSelection(); err == nil {
		t.Fatal("expected no selection after rollback")
	}

	// The flow is choosable again: a retry succeeds end to end.
	b.failGenerate = false
	next = apply(t, next, key("enter"))
	if !strings.Contains(next.View(), "이미지 생성 완료") {
		t.Fatalf("expected retry to succeed, got:\n%s", next.View())
	}
}

func TestLockedCandidateStaysActionable(t *testing.T) {
	b := &backend{}
	m := newTestWizard(t, b, t.TempDir())
	next := completeProduct(t, completeTarget(t, m))

	// Confirm A, continue to the image screen, then come back.
	next = apply(t, next, key("enter"), key("enter"), key("esc"))
	view := next.View()
	if !strings.Contains(view, "CTR 예측 결과") {
		t.Fatalf("expected prediction screen, got:\n%s", view)
	}
	if !strings.Contains(view, "● 선택됨") {
		t.Fatalf("expected the held lock to be shown")
	}

	// Re-confirming the locked candidate proceeds to its image.
	next = apply(t, next, key("enter"))
	if root := next.(Model); root.step != StepImage {
		t.Fatalf("expected image step for the locked candidate, got %d", root.step)
	}
	if b.choiceCalls != 1 {
		t.Fatalf("expected no second user-choice report, got %d", b.choiceCalls)
	}

	// A different candidate still hits the lock.
	next = apply(t, next, key("esc"), key("j"), key("enter"))
	if !strings.Contains(next.View(), session.ErrChoiceLocked.Error()) {
		t.Fatalf("expected the lock error for another candidate, got:\n%s", next.View())
	}
}

func TestImageScreenBatchAndDownload(t *testing.T) {
	outDir := t.TempDir()
	m := newTestWizard(t, &backend{}, outDir)
	next := completeProduct(t, completeTarget(t, m))

	// Confirm A, then continue to the image screen.
	next = apply(t, next, key("enter"), key("enter"))
	view := next.View()
	if !strings.Contains(view, "이미지 생성") {
		t.Fatalf("expected image screen, got:\n%s", view)
	}
	if !strings.Contains(view, "첫번째 문구") {
		t.Fatalf("expected the selected copy to be shown")
	}

	// Generate the 3-image batch.
	next = apply(t, next, key("g"))
	view = next.View()
	if strings.Count(view, "준비됨") != 3 {
		t.Fatalf("expected 3 ready slots, got:\n%s", view)
	}

	// Download the first slot to disk.
	next = apply(t, next, key("d"))
	wantPath := filepath.Join(outDir, "generated-image-1.png")
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("expected downloaded file at %s: %v", wantPath, err)
	}
	if !strings.Contains(next.View(), "저장됨") {
		t.Fatalf("expected download status, got:\n%s", next.View())
	}

	// Download all remaining slots.
	next = apply(t, next, key("a"))
	for i := 1; i <= 3; i++ {
		p := filepath.Join(outDir, "generated-image-"+string(rune('0'+i))+".png")
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected file %s: %v", p, err)
		}
	}
}

func TestImageScreenInertWithoutSelection(t *testing.T) {
	// The model itself must stay off the network when nothing was chosen,
	// independent of the root's entry gating.
	deps := Deps{
		Session:      session.New(store.NewMemory()),
		Client:       api.New("http://127.0.0.1:1", time.Second),
		Saver:        download.NewSaver(t.TempDir()),
		ChoicePolicy: session.SingleChoiceLockPolicy{},
		StylePolicy:  session.OptionalStylePolicy{},
		Styles:       ui.NewStyles(ui.LightTheme()),
	}
	m := newImageModel(deps)
	m.mount()

	if cmd := m.update(key("g")); cmd != nil {
		t.Fatal("expected no command without a selection")
	}
	if !strings.Contains(m.view(80), session.ErrNoSelection.Error()) {
		t.Fatalf("expected the missing-selection error, got:\n%s", m.view(80))
	}
}

func TestBatchFailureKeepsPriorSlots(t *testing.T) {
	b := &backend{}
	m := newTestWizard(t, b, t.TempDir())
	next := completeProduct(t, completeTarget(t, m))
	next = apply(t, next, key("enter"), key("enter"), key("g"))
	if strings.Count(next.View(), "준비됨") != 3 {
		t.Fatalf("expected 3 ready slots before the failed batch")
	}

	// A failed second batch must leave the previous images in place. The
	// style edit changes the prompt, so the client cache cannot answer.
	b.failBatch = true
	next = apply(t, next, key("s"), key("수채화"), key("esc"), key("g"))
	view := next.View()
	if strings.Count(view, "준비됨") != 3 {
		t.Fatalf("expected prior slots kept after batch failure, got:\n%s", view)
	}
	if !strings.Contains(view, "batch backend down") {
		t.Fatalf("expected the batch error to surface, got:\n%s", view)
	}
}

func TestResetClearsFlow(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())
	next := completeProduct(t, completeTarget(t, m))

	next = apply(t, next, tea.KeyMsg{Type: tea.KeyCtrlR})
	view := next.View()
	if !strings.Contains(view, "타겟 설정") {
		t.Fatalf("expected target screen after reset, got:\n%s", view)
	}

	root := next.(Model)
	if _, err := root.deps.Session.Target(); err == nil {
		t.Fatal("expected target cleared after reset")
	}
}

func TestEscNavigatesBack(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())
	next := completeTarget(t, m)

	next = apply(t, next, key("esc"))
	if !strings.Contains(next.View(), "타겟 설정") {
		t.Fatalf("expected target screen after esc")
	}

	// State survives the round trip.
	next = apply(t, next, key("enter"))
	if !strings.Contains(next.View(), "제품 정보") {
		t.Fatalf("expected product screen again")
	}
}

func TestConfigReloadSwapsPolicies(t *testing.T) {
	m := newTestWizard(t, &backend{}, t.TempDir())

	next := apply(t, m, ConfigReloadedMsg{
		ChoicePolicy: session.AppendOnlyLogPolicy{},
		StylePolicy:  session.StrictStylePolicy{},
		Styles:       ui.NewStyles(ui.DarkTheme()),
	})

	root := next.(Model)
	if root.deps.ChoicePolicy.Name() != "append" {
		t.Fatalf("expected append policy after reload")
	}
	if root.prediction.deps.ChoicePolicy.Name() != "append" {
		t.Fatalf("expected screens to pick up the reloaded policy")
	}
	if root.image.deps.StylePolicy.Name() != "strict" {
		t.Fatalf("expected strict style policy after reload")
	}
}
