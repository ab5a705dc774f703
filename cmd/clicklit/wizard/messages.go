package wizard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"clicklit/internal/download"
	"clicklit/internal/logging"
	"clicklit/internal/session"
)

// gotoStepMsg asks the root model to switch screens. Entry gating happens
// in the root, not in the sender.
type gotoStepMsg struct {
	step Step
}

func gotoStep(step Step) tea.Cmd {
	return func() tea.Msg { return gotoStepMsg{step: step} }
}

// predictResultMsg carries the outcome of the predict call.
type predictResultMsg struct {
	pred *session.Prediction
	err  error
}

// candidateImageMsg carries the outcome of the confirmed-choice generation.
// The choice rides along so the handler can commit or roll back against it.
type candidateImageMsg struct {
	choice session.Choice
	ref    string
	err    error
}

// slotImagesMsg carries a 3-image batch for the image screen.
type slotImagesMsg struct {
	refs []string
	err  error
}

// slotImageMsg carries a single regenerated image for one slot.
type slotImageMsg struct {
	index int
	ref   string
	err   error
}

// downloadResultMsg carries completed download attempts.
type downloadResultMsg struct {
	results []download.Result
	err     error
}

// predictCmd saves the payload first so the input survives a failed
// request, then submits it.
func predictCmd(deps Deps, prod session.Product) tea.Cmd {
	return func() tea.Msg {
		if err := deps.Session.SaveProduct(prod); err != nil {
			return predictResultMsg{err: err}
		}
		pred, err := deps.Client.Predict(context.Background(), prod)
		return predictResultMsg{pred: pred, err: err}
	}
}

// confirmCandidateCmd runs after the choice policy's Begin succeeded: it
// reports the pick to the backend (best effort) and generates the chosen
// candidate's image. Only the generation outcome decides commit/rollback.
func confirmCandidateCmd(deps Deps, c session.Choice) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := deps.Client.LogUserChoice(ctx, c.Result.LogID, c.Text); err != nil {
			logging.WizardWarn("user-choice log failed for %s: %v", c.Result.LogID, err)
		}
		ref, err := deps.Client.GenerateCandidateImage(ctx, c.Text, c.Product.Category, c.Target.AudienceLine())
		return candidateImageMsg{choice: c, ref: ref, err: err}
	}
}

// generateBatchCmd requests the image screen's 3-image batch.
func generateBatchCmd(deps Deps, prompt string) tea.Cmd {
	return func() tea.Msg {
		refs, err := deps.Client.GenerateImages(context.Background(), prompt, 3)
		return slotImagesMsg{refs: refs, err: err}
	}
}

// regenerateSlotCmd replaces one slot with a freshly generated image.
func regenerateSlotCmd(deps Deps, prompt string, index int) tea.Cmd {
	return func() tea.Msg {
		ref, err := deps.Client.RegenerateImage(context.Background(), prompt)
		return slotImageMsg{index: index, ref: ref, err: err}
	}
}

// downloadSlotCmd saves one slot's image.
func downloadSlotCmd(deps Deps, ref string, index int) tea.Cmd {
	return func() tea.Msg {
		res, err := deps.Saver.Save(context.Background(), ref, index)
		if err != nil {
			return downloadResultMsg{err: err}
		}
		return downloadResultMsg{results: []download.Result{res}}
	}
}

// downloadAllCmd saves every ready slot. refs holds one entry per slot,
// empty for slots with nothing to save.
func downloadAllCmd(deps Deps, refs []string) tea.Cmd {
	return func() tea.Msg {
		results, err := deps.Saver.SaveAll(context.Background(), refs)
		return downloadResultMsg{results: results, err: err}
	}
}
