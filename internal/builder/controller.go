package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapviz/pkg/core"
)

// Controller is the two-state query mode switch of a chart builder.
// It starts in natural-language mode. Touching any structured control
// switches to structured mode; asking a question switches back. Neither
// transition clears the other mode's inputs.
//
// A Controller is not safe for concurrent use; Builder guards its own.
type Controller struct {
	usingNaturalLanguage bool
	prompt               string
	preset               core.Preset
	selection            core.FieldSelection
}

// NewController returns a controller in natural-language mode with the
// default preset and an all-Auto selection.
func NewController() *Controller {
	return &Controller{
		usingNaturalLanguage: true,
		preset:               core.DefaultPreset,
	}
}

// UsingNaturalLanguage reports the current mode.
func (c *Controller) UsingNaturalLanguage() bool { return c.usingNaturalLanguage }

// Prompt returns the stored natural-language text.
func (c *Controller) Prompt() string { return c.prompt }

// Preset returns the selected preset.
func (c *Controller) Preset() core.Preset { return c.preset }

// Selection returns the stored structured selection.
func (c *Controller) Selection() core.FieldSelection { return c.selection }

// SetPrompt stores the natural-language text without changing mode.
func (c *Controller) SetPrompt(prompt string) {
	c.prompt = prompt
}

// Ask stores the prompt and forces natural-language mode.
func (c *Controller) Ask(prompt string) {
	c.prompt = prompt
	c.AskNaturalLanguage()
}

// AskNaturalLanguage forces natural-language mode, keeping the stored prompt.
func (c *Controller) AskNaturalLanguage() {
	c.usingNaturalLanguage = true
}

// UseStructured switches to structured mode.
func (c *Controller) UseStructured() {
	c.usingNaturalLanguage = false
}

// SelectPreset picks a preset and switches to structured mode.
func (c *Controller) SelectPreset(p core.Preset) error {
	if _, err := core.ParsePreset(string(p)); err != nil {
		return err
	}
	c.preset = p
	c.UseStructured()
	return nil
}

// SetSelection replaces the whole structured selection and switches to
// structured mode.
func (c *Controller) SetSelection(sel core.FieldSelection) {
	c.selection = sel
	c.UseStructured()
}

// SelectField sets one role from its user-facing value and switches to
// structured mode. "Auto" or an empty value unsets the role.
func (c *Controller) SelectField(role core.Role, value string) error {
	sel := c.selection
	switch role {
	case core.RoleX, core.RoleY, core.RoleCategory, core.RoleValue, core.RoleStage:
		if core.IsAuto(value) {
			value = ""
		}
		sel = sel.With(role, strings.TrimSpace(value))
	case core.RoleAgg:
		agg, err := core.ParseAggregation(value)
		if err != nil {
			return err
		}
		sel.Agg = agg
	case core.RoleTimeGrain:
		grain, err := core.ParseTimeGrain(value)
		if err != nil {
			return err
		}
		sel.TimeGrain = grain
	case core.RoleTopN:
		n, err := parseTopN(value)
		if err != nil {
			return err
		}
		sel.TopN = n
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	c.SetSelection(sel)
	return nil
}

func parseTopN(value string) (int, error) {
	if core.IsAuto(value) {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("top_n must be a positive integer, got %q", value)
	}
	return n, nil
}

// Mode returns the request the controller currently stands for. Exactly one
// variant is returned, so a dispatcher can never send both.
func (c *Controller) Mode() core.QueryMode {
	if c.usingNaturalLanguage {
		return core.NaturalLanguage{Prompt: c.prompt}
	}
	return core.Structured{Preset: c.preset, Selection: c.selection}
}
