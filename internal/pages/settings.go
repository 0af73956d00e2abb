package pages

import (
	"fmt"

	"github.com/onwatch/e2e/internal/browser"
)

// SMTPConfig carries the fields of the settings SMTP form. Zero-valued
// fields are left untouched so partial edits stay expressible.
type SMTPConfig struct {
	Host        string
	Port        string
	Protocol    string
	Username    string
	Password    string
	FromAddress string
	FromName    string
	To          string
}

// Settings wraps the /settings screen. Its landmark is the settings
// page container.
type Settings struct {
	b    *browser.Session
	base string
}

// NewSettings binds a settings page object to a live browser session.
func NewSettings(b *browser.Session, baseURL string) *Settings {
	return &Settings{b: b, base: baseURL}
}

// Goto navigates to /settings and waits for the page container.
func (p *Settings) Goto() error {
	return p.b.Navigate(p.base+"/settings", ".settings-page", browser.DefaultTimeout)
}

// SelectTab clicks the settings tab with the given data-tab value and
// waits for its panel to unhide.
func (p *Settings) SelectTab(tab string) error {
	sel := fmt.Sprintf(`.settings-tab[data-tab=%q]`, tab)
	if err := p.b.Click(sel); err != nil {
		return err
	}
	return p.b.WaitFor(fmt.Sprintf("#panel-%s:not([hidden])", tab), modalTimeout)
}

// ActiveTab returns the data-tab of the active settings tab, or "".
func (p *Settings) ActiveTab() string {
	return p.b.Attr(".settings-tab.active", "data-tab")
}

// TabNames returns the visible labels of all settings tabs.
func (p *Settings) TabNames() []string {
	return p.b.TextAll(".settings-tab")
}

// ConfigureSMTP fills the non-empty fields of cfg into the SMTP form.
func (p *Settings) ConfigureSMTP(cfg SMTPConfig) error {
	fields := []struct {
		sel   string
		value string
	}{
		{"#smtp-host", cfg.Host},
		{"#smtp-port", cfg.Port},
		{"#smtp-username", cfg.Username},
		{"#smtp-password", cfg.Password},
		{"#smtp-from-address", cfg.FromAddress},
		{"#smtp-from-name", cfg.FromName},
		{"#smtp-to", cfg.To},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := p.b.Fill(f.sel, f.value); err != nil {
			return err
		}
	}
	if cfg.Protocol != "" {
		return p.b.SelectOption("#smtp-protocol", cfg.Protocol)
	}
	return nil
}

// SendTestEmail clicks the test email button.
func (p *Settings) SendTestEmail() error {
	return p.b.Click("#smtp-test-btn")
}

// TestEmailResult returns the test email result text, or "".
func (p *Settings) TestEmailResult() string {
	return p.b.Text("#smtp-test-result")
}

// SetWarningThreshold fills the warning threshold number input and fires
// its input event so the paired slider syncs.
func (p *Settings) SetWarningThreshold(value int) error {
	if err := p.b.Fill("#threshold-warning", fmt.Sprintf("%d", value)); err != nil {
		return err
	}
	return p.b.DispatchInput("#threshold-warning")
}

// SetCriticalThreshold fills the critical threshold number input and
// fires its input event.
func (p *Settings) SetCriticalThreshold(value int) error {
	if err := p.b.Fill("#threshold-critical", fmt.Sprintf("%d", value)); err != nil {
		return err
	}
	return p.b.DispatchInput("#threshold-critical")
}

// WarningSliderValue returns the warning slider's current value.
func (p *Settings) WarningSliderValue() string {
	return p.b.InputValue("#threshold-warning-slider")
}

// CriticalSliderValue returns the critical slider's current value.
func (p *Settings) CriticalSliderValue() string {
	return p.b.InputValue("#threshold-critical-slider")
}

// WarningInputValue returns the warning number input's current value.
func (p *Settings) WarningInputValue() string {
	return p.b.InputValue("#threshold-warning")
}

// CriticalInputValue returns the critical number input's current value.
func (p *Settings) CriticalInputValue() string {
	return p.b.InputValue("#threshold-critical")
}

// ProviderTogglesVisible reports whether the provider toggles section is
// rendered.
func (p *Settings) ProviderTogglesVisible() bool {
	return p.b.IsVisible("#provider-toggles")
}

// TimezoneValue returns the timezone selector's current value.
func (p *Settings) TimezoneValue() string {
	return p.b.InputValue("#settings-timezone")
}

// Save clicks the global save button.
func (p *Settings) Save() error {
	return p.b.Click("#settings-save-btn")
}

// Feedback returns the visible settings feedback text, or "".
func (p *Settings) Feedback() string {
	return p.b.VisibleText("#settings-feedback")
}

// HasFeedbackRegion reports whether the feedback element exists at all.
func (p *Settings) HasFeedbackRegion() bool {
	return p.b.Count("#settings-feedback") > 0
}

// PanelVisible reports whether the named settings panel is shown.
func (p *Settings) PanelVisible(panel string) bool {
	sel := fmt.Sprintf("#panel-%s", panel)
	return p.b.Count(sel) > 0 && p.b.IsVisible(sel)
}
