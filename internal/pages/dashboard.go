package pages

import (
	"fmt"
	"time"

	"github.com/onwatch/e2e/internal/browser"
)

// modalTimeout bounds modal open/close transitions, which are plain DOM
// attribute flips and settle much faster than navigations.
const modalTimeout = 5 * time.Second

// Dashboard wraps the main dashboard (/) screen. Its landmark is the
// application header.
type Dashboard struct {
	b    *browser.Session
	base string
}

// NewDashboard binds a dashboard page object to a live browser session.
func NewDashboard(b *browser.Session, baseURL string) *Dashboard {
	return &Dashboard{b: b, base: baseURL}
}

// Goto navigates to the dashboard and waits for the app header.
func (p *Dashboard) Goto() error {
	return p.b.Navigate(p.base+"/", ".app-header", browser.DefaultTimeout)
}

// SelectProvider clicks the provider tab with the given visible label
// and waits for the view to carry the activated tab, so the caller's
// next query never races the tab switch.
func (p *Dashboard) SelectProvider(label string) error {
	if err := p.b.ClickText(".provider-tab", label); err != nil {
		return err
	}
	return p.b.WaitFor(".provider-tab.active", modalTimeout)
}

// ActiveProvider returns the data-provider attribute of the active tab,
// or "" before any dashboard content loads.
func (p *Dashboard) ActiveProvider() string {
	return p.b.Attr(".provider-tab.active", "data-provider")
}

// ProviderTabs returns the visible labels of all provider tabs.
func (p *Dashboard) ProviderTabs() []string {
	return p.b.TextAll(".provider-tab")
}

// QuotaCards returns the data-quota attributes of the rendered cards.
func (p *Dashboard) QuotaCards() []string {
	return p.b.AttrAll("article.quota-card", "data-quota")
}

// CardStatus returns the data-status of the named card's badge, or "".
func (p *Dashboard) CardStatus(quota string) string {
	sel := fmt.Sprintf(`article.quota-card[data-quota=%q] .status-badge`, quota)
	return p.b.Attr(sel, "data-status")
}

// CardPercent returns the percentage text shown on the named card.
func (p *Dashboard) CardPercent(quota string) string {
	sel := fmt.Sprintf(`article.quota-card[data-quota=%q] .usage-percent`, quota)
	return p.b.Text(sel)
}

// OpenCardModal clicks the named quota card and waits for the detail
// modal to lose its hidden attribute.
func (p *Dashboard) OpenCardModal(quota string) error {
	sel := fmt.Sprintf(`article.quota-card[data-quota=%q]`, quota)
	if err := p.b.Click(sel); err != nil {
		return err
	}
	return p.b.WaitFor("#detail-modal:not([hidden])", modalTimeout)
}

// CloseModal dismisses the detail modal via its explicit close control.
func (p *Dashboard) CloseModal() error {
	if err := p.b.Click("#modal-close"); err != nil {
		return err
	}
	return p.b.WaitFor("#detail-modal[hidden]", modalTimeout)
}

// CloseModalByEscape dismisses the detail modal with the Escape key.
func (p *Dashboard) CloseModalByEscape() error {
	if err := p.b.PressEscape(); err != nil {
		return err
	}
	return p.b.WaitFor("#detail-modal[hidden]", modalTimeout)
}

// CloseModalByOverlay dismisses the detail modal by clicking the overlay
// background just inside its top-left corner, outside the content box.
func (p *Dashboard) CloseModalByOverlay() error {
	if err := p.b.ClickAt("#detail-modal", 10, 10); err != nil {
		return err
	}
	return p.b.WaitFor("#detail-modal[hidden]", modalTimeout)
}

// ModalVisible reports whether the detail modal is currently shown.
func (p *Dashboard) ModalVisible() bool {
	return p.b.Count("#detail-modal") > 0 && !p.b.HasAttr("#detail-modal", "hidden")
}

// ModalTitle returns the detail modal's title text.
func (p *Dashboard) ModalTitle() string {
	return p.b.Text("#modal-title")
}

// ModalBodyText returns the detail modal's body text.
func (p *Dashboard) ModalBodyText() string {
	return p.b.Text("#modal-body")
}

// ModalHasChart reports whether the modal body rendered a chart canvas
// or chart container.
func (p *Dashboard) ModalHasChart() bool {
	return p.b.Count("#modal-body canvas") > 0 ||
		p.b.Count("#modal-body .modal-chart") > 0 ||
		p.b.Count("#modal-body .chart-container") > 0
}

// ToggleTheme clicks the theme toggle.
func (p *Dashboard) ToggleTheme() error {
	return p.b.Click("#theme-toggle")
}

// CurrentTheme returns the html element's data-theme attribute.
func (p *Dashboard) CurrentTheme() string {
	return p.b.Attr("html", "data-theme")
}

// ClickRefresh clicks the manual refresh button.
func (p *Dashboard) ClickRefresh() error {
	return p.b.Click("#refresh-btn")
}

// LastUpdated returns the last-updated indicator text.
func (p *Dashboard) LastUpdated() string {
	return p.b.Text("#last-updated")
}

// SelectChartRange clicks the chart range button with the given
// data-range value.
func (p *Dashboard) SelectChartRange(rng string) error {
	sel := fmt.Sprintf(`.chart-section .range-selector .range-btn[data-range=%q]`, rng)
	return p.b.Click(sel)
}

// ActiveChartRange returns the data-range of the active range button.
func (p *Dashboard) ActiveChartRange() string {
	return p.b.Attr(".chart-section .range-selector .range-btn.active", "data-range")
}

// ChartVisible reports whether the usage chart canvas is rendered.
func (p *Dashboard) ChartVisible() bool {
	return p.b.IsVisible("#usage-chart")
}

// ScrollToSection scrolls a page section into view by its class name.
func (p *Dashboard) ScrollToSection(sectionClass string) error {
	return p.b.ScrollIntoView("." + sectionClass)
}

// VersionText returns the footer brand/version text.
func (p *Dashboard) VersionText() string {
	return p.b.Text(".footer-brand")
}

// HasSettingsLink reports whether the settings button is present.
func (p *Dashboard) HasSettingsLink() bool {
	return p.b.IsVisible("#settings-btn")
}

// CyclesTableRows returns the row count of the cycles table body.
func (p *Dashboard) CyclesTableRows() int {
	return p.b.Count("#cycles-tbody tr")
}

// SessionsTableRows returns the row count of the sessions table body.
func (p *Dashboard) SessionsTableRows() int {
	return p.b.Count("#sessions-tbody tr")
}

// ProgressBars returns the number of progress bars across rendered
// cards.
func (p *Dashboard) ProgressBars() int {
	return p.b.Count("article.quota-card .progress-fill")
}

// Countdowns returns the number of countdown timers across rendered
// cards.
func (p *Dashboard) Countdowns() int {
	return p.b.Count("article.quota-card .countdown")
}

// QuotaGridProvider returns the data-provider attribute of the named
// provider's quota grid container, or "" when the grid is absent.
func (p *Dashboard) QuotaGridProvider(provider string) string {
	return p.b.Attr("#quota-grid-"+provider, "data-provider")
}

// HasChartRange reports whether the range button for rng is rendered.
func (p *Dashboard) HasChartRange(rng string) bool {
	return p.b.Count(fmt.Sprintf(`.range-btn[data-range=%q]`, rng)) > 0
}

// CyclesSectionVisible reports whether the cycles section and its table
// are rendered.
func (p *Dashboard) CyclesSectionVisible() bool {
	return p.b.IsVisible(".cycles-section") && p.b.IsVisible("#cycles-table")
}

// CyclesSortKeys returns the data-sort-key attributes of the cycles
// table column headers.
func (p *Dashboard) CyclesSortKeys() []string {
	return p.b.AttrAll("#cycles-table thead th[data-sort-key]", "data-sort-key")
}

// CyclesPaginationVisible reports whether the cycles pagination info
// and page-size selector are rendered.
func (p *Dashboard) CyclesPaginationVisible() bool {
	return p.b.IsVisible("#cycles-info") && p.b.IsVisible("#cycles-page-size")
}

// SessionsSectionVisible reports whether the sessions section and its
// table are rendered.
func (p *Dashboard) SessionsSectionVisible() bool {
	return p.b.IsVisible(".sessions-section") && p.b.IsVisible("#sessions-table")
}

// CycleOverviewVisible reports whether the cycle overview section is
// rendered with its table and page-size control.
func (p *Dashboard) CycleOverviewVisible() bool {
	return p.b.IsVisible(".cycle-overview-section") &&
		p.b.IsVisible("#overview-table") &&
		p.b.IsVisible("#overview-page-size")
}

// MainContentVisible reports whether the main content area is rendered.
func (p *Dashboard) MainContentVisible() bool {
	return p.b.IsVisible(".main-content")
}

// FooterVisible reports whether the page footer is rendered.
func (p *Dashboard) FooterVisible() bool {
	return p.b.IsVisible(".app-footer")
}

// OpenPasswordModal opens the password change modal.
func (p *Dashboard) OpenPasswordModal() error {
	if err := p.b.Click("#change-password-btn"); err != nil {
		return err
	}
	return p.b.WaitFor("#password-modal:not([hidden])", modalTimeout)
}

// ClosePasswordModal closes the password change modal.
func (p *Dashboard) ClosePasswordModal() error {
	return p.b.Click("#password-modal-close")
}

// ChangePassword fills and submits the password change form.
func (p *Dashboard) ChangePassword(current, newPass, confirm string) error {
	if err := p.b.Fill("#current-password", current); err != nil {
		return err
	}
	if err := p.b.Fill("#new-password", newPass); err != nil {
		return err
	}
	if err := p.b.Fill("#confirm-password", confirm); err != nil {
		return err
	}
	return p.b.Click("#password-submit-btn")
}

// SubmitPasswordForm clicks the password submit button on its own, for
// callers that filled the fields directly.
func (p *Dashboard) SubmitPasswordForm() error {
	return p.b.Click("#password-submit-btn")
}

// FillPasswordForm fills the password change fields without submitting.
func (p *Dashboard) FillPasswordForm(current, newPass, confirm string) error {
	if err := p.b.Fill("#current-password", current); err != nil {
		return err
	}
	if err := p.b.Fill("#new-password", newPass); err != nil {
		return err
	}
	return p.b.Fill("#confirm-password", confirm)
}

// PasswordError returns the visible password error text, or "".
func (p *Dashboard) PasswordError() string {
	return p.b.VisibleText("#password-error")
}

// PasswordSuccess returns the visible password success text, or "".
func (p *Dashboard) PasswordSuccess() string {
	return p.b.VisibleText("#password-success")
}
