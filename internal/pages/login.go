// Package pages exposes the onWatch screens as semantic operations and
// queries, keeping raw selectors out of test logic. A page object holds
// nothing beyond its browser session handle and is re-created per test
// so no UI state (an open modal, a toggled field) leaks between
// scenarios.
package pages

import "github.com/onwatch/e2e/internal/browser"

// Login wraps the /login screen. Its landmark is the login card.
type Login struct {
	b    *browser.Session
	base string
}

// NewLogin binds a login page object to a live browser session.
func NewLogin(b *browser.Session, baseURL string) *Login {
	return &Login{b: b, base: baseURL}
}

// Goto navigates to /login and waits for the login card.
func (p *Login) Goto() error {
	return p.b.Navigate(p.base+"/login", ".login-card", browser.DefaultTimeout)
}

// Submit fills the credential fields and submits the form. It returns
// once the click is delivered; callers wait on the resulting landmark
// (dashboard header or error redirect) for the outcome.
func (p *Login) Submit(username, password string) error {
	if err := p.b.Fill("#username", username); err != nil {
		return err
	}
	if err := p.b.Fill("#password", password); err != nil {
		return err
	}
	return p.b.Click("button.login-button")
}

// ErrorMessage returns the visible login error text, or "".
func (p *Login) ErrorMessage() string {
	return p.b.Text(".error-message")
}

// TogglePasswordVisibility clicks the show/hide password control.
func (p *Login) TogglePasswordVisibility() error {
	return p.b.Click("button.toggle-password")
}

// PasswordInputType returns the password field's current type attribute
// ("password" or "text" after toggling).
func (p *Login) PasswordInputType() string {
	return p.b.Attr("#password", "type")
}

// IsVisible reports whether the login card is rendered.
func (p *Login) IsVisible() bool {
	return p.b.IsVisible(".login-card")
}

// Title returns the document title.
func (p *Login) Title() string {
	return p.b.Title()
}
