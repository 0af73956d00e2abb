package browser

import (
	"fmt"

	"github.com/chromedp/chromedp"
)

// Queries in this file are duck-typed on purpose: an absent or hidden
// element yields the zero value, never an error, so tests assert absence
// positively instead of catching failures.

// Text returns the trimmed inner text of the first match, or "".
func (s *Session) Text(sel string) string {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? (el.innerText || "").trim() : "";
	})()`, sel)
	var out string
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return ""
	}
	return out
}

// VisibleText returns the trimmed text of the first match only when the
// element is currently rendered; hidden elements count as absent.
func (s *Session) VisibleText(sel string) string {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return "";
		if (el.hidden || !(el.offsetWidth || el.offsetHeight || el.getClientRects().length)) return "";
		return (el.innerText || "").trim();
	})()`, sel)
	var out string
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return ""
	}
	return out
}

// TextAll returns the trimmed texts of every match.
func (s *Session) TextAll(sel string) []string {
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(el => (el.innerText || "").trim())`, sel)
	var out []string
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return nil
	}
	return out
}

// Attr returns the named attribute of the first match, or "" when the
// element or the attribute is absent.
func (s *Session) Attr(sel, name string) string {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? (el.getAttribute(%q) || "") : "";
	})()`, sel, name)
	var out string
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return ""
	}
	return out
}

// AttrAll returns the named attribute of every match, absent attributes
// as "".
func (s *Session) AttrAll(sel, name string) []string {
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(el => el.getAttribute(%q) || "")`, sel, name)
	var out []string
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return nil
	}
	return out
}

// HasAttr reports whether the first match carries the attribute at all,
// regardless of its value. Distinguishes `hidden` from `hidden=""`.
func (s *Session) HasAttr(sel, name string) bool {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.hasAttribute(%q) : false;
	})()`, sel, name)
	var out bool
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return false
	}
	return out
}

// InputValue returns the current value of a form control, or "".
func (s *Session) InputValue(sel string) string {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? String(el.value ?? "") : "";
	})()`, sel)
	var out string
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return ""
	}
	return out
}

// Count returns the number of elements matching sel.
func (s *Session) Count(sel string) int {
	expr := fmt.Sprintf(`document.querySelectorAll(%q).length`, sel)
	var out int
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return 0
	}
	return out
}

// IsVisible reports whether the first match exists and is rendered.
func (s *Session) IsVisible(sel string) bool {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el || el.hidden) return false;
		return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	})()`, sel)
	var out bool
	if err := s.run(s.timeout, chromedp.Evaluate(expr, &out)); err != nil {
		return false
	}
	return out
}

// Title returns the document title, or "".
func (s *Session) Title() string {
	var out string
	if err := s.run(s.timeout, chromedp.Title(&out)); err != nil {
		return ""
	}
	return out
}

// Location returns the current page URL, or "".
func (s *Session) Location() string {
	var out string
	if err := s.run(s.timeout, chromedp.Location(&out)); err != nil {
		return ""
	}
	return out
}
