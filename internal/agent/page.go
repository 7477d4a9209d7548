// Package agent drives a target page through a handoff session: fill
// the prompt, submit it, wait for the reply, capture it, and report
// the result back to the broker.
package agent

import "errors"

type (
	// ElementKind describes how an element accepts text
	ElementKind string

	// Element is one matched page element
	Element interface {
		// Kind reports how the element accepts input
		Kind() ElementKind

		// SetValue writes text into the element using the page's
		// native value setter, so framework-managed inputs observe
		// the change
		SetValue(text string) error

		// DispatchInput fires the input event after a value change
		DispatchInput() error

		// Click activates the element
		Click() error

		// Text returns the element's visible text
		Text() (string, error)
	}

	// Page is the DOM surface the agent drives. Implementations wrap a
	// real browser page or a test double
	Page interface {
		// Query returns the first element matching the selector
		Query(selector string) (Element, bool)

		// QueryAll returns every element matching the selector in
		// document order
		QueryAll(selector string) []Element
	}
)

const (
	ElementInput    ElementKind = "input"
	ElementTextarea ElementKind = "textarea"
	ElementEditable ElementKind = "contenteditable"
	ElementOther    ElementKind = "other"
)

var (
	ErrNoInputFound  = errors.New("no input element found")
	ErrNoSubmitFound = errors.New("no submit element found")
	ErrNoResultFound = errors.New("no result element found")
)
