package agent

type (
	// Resolver finds page elements by a session's selector with a
	// fallback chain of selectors common across chat frontends
	Resolver struct {
		page Page
	}
)

// Fallback chains, tried in order after the session's own selector.
// The chains cover the usual suspects: plain inputs, rich-text
// editors, and framework-specific wrappers
var (
	inputFallbacks = []string{
		"textarea",
		`[contenteditable="true"]`,
		`input[type="text"]`,
		"p[data-placeholder]",
		".ProseMirror",
		`[role="textbox"]`,
	}

	submitFallbacks = []string{
		`button[type="submit"]`,
		`button[aria-label*="Send"]`,
		`button[aria-label*="send"]`,
		"form button:last-of-type",
	}

	copyFallbacks = []string{
		`button[aria-label*="Copy"]`,
		`button[aria-label*="copy"]`,
		`[data-testid*="copy"]`,
		".copy-button",
		".copyButton",
		`button[title*="Copy"]`,
		`[class*="copy"]`,
	}

	resultFallbacks = []string{
		".markdown",
		".message-content",
		".response",
		`[data-message-author-role="assistant"]`,
		".prose",
		`[class*="message"]`,
	}
)

// NewResolver creates a resolver over the given page
func NewResolver(page Page) *Resolver {
	return &Resolver{page: page}
}

// Input finds the prompt input element
func (r *Resolver) Input(selector string) (Element, bool) {
	return r.first(selector, inputFallbacks)
}

// Submit finds the submit control
func (r *Resolver) Submit(selector string) (Element, bool) {
	return r.first(selector, submitFallbacks)
}

// Copy finds the reply's copy control
func (r *Resolver) Copy(selector string) (Element, bool) {
	return r.first(selector, copyFallbacks)
}

// Result finds the reply container. The LAST match wins: chat pages
// append messages, so the last one is the current reply
func (r *Resolver) Result(selector string) (Element, bool) {
	for _, sel := range chain(selector, resultFallbacks) {
		if matches := r.page.QueryAll(sel); len(matches) > 0 {
			return matches[len(matches)-1], true
		}
	}
	return nil, false
}

// first walks a selector chain and returns the first element found
func (r *Resolver) first(
	selector string, fallbacks []string,
) (Element, bool) {
	for _, sel := range chain(selector, fallbacks) {
		if el, ok := r.page.Query(sel); ok {
			return el, true
		}
	}
	return nil, false
}

func chain(selector string, fallbacks []string) []string {
	if selector == "" {
		return fallbacks
	}
	return append([]string{selector}, fallbacks...)
}
