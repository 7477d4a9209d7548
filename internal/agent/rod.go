package agent

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type (
	// Browser wraps a rod browser for headless workflow runs
	Browser struct {
		browser  *rod.Browser
		launcher *launcher.Launcher
	}

	rodPage struct {
		page *rod.Page
	}

	rodElement struct {
		el *rod.Element
	}
)

// setValueJS assigns through the prototype's native value setter so
// framework-managed inputs (React and friends) observe the change
const setValueJS = `(text) => {
	if (this.isContentEditable) {
		this.textContent = text;
		return;
	}
	const proto = Object.getPrototypeOf(this);
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) {
		desc.set.call(this, text);
	} else {
		this.value = text;
	}
}`

const dispatchInputJS = `() => {
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`

const elementKindJS = `() => {
	if (this.isContentEditable) return 'contenteditable';
	const tag = this.tagName.toLowerCase();
	if (tag === 'textarea') return 'textarea';
	if (tag === 'input') return 'input';
	return 'other';
}`

// Launch starts a browser for driving target pages
func Launch(ctx context.Context, headless bool) (*Browser, error) {
	l := launcher.New().Headless(headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("browser connect failed: %w", err)
	}
	return &Browser{browser: browser, launcher: l}, nil
}

// OpenPage navigates a new page to the URL and waits for it to load
func (b *Browser) OpenPage(url string) (Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("page open failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page load failed: %w", err)
	}
	return &rodPage{page: page}, nil
}

// Close shuts the browser down
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

func (p *rodPage) Query(selector string) (Element, bool) {
	el, err := p.page.Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil, false
	}
	return &rodElement{el: el}, true
}

func (p *rodPage) QueryAll(selector string) []Element {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil
	}
	res := make([]Element, len(els))
	for i, el := range els {
		res[i] = &rodElement{el: el}
	}
	return res
}

func (e *rodElement) Kind() ElementKind {
	obj, err := e.el.Eval(elementKindJS)
	if err != nil {
		return ElementOther
	}
	return ElementKind(obj.Value.Str())
}

func (e *rodElement) SetValue(text string) error {
	_, err := e.el.Eval(setValueJS, text)
	return err
}

func (e *rodElement) DispatchInput() error {
	_, err := e.el.Eval(dispatchInputJS)
	return err
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}
