package testutil

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const loginPanelSelector = "section#login-panel"

// ParseHTML loads a rendered admin page or htmx fragment for goquery assertions.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// LoginPanel returns the single login panel in body, whether it holds the
// form or the signed-in confirmation.
func LoginPanel(t testing.TB, body []byte) *goquery.Selection {
	t.Helper()

	panel := ParseHTML(t, body).Find(loginPanelSelector)
	if n := panel.Length(); n != 1 {
		t.Fatalf("expected one %s, found %d", loginPanelSelector, n)
	}
	return panel
}

// MustAttr fails the test when sel has no attribute named name.
func MustAttr(t testing.TB, sel *goquery.Selection, name string) string {
	t.Helper()

	value, ok := sel.Attr(name)
	if !ok {
		t.Fatalf("attribute %q missing", name)
	}
	return value
}
