package notion

import (
	"unicode/utf8"

	"github.com/jomei/notionapi"
)

// maxTextRunes is the Notion limit for a single rich text object.
const maxTextRunes = 2000

// Title builds a title property.
func Title(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: richText(s),
	}
}

// Text builds a rich_text property, truncated to the Notion limit.
func Text(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: richText(s),
	}
}

// URL builds a url property.
func URL(s string) notionapi.URLProperty {
	return notionapi.URLProperty{
		Type: notionapi.PropertyTypeURL,
		URL:  s,
	}
}

// Number builds a number property.
func Number(n float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{
		Type:   notionapi.PropertyTypeNumber,
		Number: n,
	}
}

func richText(s string) []notionapi.RichText {
	if utf8.RuneCountInString(s) > maxTextRunes {
		s = string([]rune(s)[:maxTextRunes])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// PlainText reads the text of a title, rich_text or url property from a
// fetched page. Missing or other property types yield "".
func PlainText(p notionapi.Page, name string) string {
	switch prop := p.Properties[name].(type) {
	case *notionapi.TitleProperty:
		return joinPlain(prop.Title)
	case *notionapi.RichTextProperty:
		return joinPlain(prop.RichText)
	case *notionapi.URLProperty:
		return prop.URL
	default:
		return ""
	}
}

func joinPlain(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		s += rt.PlainText
	}
	return s
}
