package linktree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/0dayMonkey/linktree-backend/internal/notion"
)

// FieldKind selects how a logical field maps onto the store's property
// schema.
type FieldKind int

const (
	// FieldTitle writes chunked text into a title property.
	FieldTitle FieldKind = iota
	// FieldText writes chunked text into a rich_text property.
	FieldText
	// FieldURL writes a url property, clearing it when empty.
	FieldURL
	// FieldSelect writes a single-choice property, clearing it when empty.
	FieldSelect
	// FieldNumber writes a number property.
	FieldNumber
	// FieldImage validates the value as an image reference before writing it
	// as chunked text. Rejected values clear the field.
	FieldImage
)

type IdentityKind int

const (
	IdentityNumber IdentityKind = iota
	IdentityText
)

// FieldSpec maps one logical field onto a named store property. Parts > 1
// partitions the value across companion properties named
// "<Property>_comp1", "<Property>_comp2", ... in addition to Property.
type FieldSpec struct {
	Property string
	Kind     FieldKind
	Parts    int
}

// ContainerSpec is the compile-time property schema of one container.
type ContainerSpec struct {
	Name             string
	IdentityProperty string
	IdentityKind     IdentityKind
	Fields           []FieldSpec
}

var (
	SocialsContainer = ContainerSpec{
		Name:             "socials",
		IdentityProperty: "id",
		IdentityKind:     IdentityNumber,
		Fields: []FieldSpec{
			{Property: "Network", Kind: FieldTitle},
			{Property: "URL", Kind: FieldURL},
		},
	}

	LinksContainer = ContainerSpec{
		Name:             "links",
		IdentityProperty: "id",
		IdentityKind:     IdentityNumber,
		Fields: []FieldSpec{
			{Property: "Title", Kind: FieldTitle},
			{Property: "Type", Kind: FieldSelect},
			{Property: "URL", Kind: FieldURL},
			{Property: "Thumbnail", Kind: FieldImage, Parts: defaultSplitParts},
		},
	}

	TracksContainer = ContainerSpec{
		Name:             "tracks",
		IdentityProperty: "track_id",
		IdentityKind:     IdentityText,
		Fields: []FieldSpec{
			{Property: "Title", Kind: FieldTitle},
			{Property: "Artist", Kind: FieldText},
			{Property: "Album Art", Kind: FieldImage, Parts: defaultSplitParts},
			{Property: "Source URL", Kind: FieldURL},
		},
	}
)

// BuildProperties maps an item's fields onto the container's property schema
// and stamps its 0-based position. Every schema field is written, so a field
// the item leaves empty clears its properties instead of keeping stale data.
func BuildProperties(spec ContainerSpec, item Item, order int) map[string]any {
	fields := item.Fields()
	props := map[string]any{
		"Order": notion.NumberValue(float64(order)),
	}
	switch spec.IdentityKind {
	case IdentityNumber:
		n, _ := strconv.ParseFloat(item.Identity(), 64)
		props[spec.IdentityProperty] = notion.NumberValue(n)
	default:
		props[spec.IdentityProperty] = notion.RichTextValue(ChunkText(item.Identity(), chunkLimit))
	}
	for _, field := range spec.Fields {
		writeField(props, field, fields[field.Property])
	}
	return props
}

func writeField(props map[string]any, field FieldSpec, raw any) {
	switch field.Kind {
	case FieldTitle:
		props[field.Property] = notion.TitleValue(ChunkText(toString(raw), chunkLimit))
	case FieldText:
		writeSplitText(props, field, toString(raw))
	case FieldURL:
		props[field.Property] = notion.URLValue(toString(raw))
	case FieldSelect:
		props[field.Property] = notion.SelectValue(toString(raw))
	case FieldNumber:
		props[field.Property] = notion.NumberValue(toNumber(raw))
	case FieldImage:
		writeSplitText(props, field, ImageValue(toString(raw)))
	}
}

// writeSplitText writes value across the primary property and its
// companions. Companions are always written, even for an empty value, so a
// cleared field cannot leave segments from a previous sync behind.
func writeSplitText(props map[string]any, field FieldSpec, value string) {
	if field.Parts <= 1 {
		props[field.Property] = notion.RichTextValue(ChunkText(value, chunkLimit))
		return
	}
	for i, segment := range SplitParts(value, field.Parts) {
		name := field.Property
		if i > 0 {
			name = fmt.Sprintf("%s_comp%d", field.Property, i)
		}
		props[name] = notion.RichTextValue(ChunkText(segment, chunkLimit))
	}
}

// IdentityOf returns a record's identity key under the container schema,
// normalized to a string so numeric keys match regardless of representation.
// Records without a usable key return "".
func IdentityOf(spec ContainerSpec, page notion.Page) string {
	switch spec.IdentityKind {
	case IdentityNumber:
		prop, ok := page.Properties[spec.IdentityProperty]
		if !ok || prop.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*prop.Number, 'f', -1, 64)
	default:
		return TextOf(page, spec.IdentityProperty)
	}
}

// TextOf reconstructs a text or title property by concatenating its segments
// in store-returned order. Missing or empty properties yield "".
func TextOf(page notion.Page, property string) string {
	prop, ok := page.Properties[property]
	if !ok {
		return ""
	}
	segments := prop.RichText
	if len(segments) == 0 {
		segments = prop.Title
	}
	var b strings.Builder
	for _, segment := range segments {
		if segment.PlainText != "" {
			b.WriteString(segment.PlainText)
			continue
		}
		if segment.Text != nil {
			b.WriteString(segment.Text.Content)
		}
	}
	return b.String()
}

// URLOf returns a url property's value, or "" when absent or null.
func URLOf(page notion.Page, property string) string {
	prop, ok := page.Properties[property]
	if !ok || prop.URL == nil {
		return ""
	}
	return *prop.URL
}

// SelectOf returns a single-choice property's selected name, or "" when no
// choice is set.
func SelectOf(page notion.Page, property string) string {
	prop, ok := page.Properties[property]
	if !ok || prop.Select == nil {
		return ""
	}
	return prop.Select.Name
}

// NumberOf returns a number property's value, or 0 when absent.
func NumberOf(page notion.Page, property string) float64 {
	prop, ok := page.Properties[property]
	if !ok || prop.Number == nil {
		return 0
	}
	return *prop.Number
}

func toString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func toNumber(v any) float64 {
	switch typed := v.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		n, _ := strconv.ParseFloat(typed, 64)
		return n
	default:
		return 0
	}
}
