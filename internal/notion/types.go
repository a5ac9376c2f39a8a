package notion

// RichText is one segment of a rich text or title property. Query responses
// populate PlainText; write payloads populate Text.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
}

type SelectOption struct {
	Name string `json:"name"`
}

// Property is one typed property value on a queried page. The field matching
// Type is populated; the rest stay zero.
type Property struct {
	Type     string        `json:"type,omitempty"`
	Title    []RichText    `json:"title,omitempty"`
	RichText []RichText    `json:"rich_text,omitempty"`
	URL      *string       `json:"url,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
	Number   *float64      `json:"number,omitempty"`
}

// Page is one record in a Notion database.
type Page struct {
	ID         string              `json:"id"`
	Archived   bool                `json:"archived"`
	Properties map[string]Property `json:"properties"`
}

// TitleValue builds a title property payload from ordered text chunks. An
// empty chunk list clears the field.
func TitleValue(chunks []string) map[string]any {
	return map[string]any{"title": richTextSegments(chunks)}
}

// RichTextValue builds a rich_text property payload from ordered text chunks.
// An empty chunk list clears the field.
func RichTextValue(chunks []string) map[string]any {
	return map[string]any{"rich_text": richTextSegments(chunks)}
}

// URLValue builds a url property payload. An empty value clears the field by
// writing an explicit null.
func URLValue(value string) map[string]any {
	if value == "" {
		return map[string]any{"url": nil}
	}
	return map[string]any{"url": value}
}

// SelectValue builds a select property payload. An empty name clears the
// field by writing an explicit null.
func SelectValue(name string) map[string]any {
	if name == "" {
		return map[string]any{"select": nil}
	}
	return map[string]any{"select": map[string]any{"name": name}}
}

// NumberValue builds a number property payload.
func NumberValue(value float64) map[string]any {
	return map[string]any{"number": value}
}

func richTextSegments(chunks []string) []map[string]any {
	segments := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		segments = append(segments, map[string]any{
			"text": map[string]any{"content": chunk},
		})
	}
	return segments
}
